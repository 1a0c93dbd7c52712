package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/campusdesk/internal/clock"
	"github.com/campusdesk/campusdesk/internal/db"
	"github.com/campusdesk/campusdesk/internal/service"
	"github.com/campusdesk/campusdesk/internal/sla"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// setupTestServer creates a server backed by an in-memory database.
func setupTestServer(t *testing.T) (*Server, *clock.FakeClock) {
	t.Helper()

	database := db.NewTestDB(t)
	t.Cleanup(func() { database.Close() })

	clk := clock.Fake(t0)
	svc := service.NewTicketService(db.NewStore(database.DB), service.Options{
		Policy: sla.DefaultPolicy(),
		Clock:  clk,
	})

	srv, err := New(Config{Service: svc, DB: database.DB})
	require.NoError(t, err)
	return srv, clk
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func createTicket(t *testing.T, srv *Server, title string) string {
	t.Helper()
	status, body := doRequest(t, srv, http.MethodPost, "/api/tickets", CreateTicketRequest{
		Title:         title,
		Location:      "Nhà A2",
		Room:          "301",
		Priority:      "urgent",
		RequesterID:   "sv001",
		RequesterRole: "student",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	ticket := decode(t, body)["ticket"].(map[string]interface{})
	return ticket["code"].(string)
}

func transition(t *testing.T, srv *Server, code string, req TransitionRequest) (int, map[string]interface{}) {
	t.Helper()
	status, body := doRequest(t, srv, http.MethodPost, "/api/tickets/"+code+"/transitions", req)
	return status, decode(t, body)
}

func TestNew(t *testing.T) {
	t.Run("requires service", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ticket service is required")
	})

	t.Run("sets defaults", func(t *testing.T) {
		srv, _ := setupTestServer(t)
		assert.Equal(t, 8080, srv.config.Port)
		assert.Equal(t, "127.0.0.1", srv.config.Host)
		assert.Equal(t, "127.0.0.1:8080", srv.Address())
	})
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t)

	status, body := doRequest(t, srv, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", decode(t, body)["status"])
}

func TestCreateAndGetTicket(t *testing.T) {
	srv, _ := setupTestServer(t)

	code := createTicket(t, srv, "Projector broken")
	assert.Equal(t, "TK-1", code)

	status, body := doRequest(t, srv, http.MethodGet, "/api/tickets/"+code, nil)
	require.Equal(t, http.StatusOK, status)

	view := decode(t, body)
	assert.Equal(t, false, view["is_overdue"])
	ticket := view["ticket"].(map[string]interface{})
	assert.Equal(t, "open", ticket["status"])
	assert.Equal(t, "2025-01-01T04:00:00Z", ticket["resolve_deadline"])
}

func TestCreateTicketReportsDuplicate(t *testing.T) {
	srv, _ := setupTestServer(t)
	createTicket(t, srv, "Projector broken")

	status, body := doRequest(t, srv, http.MethodPost, "/api/tickets", CreateTicketRequest{
		Title:         "projector broken",
		Location:      "Nhà A2",
		Room:          "301",
		RequesterID:   "sv002",
		RequesterRole: "student",
	})
	require.Equal(t, http.StatusCreated, status)

	result := decode(t, body)
	dup, ok := result["duplicate_candidate"].(map[string]interface{})
	require.True(t, ok, "expected duplicate_candidate in %s", body)
	assert.Equal(t, "TK-1", dup["code"])
}

func TestCreateTicketValidation(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name   string
		req    CreateTicketRequest
		status int
	}{
		{"missing requester", CreateTicketRequest{Title: "x", RequesterRole: "student"}, http.StatusUnprocessableEntity},
		{"bad role", CreateTicketRequest{Title: "x", RequesterID: "sv1", RequesterRole: "dean"}, http.StatusUnprocessableEntity},
		{"bad priority", CreateTicketRequest{Title: "x", Priority: "asap", RequesterID: "sv1", RequesterRole: "student"}, http.StatusUnprocessableEntity},
		{"missing title", CreateTicketRequest{RequesterID: "sv1", RequesterRole: "student"}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, srv, http.MethodPost, "/api/tickets", tt.req)
			assert.Equal(t, tt.status, status, string(body))
			assert.Equal(t, "ValidationError", decode(t, body)["kind"])
		})
	}
}

func TestMalformedBody(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTicketNotFound(t *testing.T) {
	srv, _ := setupTestServer(t)

	status, body := doRequest(t, srv, http.MethodGet, "/api/tickets/TK-99", nil)
	assert.Equal(t, http.StatusNotFound, status)

	resp := decode(t, body)
	assert.Equal(t, "NotFoundError", resp["kind"])
	assert.NotEmpty(t, resp["suggestion"])
}

func TestTransitionLifecycle(t *testing.T) {
	srv, clk := setupTestServer(t)
	code := createTicket(t, srv, "Wi-Fi down")

	clk.Advance(10 * time.Minute)
	status, resp := transition(t, srv, code, TransitionRequest{
		actorFields: actorFields{ActorID: "admin", ActorRole: "admin"},
		To:          "assigned",
		AssigneeID:  "staff.an",
	})
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "open", resp["previous_status"])

	clk.Advance(20 * time.Minute)
	status, resp = transition(t, srv, code, TransitionRequest{
		actorFields: actorFields{ActorID: "staff.an", ActorRole: "staff"},
		To:          "in-progress",
	})
	require.Equal(t, http.StatusOK, status, resp)

	clk.Advance(30 * time.Minute)
	status, resp = transition(t, srv, code, TransitionRequest{
		actorFields: actorFields{ActorID: "staff.an", ActorRole: "staff"},
		To:          "resolved",
		Note:        "Restarted the access point",
	})
	require.Equal(t, http.StatusOK, status, resp)

	status, body := doRequest(t, srv, http.MethodGet, "/api/tickets/"+code+"/timeline", nil)
	require.Equal(t, http.StatusOK, status)
	tl := decode(t, body)
	assert.Len(t, tl["entries"], 4)
	assert.Equal(t, float64(10), tl["response_time_minutes"])
	assert.Equal(t, float64(60), tl["resolution_time_minutes"])
}

func TestTransitionRejected(t *testing.T) {
	srv, _ := setupTestServer(t)
	code := createTicket(t, srv, "Door lock")

	status, resp := transition(t, srv, code, TransitionRequest{
		actorFields: actorFields{ActorID: "staff.an", ActorRole: "staff"},
		To:          "resolved",
		Note:        "done",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "ValidationError", resp["kind"])

	_, body := doRequest(t, srv, http.MethodGet, "/api/tickets/"+code, nil)
	ticket := decode(t, body)["ticket"].(map[string]interface{})
	assert.Equal(t, "open", ticket["status"])
	assert.Len(t, ticket["events"], 1)
}

func TestCommentAndFeedback(t *testing.T) {
	srv, clk := setupTestServer(t)
	code := createTicket(t, srv, "Leaking tap")

	clk.Advance(time.Minute)
	status, body := doRequest(t, srv, http.MethodPost, "/api/tickets/"+code+"/comments", CommentRequest{
		actorFields: actorFields{ActorID: "sv001", ActorRole: "student"},
		Text:        "Still dripping",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, "comment", decode(t, body)["event_type"])

	status, body = doRequest(t, srv, http.MethodPut, "/api/tickets/"+code+"/feedback", FeedbackRequest{
		actorFields: actorFields{ActorID: "sv001", ActorRole: "student"},
		Rating:      5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))
}

func TestCategories(t *testing.T) {
	srv, _ := setupTestServer(t)

	status, body := doRequest(t, srv, http.MethodPost, "/api/categories", CategoryRequest{
		actorFields:     actorFields{ActorID: "admin", ActorRole: "admin"},
		Name:            "Network",
		Department:      "IT",
		SLAResolveHours: 8,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = doRequest(t, srv, http.MethodPost, "/api/categories", CategoryRequest{
		actorFields:     actorFields{ActorID: "sv001", ActorRole: "student"},
		Name:            "Parking",
		Department:      "Security",
		SLAResolveHours: 8,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	status, body = doRequest(t, srv, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode(t, body)["data"], 1)
}

func TestListTicketsAndOverdue(t *testing.T) {
	srv, clk := setupTestServer(t)
	code := createTicket(t, srv, "Broken chair")
	createTicket(t, srv, "Broken light")

	status, resp := transition(t, srv, code, TransitionRequest{
		actorFields: actorFields{ActorID: "admin", ActorRole: "admin"},
		To:          "assigned",
		AssigneeID:  "staff.an",
	})
	require.Equal(t, http.StatusOK, status, resp)

	status, body := doRequest(t, srv, http.MethodGet, "/api/tickets?status=open", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode(t, body)["data"], 1)

	status, body = doRequest(t, srv, http.MethodGet, "/api/tickets?overdue=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode(t, body)["data"], 0)

	clk.Advance(5 * time.Hour)

	status, body = doRequest(t, srv, http.MethodGet, "/api/tickets?overdue=true", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode(t, body)["data"], 1)

	status, body = doRequest(t, srv, http.MethodGet, "/api/overdue", nil)
	require.Equal(t, http.StatusOK, status)
	report := decode(t, body)
	assert.Len(t, report["items"], 1)
	assert.Equal(t, float64(1), report["by_assignee"].(map[string]interface{})["staff.an"])

	status, body = doRequest(t, srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, status)
	summary := decode(t, body)
	assert.Equal(t, float64(1), summary["overdue"])
	assert.Equal(t, float64(1), summary["unassigned"])
	assert.Equal(t, float64(1), summary["by_status"].(map[string]interface{})["assigned"])

	status, _ = doRequest(t, srv, http.MethodGet, "/api/tickets?status=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := setupTestServer(t)

	status, body := doRequest(t, srv, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, decode(t, body), "error")
}

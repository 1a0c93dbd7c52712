package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusdesk/campusdesk/internal/db"
	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/logging"
	"github.com/campusdesk/campusdesk/internal/server"
	"github.com/campusdesk/campusdesk/internal/service"
	"github.com/campusdesk/campusdesk/internal/tasks"
)

// Serve command flags
var (
	servePort          int
	serveHost          string
	serveSweepInterval time.Duration
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host address to bind to (default server.host)")
	serveCmd.Flags().DurationVar(&serveSweepInterval, "sweep-interval", 5*time.Minute, "How often to scan for overdue and auto-close tickets")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the ticket HTTP API. While it runs, the server also logs overdue
tickets every --sweep-interval and, when sla.auto_close_hours is set,
closes resolved tickets whose grace period has passed.

Examples:
  campusdesk serve
  campusdesk serve --port 9000 --host 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return errors.Wrap(err, errors.KindParse, "invalid [log] configuration")
	}
	defer logger.Sync() //nolint:errcheck

	path := GetDBPath()
	if !db.Exists(path) {
		return errors.NotFound("no database found").WithSuggestion(SuggestRunInit)
	}
	database, err := db.Open(path)
	if err != nil {
		return errors.WrapInternal(err, "failed to open database")
	}
	defer database.Close()
	snapshot(cmdContext(cmd), database, false)

	svc := service.NewTicketService(db.NewStore(database.DB), service.Options{
		Policy:   cfg.Policy(),
		Logger:   logger,
		Location: cfg.Location(),
	})

	srv, err := server.New(server.Config{
		Port:           cfg.Server.Port,
		Host:           cfg.Server.Host,
		Service:        svc,
		DB:             database.DB,
		RequestTimeout: 30 * time.Second,
		Logger:         logger,
	})
	if err != nil {
		return errors.Wrap(err, errors.KindGeneral, "failed to create server")
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startSweeps(ctx, svc, cfg.AutoCloseGrace(), logger)

	OutputLine("campusdesk API listening at http://%s", srv.Address())
	OutputLine("Press Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return errors.Wrap(err, errors.KindGeneral, "server error")
	}
	OutputLine("Server stopped")
	return nil
}

// startSweeps runs the overdue report and, when grace > 0, auto-close in
// the background until ctx is done.
func startSweeps(ctx context.Context, svc *service.TicketService, grace time.Duration, logger *zap.Logger) {
	if serveSweepInterval <= 0 {
		return
	}
	sweepLog := logger.Named("sweep")
	onError := func(err error) { sweepLog.Error("sweep failed", zap.Error(err)) }

	go func() {
		reporter := svc.OverdueReporter()
		_ = reporter.RunDaemon(ctx, serveSweepInterval, func(r *tasks.OverdueReport) {
			for _, item := range r.Items {
				sweepLog.Warn("ticket overdue",
					zap.String("ticket", item.Ticket.Code),
					zap.String("assignee", item.Ticket.AssigneeID),
					zap.Duration("overdue_by", item.OverdueBy),
				)
			}
		}, onError)
	}()

	if grace <= 0 {
		return
	}
	go func() {
		_ = svc.AutoCloser(grace).RunDaemon(ctx, serveSweepInterval, func(s *tasks.AutoCloseSummary) {
			if s.Processed > 0 {
				sweepLog.Info("auto-close sweep", zap.Int("closed", s.Closed), zap.Int("errors", s.Errors))
			}
		}, onError)
	}()
}

package db

import (
	"context"
	"testing"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepo_CreateAndGet(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()

	repo := NewCategoryRepo(db.DB)
	c := &models.Category{Name: " Classroom AV ", Department: "IT Services", SLAResolveHours: 4}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Classroom AV", c.Name)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Classroom AV", got.Name)
	assert.Equal(t, 4.0, got.SLAResolveHours)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

	byName, err := repo.GetByName(ctx, "classroom av")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, c.ID, byName.ID)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCategoryRepo_CreateRejects(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()
	repo := NewCategoryRepo(db.DB)

	require.NoError(t, repo.Create(ctx, &models.Category{Name: "Plumbing", SLAResolveHours: 24}))

	err := repo.Create(ctx, &models.Category{Name: "Plumbing", SLAResolveHours: 12})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))
	assert.Contains(t, err.Error(), "already exists")

	err = repo.Create(ctx, &models.Category{Name: "Zero", SLAResolveHours: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindValidation))

	err = repo.Create(ctx, &models.Category{Name: "  ", SLAResolveHours: 1})
	assert.Error(t, err)
}

func TestSeedDefaultCategories(t *testing.T) {
	db := NewTestDB(t)
	defer db.Close()
	ctx := context.Background()

	created, err := SeedDefaultCategories(ctx, db.DB)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCategories), created)

	// Idempotent
	created, err = SeedDefaultCategories(ctx, db.DB)
	require.NoError(t, err)
	assert.Zero(t, created)

	list, err := NewCategoryRepo(db.DB).List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(DefaultCategories))
	assert.Equal(t, "Facilities", list[0].Department, "ordered by department")

	for _, c := range DefaultCategories {
		assert.Empty(t, c.ID, "defaults must not be mutated")
	}
}

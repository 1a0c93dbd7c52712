package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/internal/errors"
	"github.com/campusdesk/campusdesk/internal/models"
	"github.com/google/uuid"
)

// CategoryRepo provides database operations for ticket categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo creates a new CategoryRepo.
func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

const categoryColumns = `id, name, department, sla_resolve_hours, created_at`

// Create creates a new category. ID and CreatedAt are filled in when empty.
func (r *CategoryRepo) Create(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return errors.Validation("invalid category: %v", err)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO categories (` + categoryColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Department, c.SLAResolveHours, FormatTime(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Validation("category %q already exists", c.Name)
		}
		return errors.WrapInternal(err, "failed to create category")
	}
	return nil
}

// GetByID retrieves a category by ID. It returns nil, nil when missing.
func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a category by name, case-insensitively.
func (r *CategoryRepo) GetByName(ctx context.Context, name string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = ? COLLATE NOCASE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.TrimSpace(name)))
}

// Exists checks if a category with the given name exists.
func (r *CategoryRepo) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name)).Scan(&count)
	if err != nil {
		return false, errors.WrapInternal(err, "failed to check category existence")
	}
	return count > 0, nil
}

// List retrieves all categories ordered by department, then name.
func (r *CategoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY department, name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapInternal(err, "failed to list categories")
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapInternal(err, "failed to iterate categories")
	}
	return categories, nil
}

func (r *CategoryRepo) scanOne(row *sql.Row) (*models.Category, error) {
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(s scanner) (*models.Category, error) {
	var c models.Category
	var createdAt sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &c.Department, &c.SLAResolveHours, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.WrapInternal(err, "failed to scan category")
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", c.ID, err)
	}
	c.CreatedAt = t
	return &c, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

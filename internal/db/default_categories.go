package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campusdesk/campusdesk/internal/models"
)

// DefaultCategories are created by `campusdesk init`.
var DefaultCategories = []models.Category{
	{Name: "Network & Wi-Fi", Department: "IT Services", SLAResolveHours: 8},
	{Name: "Classroom AV", Department: "IT Services", SLAResolveHours: 4},
	{Name: "Accounts & Email", Department: "IT Services", SLAResolveHours: 24},
	{Name: "Electrical", Department: "Facilities", SLAResolveHours: 12},
	{Name: "Plumbing", Department: "Facilities", SLAResolveHours: 24},
	{Name: "Air Conditioning", Department: "Facilities", SLAResolveHours: 48},
	{Name: "Furniture", Department: "Facilities", SLAResolveHours: 72},
}

// SeedDefaultCategories creates the default categories. It is idempotent:
// categories whose name already exists are skipped. It returns the number
// of categories created.
func SeedDefaultCategories(ctx context.Context, db *sql.DB) (int, error) {
	repo := NewCategoryRepo(db)

	created := 0
	for _, category := range DefaultCategories {
		exists, err := repo.Exists(ctx, category.Name)
		if err != nil {
			return created, fmt.Errorf("failed to check if category %q exists: %w", category.Name, err)
		}
		if exists {
			continue
		}

		// Copy so the package-level defaults keep empty IDs.
		c := category
		if err := repo.Create(ctx, &c); err != nil {
			return created, fmt.Errorf("failed to create default category %q: %w", category.Name, err)
		}
		created++
	}
	return created, nil
}

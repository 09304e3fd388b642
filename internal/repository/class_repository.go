package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eduops/class-review-api/internal/models"
)

// ClassRepository reads the class roster maintained by roster management.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository instantiates the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns all classes ordered by grade and section.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	query := "SELECT id, name, grade, section FROM classes ORDER BY grade, section"
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	return classes, nil
}

// GetByID returns one class or sql.ErrNoRows.
func (r *ClassRepository) GetByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	query := "SELECT id, name, grade, section FROM classes WHERE id = $1"
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

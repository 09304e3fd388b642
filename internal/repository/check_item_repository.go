package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eduops/class-review-api/internal/models"
)

// CheckItemRepository reads the inspection item catalogue.
type CheckItemRepository struct {
	db *sqlx.DB
}

// NewCheckItemRepository instantiates the repository.
func NewCheckItemRepository(db *sqlx.DB) *CheckItemRepository {
	return &CheckItemRepository{db: db}
}

// ListActive returns active items, optionally narrowed to one module.
func (r *CheckItemRepository) ListActive(ctx context.Context, module models.CheckModule) ([]models.CheckItem, error) {
	query := "SELECT id, code, title, module, is_dynamic, date, is_active FROM check_items WHERE is_active = TRUE"
	var args []interface{}
	if module != "" {
		args = append(args, string(module))
		query += fmt.Sprintf(" AND module = $%d", len(args))
	}
	query += " ORDER BY title"

	var items []models.CheckItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("query check items: %w", err)
	}
	return items, nil
}

// GetByCode returns the active item with the given stable code, or nil when
// no such item is configured.
func (r *CheckItemRepository) GetByCode(ctx context.Context, code string) (*models.CheckItem, error) {
	var item models.CheckItem
	query := "SELECT id, code, title, module, is_dynamic, date, is_active FROM check_items WHERE code = $1 AND is_active = TRUE"
	if err := r.db.GetContext(ctx, &item, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query check item %s: %w", code, err)
	}
	return &item, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eduops/class-review-api/internal/models"
)

// pgUniqueViolation is the class 23 error code for unique constraint failures.
const pgUniqueViolation = "23505"

// AnalysisCacheRepository persists one generated analysis per (date, scope).
// The table carries a unique constraint on that pair; a losing concurrent
// writer sees created=false, not an error.
type AnalysisCacheRepository struct {
	db *sqlx.DB
}

// NewAnalysisCacheRepository instantiates the repository.
func NewAnalysisCacheRepository(db *sqlx.DB) *AnalysisCacheRepository {
	return &AnalysisCacheRepository{db: db}
}

// Get returns the cached entry for the key, or nil on a miss.
func (r *AnalysisCacheRepository) Get(ctx context.Context, date, scope string) (*models.AnalysisCacheEntry, error) {
	var entry models.AnalysisCacheEntry
	query := "SELECT id, date, scope, content, created_at FROM analysis_cache WHERE date = $1 AND scope = $2"
	if err := r.db.GetContext(ctx, &entry, query, date, scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query analysis cache: %w", err)
	}
	return &entry, nil
}

// CreateIfAbsent inserts the entry unless the key is already taken. It
// reports whether this call created the row.
func (r *AnalysisCacheRepository) CreateIfAbsent(ctx context.Context, entry *models.AnalysisCacheEntry) (bool, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO analysis_cache (id, date, scope, content, created_at) VALUES ($1, $2, $3, $4, $5)"
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.Date, entry.Scope, entry.Content, entry.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("insert analysis cache: %w", err)
	}
	return true, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eduops/class-review-api/internal/models"
)

// CalendarRepository reads the school calendar configuration: the active
// semester bounds and its week table.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository instantiates the repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

type semesterRow struct {
	ID            string       `db:"id"`
	SemesterStart sql.NullTime `db:"semester_start"`
	SemesterEnd   sql.NullTime `db:"semester_end"`
}

// ActiveCalendar returns the active semester with its week table, or nil
// when no semester is configured.
func (r *CalendarRepository) ActiveCalendar(ctx context.Context) (*models.SchoolCalendar, error) {
	var row semesterRow
	query := "SELECT id, start_date AS semester_start, end_date AS semester_end FROM semesters WHERE is_active = TRUE LIMIT 1"
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query active semester: %w", err)
	}
	if !row.SemesterStart.Valid || !row.SemesterEnd.Valid {
		return nil, nil
	}

	var weeks []models.SchoolWeek
	weekQuery := "SELECT number, start_date, end_date FROM school_weeks WHERE semester_id = $1 ORDER BY number"
	if err := r.db.SelectContext(ctx, &weeks, weekQuery, row.ID); err != nil {
		return nil, fmt.Errorf("query school weeks: %w", err)
	}

	return &models.SchoolCalendar{
		SemesterStart: row.SemesterStart.Time,
		SemesterEnd:   row.SemesterEnd.Time,
		Weeks:         weeks,
	}, nil
}

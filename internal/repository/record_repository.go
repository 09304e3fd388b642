package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eduops/class-review-api/internal/models"
)

const recordColumns = `r.id, r.date, r.class_id, r.check_item_id,
	i.code AS item_code, i.title AS item_title, i.module AS item_module,
	r.passed, r.option_value, r.comment, r.scored_by_id, r.scored_by_name,
	r.review_action, r.original_passed, r.reviewed_by_id, r.reviewed_by_name, r.reviewed_at`

// RecordRepository reads and writes check records. It implements the
// RecordStore contract the review engine depends on.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository instantiates the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// FindRecords returns check records matching the filter. Results carry the
// joined item code/title so aggregation can group without a second query.
func (r *RecordRepository) FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.CheckRecord, error) {
	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(recordColumns)
	builder.WriteString(" FROM check_records r JOIN check_items i ON i.id = r.check_item_id WHERE 1=1")

	var args []interface{}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		builder.WriteString(fmt.Sprintf(" AND r.date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		builder.WriteString(fmt.Sprintf(" AND r.date <= $%d", len(args)))
	}
	if len(filter.ClassIDs) > 0 {
		args = append(args, pq.Array(filter.ClassIDs))
		builder.WriteString(fmt.Sprintf(" AND r.class_id = ANY($%d)", len(args)))
	}
	if filter.Module != "" {
		args = append(args, string(filter.Module))
		builder.WriteString(fmt.Sprintf(" AND i.module = $%d", len(args)))
	}
	if filter.ItemCode != "" {
		args = append(args, filter.ItemCode)
		builder.WriteString(fmt.Sprintf(" AND i.code = $%d", len(args)))
	}

	var records []models.CheckRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query check records: %w", err)
	}
	return records, nil
}

// WeeklyGrades returns the weekly letter grades for the classes within the
// date range, one row per (class, week).
func (r *RecordRepository) WeeklyGrades(ctx context.Context, classIDs []string, from, to time.Time) ([]models.WeeklyGrade, error) {
	query := `SELECT r.class_id, r.date AS week_start, r.option_value AS grade
		FROM check_records r
		JOIN check_items i ON i.id = r.check_item_id
		WHERE i.code = $1 AND r.date >= $2 AND r.date <= $3 AND r.option_value IS NOT NULL`
	args := []interface{}{models.WeeklyGradeCode, from, to}
	if len(classIDs) > 0 {
		args = append(args, pq.Array(classIDs))
		query += fmt.Sprintf(" AND r.class_id = ANY($%d)", len(args))
	}
	query += " ORDER BY r.class_id, r.date"

	var grades []models.WeeklyGrade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("query weekly grades: %w", err)
	}
	return grades, nil
}

// UpsertWeeklyGrade writes one weekly grade record; a later submission for
// the same (class, item, date) replaces the earlier one.
func (r *RecordRepository) UpsertWeeklyGrade(ctx context.Context, record *models.CheckRecord) error {
	query := `INSERT INTO check_records
		(id, date, class_id, check_item_id, option_value, comment, scored_by_id, scored_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (class_id, check_item_id, date) DO UPDATE SET
			option_value = EXCLUDED.option_value,
			comment = EXCLUDED.comment,
			scored_by_id = EXCLUDED.scored_by_id,
			scored_by_name = EXCLUDED.scored_by_name`
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.Date, record.ClassID, record.CheckItemID,
		record.OptionValue, record.Comment, record.ScoredByID, record.ScoredByName,
	); err != nil {
		return fmt.Errorf("upsert weekly grade: %w", err)
	}
	return nil
}

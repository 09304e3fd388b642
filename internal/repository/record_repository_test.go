package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/eduops/class-review-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "date", "class_id", "check_item_id",
		"item_code", "item_title", "item_module",
		"passed", "option_value", "comment", "scored_by_id", "scored_by_name",
		"review_action", "original_passed", "reviewed_by_id", "reviewed_by_name", "reviewed_at",
	})
}

func TestRecordRepositoryFindRecordsBuildsFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	from := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)

	rows := recordRows().
		AddRow("rec-1", from, "class-1", "item-1", "D-1", "Hygiene", "DAILY",
			true, nil, nil, "user-1", "Ms. Lin", nil, nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM check_records r JOIN check_items i ON i.id = r.check_item_id WHERE 1=1 AND r.date >= $1 AND r.date <= $2 AND r.class_id = ANY($3) AND i.module = $4")).
		WithArgs(from, to, pq.Array([]string{"class-1"}), "DAILY").
		WillReturnRows(rows)

	records, err := repo.FindRecords(context.Background(), models.RecordFilter{
		DateFrom: &from,
		DateTo:   &to,
		ClassIDs: []string{"class-1"},
		Module:   models.ModuleDaily,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "rec-1", records[0].ID)
	require.NotNil(t, records[0].ItemCode)
	require.Equal(t, "D-1", *records[0].ItemCode)
	require.NotNil(t, records[0].Passed)
	require.True(t, *records[0].Passed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryFindRecordsNoFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1")).
		WillReturnRows(recordRows())

	records, err := repo.FindRecords(context.Background(), models.RecordFilter{})
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryWeeklyGrades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	from := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"class_id", "week_start", "grade"}).
		AddRow("class-1", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), "A").
		AddRow("class-1", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), "B")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.code = $1 AND r.date >= $2 AND r.date <= $3 AND r.option_value IS NOT NULL AND r.class_id = ANY($4) ORDER BY r.class_id, r.date")).
		WithArgs(models.WeeklyGradeCode, from, to, pq.Array([]string{"class-1"})).
		WillReturnRows(rows)

	grades, err := repo.WeeklyGrades(context.Background(), []string{"class-1"}, from, to)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "A", grades[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryUpsertWeeklyGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecordRepository(db)
	grade := "A"
	record := &models.CheckRecord{
		ID:           "rec-1",
		Date:         time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		ClassID:      "class-1",
		CheckItemID:  "item-w5",
		OptionValue:  &grade,
		ScoredByID:   "user-1",
		ScoredByName: "Ms. Lin",
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (class_id, check_item_id, date) DO UPDATE")).
		WithArgs(record.ID, record.Date, record.ClassID, record.CheckItemID, record.OptionValue, record.Comment, record.ScoredByID, record.ScoredByName).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertWeeklyGrade(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduops/class-review-api/internal/models"
)

type fakeCalendarRepo struct {
	calendar *models.SchoolCalendar
	err      error
}

func (f *fakeCalendarRepo) ActiveCalendar(context.Context) (*models.SchoolCalendar, error) {
	return f.calendar, f.err
}

func springCalendar() *models.SchoolCalendar {
	return &models.SchoolCalendar{
		SemesterStart: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		SemesterEnd:   time.Date(2026, 6, 28, 0, 0, 0, 0, time.UTC),
		Weeks: []models.SchoolWeek{
			{Number: 1, StartDate: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
			{Number: 2, StartDate: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestCalendarResolveSchoolWeek(t *testing.T) {
	svc := NewCalendarService(&fakeCalendarRepo{calendar: springCalendar()}, zap.NewNop())

	window := svc.Resolve(context.Background(), time.Date(2026, 2, 18, 14, 30, 0, 0, time.UTC))
	assert.Equal(t, models.WindowSchool, window.Mode)
	require.NotNil(t, window.SchoolWeekNumber)
	assert.Equal(t, 2, *window.SchoolWeekNumber)
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), window.StartDate)
	assert.Equal(t, time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC), window.EndDate)
}

func TestCalendarResolveOutsideSemester(t *testing.T) {
	svc := NewCalendarService(&fakeCalendarRepo{calendar: springCalendar()}, zap.NewNop())

	// A Wednesday in July, after the semester end.
	window := svc.Resolve(context.Background(), time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, models.WindowNatural, window.Mode)
	assert.Nil(t, window.SchoolWeekNumber)
	assert.Equal(t, time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC), window.StartDate)
	assert.Equal(t, time.Date(2026, 7, 19, 0, 0, 0, 0, time.UTC), window.EndDate)
}

func TestCalendarResolveDegradesOnLookupFailure(t *testing.T) {
	svc := NewCalendarService(&fakeCalendarRepo{err: errors.New("db down")}, zap.NewNop())

	window := svc.Resolve(context.Background(), time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, models.WindowNatural, window.Mode)
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), window.StartDate)
}

func TestCalendarResolveDateInsideSemesterButNoWeekRow(t *testing.T) {
	cal := springCalendar()
	cal.SemesterEnd = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	svc := NewCalendarService(&fakeCalendarRepo{calendar: cal}, zap.NewNop())

	window := svc.Resolve(context.Background(), time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, models.WindowNatural, window.Mode)
}

func TestNaturalWeekSundayBelongsToPrecedingMonday(t *testing.T) {
	window := NaturalWeek(time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), window.StartDate)
	assert.Equal(t, time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC), window.EndDate)
}

func TestShiftWeeks(t *testing.T) {
	two := 2
	window := models.ReportingWindow{
		StartDate:        time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC),
		Mode:             models.WindowSchool,
		SchoolWeekNumber: &two,
	}

	prev := ShiftWeeks(window, -1)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), prev.StartDate)
	require.NotNil(t, prev.SchoolWeekNumber)
	assert.Equal(t, 1, *prev.SchoolWeekNumber)

	// Shifting past the first school week loses the numbering.
	before := ShiftWeeks(window, -2)
	assert.Equal(t, models.WindowNatural, before.Mode)
	assert.Nil(t, before.SchoolWeekNumber)

	next := ShiftWeeks(window, 1)
	assert.Equal(t, 3, *next.SchoolWeekNumber)
}

func TestLastNWorkingDaysSkipsWeekends(t *testing.T) {
	// Monday 2026-02-16 backward: Mon 16, Fri 13, Thu 12.
	days := LastNWorkingDays(time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC), 3)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), days[1])
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), days[2])

	assert.Nil(t, LastNWorkingDays(time.Now(), 0))
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eduops/class-review-api/internal/models"
)

type schoolCalendarRepository interface {
	ActiveCalendar(ctx context.Context) (*models.SchoolCalendar, error)
}

// CalendarService maps reference dates to reporting windows. School-calendar
// weeks take precedence while the semester is in session; outside of it the
// ISO natural week (Monday start) applies.
type CalendarService struct {
	repo   schoolCalendarRepository
	logger *zap.Logger
}

// NewCalendarService constructs the service.
func NewCalendarService(repo schoolCalendarRepository, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, logger: logger}
}

// Resolve returns the reporting window covering the reference date. Any
// calendar lookup failure degrades to natural-week mode, never an error.
func (s *CalendarService) Resolve(ctx context.Context, today time.Time) models.ReportingWindow {
	day := dateOnly(today)
	if s.repo == nil {
		return NaturalWeek(day)
	}
	cal, err := s.repo.ActiveCalendar(ctx)
	if err != nil {
		s.logger.Warn("school calendar lookup failed, using natural week", zap.Error(err))
		return NaturalWeek(day)
	}
	if cal == nil || day.Before(dateOnly(cal.SemesterStart)) || day.After(dateOnly(cal.SemesterEnd)) {
		return NaturalWeek(day)
	}
	for _, week := range cal.Weeks {
		if !day.Before(dateOnly(week.StartDate)) && !day.After(dateOnly(week.EndDate)) {
			number := week.Number
			return models.ReportingWindow{
				StartDate:        dateOnly(week.StartDate),
				EndDate:          dateOnly(week.EndDate),
				Mode:             models.WindowSchool,
				SchoolWeekNumber: &number,
			}
		}
	}
	return NaturalWeek(day)
}

// NaturalWeek returns the Monday-start ISO week covering the given day.
func NaturalWeek(day time.Time) models.ReportingWindow {
	day = dateOnly(day)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return models.ReportingWindow{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 6),
		Mode:      models.WindowNatural,
	}
}

// ShiftWeeks returns the window n weeks later (negative n shifts earlier).
// The school week number follows the shift while it stays positive; a shift
// that leaves the known table degrades to natural mode.
func ShiftWeeks(window models.ReportingWindow, n int) models.ReportingWindow {
	shifted := models.ReportingWindow{
		StartDate: window.StartDate.AddDate(0, 0, 7*n),
		EndDate:   window.EndDate.AddDate(0, 0, 7*n),
		Mode:      window.Mode,
	}
	if window.Mode == models.WindowSchool && window.SchoolWeekNumber != nil {
		number := *window.SchoolWeekNumber + n
		if number >= 1 {
			shifted.SchoolWeekNumber = &number
			return shifted
		}
	}
	shifted.Mode = models.WindowNatural
	shifted.SchoolWeekNumber = nil
	return shifted
}

// LastNWorkingDays walks backward from today collecting n weekdays,
// returned in ascending order. Saturdays and Sundays are skipped.
func LastNWorkingDays(today time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	cursor := dateOnly(today)
	for len(days) < n {
		if wd := cursor.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, cursor)
		}
		cursor = cursor.AddDate(0, 0, -1)
	}
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

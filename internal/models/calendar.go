package models

import "time"

// WindowMode reports whether a window came from the school calendar or the ISO calendar.
type WindowMode string

const (
	WindowSchool  WindowMode = "school"
	WindowNatural WindowMode = "natural"
)

// SchoolWeek is one row of the school-calendar week table.
type SchoolWeek struct {
	Number    int       `db:"number" json:"number"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
}

// SchoolCalendar holds the active semester configuration.
type SchoolCalendar struct {
	SemesterStart time.Time    `db:"semester_start" json:"semester_start"`
	SemesterEnd   time.Time    `db:"semester_end" json:"semester_end"`
	Weeks         []SchoolWeek `json:"weeks"`
}

// ReportingWindow is the resolved reporting period for a reference date.
// Recomputed per request, never persisted.
type ReportingWindow struct {
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	Mode             WindowMode `json:"mode"`
	SchoolWeekNumber *int       `json:"school_week_number,omitempty"`
}

// Contains reports whether the calendar day falls inside the window.
func (w ReportingWindow) Contains(day time.Time) bool {
	return !day.Before(w.StartDate) && !day.After(w.EndDate)
}

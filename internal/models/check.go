package models

import "time"

// CheckModule distinguishes daily pass/fail items from weekly option items.
type CheckModule string

const (
	ModuleDaily  CheckModule = "DAILY"
	ModuleWeekly CheckModule = "WEEKLY"
)

// WeeklyGradeCode is the check item carrying the authoritative weekly letter grade.
const WeeklyGradeCode = "W-5"

// ReviewAction marks the outcome of a record correction.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "APPROVE"
	ReviewRevise  ReviewAction = "REVISE"
)

// CheckItem is an inspection item. Dynamic items are bound to a single date.
type CheckItem struct {
	ID       string      `db:"id" json:"id"`
	Code     *string     `db:"code" json:"code"`
	Title    string      `db:"title" json:"title"`
	Module   CheckModule `db:"module" json:"module"`
	Dynamic  bool        `db:"is_dynamic" json:"is_dynamic"`
	Date     *time.Time  `db:"date" json:"date,omitempty"`
	IsActive bool        `db:"is_active" json:"is_active"`
}

// Key returns the stable grouping key for the item: code when present, id otherwise.
func (i CheckItem) Key() string {
	if i.Code != nil && *i.Code != "" {
		return *i.Code
	}
	return i.ID
}

// CheckRecord is one authoritative check result per (class, item, day).
// A correction replaces the record for that key; OriginalPassed keeps the
// pre-correction value for audit.
type CheckRecord struct {
	ID             string        `db:"id" json:"id"`
	Date           time.Time     `db:"date" json:"date"`
	ClassID        string        `db:"class_id" json:"class_id"`
	CheckItemID    string        `db:"check_item_id" json:"check_item_id"`
	ItemCode       *string       `db:"item_code" json:"item_code,omitempty"`
	ItemTitle      string        `db:"item_title" json:"item_title"`
	ItemModule     CheckModule   `db:"item_module" json:"item_module"`
	Passed         *bool         `db:"passed" json:"passed"`
	OptionValue    *string       `db:"option_value" json:"option_value,omitempty"`
	Comment        *string       `db:"comment" json:"comment,omitempty"`
	ScoredByID     string        `db:"scored_by_id" json:"scored_by_id"`
	ScoredByName   string        `db:"scored_by_name" json:"scored_by_name"`
	ReviewAction   *ReviewAction `db:"review_action" json:"review_action,omitempty"`
	OriginalPassed *bool         `db:"original_passed" json:"original_passed,omitempty"`
	ReviewedByID   *string       `db:"reviewed_by_id" json:"reviewed_by_id,omitempty"`
	ReviewedByName *string       `db:"reviewed_by_name" json:"reviewed_by_name,omitempty"`
	ReviewedAt     *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// ItemKey returns the stable grouping key for the record's item.
func (r CheckRecord) ItemKey() string {
	if r.ItemCode != nil && *r.ItemCode != "" {
		return *r.ItemCode
	}
	return r.CheckItemID
}

// RecordFilter narrows record queries. Zero values mean "no constraint".
type RecordFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	ClassIDs []string
	Module   CheckModule
	ItemCode string
}

// WeeklyGrade is one class's letter grade for one reporting week.
type WeeklyGrade struct {
	ClassID   string    `db:"class_id" json:"class_id"`
	WeekStart time.Time `db:"week_start" json:"week_start"`
	Grade     string    `db:"grade" json:"grade"`
}

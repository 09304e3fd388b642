package models

import "time"

// AnalysisSource records which pipeline produced an analysis.
type AnalysisSource string

const (
	SourceLLM      AnalysisSource = "llm"
	SourceRule     AnalysisSource = "rule"
	SourceFallback AnalysisSource = "fallback"
)

// TrendCategory summarises the week-over-week movement.
type TrendCategory string

const (
	TrendUp     TrendCategory = "up"
	TrendDown   TrendCategory = "down"
	TrendStable TrendCategory = "stable"
)

// RiskLevel tiers a failure rate.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
)

// SuggestionKind is a stable enum the caller maps to localized text.
type SuggestionKind string

const (
	SuggestIntervene SuggestionKind = "intervene"
	SuggestMonitor   SuggestionKind = "monitor"
)

// TrendData compares the current week against the previous week and four weeks ago.
type TrendData struct {
	WeekRate         int           `json:"week_rate"`
	PrevWeekRate     int           `json:"prev_week_rate"`
	FourWeeksAgoRate int           `json:"four_weeks_ago_rate"`
	WeekDiff         int           `json:"week_diff"`
	MonthDiff        int           `json:"month_diff"`
	SummaryCategory  TrendCategory `json:"summary_category"`
}

// RiskAlert flags one check item whose failure rate crossed a tier threshold.
type RiskAlert struct {
	Title          string         `json:"title"`
	FailRate       int            `json:"fail_rate"`
	Level          RiskLevel      `json:"level"`
	SuggestionKind SuggestionKind `json:"suggestion_kind"`
}

// GradeComparison is one grade's rate next to the school-wide average.
type GradeComparison struct {
	Grade         int `json:"grade"`
	Rate          int `json:"rate"`
	SchoolAverage int `json:"school_average"`
}

// ClassRankEntry positions one class in a ranking, optionally with its worst items.
type ClassRankEntry struct {
	ClassID      string         `json:"class_id"`
	ClassName    string         `json:"class_name"`
	Grade        int            `json:"grade"`
	Rate         int            `json:"rate"`
	FailingItems []ItemFailRate `json:"failing_items,omitempty"`
}

// WeakArea annotates a struggling check item with a suggestion tier.
type WeakArea struct {
	Title    string    `json:"title"`
	FailRate int       `json:"fail_rate"`
	Tier     RiskLevel `json:"tier"`
}

// AnalysisResult is the merged rule/LLM analysis payload returned to callers.
type AnalysisResult struct {
	Source          AnalysisSource    `json:"source"`
	Summary         string            `json:"summary,omitempty"`
	TrendData       *TrendData        `json:"trend_data,omitempty"`
	RiskAlerts      []RiskAlert       `json:"risk_alerts,omitempty"`
	ClassRanking    []ClassRankEntry  `json:"class_ranking,omitempty"`
	WeakAreas       []WeakArea        `json:"weak_areas,omitempty"`
	FocusClasses    []ClassRankEntry  `json:"focus_classes,omitempty"`
	GradeComparison []GradeComparison `json:"grade_comparison,omitempty"`
}

// AnalysisCacheEntry is one persisted analysis keyed by (date, scope).
// At most one row exists per key; concurrent writers race on a unique constraint.
type AnalysisCacheEntry struct {
	ID        string    `db:"id" json:"id"`
	Date      string    `db:"date" json:"date"`
	Scope     string    `db:"scope" json:"scope"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

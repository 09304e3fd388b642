package dto

import "github.com/eduops/class-review-api/internal/models"

// OverviewStats summarises the reporting week.
type OverviewStats struct {
	ClassCount  int `json:"class_count"`
	GradedCount int `json:"graded_count"`
	RecordCount int `json:"record_count"`
	WeekRate    int `json:"week_rate"`
}

// ClassFlag marks a class carrying a streak-based flag.
type ClassFlag struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	Grade     int    `json:"grade"`
	Streak    int    `json:"streak"`
}

// ClassImprovement marks a class whose latest weekly grade improved.
type ClassImprovement struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	Grade     int    `json:"grade"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// TrendPoint is one week's overall rate for the trend chart.
type TrendPoint struct {
	WeekStart        string `json:"week_start"`
	Rate             int    `json:"rate"`
	SchoolWeekNumber *int   `json:"school_week_number,omitempty"`
}

// WeeklyOverviewResponse is the dashboard payload for the reporting week.
type WeeklyOverviewResponse struct {
	Window            models.ReportingWindow `json:"window"`
	Stats             OverviewStats          `json:"stats"`
	GradeDistribution map[string]int         `json:"grade_distribution"`
	ExcellentClasses  []ClassFlag            `json:"excellent_classes"`
	WarningClasses    []ClassFlag            `json:"warning_classes"`
	ImprovedClasses   []ClassImprovement     `json:"improved_classes"`
	WeeklyTrend       []TrendPoint           `json:"weekly_trend"`
	AIAnalysis        models.AnalysisResult  `json:"ai_analysis"`
}

// SubmitWeeklyGradeRequest records one class's weekly letter grade.
type SubmitWeeklyGradeRequest struct {
	ClassID         string `json:"class_id" validate:"required"`
	Grade           string `json:"grade" validate:"required,oneof=A B C"`
	Week            string `json:"week" validate:"omitempty,oneof=current previous"`
	Comment         string `json:"comment"`
	ConfirmOverride bool   `json:"confirm_override"`
}

// SuggestionResponse pairs the advisory grade with its weekly sample.
type SuggestionResponse struct {
	ClassID    string                 `json:"class_id"`
	Window     models.ReportingWindow `json:"window"`
	Rate       models.AggregateRate   `json:"rate"`
	Suggestion models.GradeSuggestion `json:"suggestion"`
}

package models

// GradeTransition records a single-step improvement between the two most recent weeks.
type GradeTransition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GradeStreak summarises a class's trailing weekly-grade streaks.
type GradeStreak struct {
	ConsecutiveA   int              `json:"consecutive_a"`
	ConsecutiveC   int              `json:"consecutive_c"`
	LastTransition *GradeTransition `json:"last_transition,omitempty"`
}

// GradeSuggestion is an advisory letter grade derived from daily data.
// A human operator confirms or overrides it when recording the weekly grade.
type GradeSuggestion struct {
	Grade      string `json:"grade"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

// Suggestion confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

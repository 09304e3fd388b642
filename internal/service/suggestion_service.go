package service

import "github.com/eduops/class-review-api/internal/models"

// Grade cutoffs and sample-size gates for weekly grade suggestions.
const (
	gradeACutoff = 90
	gradeBCutoff = 75

	confidenceLowSamples  = 10
	confidenceHighSamples = 20
)

// SuggestionService converts a class's daily pass rate into an advisory
// letter grade for human confirmation. It never writes records.
type SuggestionService struct{}

// NewSuggestionService constructs the service.
func NewSuggestionService() *SuggestionService {
	return &SuggestionService{}
}

// Suggest derives a grade and a confidence level from the weekly rate.
// Small samples lower the confidence so early-week suggestions stay humble.
func (s *SuggestionService) Suggest(rate models.AggregateRate) models.GradeSuggestion {
	suggestion := models.GradeSuggestion{}
	switch {
	case rate.Rate >= gradeACutoff:
		suggestion.Grade = "A"
		suggestion.Reason = "rate_meets_excellence"
	case rate.Rate >= gradeBCutoff:
		suggestion.Grade = "B"
		suggestion.Reason = "rate_meets_standard"
	default:
		suggestion.Grade = "C"
		suggestion.Reason = "rate_below_standard"
	}
	switch {
	case rate.Total < confidenceLowSamples:
		suggestion.Confidence = models.ConfidenceLow
		suggestion.Reason = "insufficient_sample"
	case rate.Total < confidenceHighSamples:
		suggestion.Confidence = models.ConfidenceMedium
	default:
		suggestion.Confidence = models.ConfidenceHigh
	}
	return suggestion
}

package models

import "math"

// AggregateRate is a derived pass/total summary. Rate is 0-100, rounded.
type AggregateRate struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Rate   int `json:"rate"`
}

// NewAggregateRate computes the rounded rate, reporting 0 for an empty sample.
func NewAggregateRate(passed, total int) AggregateRate {
	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(passed) / float64(total) * 100))
	}
	return AggregateRate{Total: total, Passed: passed, Rate: rate}
}

// ItemFailRate summarises failures for one check item over a window.
type ItemFailRate struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Code     string `json:"code,omitempty"`
	Total    int    `json:"total"`
	Failed   int    `json:"failed"`
	FailRate int    `json:"fail_rate"`
}

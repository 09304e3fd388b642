package service

import (
	"math"

	"github.com/eduops/class-review-api/internal/models"
)

// RateService aggregates raw check records into pass/total rates at class,
// grade, and school granularity. All methods are pure; a record with a nil
// Passed counts toward the total but neither toward passed nor failed.
type RateService struct{}

// NewRateService constructs the service.
func NewRateService() *RateService {
	return &RateService{}
}

// ClassRates groups records by class.
func (s *RateService) ClassRates(records []models.CheckRecord) map[string]models.AggregateRate {
	totals := make(map[string]int)
	passed := make(map[string]int)
	for _, rec := range records {
		totals[rec.ClassID]++
		if rec.Passed != nil && *rec.Passed {
			passed[rec.ClassID]++
		}
	}
	rates := make(map[string]models.AggregateRate, len(totals))
	for classID, total := range totals {
		rates[classID] = models.NewAggregateRate(passed[classID], total)
	}
	return rates
}

// GradeRates groups records by grade number using the class reference list.
// Records for unknown classes are ignored.
func (s *RateService) GradeRates(records []models.CheckRecord, classesByID map[string]models.Class) map[int]models.AggregateRate {
	totals := make(map[int]int)
	passed := make(map[int]int)
	for _, rec := range records {
		class, ok := classesByID[rec.ClassID]
		if !ok {
			continue
		}
		totals[class.Grade]++
		if rec.Passed != nil && *rec.Passed {
			passed[class.Grade]++
		}
	}
	rates := make(map[int]models.AggregateRate, len(totals))
	for grade, total := range totals {
		rates[grade] = models.NewAggregateRate(passed[grade], total)
	}
	return rates
}

// OverallRate aggregates the whole record set.
func (s *RateService) OverallRate(records []models.CheckRecord) models.AggregateRate {
	total := 0
	passed := 0
	for _, rec := range records {
		total++
		if rec.Passed != nil && *rec.Passed {
			passed++
		}
	}
	return models.NewAggregateRate(passed, total)
}

// PerItemFailRates groups records by check item. The stable key is the item
// code when present, the item id otherwise; key collisions keep the
// first-seen title and code.
func (s *RateService) PerItemFailRates(records []models.CheckRecord) map[string]models.ItemFailRate {
	rates := make(map[string]models.ItemFailRate)
	for _, rec := range records {
		key := rec.ItemKey()
		entry, ok := rates[key]
		if !ok {
			entry = models.ItemFailRate{Key: key, Title: rec.ItemTitle}
			if rec.ItemCode != nil {
				entry.Code = *rec.ItemCode
			}
		}
		entry.Total++
		if rec.Passed != nil && !*rec.Passed {
			entry.Failed++
		}
		rates[key] = entry
	}
	for key, entry := range rates {
		if entry.Total > 0 {
			entry.FailRate = int(math.Round(float64(entry.Failed) / float64(entry.Total) * 100))
		}
		rates[key] = entry
	}
	return rates
}

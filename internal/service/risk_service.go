package service

import (
	"sort"

	"github.com/eduops/class-review-api/internal/models"
)

// Threshold constants for the rule-based analysis. Values mirror the
// operational policy the reviewers work with; they are not configurable
// per school yet.
const (
	failRateHigh   = 30
	failRateMedium = 15
	trendThreshold = 2
	riskAlertCap   = 5
	weakAreaCap    = 5
	classItemCap   = 3
)

// RiskService thresholds failure rates into risk tiers and computes trend
// deltas. Given identical inputs the outputs are byte-identical: every list
// is sorted with explicit tie-breaks and no wall-clock access happens here.
type RiskService struct{}

// NewRiskService constructs the service.
func NewRiskService() *RiskService {
	return &RiskService{}
}

// Trend compares the current week against the previous week and four weeks ago.
func (s *RiskService) Trend(weekRate, prevWeekRate, fourWeeksAgoRate int) models.TrendData {
	weekDiff := weekRate - prevWeekRate
	category := models.TrendStable
	switch {
	case weekDiff > trendThreshold:
		category = models.TrendUp
	case weekDiff < -trendThreshold:
		category = models.TrendDown
	}
	return models.TrendData{
		WeekRate:         weekRate,
		PrevWeekRate:     prevWeekRate,
		FourWeeksAgoRate: fourWeeksAgoRate,
		WeekDiff:         weekDiff,
		MonthDiff:        weekRate - fourWeeksAgoRate,
		SummaryCategory:  category,
	}
}

// Alerts tiers per-item failure rates: above 30 is high, above 15 is medium.
// High alerts sort before medium, then by failure rate descending, then by
// title. At most five alerts are returned.
func (s *RiskService) Alerts(itemRates map[string]models.ItemFailRate) []models.RiskAlert {
	alerts := make([]models.RiskAlert, 0, len(itemRates))
	for _, item := range itemRates {
		if item.FailRate <= failRateMedium {
			continue
		}
		alert := models.RiskAlert{
			Title:          item.Title,
			FailRate:       item.FailRate,
			Level:          models.RiskMedium,
			SuggestionKind: models.SuggestMonitor,
		}
		if item.FailRate > failRateHigh {
			alert.Level = models.RiskHigh
			alert.SuggestionKind = models.SuggestIntervene
		}
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Level != alerts[j].Level {
			return alerts[i].Level == models.RiskHigh
		}
		if alerts[i].FailRate != alerts[j].FailRate {
			return alerts[i].FailRate > alerts[j].FailRate
		}
		return alerts[i].Title < alerts[j].Title
	})
	if len(alerts) > riskAlertCap {
		alerts = alerts[:riskAlertCap]
	}
	return alerts
}

// GradeComparison lists each grade's rate next to the school-wide average,
// ordered by grade number.
func (s *RiskService) GradeComparison(gradeRates map[int]models.AggregateRate, overall models.AggregateRate) []models.GradeComparison {
	comparison := make([]models.GradeComparison, 0, len(gradeRates))
	for grade, rate := range gradeRates {
		comparison = append(comparison, models.GradeComparison{
			Grade:         grade,
			Rate:          rate.Rate,
			SchoolAverage: overall.Rate,
		})
	}
	sort.Slice(comparison, func(i, j int) bool {
		return comparison[i].Grade < comparison[j].Grade
	})
	return comparison
}

// FocusClasses ranks classes ascending by rate so the weakest come first.
// Each entry carries up to three of its own failing items.
func (s *RiskService) FocusClasses(classRates map[string]models.AggregateRate, classesByID map[string]models.Class, itemsByClass map[string]map[string]models.ItemFailRate) []models.ClassRankEntry {
	entries := s.rankClasses(classRates, classesByID, itemsByClass)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rate != entries[j].Rate {
			return entries[i].Rate < entries[j].Rate
		}
		return entries[i].ClassName < entries[j].ClassName
	})
	return entries
}

// ClassRanking ranks classes descending by rate for grade-leader views.
func (s *RiskService) ClassRanking(classRates map[string]models.AggregateRate, classesByID map[string]models.Class, itemsByClass map[string]map[string]models.ItemFailRate) []models.ClassRankEntry {
	entries := s.rankClasses(classRates, classesByID, itemsByClass)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rate != entries[j].Rate {
			return entries[i].Rate > entries[j].Rate
		}
		return entries[i].ClassName < entries[j].ClassName
	})
	return entries
}

// WeakAreas lists check items failing above 15 percent, worst first, capped
// at five. Items above 30 percent get the high suggestion tier.
func (s *RiskService) WeakAreas(itemRates map[string]models.ItemFailRate) []models.WeakArea {
	areas := make([]models.WeakArea, 0, len(itemRates))
	for _, item := range itemRates {
		if item.FailRate <= failRateMedium {
			continue
		}
		tier := models.RiskMedium
		if item.FailRate > failRateHigh {
			tier = models.RiskHigh
		}
		areas = append(areas, models.WeakArea{Title: item.Title, FailRate: item.FailRate, Tier: tier})
	}
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].FailRate != areas[j].FailRate {
			return areas[i].FailRate > areas[j].FailRate
		}
		return areas[i].Title < areas[j].Title
	})
	if len(areas) > weakAreaCap {
		areas = areas[:weakAreaCap]
	}
	return areas
}

func (s *RiskService) rankClasses(classRates map[string]models.AggregateRate, classesByID map[string]models.Class, itemsByClass map[string]map[string]models.ItemFailRate) []models.ClassRankEntry {
	entries := make([]models.ClassRankEntry, 0, len(classRates))
	for classID, rate := range classRates {
		entry := models.ClassRankEntry{ClassID: classID, Rate: rate.Rate}
		if class, ok := classesByID[classID]; ok {
			entry.ClassName = class.Name
			entry.Grade = class.Grade
		}
		entry.FailingItems = topFailingItems(itemsByClass[classID])
		entries = append(entries, entry)
	}
	return entries
}

func topFailingItems(itemRates map[string]models.ItemFailRate) []models.ItemFailRate {
	if len(itemRates) == 0 {
		return nil
	}
	items := make([]models.ItemFailRate, 0, len(itemRates))
	for _, item := range itemRates {
		if item.FailRate > failRateMedium {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].FailRate != items[j].FailRate {
			return items[i].FailRate > items[j].FailRate
		}
		return items[i].Title < items[j].Title
	})
	if len(items) > classItemCap {
		items = items[:classItemCap]
	}
	return items
}

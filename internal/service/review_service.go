package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eduops/class-review-api/internal/dto"
	"github.com/eduops/class-review-api/internal/models"
	"github.com/eduops/class-review-api/pkg/config"
	appErrors "github.com/eduops/class-review-api/pkg/errors"
	"github.com/eduops/class-review-api/pkg/export"
)

const dateLayout = "2006-01-02"

type reviewRecordRepository interface {
	FindRecords(ctx context.Context, filter models.RecordFilter) ([]models.CheckRecord, error)
	WeeklyGrades(ctx context.Context, classIDs []string, from, to time.Time) ([]models.WeeklyGrade, error)
	UpsertWeeklyGrade(ctx context.Context, record *models.CheckRecord) error
}

type classLister interface {
	List(ctx context.Context) ([]models.Class, error)
}

type checkItemFinder interface {
	GetByCode(ctx context.Context, code string) (*models.CheckItem, error)
}

// ReviewServiceParams groups constructor dependencies.
type ReviewServiceParams struct {
	Records     reviewRecordRepository
	Classes     classLister
	Items       checkItemFinder
	Calendar    *CalendarService
	Rates       *RateService
	Streaks     *StreakService
	Risk        *RiskService
	Suggestions *SuggestionService
	Analysis    *AnalysisService
	Deadline    *DeadlineService
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Validator   *validator.Validate
	Config      config.ReviewConfig
}

// ReviewService composes the weekly review payloads: window resolution,
// aggregation, streak flags, rule/LLM analysis, and the submission gate.
type ReviewService struct {
	records     reviewRecordRepository
	classes     classLister
	items       checkItemFinder
	calendar    *CalendarService
	rates       *RateService
	streaks     *StreakService
	risk        *RiskService
	suggestions *SuggestionService
	analysis    *AnalysisService
	deadline    *DeadlineService
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	validator   *validator.Validate
	now         func() time.Time
	cfg         config.ReviewConfig
}

// NewReviewService constructs a ReviewService with sane defaults.
func NewReviewService(params ReviewServiceParams) *ReviewService {
	cfg := params.Config
	if cfg.LookbackWeeks <= 0 {
		cfg.LookbackWeeks = 4
	}
	if cfg.RiskWindowDays <= 0 {
		cfg.RiskWindowDays = 30
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	return &ReviewService{
		records:     params.Records,
		classes:     params.Classes,
		items:       params.Items,
		calendar:    params.Calendar,
		rates:       params.Rates,
		streaks:     params.Streaks,
		risk:        params.Risk,
		suggestions: params.Suggestions,
		analysis:    params.Analysis,
		deadline:    params.Deadline,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		validator:   v,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Overview composes the reporting-week dashboard payload for the scope.
// The boolean indicates whether the payload came from cache.
func (s *ReviewService) Overview(ctx context.Context, scope models.Scope) (*dto.WeeklyOverviewResponse, bool, error) {
	now := s.now()
	window := s.calendar.Resolve(ctx, now)

	cacheKey := fmt.Sprintf("review:overview:%s:%s", window.StartDate.Format(dateLayout), scope.Key())
	if s.cache != nil {
		var cached dto.WeeklyOverviewResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	data, err := s.loadWeekData(ctx, scope, window, now)
	if err != nil {
		return nil, false, err
	}

	weekGrades := map[string]string{}
	distribution := map[string]int{"A": 0, "B": 0, "C": 0}
	excellent := []dto.ClassFlag{}
	warning := []dto.ClassFlag{}
	improved := []dto.ClassImprovement{}
	for _, class := range data.classes {
		history := data.weeklyGrades[class.ID]
		grades := make([]string, 0, len(history))
		for _, entry := range history {
			grades = append(grades, entry.Grade)
			if window.Contains(entry.WeekStart) {
				weekGrades[class.ID] = entry.Grade
			}
		}
		streak := s.streaks.Detect(grades)
		if s.streaks.IsExcellent(streak) {
			excellent = append(excellent, dto.ClassFlag{ClassID: class.ID, ClassName: class.Name, Grade: class.Grade, Streak: streak.ConsecutiveA})
		}
		if s.streaks.IsWarning(streak) {
			warning = append(warning, dto.ClassFlag{ClassID: class.ID, ClassName: class.Name, Grade: class.Grade, Streak: streak.ConsecutiveC})
		}
		if streak.LastTransition != nil {
			improved = append(improved, dto.ClassImprovement{
				ClassID:   class.ID,
				ClassName: class.Name,
				Grade:     class.Grade,
				From:      streak.LastTransition.From,
				To:        streak.LastTransition.To,
			})
		}
	}
	for _, grade := range weekGrades {
		distribution[grade]++
	}

	trend := make([]dto.TrendPoint, 0, s.cfg.LookbackWeeks)
	for i := -(s.cfg.LookbackWeeks - 1); i <= 0; i++ {
		w := data.windows[i]
		trend = append(trend, dto.TrendPoint{
			WeekStart:        w.StartDate.Format(dateLayout),
			Rate:             s.rates.OverallRate(data.partitions[i]).Rate,
			SchoolWeekNumber: w.SchoolWeekNumber,
		})
	}

	aiAnalysis := s.analysis.Analyze(ctx, dateOnly(now).Format(dateLayout), scope, data.input)

	resp := &dto.WeeklyOverviewResponse{
		Window: window,
		Stats: dto.OverviewStats{
			ClassCount:  len(data.classes),
			GradedCount: len(weekGrades),
			RecordCount: len(data.partitions[0]),
			WeekRate:    data.input.WeekRate,
		},
		GradeDistribution: distribution,
		ExcellentClasses:  excellent,
		WarningClasses:    warning,
		ImprovedClasses:   improved,
		WeeklyTrend:       trend,
		AIAnalysis:        aiAnalysis,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("overview cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}

// Analysis resolves the standalone analysis payload for the scope.
func (s *ReviewService) Analysis(ctx context.Context, scope models.Scope) (models.AnalysisResult, error) {
	now := s.now()
	window := s.calendar.Resolve(ctx, now)
	data, err := s.loadWeekData(ctx, scope, window, now)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	return s.analysis.Analyze(ctx, dateOnly(now).Format(dateLayout), scope, data.input), nil
}

// Suggestion derives the advisory weekly grade for one class from the
// current week's daily records.
func (s *ReviewService) Suggestion(ctx context.Context, classID string) (*dto.SuggestionResponse, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	now := s.now()
	window := s.calendar.Resolve(ctx, now)
	records, err := s.findRecords(ctx, "suggestion_week", models.RecordFilter{
		DateFrom: &window.StartDate,
		DateTo:   &window.EndDate,
		ClassIDs: []string{classID},
		Module:   models.ModuleDaily,
	})
	if err != nil {
		return nil, err
	}
	rate := s.rates.OverallRate(records)
	return &dto.SuggestionResponse{
		ClassID:    classID,
		Window:     window,
		Rate:       rate,
		Suggestion: s.suggestions.Suggest(rate),
	}, nil
}

// DeadlineStatus evaluates the submission gate for the current reporting week.
func (s *ReviewService) DeadlineStatus(ctx context.Context, role models.UserRole) (*models.DeadlineStatus, error) {
	now := s.now()
	window := s.calendar.Resolve(ctx, now)
	status, err := s.deadline.Evaluate(window, now, role)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// SubmitWeeklyGrade records one class's weekly letter grade after passing
// the deadline gate. A later submission for the same (class, week) replaces
// the earlier one. Admin overrides past the cutoff must be confirmed
// explicitly by the caller.
func (s *ReviewService) SubmitWeeklyGrade(ctx context.Context, scope models.Scope, scorerID, scorerName string, req dto.SubmitWeeklyGradeRequest) (*models.CheckRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	now := s.now()
	window := s.calendar.Resolve(ctx, now)
	if req.Week == "previous" {
		window = ShiftWeeks(window, -1)
	}

	status, err := s.deadline.Evaluate(window, now, scope.Role)
	if err != nil {
		// A broken cutoff rule closes the gate rather than letting writes through.
		return nil, err
	}
	if !status.Allowed {
		return nil, appErrors.ErrDeadlinePassed
	}
	if status.IsOverride && !req.ConfirmOverride {
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "deadline passed; override requires explicit confirmation")
	}

	item, err := s.items.GetByCode(ctx, models.WeeklyGradeCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly grade item")
	}
	if item == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly grade check item is not configured")
	}

	grade := req.Grade
	record := &models.CheckRecord{
		ID:           uuid.NewString(),
		Date:         window.StartDate,
		ClassID:      req.ClassID,
		CheckItemID:  item.ID,
		OptionValue:  &grade,
		ScoredByID:   scorerID,
		ScoredByName: scorerName,
	}
	if req.Comment != "" {
		comment := req.Comment
		record.Comment = &comment
	}
	if err := s.records.UpsertWeeklyGrade(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record weekly grade")
	}

	if s.cache != nil {
		pattern := fmt.Sprintf("review:overview:%s:*", window.StartDate.Format(dateLayout))
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("overview cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
	return record, nil
}

// ExportDataset renders the reporting week as a tabular dataset for the
// CSV/PDF exporters.
func (s *ReviewService) ExportDataset(ctx context.Context, scope models.Scope) (export.Dataset, string, error) {
	now := s.now()
	window := s.calendar.Resolve(ctx, now)
	data, err := s.loadWeekData(ctx, scope, window, now)
	if err != nil {
		return export.Dataset{}, "", err
	}

	weekRates := s.rates.ClassRates(data.partitions[0])
	dataset := export.Dataset{
		Headers: []string{"Class", "Grade", "Week Rate", "Weekly Grade", "Consecutive A", "Consecutive C"},
	}
	classes := append([]models.Class(nil), data.classes...)
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	for _, class := range classes {
		history := data.weeklyGrades[class.ID]
		grades := make([]string, 0, len(history))
		weekGrade := ""
		for _, entry := range history {
			grades = append(grades, entry.Grade)
			if window.Contains(entry.WeekStart) {
				weekGrade = entry.Grade
			}
		}
		streak := s.streaks.Detect(grades)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Class":         class.Name,
			"Grade":         fmt.Sprintf("%d", class.Grade),
			"Week Rate":     fmt.Sprintf("%d%%", weekRates[class.ID].Rate),
			"Weekly Grade":  weekGrade,
			"Consecutive A": fmt.Sprintf("%d", streak.ConsecutiveA),
			"Consecutive C": fmt.Sprintf("%d", streak.ConsecutiveC),
		})
	}
	title := fmt.Sprintf("Weekly review %s", window.StartDate.Format(dateLayout))
	return dataset, title, nil
}

type overviewData struct {
	classes      []models.Class
	classesByID  map[string]models.Class
	windows      map[int]models.ReportingWindow
	partitions   map[int][]models.CheckRecord
	weeklyGrades map[string][]models.WeeklyGrade
	input        AnalysisInput
}

// loadWeekData fetches and partitions everything the overview, analysis and
// export flows share: scoped classes, the daily records for the lookback
// span, the 30-day risk window, and the weekly grade history.
func (s *ReviewService) loadWeekData(ctx context.Context, scope models.Scope, window models.ReportingWindow, now time.Time) (*overviewData, error) {
	classes, err := s.scopedClasses(ctx, scope)
	if err != nil {
		return nil, err
	}
	classesByID := make(map[string]models.Class, len(classes))
	classIDs := make([]string, 0, len(classes))
	for _, class := range classes {
		classesByID[class.ID] = class
		classIDs = append(classIDs, class.ID)
	}
	sort.Strings(classIDs)

	lookback := s.cfg.LookbackWeeks
	windows := make(map[int]models.ReportingWindow, lookback+1)
	for i := -lookback; i <= 0; i++ {
		windows[i] = ShiftWeeks(window, i)
	}

	spanFrom := windows[-lookback].StartDate
	spanRecords, err := s.findRecords(ctx, "review_span", models.RecordFilter{
		DateFrom: &spanFrom,
		DateTo:   &window.EndDate,
		ClassIDs: classIDs,
		Module:   models.ModuleDaily,
	})
	if err != nil {
		return nil, err
	}
	partitions := make(map[int][]models.CheckRecord, lookback+1)
	for _, rec := range spanRecords {
		for i := -lookback; i <= 0; i++ {
			if windows[i].Contains(rec.Date) {
				partitions[i] = append(partitions[i], rec)
				break
			}
		}
	}

	riskFrom := dateOnly(now).AddDate(0, 0, -s.cfg.RiskWindowDays)
	riskTo := dateOnly(now)
	riskRecords, err := s.findRecords(ctx, "review_risk_window", models.RecordFilter{
		DateFrom: &riskFrom,
		DateTo:   &riskTo,
		ClassIDs: classIDs,
		Module:   models.ModuleDaily,
	})
	if err != nil {
		return nil, err
	}

	judged := filterJudged(riskRecords)
	itemsByClass := make(map[string]map[string]models.ItemFailRate)
	byClass := make(map[string][]models.CheckRecord)
	for _, rec := range judged {
		byClass[rec.ClassID] = append(byClass[rec.ClassID], rec)
	}
	for classID, classRecords := range byClass {
		itemsByClass[classID] = s.rates.PerItemFailRates(classRecords)
	}

	grades, err := s.records.WeeklyGrades(ctx, classIDs, spanFrom, window.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly grades")
	}
	weeklyGrades := make(map[string][]models.WeeklyGrade)
	for _, grade := range grades {
		weeklyGrades[grade.ClassID] = append(weeklyGrades[grade.ClassID], grade)
	}
	for classID := range weeklyGrades {
		history := weeklyGrades[classID]
		sort.Slice(history, func(i, j int) bool { return history[i].WeekStart.Before(history[j].WeekStart) })
		weeklyGrades[classID] = history
	}

	fourAgo := -4
	if lookback < 4 {
		fourAgo = -lookback
	}
	input := AnalysisInput{
		WeekRate:         s.rates.OverallRate(partitions[0]).Rate,
		PrevWeekRate:     s.rates.OverallRate(partitions[-1]).Rate,
		FourWeeksAgoRate: s.rates.OverallRate(partitions[fourAgo]).Rate,
		ItemFailRates:    s.rates.PerItemFailRates(judged),
		GradeRates:       s.rates.GradeRates(riskRecords, classesByID),
		Overall:          s.rates.OverallRate(riskRecords),
		ClassRates:       s.rates.ClassRates(riskRecords),
		ClassesByID:      classesByID,
		ItemsByClass:     itemsByClass,
	}

	return &overviewData{
		classes:      classes,
		classesByID:  classesByID,
		windows:      windows,
		partitions:   partitions,
		weeklyGrades: weeklyGrades,
		input:        input,
	}, nil
}

func (s *ReviewService) scopedClasses(ctx context.Context, scope models.Scope) ([]models.Class, error) {
	all, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	switch scope.Role {
	case models.RoleGradeLeader:
		if scope.Grade == nil {
			return all, nil
		}
		filtered := make([]models.Class, 0, len(all))
		for _, class := range all {
			if class.Grade == *scope.Grade {
				filtered = append(filtered, class)
			}
		}
		return filtered, nil
	case models.RoleClassTeacher:
		if scope.ClassID == nil || *scope.ClassID == "" {
			return all, nil
		}
		for _, class := range all {
			if class.ID == *scope.ClassID {
				return []models.Class{class}, nil
			}
		}
		return nil, nil
	default:
		return all, nil
	}
}

func (s *ReviewService) findRecords(ctx context.Context, label string, filter models.RecordFilter) ([]models.CheckRecord, error) {
	start := time.Now()
	records, err := s.records.FindRecords(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check records")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
	return records, nil
}

func filterJudged(records []models.CheckRecord) []models.CheckRecord {
	judged := make([]models.CheckRecord, 0, len(records))
	for _, rec := range records {
		if rec.Passed != nil {
			judged = append(judged, rec)
		}
	}
	return judged
}

package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eduops/class-review-api/internal/llm"
	"github.com/eduops/class-review-api/internal/models"
	"github.com/eduops/class-review-api/pkg/config"
)

// LLMClient is the opaque text generator contract. Implementations must
// return an error on timeout rather than hang.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts llm.GenerateOptions) (*llm.GenerateResult, error)
}

// AnalysisCacheStore persists one analysis per (date, scope). CreateIfAbsent
// reports false when another writer already holds the key.
type AnalysisCacheStore interface {
	Get(ctx context.Context, date, scope string) (*models.AnalysisCacheEntry, error)
	CreateIfAbsent(ctx context.Context, entry *models.AnalysisCacheEntry) (bool, error)
}

// AnalysisInput carries the precomputed aggregates the rule pipeline and the
// LLM prompt are built from.
type AnalysisInput struct {
	WeekRate         int
	PrevWeekRate     int
	FourWeeksAgoRate int
	ItemFailRates    map[string]models.ItemFailRate
	GradeRates       map[int]models.AggregateRate
	Overall          models.AggregateRate
	ClassRates       map[string]models.AggregateRate
	ClassesByID      map[string]models.Class
	ItemsByClass     map[string]map[string]models.ItemFailRate
}

const analysisSystemPrompt = "You are an assistant summarising school class inspection data. " +
	"Respond with a single JSON object matching the provided schema; no prose outside the JSON."

// AnalysisService chooses between a cached LLM-generated analysis and the
// rule-based pipeline, degrading to a minimal rule pass on any failure.
// It never returns an error to its caller.
type AnalysisService struct {
	cache   AnalysisCacheStore
	client  LLMClient
	risk    *RiskService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.LLMConfig
}

// NewAnalysisService constructs the orchestrator.
func NewAnalysisService(cache AnalysisCacheStore, client LLMClient, risk *RiskService, metrics *MetricsService, logger *zap.Logger, cfg config.LLMConfig) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if risk == nil {
		risk = NewRiskService()
	}
	return &AnalysisService{cache: cache, client: client, risk: risk, metrics: metrics, logger: logger, cfg: cfg}
}

// Analyze resolves the analysis for the (date, scope) key. Rule-based roles
// never touch the LLM; eligible roles try the cache, then one bounded
// generation, then the rule fallback.
func (s *AnalysisService) Analyze(ctx context.Context, date string, scope models.Scope, input AnalysisInput) models.AnalysisResult {
	if result, ok := s.readCache(ctx, date, scope.Key()); ok {
		s.recordSource(models.SourceLLM)
		return result
	}

	if !s.llmEligible(scope.Role) {
		result := s.ruleAnalysis(scope, input)
		result.Source = models.SourceRule
		s.recordSource(models.SourceRule)
		return result
	}

	if result, ok := s.generateAndPersist(ctx, date, scope, input); ok {
		s.recordSource(models.SourceLLM)
		return result
	}

	result := s.ruleAnalysis(scope, input)
	result.Source = models.SourceFallback
	s.recordSource(models.SourceFallback)
	return result
}

// llmEligible reports whether the role's analysis may be LLM-generated.
// Admin and grade-leader views stay rule-based.
func (s *AnalysisService) llmEligible(role models.UserRole) bool {
	switch role {
	case models.RoleDutyTeacher, models.RoleClassTeacher:
		return true
	default:
		return false
	}
}

func (s *AnalysisService) readCache(ctx context.Context, date, scopeKey string) (models.AnalysisResult, bool) {
	if s.cache == nil {
		return models.AnalysisResult{}, false
	}
	entry, err := s.cache.Get(ctx, date, scopeKey)
	if err != nil {
		s.logger.Warn("analysis cache read failed", zap.String("date", date), zap.String("scope", scopeKey), zap.Error(err))
		return models.AnalysisResult{}, false
	}
	if entry == nil {
		return models.AnalysisResult{}, false
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(entry.Content), &result); err != nil {
		// Corrupted cache content is a miss, never a caller-visible failure.
		s.logger.Warn("analysis cache entry corrupted", zap.String("date", date), zap.String("scope", scopeKey), zap.Error(err))
		return models.AnalysisResult{}, false
	}
	result.Source = models.SourceLLM
	return result, true
}

func (s *AnalysisService) generateAndPersist(ctx context.Context, date string, scope models.Scope, input AnalysisInput) (models.AnalysisResult, bool) {
	if s.client == nil || !s.cfg.Enabled {
		return models.AnalysisResult{}, false
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userPrompt, err := buildAnalysisPrompt(scope, input)
	if err != nil {
		s.logger.Warn("analysis prompt build failed", zap.Error(err))
		return models.AnalysisResult{}, false
	}

	start := time.Now()
	generated, err := s.client.Generate(callCtx, analysisSystemPrompt, userPrompt, llm.GenerateOptions{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Model:       s.cfg.Model,
	})
	if s.metrics != nil {
		s.metrics.ObserveLLMCall(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("llm generation failed, degrading to rule analysis",
			zap.String("date", date), zap.String("scope", scope.Key()), zap.Error(err))
		return models.AnalysisResult{}, false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(generated.Result), &result); err != nil {
		s.logger.Warn("llm output not valid JSON, degrading to rule analysis",
			zap.String("date", date), zap.String("scope", scope.Key()), zap.Error(err))
		return models.AnalysisResult{}, false
	}
	result.Source = models.SourceLLM

	content, err := json.Marshal(result)
	if err != nil {
		return models.AnalysisResult{}, false
	}
	if s.cache != nil {
		created, err := s.cache.CreateIfAbsent(ctx, &models.AnalysisCacheEntry{
			ID:      uuid.NewString(),
			Date:    date,
			Scope:   scope.Key(),
			Content: string(content),
		})
		if err != nil {
			s.logger.Warn("analysis cache write failed", zap.String("date", date), zap.String("scope", scope.Key()), zap.Error(err))
		} else if !created {
			// A concurrent writer won the unique constraint; their content is
			// authoritative, so return it when readable.
			if winner, ok := s.readCache(ctx, date, scope.Key()); ok {
				return winner, true
			}
		}
	}
	return result, true
}

// ruleAnalysis composes the deterministic analysis for the scope. Admin
// scopes see school-wide focus lists; grade leaders see their ranking and
// weak areas; other scopes get the trend and alert core.
func (s *AnalysisService) ruleAnalysis(scope models.Scope, input AnalysisInput) models.AnalysisResult {
	trend := s.risk.Trend(input.WeekRate, input.PrevWeekRate, input.FourWeeksAgoRate)
	result := models.AnalysisResult{
		TrendData:  &trend,
		RiskAlerts: s.risk.Alerts(input.ItemFailRates),
	}
	switch scope.Role {
	case models.RoleAdmin:
		result.GradeComparison = s.risk.GradeComparison(input.GradeRates, input.Overall)
		result.FocusClasses = s.risk.FocusClasses(input.ClassRates, input.ClassesByID, input.ItemsByClass)
	case models.RoleGradeLeader:
		result.ClassRanking = s.risk.ClassRanking(input.ClassRates, input.ClassesByID, input.ItemsByClass)
		result.WeakAreas = s.risk.WeakAreas(input.ItemFailRates)
	}
	return result
}

func (s *AnalysisService) recordSource(source models.AnalysisSource) {
	if s.metrics != nil {
		s.metrics.RecordAnalysisResult(source)
	}
}

type promptSummary struct {
	Role         models.UserRole       `json:"role"`
	Grade        *int                  `json:"grade,omitempty"`
	WeekRate     int                   `json:"week_rate"`
	PrevWeekRate int                   `json:"prev_week_rate"`
	MonthAgoRate int                   `json:"four_weeks_ago_rate"`
	ItemFails    []models.ItemFailRate `json:"item_fail_rates"`
	Overall      models.AggregateRate  `json:"overall"`
}

func buildAnalysisPrompt(scope models.Scope, input AnalysisInput) (string, error) {
	summary := promptSummary{
		Role:         scope.Role,
		Grade:        scope.Grade,
		WeekRate:     input.WeekRate,
		PrevWeekRate: input.PrevWeekRate,
		MonthAgoRate: input.FourWeeksAgoRate,
		Overall:      input.Overall,
	}
	for _, item := range input.ItemFailRates {
		summary.ItemFails = append(summary.ItemFails, item)
	}
	sort.Slice(summary.ItemFails, func(i, j int) bool {
		return summary.ItemFails[i].Key < summary.ItemFails[j].Key
	})
	raw, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

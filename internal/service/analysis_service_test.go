package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduops/class-review-api/internal/llm"
	"github.com/eduops/class-review-api/internal/models"
	"github.com/eduops/class-review-api/pkg/config"
)

type fakeAnalysisCache struct {
	entries   map[string]*models.AnalysisCacheEntry
	getErr    error
	createErr error
	conflict  bool
	missFirst int
	created   []*models.AnalysisCacheEntry
}

func newFakeAnalysisCache() *fakeAnalysisCache {
	return &fakeAnalysisCache{entries: map[string]*models.AnalysisCacheEntry{}}
}

func (f *fakeAnalysisCache) Get(_ context.Context, date, scope string) (*models.AnalysisCacheEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.missFirst > 0 {
		f.missFirst--
		return nil, nil
	}
	return f.entries[date+"|"+scope], nil
}

func (f *fakeAnalysisCache) CreateIfAbsent(_ context.Context, entry *models.AnalysisCacheEntry) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	if f.conflict {
		return false, nil
	}
	f.created = append(f.created, entry)
	f.entries[entry.Date+"|"+entry.Scope] = entry
	return true, nil
}

type fakeLLM struct {
	result string
	err    error
	calls  int
}

func (f *fakeLLM) Generate(context.Context, string, string, llm.GenerateOptions) (*llm.GenerateResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.GenerateResult{Result: f.result}, nil
}

func enabledLLMConfig() config.LLMConfig {
	return config.LLMConfig{Enabled: true, Timeout: time.Second, Model: "test-model"}
}

func analysisInput() AnalysisInput {
	return AnalysisInput{
		WeekRate:     80,
		PrevWeekRate: 70,
		ItemFailRates: map[string]models.ItemFailRate{
			"D-1": {Key: "D-1", Title: "Hygiene", FailRate: 40},
		},
		GradeRates: map[int]models.AggregateRate{7: models.NewAggregateRate(8, 10)},
		Overall:    models.NewAggregateRate(8, 10),
		ClassRates: map[string]models.AggregateRate{"c1": models.NewAggregateRate(8, 10)},
	}
}

func teacherScope() models.Scope {
	classID := "c1"
	return models.Scope{Role: models.RoleClassTeacher, ClassID: &classID}
}

func TestAnalyzeReturnsCachedContent(t *testing.T) {
	cache := newFakeAnalysisCache()
	scope := teacherScope()
	content, err := json.Marshal(models.AnalysisResult{Summary: "cached week summary"})
	require.NoError(t, err)
	cache.entries["2026-02-18|"+scope.Key()] = &models.AnalysisCacheEntry{Content: string(content)}

	client := &fakeLLM{result: "{}"}
	svc := NewAnalysisService(cache, client, NewRiskService(), nil, zap.NewNop(), enabledLLMConfig())

	result := svc.Analyze(context.Background(), "2026-02-18", scope, analysisInput())
	assert.Equal(t, models.SourceLLM, result.Source)
	assert.Equal(t, "cached week summary", result.Summary)
	assert.Zero(t, client.calls)
}

func TestAnalyzeRuleRolesSkipLLM(t *testing.T) {
	client := &fakeLLM{result: "{}"}
	svc := NewAnalysisService(newFakeAnalysisCache(), client, NewRiskService(), nil, zap.NewNop(), enabledLLMConfig())

	result := svc.Analyze(context.Background(), "2026-02-18", models.Scope{Role: models.RoleAdmin}, analysisInput())
	assert.Equal(t, models.SourceRule, result.Source)
	assert.Zero(t, client.calls)
	require.NotNil(t, result.TrendData)
	assert.Equal(t, models.TrendUp, result.TrendData.SummaryCategory)
	assert.NotEmpty(t, result.RiskAlerts)
	assert.NotEmpty(t, result.GradeComparison)
	assert.NotEmpty(t, result.FocusClasses)
}

func TestAnalyzeGradeLeaderGetsRankingAndWeakAreas(t *testing.T) {
	grade := 7
	svc := NewAnalysisService(newFakeAnalysisCache(), nil, NewRiskService(), nil, zap.NewNop(), config.LLMConfig{})

	result := svc.Analyze(context.Background(), "2026-02-18", models.Scope{Role: models.RoleGradeLeader, Grade: &grade}, analysisInput())
	assert.Equal(t, models.SourceRule, result.Source)
	assert.NotEmpty(t, result.ClassRanking)
	assert.NotEmpty(t, result.WeakAreas)
	assert.Empty(t, result.FocusClasses)
}

func TestAnalyzeGeneratesAndPersists(t *testing.T) {
	cache := newFakeAnalysisCache()
	client := &fakeLLM{result: `{"summary":"generated"}`}
	svc := NewAnalysisService(cache, client, NewRiskService(), nil, zap.NewNop(), enabledLLMConfig())

	result := svc.Analyze(context.Background(), "2026-02-18", teacherScope(), analysisInput())
	assert.Equal(t, models.SourceLLM, result.Source)
	assert.Equal(t, "generated", result.Summary)
	assert.Equal(t, 1, client.calls)
	require.Len(t, cache.created, 1)
	assert.Equal(t, "2026-02-18", cache.created[0].Date)
	assert.Equal(t, teacherScope().Key(), cache.created[0].Scope)
}

func TestAnalyzeFallsBackOnLLMError(t *testing.T) {
	client := &fakeLLM{err: errors.New("timeout")}
	svc := NewAnalysisService(newFakeAnalysisCache(), client, NewRiskService(), nil, zap.NewNop(), enabledLLMConfig())

	result := svc.Analyze(context.Background(), "2026-02-18", teacherScope(), analysisInput())
	assert.Equal(t, models.SourceFallback, result.Source)
	require.NotNil(t, result.TrendData)
	assert.NotEmpty(t, result.RiskAlerts)
}

func TestAnalyzeFallsBackOnInvalidLLMOutput(t *testing.T) {
	client := &fakeLLM{result: "sorry, here is some prose"}
	svc := NewAnalysisService(newFakeAnalysisCache(), client, NewRiskService(), nil, zap.NewNop(), enabledLLMConfig())

	result := svc.Analyze(context.Background(), "2026-02-18", teacherScope(), analysisInput())
	assert.Equal(t, models.SourceFallback, result.Source)
}

func TestAnalyzeDisabledLLMFallsBack(t *testing.T) {
	svc := NewAnalysisService(newFakeAnalysisCache(), nil, NewRiskService(), nil, zap.NewNop(), config.LLMConfig{})

	result := svc.Analyze(context.Background(), "2026-02-18", teacherScope(), analysisInput())
	assert.Equal(t, models.SourceFallback, result.Source)
}

func TestAnalyzeCorruptCacheEntryIsAMiss(t *testing.T) {
	cache := newFakeAnalysisCache()
	scope := teacherScope()
	cache.entries["2026-02-18|"+scope.Key()] = &models.AnalysisCacheEntry{Content: "{not json"}

	svc := NewAnalysisService(cache, nil, NewRiskService(), nil, zap.NewNop(), config.LLMConfig{})

	result := svc.Analyze(context.Background(), "2026-02-18", scope, analysisInput())
	assert.Equal(t, models.SourceFallback, result.Source)
}

func TestAnalyzeLostInsertRaceReturnsWinner(t *testing.T) {
	cache := newFakeAnalysisCache()
	cache.conflict = true
	cache.missFirst = 1
	scope := teacherScope()
	winner, err := json.Marshal(models.AnalysisResult{Summary: "winner"})
	require.NoError(t, err)

	client := &fakeLLM{result: `{"summary":"loser"}`}
	svc := NewAnalysisService(cache, client, NewRiskService(), nil, zap.NewNop(), enabledLLMConfig())

	// The winning writer's row appears between our miss and our insert.
	cache.entries["2026-02-18|"+scope.Key()] = &models.AnalysisCacheEntry{Content: string(winner)}

	result := svc.Analyze(context.Background(), "2026-02-18", scope, analysisInput())
	assert.Equal(t, models.SourceLLM, result.Source)
	assert.Equal(t, "winner", result.Summary)
	assert.Equal(t, 1, client.calls)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduops/class-review-api/internal/dto"
	"github.com/eduops/class-review-api/internal/middleware"
	"github.com/eduops/class-review-api/internal/models"
	appErrors "github.com/eduops/class-review-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeReviewSrv struct {
	overview    *dto.WeeklyOverviewResponse
	overviewHit bool
	overviewErr error
	analysis    models.AnalysisResult
	suggestion  *dto.SuggestionResponse
	deadline    *models.DeadlineStatus
	submitted   *models.CheckRecord
	submitErr   error
	lastSubmit  dto.SubmitWeeklyGradeRequest
}

func (f *fakeReviewSrv) Overview(context.Context, models.Scope) (*dto.WeeklyOverviewResponse, bool, error) {
	return f.overview, f.overviewHit, f.overviewErr
}

func (f *fakeReviewSrv) Analysis(context.Context, models.Scope) (models.AnalysisResult, error) {
	return f.analysis, nil
}

func (f *fakeReviewSrv) Suggestion(context.Context, string) (*dto.SuggestionResponse, error) {
	return f.suggestion, nil
}

func (f *fakeReviewSrv) DeadlineStatus(context.Context, models.UserRole) (*models.DeadlineStatus, error) {
	return f.deadline, nil
}

func (f *fakeReviewSrv) SubmitWeeklyGrade(_ context.Context, _ models.Scope, _, _ string, req dto.SubmitWeeklyGradeRequest) (*models.CheckRecord, error) {
	f.lastSubmit = req
	return f.submitted, f.submitErr
}

func teacherClaims() *models.JWTClaims {
	classID := "c1"
	return &models.JWTClaims{UserID: "user-1", Name: "Ms. Lin", Role: models.RoleClassTeacher, ClassID: &classID}
}

func TestReviewHandlerOverviewRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(&fakeReviewSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/review/overview", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReviewHandlerOverviewSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(&fakeReviewSrv{
		overview:    &dto.WeeklyOverviewResponse{Stats: dto.OverviewStats{ClassCount: 2}},
		overviewHit: true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/review/overview", nil)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.NotNil(t, envelope.Meta["processing_time_ms"])
}

func TestReviewHandlerOverviewPropagatesErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(&fakeReviewSrv{overviewErr: appErrors.ErrInternal})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/review/overview", nil)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.Overview(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReviewHandlerSuggestionRequiresClassID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(&fakeReviewSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/review/suggestion", nil)

	handler.Suggestion(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewHandlerSubmitWeeklyGrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeReviewSrv{submitted: &models.CheckRecord{ID: "rec-1", ClassID: "c1"}}
	handler := NewReviewHandler(service)

	body := `{"class_id":"c1","grade":"A","week":"current"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/review/weekly-grade", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.SubmitWeeklyGrade(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "c1", service.lastSubmit.ClassID)
	assert.Equal(t, "A", service.lastSubmit.Grade)
}

func TestReviewHandlerSubmitDeadlinePassed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(&fakeReviewSrv{submitErr: appErrors.ErrDeadlinePassed})

	body := `{"class_id":"c1","grade":"A"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/review/weekly-grade", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.SubmitWeeklyGrade(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "DEADLINE_PASSED", envelope.Error["code"])
}

func TestReviewHandlerSubmitRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReviewHandler(&fakeReviewSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/review/weekly-grade", strings.NewReader("{"))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.SubmitWeeklyGrade(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

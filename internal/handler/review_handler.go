package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduops/class-review-api/internal/dto"
	"github.com/eduops/class-review-api/internal/middleware"
	"github.com/eduops/class-review-api/internal/models"
	appErrors "github.com/eduops/class-review-api/pkg/errors"
	"github.com/eduops/class-review-api/pkg/response"
)

type reviewService interface {
	Overview(ctx context.Context, scope models.Scope) (*dto.WeeklyOverviewResponse, bool, error)
	Analysis(ctx context.Context, scope models.Scope) (models.AnalysisResult, error)
	Suggestion(ctx context.Context, classID string) (*dto.SuggestionResponse, error)
	DeadlineStatus(ctx context.Context, role models.UserRole) (*models.DeadlineStatus, error)
	SubmitWeeklyGrade(ctx context.Context, scope models.Scope, scorerID, scorerName string, req dto.SubmitWeeklyGradeRequest) (*models.CheckRecord, error)
}

// ReviewHandler wires the weekly review service to HTTP endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Overview godoc
// @Summary Weekly review overview for the caller's scope
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /review/overview [get]
func (h *ReviewHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.service.Overview(c.Request.Context(), claims.Scope())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, overview, nil, meta)
}

// Analysis godoc
// @Summary Standalone analysis payload for the caller's scope
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /review/analysis [get]
func (h *ReviewHandler) Analysis(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Analysis(c.Request.Context(), claims.Scope())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Suggestion godoc
// @Summary Advisory weekly grade for one class
// @Tags Review
// @Produce json
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /review/suggestion [get]
func (h *ReviewHandler) Suggestion(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	classID := strings.TrimSpace(c.Query("classId"))
	if classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId is required"))
		return
	}
	suggestion, err := h.service.Suggestion(c.Request.Context(), classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}

// Deadline godoc
// @Summary Submission gate status for the current reporting week
// @Tags Review
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /review/deadline [get]
func (h *ReviewHandler) Deadline(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.service.DeadlineStatus(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// SubmitWeeklyGrade godoc
// @Summary Submit or replace a class's weekly letter grade
// @Tags Review
// @Accept json
// @Produce json
// @Param payload body dto.SubmitWeeklyGradeRequest true "Weekly grade submission"
// @Success 201 {object} response.Envelope
// @Router /review/weekly-grade [post]
func (h *ReviewHandler) SubmitWeeklyGrade(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitWeeklyGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	record, err := h.service.SubmitWeeklyGrade(c.Request.Context(), claims.Scope(), claims.UserID, claims.Name, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/handler/dto"
	"github.com/yourusername/survey-api/internal/middleware"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/internal/service"
	"github.com/yourusername/survey-api/pkg/logger"
)

// StatisticsService reads and appends AI statistics snapshots
type StatisticsService interface {
	ListStatistics(ctx context.Context, surveyID uint, ownerID uuid.UUID) ([]entity.AiStatistic, error)
	Generate(ctx context.Context, surveyID uint, ownerID uuid.UUID, notifyEmail string) (*entity.AiStatistic, error)
}

// ReportService publishes report files
type ReportService interface {
	PublishReport(ctx context.Context, surveyID uint, ownerID uuid.UUID, notifyEmail string) (*service.Report, error)
}

// StatisticsHandler serves AI statistics and reports
type StatisticsHandler struct {
	stats   StatisticsService
	reports ReportService
	log     *logger.Logger
}

// NewStatisticsHandler creates the handler
func NewStatisticsHandler(stats StatisticsService, reports ReportService, log *logger.Logger) *StatisticsHandler {
	return &StatisticsHandler{stats: stats, reports: reports, log: log.With("component", "StatisticsHandler")}
}

// ListStatistics returns the caller's snapshots, newest first.
// GET /api/surveys/:id/ai-statistics
func (h *StatisticsHandler) ListStatistics(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	stats, err := h.stats.ListStatistics(c.Request.Context(), surveyID, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFoundOrForbidden) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": "Survey not found or access denied"})
			return
		}
		h.log.Error("failed to load statistics", "survey_id", surveyID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statistics": dto.NewAiStatisticListResponse(stats)})
}

// GenerateStatistics appends a new snapshot.
// POST /api/surveys/:id/ai-statistics
func (h *StatisticsHandler) GenerateStatistics(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	notifyEmail, ok := h.notifyEmail(c)
	if !ok {
		return
	}

	stat, err := h.stats.Generate(c.Request.Context(), surveyID, ownerID, notifyEmail)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "statistic": dto.NewAiStatisticResponse(stat)})
}

// PublishReport builds and uploads an xlsx report.
// POST /api/surveys/:id/reports
func (h *StatisticsHandler) PublishReport(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	notifyEmail, ok := h.notifyEmail(c)
	if !ok {
		return
	}

	report, err := h.reports.PublishReport(c.Request.Context(), surveyID, ownerID, notifyEmail)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "report": report})
}

// notifyEmail reads the optional body; an empty body is fine. When the body
// asks for a notification without naming an address, the token's email is used.
func (h *StatisticsHandler) notifyEmail(c *gin.Context) (string, bool) {
	var req dto.GenerateStatisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return "", false
	}
	if req.NotifyEmail == "" && c.Query("notify") == "true" {
		if claims, ok := middleware.Claims(c); ok {
			return claims.Email, true
		}
	}
	return req.NotifyEmail, true
}

package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/internal/handler/dto"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/internal/service"
	"github.com/yourusername/survey-api/pkg/logger"
)

// IngestionService records and reads answer sets
type IngestionService interface {
	SubmitResponses(ctx context.Context, surveyID uint, in service.SubmitInput) (*service.SubmissionResult, error)
	ListResponses(ctx context.Context, surveyID uint, ownerID uuid.UUID, filter repository.ResponseFilter) ([]entity.Response, error)
	CountSurveyByCategory(ctx context.Context, surveyID uint, ownerID uuid.UUID) (map[string]int, error)
}

// ExportService renders response exports
type ExportService interface {
	LoadExport(ctx context.Context, surveyID uint, ownerID uuid.UUID, filter repository.ResponseFilter) (*service.ResponseExport, error)
}

// ResponseHandler serves answer submission and response reads
type ResponseHandler struct {
	ingestion IngestionService
	exports   ExportService
	log       *logger.Logger
}

// NewResponseHandler creates the handler
func NewResponseHandler(ingestion IngestionService, exports ExportService, log *logger.Logger) *ResponseHandler {
	return &ResponseHandler{ingestion: ingestion, exports: exports, log: log.With("component", "ResponseHandler")}
}

// SubmitResponses stores one respondent's answers.
// POST /api/surveys/:id/responses
func (h *ResponseHandler) SubmitResponses(c *gin.Context) {
	surveyID := c.MustGet(ctxSurveyID).(uint)

	var req dto.SubmitResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.SubmitInput{Answers: make([]service.Answer, 0, len(req.Answers))}
	for _, a := range req.Answers {
		in.Answers = append(in.Answers, service.Answer{QuestionID: a.QuestionID, Value: a.Value})
	}
	if req.CustomerInfo != nil {
		in.Customer = &service.CustomerInput{
			Name:     req.CustomerInfo.Name,
			AgeGroup: req.CustomerInfo.AgeGroup,
			Gender:   req.CustomerInfo.Gender,
		}
	}

	result, err := h.ingestion.SubmitResponses(c.Request.Context(), surveyID, in)
	if err != nil {
		var subErr *service.SubmissionError
		if errors.As(err, &subErr) {
			h.log.Error("submission failed", "survey_id", surveyID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success":            false,
				"error":              "Failed to store responses",
				"succeeded":          subErr.Succeeded,
				"failed":             subErr.Failed,
				"failed_question_id": subErr.FailedQuestionID,
			})
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SubmissionResponse{
		Success:      true,
		SubmissionID: result.SubmissionID,
		Count:        len(result.Responses),
		Categories:   result.Categories,
	})
}

// ListResponses returns raw responses in an optional RFC 3339 range.
// GET /api/surveys/:id/responses?from=&to=
func (h *ResponseHandler) ListResponses(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	responses, err := h.ingestion.ListResponses(c.Request.Context(), surveyID, ownerID, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "responses": dto.NewResponseRows(responses)})
}

// CountByCategory returns the category partition of a survey's responses.
// GET /api/surveys/:id/responses/categories
func (h *ResponseHandler) CountByCategory(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	counts, err := h.ingestion.CountSurveyByCategory(c.Request.Context(), surveyID, ownerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": counts, "total": total})
}

// ExportResponses downloads responses as csv or xlsx.
// GET /api/surveys/:id/responses/export?format=csv|xlsx
func (h *ResponseHandler) ExportResponses(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	format, err := service.ParseFormat(c.DefaultQuery("format", service.FormatCSV))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	export, err := h.exports.LoadExport(c.Request.Context(), surveyID, ownerID, filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var buf bytes.Buffer
	contentType := service.ContentTypeCSV
	if format == service.FormatXLSX {
		contentType = service.ContentTypeXLSX
		err = export.WriteXLSX(&buf)
	} else {
		err = export.WriteCSV(&buf)
	}
	if err != nil {
		respondError(c, h.log, fmt.Errorf("render %s export: %w", format, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", export.Filename(), format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func parseFilter(c *gin.Context) (repository.ResponseFilter, error) {
	var filter repository.ResponseFilter
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.Validation("'from' must be an RFC 3339 timestamp")
		}
		filter.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperrors.Validation("'to' must be an RFC 3339 timestamp")
		}
		filter.To = t
	}
	return filter, nil
}

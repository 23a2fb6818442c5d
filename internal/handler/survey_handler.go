package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/handler/dto"
	"github.com/yourusername/survey-api/internal/middleware"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/internal/service"
	"github.com/yourusername/survey-api/pkg/logger"
)

// Context keys filled by middleware.ExtractUintParam
const (
	ctxSurveyID   = "surveyID"
	ctxQuestionID = "questionID"
)

// SurveyService is what SurveyHandler needs from the survey service
type SurveyService interface {
	CreateSurvey(ctx context.Context, ownerID uuid.UUID, in service.CreateSurveyInput) (*entity.Survey, error)
	ListSurveys(ctx context.Context, ownerID uuid.UUID) ([]entity.Survey, error)
	ActivateSurvey(ctx context.Context, surveyID uint, ownerID uuid.UUID) error
	DeactivateSurvey(ctx context.Context, surveyID uint, ownerID uuid.UUID) error
	GetActiveSurvey(ctx context.Context, ownerID uuid.UUID) (*entity.Survey, error)
	GetQuestions(ctx context.Context, surveyID uint) ([]entity.Question, error)
	GetRequiredQuestionByCategory(ctx context.Context, category string) (*entity.RequiredQuestion, error)
	ListRequiredQuestions(ctx context.Context) ([]entity.RequiredQuestion, error)
	AddQuestion(ctx context.Context, surveyID uint, ownerID uuid.UUID, in service.AddQuestionInput) (*entity.Question, error)
	ReorderQuestions(ctx context.Context, surveyID uint, ownerID uuid.UUID, orderedIDs []uint) ([]entity.Question, error)
	DeleteQuestion(ctx context.Context, surveyID uint, ownerID uuid.UUID, questionID uint) error
}

// SurveyHandler serves surveys, questions and the required-question catalog
type SurveyHandler struct {
	surveys SurveyService
	log     *logger.Logger
}

// NewSurveyHandler creates the handler
func NewSurveyHandler(surveys SurveyService, log *logger.Logger) *SurveyHandler {
	return &SurveyHandler{surveys: surveys, log: log.With("component", "SurveyHandler")}
}

// GetActiveSurvey returns an owner's active survey.
// GET /api/surveys/active?owner_id=
func (h *SurveyHandler) GetActiveSurvey(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		respondError(c, h.log, apperrors.Validation("owner_id must be a UUID"))
		return
	}

	survey, err := h.surveys.GetActiveSurvey(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "survey": dto.NewSurveyResponse(survey)})
}

// GetQuestions returns a survey's questions ordered by order_num.
// GET /api/surveys/:id/questions
func (h *SurveyHandler) GetQuestions(c *gin.Context) {
	surveyID := c.MustGet(ctxSurveyID).(uint)

	questions, err := h.surveys.GetQuestions(c.Request.Context(), surveyID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "questions": dto.NewQuestionListResponse(questions)})
}

// GetRequiredQuestion returns the catalog entry of a category.
// GET /api/required-questions/:category
func (h *SurveyHandler) GetRequiredQuestion(c *gin.Context) {
	category := strings.TrimSpace(c.Param("category"))

	rq, err := h.surveys.GetRequiredQuestionByCategory(c.Request.Context(), category)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "required_question": dto.NewRequiredQuestionResponse(rq)})
}

// ListRequiredQuestions returns the whole catalog.
// GET /api/required-questions
func (h *SurveyHandler) ListRequiredQuestions(c *gin.Context) {
	list, err := h.surveys.ListRequiredQuestions(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]*dto.RequiredQuestionResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewRequiredQuestionResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "required_questions": out})
}

// ListSurveys returns the caller's surveys.
// GET /api/surveys
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	surveys, err := h.surveys.ListSurveys(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "surveys": dto.NewSurveyListResponse(surveys)})
}

// CreateSurvey creates an inactive survey.
// POST /api/surveys
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	survey, err := h.surveys.CreateSurvey(c.Request.Context(), ownerID, service.CreateSurveyInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "survey": dto.NewSurveyResponse(survey)})
}

// ActivateSurvey makes the survey the owner's only active one.
// PUT /api/surveys/:id/activate
func (h *SurveyHandler) ActivateSurvey(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateSurvey stops accepting responses.
// PUT /api/surveys/:id/deactivate
func (h *SurveyHandler) DeactivateSurvey(c *gin.Context) {
	h.setActive(c, false)
}

func (h *SurveyHandler) setActive(c *gin.Context, active bool) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	var err error
	if active {
		err = h.surveys.ActivateSurvey(c.Request.Context(), surveyID, ownerID)
	} else {
		err = h.surveys.DeactivateSurvey(c.Request.Context(), surveyID, ownerID)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "survey_id": surveyID, "is_active": active})
}

// AddQuestion appends a question.
// POST /api/surveys/:id/questions
func (h *SurveyHandler) AddQuestion(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	var req dto.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	q, err := h.surveys.AddQuestion(c.Request.Context(), surveyID, ownerID, service.AddQuestionInput{
		QuestionType:       entity.QuestionType(req.QuestionType),
		QuestionText:       req.QuestionText,
		Options:            req.Options,
		RequiredQuestionID: req.RequiredQuestionID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "question": dto.NewQuestionResponse(q)})
}

// ReorderQuestions rewrites order_num to match the given id order.
// PUT /api/surveys/:id/questions/reorder
func (h *SurveyHandler) ReorderQuestions(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)

	var req dto.ReorderQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	questions, err := h.surveys.ReorderQuestions(c.Request.Context(), surveyID, ownerID, req.QuestionIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "questions": dto.NewQuestionListResponse(questions)})
}

// DeleteQuestion removes a question and compacts the order.
// DELETE /api/surveys/:id/questions/:questionId
func (h *SurveyHandler) DeleteQuestion(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	surveyID := c.MustGet(ctxSurveyID).(uint)
	questionID := c.MustGet(ctxQuestionID).(uint)

	if err := h.surveys.DeleteQuestion(c.Request.Context(), surveyID, ownerID, questionID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireOwner reads the owner set by the auth middleware
func requireOwner(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
		return uuid.Nil, false
	}
	return ownerID, true
}

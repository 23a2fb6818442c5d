package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// CreateSurveyRequest creates an inactive survey
type CreateSurveyRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"omitempty,max=1000"`
}

// AddQuestionRequest appends a question to a survey
type AddQuestionRequest struct {
	QuestionType       string   `json:"question_type" binding:"required,question_type"`
	QuestionText       string   `json:"question_text" binding:"required,max=500"`
	Options            []string `json:"options" binding:"omitempty,max=20,dive,required,max=200"`
	RequiredQuestionID *uint    `json:"required_question_id" binding:"omitempty,min=1"`
}

// ReorderQuestionsRequest lists every question id in the new order
type ReorderQuestionsRequest struct {
	QuestionIDs []uint `json:"question_ids" binding:"required,min=1,dive,min=1"`
}

// AnswerRequest is one answer of a submission
type AnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Value      string `json:"value" binding:"max=2000"`
}

// CustomerInfoRequest carries optional respondent demographics
type CustomerInfoRequest struct {
	Name     string `json:"name" binding:"omitempty,max=100"`
	AgeGroup string `json:"age_group" binding:"omitempty,max=20"`
	Gender   string `json:"gender" binding:"omitempty,max=20"`
}

// SubmitResponsesRequest is one respondent's answer set
type SubmitResponsesRequest struct {
	Answers      []AnswerRequest      `json:"answers" binding:"required,min=1,max=200,dive"`
	CustomerInfo *CustomerInfoRequest `json:"customer_info"`
}

// GenerateStatisticsRequest optionally names a notification address
type GenerateStatisticsRequest struct {
	NotifyEmail string `json:"notify_email" binding:"omitempty,email"`
}

// SurveyResponse is a survey without its questions
type SurveyResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RequiredQuestionResponse is a catalog entry
type RequiredQuestionResponse struct {
	ID           uint              `json:"id"`
	Category     string            `json:"category"`
	QuestionText string            `json:"question_text"`
	Choices      map[string]string `json:"choices"`
}

// QuestionResponse is a question with its resolved required question
type QuestionResponse struct {
	ID                 uint                      `json:"id"`
	SurveyID           uint                      `json:"survey_id"`
	OrderNum           int                       `json:"order_num"`
	QuestionType       string                    `json:"question_type"`
	QuestionText       string                    `json:"question_text"`
	Options            []string                  `json:"options"`
	RequiredQuestionID *uint                     `json:"required_question_id,omitempty"`
	RequiredQuestion   *RequiredQuestionResponse `json:"required_question,omitempty"`
}

// ResponseRow is one stored answer
type ResponseRow struct {
	ID                       uint      `json:"id"`
	SubmissionID             uuid.UUID `json:"submission_id"`
	SurveyID                 uint      `json:"survey_id"`
	QuestionID               uint      `json:"question_id"`
	SelectedOption           *string   `json:"selected_option,omitempty"`
	TextValue                *string   `json:"text_value,omitempty"`
	RequiredQuestionCategory string    `json:"required_question_category"`
	CreatedAt                time.Time `json:"created_at"`
}

// SubmissionResponse acknowledges a stored answer set
type SubmissionResponse struct {
	Success      bool           `json:"success"`
	SubmissionID uuid.UUID      `json:"submission_id"`
	Count        int            `json:"count"`
	Categories   map[string]int `json:"categories"`
}

// AiStatisticResponse is one statistics snapshot
type AiStatisticResponse struct {
	ID                   uint      `json:"id"`
	SurveyID             uint      `json:"survey_id"`
	UserID               uuid.UUID `json:"user_id"`
	AnalysisDate         time.Time `json:"analysis_date"`
	TotalResponses       int       `json:"total_responses"`
	AverageRating        float64   `json:"average_rating"`
	MainCustomerAgeGroup string    `json:"main_customer_age_group"`
	MainCustomerGender   string    `json:"main_customer_gender"`
	TopPros              []string  `json:"top_pros"`
	TopCons              []string  `json:"top_cons"`
}

// NewSurveyResponse converts a survey
func NewSurveyResponse(s *entity.Survey) SurveyResponse {
	return SurveyResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		OwnerID:     s.OwnerID,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// NewSurveyListResponse converts a survey list; never nil
func NewSurveyListResponse(surveys []entity.Survey) []SurveyResponse {
	out := make([]SurveyResponse, 0, len(surveys))
	for i := range surveys {
		out = append(out, NewSurveyResponse(&surveys[i]))
	}
	return out
}

// NewRequiredQuestionResponse converts a catalog entry
func NewRequiredQuestionResponse(rq *entity.RequiredQuestion) *RequiredQuestionResponse {
	if rq == nil {
		return nil
	}
	choices := rq.Choices.Data()
	if choices == nil {
		choices = entity.Choices{}
	}
	return &RequiredQuestionResponse{
		ID:           rq.ID,
		Category:     rq.Category,
		QuestionText: rq.QuestionText,
		Choices:      choices,
	}
}

// NewQuestionResponse converts a question
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	options := []string(q.Options)
	if options == nil {
		options = []string{}
	}
	return QuestionResponse{
		ID:                 q.ID,
		SurveyID:           q.SurveyID,
		OrderNum:           q.OrderNum,
		QuestionType:       string(q.QuestionType),
		QuestionText:       q.QuestionText,
		Options:            options,
		RequiredQuestionID: q.RequiredQuestionID,
		RequiredQuestion:   NewRequiredQuestionResponse(q.RequiredQuestion),
	}
}

// NewQuestionListResponse converts questions in order; never nil
func NewQuestionListResponse(questions []entity.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(questions))
	for i := range questions {
		out = append(out, NewQuestionResponse(&questions[i]))
	}
	return out
}

// NewResponseRows converts stored answers; never nil
func NewResponseRows(responses []entity.Response) []ResponseRow {
	out := make([]ResponseRow, 0, len(responses))
	for i := range responses {
		r := &responses[i]
		out = append(out, ResponseRow{
			ID:                       r.ID,
			SubmissionID:             r.SubmissionID,
			SurveyID:                 r.SurveyID,
			QuestionID:               r.QuestionID,
			SelectedOption:           r.SelectedOption,
			TextValue:                r.TextValue,
			RequiredQuestionCategory: r.Category(),
			CreatedAt:                r.CreatedAt,
		})
	}
	return out
}

// NewAiStatisticResponse converts a snapshot
func NewAiStatisticResponse(s *entity.AiStatistic) AiStatisticResponse {
	pros, cons := []string(s.TopPros), []string(s.TopCons)
	if pros == nil {
		pros = []string{}
	}
	if cons == nil {
		cons = []string{}
	}
	return AiStatisticResponse{
		ID:                   s.ID,
		SurveyID:             s.SurveyID,
		UserID:               s.UserID,
		AnalysisDate:         s.AnalysisDate,
		TotalResponses:       s.TotalResponses,
		AverageRating:        s.AverageRating,
		MainCustomerAgeGroup: s.MainCustomerAgeGroup,
		MainCustomerGender:   s.MainCustomerGender,
		TopPros:              pros,
		TopCons:              cons,
	}
}

// NewAiStatisticListResponse converts snapshots; never nil
func NewAiStatisticListResponse(stats []entity.AiStatistic) []AiStatisticResponse {
	out := make([]AiStatisticResponse, 0, len(stats))
	for i := range stats {
		out = append(out, NewAiStatisticResponse(&stats[i]))
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/internal/metrics"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/pkg/logger"
)

const maxAnswersPerSubmission = 200

// Answer is one submitted value for one question
type Answer struct {
	QuestionID uint
	Value      string
}

// CustomerInput carries optional respondent demographics
type CustomerInput struct {
	Name     string
	AgeGroup string
	Gender   string
}

// SubmitInput is one respondent's answer set
type SubmitInput struct {
	Answers  []Answer
	Customer *CustomerInput
}

// SubmissionResult describes a persisted answer set
type SubmissionResult struct {
	SubmissionID uuid.UUID
	Responses    []entity.Response
	Categories   map[string]int
}

// IngestionService records answer sets. It is the only place where
// responses are stamped with their required-question category.
type IngestionService struct {
	surveyRepo   repository.SurveyRepository
	questionRepo repository.QuestionRepository
	responseRepo repository.ResponseRepository
	log          *logger.Logger
	now          func() time.Time
}

// NewIngestionService creates the ingestion service
func NewIngestionService(
	surveyRepo repository.SurveyRepository,
	questionRepo repository.QuestionRepository,
	responseRepo repository.ResponseRepository,
	log *logger.Logger,
) *IngestionService {
	return &IngestionService{
		surveyRepo:   surveyRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		log:          log.With("component", "IngestionService"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SubmitResponses validates the answer set, stamps every row and writes the
// batch atomically. Validation problems return ErrValidation before anything
// is written; a failed write returns *SubmissionError.
func (s *IngestionService) SubmitResponses(ctx context.Context, surveyID uint, in SubmitInput) (*SubmissionResult, error) {
	if err := validateAnswerSet(in.Answers); err != nil {
		metrics.RecordSubmission(metrics.SubmissionRejected, 0)
		return nil, err
	}

	survey, err := retryRead(ctx, func() (*entity.Survey, error) {
		return s.surveyRepo.GetByID(ctx, surveyID)
	})
	if err != nil {
		return nil, fmt.Errorf("survey #%d: %w", surveyID, err)
	}
	if !survey.IsActive {
		metrics.RecordSubmission(metrics.SubmissionRejected, 0)
		return nil, fmt.Errorf("survey #%d: %w", surveyID, ErrSurveyInactive)
	}

	questions, err := s.loadQuestions(ctx, surveyID, in.Answers)
	if err != nil {
		metrics.RecordSubmission(metrics.SubmissionRejected, 0)
		return nil, err
	}

	submissionID := uuid.New()
	createdAt := s.now()
	rows := make([]entity.Response, 0, len(in.Answers))
	for _, a := range in.Answers {
		q := questions[a.QuestionID]
		if err := q.ValidateAnswer(a.Value); err != nil {
			metrics.RecordSubmission(metrics.SubmissionRejected, 0)
			return nil, apperrors.Validation("question #%d: %v", q.ID, err)
		}
		row, err := s.stamp(q, a.Value)
		if err != nil {
			metrics.RecordSubmission(metrics.SubmissionFailed, 0)
			return nil, err
		}
		row.SubmissionID = submissionID
		row.SurveyID = surveyID
		row.CreatedAt = createdAt
		rows = append(rows, row)
	}

	customer := buildCustomer(surveyID, in.Customer, createdAt)

	if err := s.responseRepo.CreateSubmission(ctx, rows, customer); err != nil {
		metrics.RecordSubmission(metrics.SubmissionFailed, 0)
		subErr := newSubmissionError(surveyID, rows, err)
		s.log.Error("submission write failed",
			"survey_id", surveyID,
			"submission_id", submissionID,
			"failed_question_id", subErr.FailedQuestionID,
			"error", err,
		)
		return nil, subErr
	}

	metrics.RecordSubmission(metrics.SubmissionAccepted, len(rows))
	s.log.Info("submission stored", "survey_id", surveyID, "submission_id", submissionID, "rows", len(rows))

	return &SubmissionResult{
		SubmissionID: submissionID,
		Responses:    rows,
		Categories:   CountByCategory(rows),
	}, nil
}

// stamp builds the response row for one answer. The category comes from
// the question's linked required question; unlinked questions stay NULL.
func (s *IngestionService) stamp(q *entity.Question, value string) (entity.Response, error) {
	row := entity.Response{QuestionID: q.ID}

	value = strings.TrimSpace(value)
	if q.QuestionType == entity.QuestionTypeFreeText {
		row.TextValue = &value
	} else {
		row.SelectedOption = &value
	}

	category, linked, err := q.LinkedCategory()
	if err != nil {
		return entity.Response{}, fmt.Errorf("stamp category: %w", err)
	}
	if linked {
		row.RequiredQuestionCategory = &category
	}
	return row, nil
}

func (s *IngestionService) loadQuestions(ctx context.Context, surveyID uint, answers []Answer) (map[uint]*entity.Question, error) {
	ids := make([]uint, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}

	list, err := retryRead(ctx, func() ([]entity.Question, error) {
		return s.questionRepo.GetByIDs(ctx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	byID := make(map[uint]*entity.Question, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, apperrors.Validation("question #%d does not exist", id)
		}
		if q.SurveyID != surveyID {
			return nil, apperrors.Validation("question #%d does not belong to survey #%d", id, surveyID)
		}
	}
	return byID, nil
}

// CountSurveyByCategory returns the category partition of an owned survey's responses
func (s *IngestionService) CountSurveyByCategory(ctx context.Context, surveyID uint, ownerID uuid.UUID) (map[string]int, error) {
	if err := requireOwner(ctx, s.surveyRepo, surveyID, ownerID); err != nil {
		return nil, err
	}
	counts, err := retryRead(ctx, func() (map[string]int, error) {
		return s.responseRepo.CountByCategory(ctx, surveyID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count responses of survey #%d: %w", surveyID, err)
	}
	return counts, nil
}

// ListResponses returns an owned survey's responses in a time range
func (s *IngestionService) ListResponses(ctx context.Context, surveyID uint, ownerID uuid.UUID, filter repository.ResponseFilter) ([]entity.Response, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, apperrors.Validation("'from' must be before 'to'")
	}
	if err := requireOwner(ctx, s.surveyRepo, surveyID, ownerID); err != nil {
		return nil, err
	}
	responses, err := retryRead(ctx, func() ([]entity.Response, error) {
		return s.responseRepo.ListBySurvey(ctx, surveyID, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list responses of survey #%d: %w", surveyID, err)
	}
	return responses, nil
}

// CountByCategory partitions responses by stamped category. Uncategorised
// rows land in the entity.NullCategory bucket; the counts sum to len(responses).
func CountByCategory(responses []entity.Response) map[string]int {
	counts := make(map[string]int)
	for i := range responses {
		counts[responses[i].Category()]++
	}
	return counts
}

func validateAnswerSet(answers []Answer) error {
	if len(answers) == 0 {
		return apperrors.Validation("at least one answer is required")
	}
	if len(answers) > maxAnswersPerSubmission {
		return apperrors.Validation("too many answers (max %d)", maxAnswersPerSubmission)
	}
	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		if a.QuestionID == 0 {
			return apperrors.Validation("question_id is required")
		}
		if seen[a.QuestionID] {
			return apperrors.Validation("question #%d answered twice", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	return nil
}

func buildCustomer(surveyID uint, in *CustomerInput, createdAt time.Time) *entity.CustomerInfo {
	if in == nil {
		return nil
	}
	c := &entity.CustomerInfo{
		SurveyID:  surveyID,
		Name:      strings.TrimSpace(in.Name),
		AgeGroup:  strings.TrimSpace(in.AgeGroup),
		Gender:    strings.TrimSpace(in.Gender),
		CreatedAt: createdAt,
	}
	if c.IsEmpty() {
		return nil
	}
	return c
}

func newSubmissionError(surveyID uint, rows []entity.Response, err error) *SubmissionError {
	failed := make([]uint, 0, len(rows))
	for _, r := range rows {
		failed = append(failed, r.QuestionID)
	}
	subErr := &SubmissionError{
		SurveyID:  surveyID,
		Succeeded: []uint{},
		Failed:    failed,
		Err:       err,
	}
	var rowErr *repository.RowError
	if errors.As(err, &rowErr) {
		subErr.FailedQuestionID = rowErr.QuestionID
	}
	return subErr
}

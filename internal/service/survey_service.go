package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/pkg/logger"
)

const questionCacheTTL = 10 * time.Minute

func questionsCacheKey(surveyID uint) string {
	return fmt.Sprintf("survey:%d:questions", surveyID)
}

// CreateSurveyInput holds the fields of a new survey
type CreateSurveyInput struct {
	Title       string
	Description string
}

// AddQuestionInput holds the fields of an appended question
type AddQuestionInput struct {
	QuestionType       entity.QuestionType
	QuestionText       string
	Options            []string
	RequiredQuestionID *uint
}

// SurveyService manages surveys and their ordered question lists
type SurveyService struct {
	surveyRepo   repository.SurveyRepository
	questionRepo repository.QuestionRepository
	requiredRepo repository.RequiredQuestionRepository
	cacheRepo    repository.CacheRepository
	log          *logger.Logger
}

// NewSurveyService creates the survey service
func NewSurveyService(
	surveyRepo repository.SurveyRepository,
	questionRepo repository.QuestionRepository,
	requiredRepo repository.RequiredQuestionRepository,
	cacheRepo repository.CacheRepository,
	log *logger.Logger,
) *SurveyService {
	return &SurveyService{
		surveyRepo:   surveyRepo,
		questionRepo: questionRepo,
		requiredRepo: requiredRepo,
		cacheRepo:    cacheRepo,
		log:          log.With("component", "SurveyService"),
	}
}

// CreateSurvey stores a new, inactive survey for the owner
func (s *SurveyService) CreateSurvey(ctx context.Context, ownerID uuid.UUID, in CreateSurveyInput) (*entity.Survey, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return nil, apperrors.Validation("title must be at most 200 characters")
	}

	survey := &entity.Survey{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     ownerID,
	}
	if err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}
	s.log.Info("survey created", "survey_id", survey.ID, "owner_id", ownerID)
	return survey, nil
}

// ListSurveys returns the owner's surveys
func (s *SurveyService) ListSurveys(ctx context.Context, ownerID uuid.UUID) ([]entity.Survey, error) {
	surveys, err := retryRead(ctx, func() ([]entity.Survey, error) {
		return s.surveyRepo.ListByOwner(ctx, ownerID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	return surveys, nil
}

// ActivateSurvey makes surveyID the owner's single active survey
func (s *SurveyService) ActivateSurvey(ctx context.Context, surveyID uint, ownerID uuid.UUID) error {
	if err := s.surveyRepo.Activate(ctx, surveyID, ownerID); err != nil {
		return fmt.Errorf("failed to activate survey #%d: %w", surveyID, err)
	}
	s.log.Info("survey activated", "survey_id", surveyID, "owner_id", ownerID)
	return nil
}

// DeactivateSurvey clears the active flag
func (s *SurveyService) DeactivateSurvey(ctx context.Context, surveyID uint, ownerID uuid.UUID) error {
	if err := s.surveyRepo.Deactivate(ctx, surveyID, ownerID); err != nil {
		return fmt.Errorf("failed to deactivate survey #%d: %w", surveyID, err)
	}
	s.log.Info("survey deactivated", "survey_id", surveyID, "owner_id", ownerID)
	return nil
}

// GetActiveSurvey returns the owner's single active survey.
// Two active rows surface as ErrAmbiguousState.
func (s *SurveyService) GetActiveSurvey(ctx context.Context, ownerID uuid.UUID) (*entity.Survey, error) {
	survey, err := retryRead(ctx, func() (*entity.Survey, error) {
		return s.surveyRepo.GetActiveByOwner(ctx, ownerID)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAmbiguousState) {
			s.log.Error("single active survey invariant violated", "owner_id", ownerID)
		}
		return nil, err
	}
	return survey, nil
}

// GetQuestions returns the survey's questions ordered by order_num with
// linked required questions resolved.
func (s *SurveyService) GetQuestions(ctx context.Context, surveyID uint) ([]entity.Question, error) {
	key := questionsCacheKey(surveyID)

	var cached []entity.Question
	if err := s.cacheRepo.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("question cache read failed", "survey_id", surveyID, "error", err)
	}

	if _, err := retryRead(ctx, func() (*entity.Survey, error) {
		return s.surveyRepo.GetByID(ctx, surveyID)
	}); err != nil {
		return nil, fmt.Errorf("survey #%d: %w", surveyID, err)
	}

	questions, err := retryRead(ctx, func() ([]entity.Question, error) {
		return s.questionRepo.ListBySurvey(ctx, surveyID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions of survey #%d: %w", surveyID, err)
	}

	if err := s.cacheRepo.SetJSON(ctx, key, questions, questionCacheTTL); err != nil {
		s.log.Warn("question cache write failed", "survey_id", surveyID, "error", err)
	}
	return questions, nil
}

// GetRequiredQuestionByCategory looks up a catalog entry
func (s *SurveyService) GetRequiredQuestionByCategory(ctx context.Context, category string) (*entity.RequiredQuestion, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.Validation("category is required")
	}
	return retryRead(ctx, func() (*entity.RequiredQuestion, error) {
		return s.requiredRepo.GetByCategory(ctx, category)
	})
}

// ListRequiredQuestions returns the whole catalog
func (s *SurveyService) ListRequiredQuestions(ctx context.Context) ([]entity.RequiredQuestion, error) {
	return retryRead(ctx, func() ([]entity.RequiredQuestion, error) {
		return s.requiredRepo.List(ctx)
	})
}

// AddQuestion appends a question to an owned survey
func (s *SurveyService) AddQuestion(ctx context.Context, surveyID uint, ownerID uuid.UUID, in AddQuestionInput) (*entity.Question, error) {
	if err := requireOwner(ctx, s.surveyRepo, surveyID, ownerID); err != nil {
		return nil, err
	}

	question, err := s.buildQuestion(ctx, surveyID, in)
	if err != nil {
		return nil, err
	}

	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to add question to survey #%d: %w", surveyID, err)
	}
	s.invalidateQuestions(ctx, surveyID)

	s.log.Info("question added", "survey_id", surveyID, "question_id", question.ID, "order_num", question.OrderNum)
	return question, nil
}

func (s *SurveyService) buildQuestion(ctx context.Context, surveyID uint, in AddQuestionInput) (*entity.Question, error) {
	if !in.QuestionType.IsValid() {
		return nil, apperrors.Validation("unknown question type %q", in.QuestionType)
	}
	text := strings.TrimSpace(in.QuestionText)
	if text == "" {
		return nil, apperrors.Validation("question text is required")
	}
	if utf8.RuneCountInString(text) > entity.MaxQuestionTextLen {
		return nil, apperrors.Validation("question text must be at most %d characters", entity.MaxQuestionTextLen)
	}

	options := make(entity.StringArray, 0, len(in.Options))
	seen := make(map[string]bool, len(in.Options))
	for _, o := range in.Options {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			return nil, apperrors.Validation("options must be non-empty and unique")
		}
		seen[o] = true
		options = append(options, o)
	}

	question := &entity.Question{
		SurveyID:     surveyID,
		QuestionType: in.QuestionType,
		QuestionText: text,
		Options:      options,
	}

	if in.RequiredQuestionID != nil {
		rq, err := retryRead(ctx, func() (*entity.RequiredQuestion, error) {
			return s.requiredRepo.GetByID(ctx, *in.RequiredQuestionID)
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Validation("required question #%d does not exist", *in.RequiredQuestionID)
			}
			return nil, fmt.Errorf("failed to resolve required question: %w", err)
		}
		id := rq.ID
		question.RequiredQuestionID = &id
		question.RequiredQuestion = rq
	}

	switch in.QuestionType {
	case entity.QuestionTypeMultipleChoice:
		if len(options) < 2 && question.RequiredQuestion == nil {
			return nil, apperrors.Validation("multiple choice questions need at least two options")
		}
	default:
		if len(options) > 0 {
			return nil, apperrors.Validation("options are only allowed for multiple choice questions")
		}
	}
	return question, nil
}

// ReorderQuestions rewrites the presentation order of an owned survey
func (s *SurveyService) ReorderQuestions(ctx context.Context, surveyID uint, ownerID uuid.UUID, orderedIDs []uint) ([]entity.Question, error) {
	if len(orderedIDs) == 0 {
		return nil, apperrors.Validation("question ids are required")
	}
	if err := requireOwner(ctx, s.surveyRepo, surveyID, ownerID); err != nil {
		return nil, err
	}
	if err := s.questionRepo.Reorder(ctx, surveyID, orderedIDs); err != nil {
		return nil, fmt.Errorf("failed to reorder questions of survey #%d: %w", surveyID, err)
	}
	s.invalidateQuestions(ctx, surveyID)
	return s.GetQuestions(ctx, surveyID)
}

// DeleteQuestion removes a question from an owned survey and compacts the order
func (s *SurveyService) DeleteQuestion(ctx context.Context, surveyID uint, ownerID uuid.UUID, questionID uint) error {
	if err := requireOwner(ctx, s.surveyRepo, surveyID, ownerID); err != nil {
		return err
	}
	if err := s.questionRepo.Delete(ctx, surveyID, questionID); err != nil {
		return fmt.Errorf("failed to delete question #%d: %w", questionID, err)
	}
	s.invalidateQuestions(ctx, surveyID)
	s.log.Info("question deleted", "survey_id", surveyID, "question_id", questionID)
	return nil
}

func (s *SurveyService) invalidateQuestions(ctx context.Context, surveyID uint) {
	if err := s.cacheRepo.Delete(ctx, questionsCacheKey(surveyID)); err != nil {
		s.log.Warn("question cache invalidation failed", "survey_id", surveyID, "error", err)
	}
}

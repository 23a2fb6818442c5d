package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	"github.com/yourusername/survey-api/internal/metrics"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/pkg/logger"
)

const statisticsCacheTTL = 5 * time.Minute

func statisticsCacheKey(surveyID uint, ownerID uuid.UUID) string {
	return fmt.Sprintf("survey:%d:ai_statistics:%s", surveyID, ownerID)
}

// Aggregation is the deterministic part of a statistics snapshot
type Aggregation struct {
	TotalResponses       int
	AverageRating        float64
	MainCustomerAgeGroup string
	MainCustomerGender   string
	FreeTextAnswers      []string
}

// StatisticsService retrieves and generates AI statistics snapshots
type StatisticsService struct {
	surveyRepo   repository.SurveyRepository
	statRepo     repository.AiStatisticRepository
	responseRepo repository.ResponseRepository
	questionRepo repository.QuestionRepository
	customerRepo repository.CustomerInfoRepository
	cacheRepo    repository.CacheRepository
	analyzer     Analyzer
	notifier     Notifier
	log          *logger.Logger
	now          func() time.Time
}

// NewStatisticsService creates the statistics service
func NewStatisticsService(
	surveyRepo repository.SurveyRepository,
	statRepo repository.AiStatisticRepository,
	responseRepo repository.ResponseRepository,
	questionRepo repository.QuestionRepository,
	customerRepo repository.CustomerInfoRepository,
	cacheRepo repository.CacheRepository,
	analyzer Analyzer,
	notifier Notifier,
	log *logger.Logger,
) *StatisticsService {
	if analyzer == nil {
		analyzer = NoopAnalyzer{}
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &StatisticsService{
		surveyRepo:   surveyRepo,
		statRepo:     statRepo,
		responseRepo: responseRepo,
		questionRepo: questionRepo,
		customerRepo: customerRepo,
		cacheRepo:    cacheRepo,
		analyzer:     analyzer,
		notifier:     notifier,
		log:          log.With("component", "StatisticsService"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ListStatistics returns the owner's snapshots for a survey, newest first.
// Ownership is checked before any statistics are read; a missing and a
// foreign survey both yield ErrNotFoundOrForbidden. No snapshots is an
// empty slice.
func (s *StatisticsService) ListStatistics(ctx context.Context, surveyID uint, ownerID uuid.UUID) ([]entity.AiStatistic, error) {
	if err := requireOwner(ctx, s.surveyRepo, surveyID, ownerID); err != nil {
		return nil, err
	}

	key := statisticsCacheKey(surveyID, ownerID)
	var cached []entity.AiStatistic
	if err := s.cacheRepo.GetJSON(ctx, key, &cached); err == nil && cached != nil {
		return cached, nil
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("statistics cache read failed", "survey_id", surveyID, "error", err)
	}

	stats, err := retryRead(ctx, func() ([]entity.AiStatistic, error) {
		return s.statRepo.ListBySurvey(ctx, surveyID, ownerID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics of survey #%d: %w", surveyID, err)
	}
	if stats == nil {
		stats = []entity.AiStatistic{}
	}

	if err := s.cacheRepo.SetJSON(ctx, key, stats, statisticsCacheTTL); err != nil {
		s.log.Warn("statistics cache write failed", "survey_id", surveyID, "error", err)
	}
	return stats, nil
}

// Generate aggregates the survey's responses, asks the analyzer for pros and
// cons and appends a new snapshot. notifyEmail may be empty.
func (s *StatisticsService) Generate(ctx context.Context, surveyID uint, ownerID uuid.UUID, notifyEmail string) (*entity.AiStatistic, error) {
	survey, err := retryRead(ctx, func() (*entity.Survey, error) {
		return s.surveyRepo.GetByID(ctx, surveyID)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("survey #%d: %w", surveyID, apperrors.ErrNotFoundOrForbidden)
		}
		return nil, fmt.Errorf("failed to load survey #%d: %w", surveyID, err)
	}
	if !survey.OwnedBy(ownerID) {
		return nil, fmt.Errorf("survey #%d: %w", surveyID, apperrors.ErrNotFoundOrForbidden)
	}

	questions, err := retryRead(ctx, func() ([]entity.Question, error) {
		return s.questionRepo.ListBySurvey(ctx, surveyID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	responses, err := retryRead(ctx, func() ([]entity.Response, error) {
		return s.responseRepo.ListBySurvey(ctx, surveyID, repository.ResponseFilter{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	customers, err := retryRead(ctx, func() ([]entity.CustomerInfo, error) {
		return s.customerRepo.ListBySurvey(ctx, surveyID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load customer info: %w", err)
	}

	agg := Aggregate(questions, responses, customers)

	insights, err := s.analyzer.Analyze(ctx, agg.FreeTextAnswers)
	if err != nil {
		s.log.Warn("free-text analysis failed, storing snapshot without insights", "survey_id", surveyID, "error", err)
		insights = Insights{}
	}

	stat := &entity.AiStatistic{
		SurveyID:             surveyID,
		UserID:               ownerID,
		AnalysisDate:         s.now(),
		TotalResponses:       agg.TotalResponses,
		AverageRating:        agg.AverageRating,
		MainCustomerAgeGroup: agg.MainCustomerAgeGroup,
		MainCustomerGender:   agg.MainCustomerGender,
		TopPros:              entity.StringArray(nonNil(insights.Pros)),
		TopCons:              entity.StringArray(nonNil(insights.Cons)),
	}
	if err := s.statRepo.Create(ctx, stat); err != nil {
		return nil, fmt.Errorf("failed to store statistics of survey #%d: %w", surveyID, err)
	}
	metrics.RecordAiStatistic()

	if err := s.cacheRepo.Delete(ctx, statisticsCacheKey(surveyID, ownerID)); err != nil {
		s.log.Warn("statistics cache invalidation failed", "survey_id", surveyID, "error", err)
	}

	if notifyEmail != "" {
		if err := s.notifier.StatisticsReady(ctx, notifyEmail, survey.Title, stat); err != nil {
			s.log.Warn("statistics notification failed", "survey_id", surveyID, "error", err)
		}
	}

	s.log.Info("statistics generated",
		"survey_id", surveyID,
		"statistic_id", stat.ID,
		"total_responses", stat.TotalResponses,
	)
	return stat, nil
}

// Aggregate computes submission count, mean rating, modal demographics and
// collects the free-text answers.
func Aggregate(questions []entity.Question, responses []entity.Response, customers []entity.CustomerInfo) Aggregation {
	types := make(map[uint]entity.QuestionType, len(questions))
	for _, q := range questions {
		types[q.ID] = q.QuestionType
	}

	submissions := make(map[uuid.UUID]struct{})
	var ratingSum, ratingCount int
	texts := make([]string, 0)

	for i := range responses {
		r := &responses[i]
		submissions[r.SubmissionID] = struct{}{}

		switch types[r.QuestionID] {
		case entity.QuestionTypeRating:
			if n, err := strconv.Atoi(r.AnswerValue()); err == nil {
				ratingSum += n
				ratingCount++
			}
		case entity.QuestionTypeFreeText:
			if v := r.AnswerValue(); v != "" {
				texts = append(texts, v)
			}
		}
	}

	agg := Aggregation{
		TotalResponses:  len(submissions),
		FreeTextAnswers: texts,
	}
	if ratingCount > 0 {
		agg.AverageRating = math.Round(float64(ratingSum)/float64(ratingCount)*100) / 100
	}

	ages := make([]string, 0, len(customers))
	genders := make([]string, 0, len(customers))
	for _, c := range customers {
		ages = append(ages, c.AgeGroup)
		genders = append(genders, c.Gender)
	}
	agg.MainCustomerAgeGroup = mode(ages)
	agg.MainCustomerGender = mode(genders)
	return agg
}

// mode returns the most frequent non-empty value; ties go to the
// lexicographically smallest.
func mode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestCount := "", 0
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

package service

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
)

func TestMain(m *testing.M) {
	readBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	os.Exit(m.Run())
}

// ============================================================================
// Repository mocks
// ============================================================================

// MockSurveyRepository implements repository.SurveyRepository
type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) Create(ctx context.Context, survey *entity.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) GetByID(ctx context.Context, id uint) (*entity.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockSurveyRepository) GetActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*entity.Survey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockSurveyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Survey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Survey), args.Error(1)
}

func (m *MockSurveyRepository) ExistsForOwner(ctx context.Context, id uint, ownerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSurveyRepository) Activate(ctx context.Context, id uint, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockSurveyRepository) Deactivate(ctx context.Context, id uint, ownerID uuid.UUID) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// MockQuestionRepository implements repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(ctx context.Context, question *entity.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uint) (*entity.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListBySurvey(ctx context.Context, surveyID uint) ([]entity.Question, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByIDs(ctx context.Context, ids []uint) ([]entity.Question, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) Reorder(ctx context.Context, surveyID uint, orderedIDs []uint) error {
	args := m.Called(ctx, surveyID, orderedIDs)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(ctx context.Context, surveyID, questionID uint) error {
	args := m.Called(ctx, surveyID, questionID)
	return args.Error(0)
}

// MockRequiredQuestionRepository implements repository.RequiredQuestionRepository
type MockRequiredQuestionRepository struct {
	mock.Mock
}

func (m *MockRequiredQuestionRepository) GetByCategory(ctx context.Context, category string) (*entity.RequiredQuestion, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RequiredQuestion), args.Error(1)
}

func (m *MockRequiredQuestionRepository) GetByID(ctx context.Context, id uint) (*entity.RequiredQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RequiredQuestion), args.Error(1)
}

func (m *MockRequiredQuestionRepository) List(ctx context.Context) ([]entity.RequiredQuestion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RequiredQuestion), args.Error(1)
}

// MockResponseRepository implements repository.ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) CreateSubmission(ctx context.Context, responses []entity.Response, customer *entity.CustomerInfo) error {
	args := m.Called(ctx, responses, customer)
	return args.Error(0)
}

func (m *MockResponseRepository) ListBySurvey(ctx context.Context, surveyID uint, filter repository.ResponseFilter) ([]entity.Response, error) {
	args := m.Called(ctx, surveyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Response), args.Error(1)
}

func (m *MockResponseRepository) CountByCategory(ctx context.Context, surveyID uint) (map[string]int, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// MockCustomerInfoRepository implements repository.CustomerInfoRepository
type MockCustomerInfoRepository struct {
	mock.Mock
}

func (m *MockCustomerInfoRepository) ListBySurvey(ctx context.Context, surveyID uint) ([]entity.CustomerInfo, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CustomerInfo), args.Error(1)
}

// MockAiStatisticRepository implements repository.AiStatisticRepository
type MockAiStatisticRepository struct {
	mock.Mock
}

func (m *MockAiStatisticRepository) Create(ctx context.Context, stat *entity.AiStatistic) error {
	args := m.Called(ctx, stat)
	return args.Error(0)
}

func (m *MockAiStatisticRepository) ListBySurvey(ctx context.Context, surveyID uint, userID uuid.UUID) ([]entity.AiStatistic, error) {
	args := m.Called(ctx, surveyID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AiStatistic), args.Error(1)
}

// ============================================================================
// Collaborator mocks
// ============================================================================

// MockAnalyzer implements Analyzer
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, answers []string) (Insights, error) {
	args := m.Called(ctx, answers)
	return args.Get(0).(Insights), args.Error(1)
}

// MockNotifier implements Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) StatisticsReady(ctx context.Context, toEmail string, surveyTitle string, stat *entity.AiStatistic) error {
	args := m.Called(ctx, toEmail, surveyTitle, stat)
	return args.Error(0)
}

func (m *MockNotifier) ReportReady(ctx context.Context, toEmail string, surveyTitle, url string) error {
	args := m.Called(ctx, toEmail, surveyTitle, url)
	return args.Error(0)
}

// MockObjectStorage implements ObjectStorage
type MockObjectStorage struct {
	mock.Mock
	uploaded []byte
}

func (m *MockObjectStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	m.uploaded, _ = io.ReadAll(body)
	args := m.Called(ctx, path, contentType)
	return args.String(0), args.Error(1)
}

// memoryCache is an in-process repository.CacheRepository
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return string(v), nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.Set(ctx, key, value, expiration)
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	v, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(v, dest)
}

func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, window, nil
}

func (c *memoryCache) has(key string) bool {
	ok, _ := c.Exists(context.Background(), key)
	return ok
}

// ============================================================================
// Helpers
// ============================================================================

func uintPtr(v uint) *uint { return &v }

func strPtr(s string) *string { return &s }

var ctxArg = mock.Anything

func fixedTime() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

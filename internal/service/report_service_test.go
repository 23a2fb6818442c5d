package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/pkg/logger"
)

type reportDeps struct {
	surveys   *MockSurveyRepository
	questions *MockQuestionRepository
	responses *MockResponseRepository
	stats     *MockAiStatisticRepository
	storage   *MockObjectStorage
	notifier  *MockNotifier
}

func createTestReportService() (*ReportService, reportDeps) {
	deps := reportDeps{
		surveys:   new(MockSurveyRepository),
		questions: new(MockQuestionRepository),
		responses: new(MockResponseRepository),
		stats:     new(MockAiStatisticRepository),
		storage:   new(MockObjectStorage),
		notifier:  new(MockNotifier),
	}
	svc := NewReportService(deps.surveys, deps.questions, deps.responses, deps.stats, deps.storage, deps.notifier, logger.NewNop())
	svc.now = fixedTime
	return svc, deps
}

func sampleExport() *ResponseExport {
	early, late := uuid.New(), uuid.New()
	return &ResponseExport{
		Survey: &entity.Survey{ID: 4, Title: "Dinner"},
		Questions: []entity.Question{
			{ID: 1, OrderNum: 1, QuestionText: "How often?", QuestionType: entity.QuestionTypeMultipleChoice,
				RequiredQuestionID: uintPtr(7), RequiredQuestion: visitFrequency()},
			{ID: 2, OrderNum: 2, QuestionText: "Comments", QuestionType: entity.QuestionTypeFreeText},
		},
		Responses: []entity.Response{
			{SubmissionID: late, QuestionID: 2, TextValue: strPtr("=HYPERLINK(\"x\")"), CreatedAt: fixedTime().Add(time.Hour)},
			{SubmissionID: early, QuestionID: 1, SelectedOption: strPtr("weekly"), CreatedAt: fixedTime()},
			{SubmissionID: early, QuestionID: 2, TextValue: strPtr("Tasty, warm"), CreatedAt: fixedTime()},
		},
		GeneratedAt: fixedTime(),
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestResponseExport_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleExport().WriteCSV(&buf))

	body := buf.Bytes()
	require.True(t, bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1. How often? [visit_frequency]", records[0][2])
	// one row per submission, oldest first
	assert.Equal(t, "weekly", records[1][2])
	assert.Equal(t, "Tasty, warm", records[1][3])
	assert.Equal(t, "", records[2][2])
	assert.True(t, strings.HasPrefix(records[2][3], "'="))
}

func TestResponseExport_WriteXLSX(t *testing.T) {
	export := sampleExport()
	export.Statistics = []entity.AiStatistic{{TotalResponses: 2, AverageRating: 4.5, TopPros: entity.StringArray{"broth"}}}

	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(responsesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Submission", rows[0][0])
	assert.Equal(t, "weekly", rows[1][2])

	statRows, err := f.GetRows(statisticsSheet)
	require.NoError(t, err)
	require.Len(t, statRows, 2)
	assert.Equal(t, "broth", statRows[1][5])
}

func TestResponseExport_Filename(t *testing.T) {
	assert.Equal(t, "survey_4_responses_2024-05-01_120000", sampleExport().Filename())
}

func TestReportService_LoadExport_NotOwned(t *testing.T) {
	svc, deps := createTestReportService()
	deps.surveys.On("GetByID", ctxArg, uint(4)).Return(&entity.Survey{ID: 4, OwnerID: uuid.New()}, nil)

	_, err := svc.LoadExport(context.Background(), 4, uuid.New(), repository.ResponseFilter{})

	assert.ErrorIs(t, err, apperrors.ErrNotFoundOrForbidden)
	deps.responses.AssertNotCalled(t, "ListBySurvey", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_PublishReport(t *testing.T) {
	// Arrange
	svc, deps := createTestReportService()
	owner := uuid.New()
	sample := sampleExport()
	sample.Survey.OwnerID = owner
	deps.surveys.On("GetByID", ctxArg, uint(4)).Return(sample.Survey, nil)
	deps.questions.On("ListBySurvey", ctxArg, uint(4)).Return(sample.Questions, nil)
	deps.responses.On("ListBySurvey", ctxArg, uint(4), repository.ResponseFilter{}).Return(sample.Responses, nil)
	deps.stats.On("ListBySurvey", ctxArg, uint(4), owner).Return([]entity.AiStatistic{}, nil)
	path := "surveys/4/survey_4_responses_2024-05-01_120000.xlsx"
	deps.storage.On("Upload", ctxArg, path, ContentTypeXLSX).Return("https://cdn.example.com/"+path, nil)
	deps.notifier.On("ReportReady", ctxArg, "owner@example.com", "Dinner", "https://cdn.example.com/"+path).Return(nil)

	// Act
	report, err := svc.PublishReport(context.Background(), 4, owner, "owner@example.com")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, path, report.Path)
	assert.Equal(t, "https://cdn.example.com/"+path, report.URL)
	f, err := excelize.OpenReader(bytes.NewReader(deps.storage.uploaded))
	require.NoError(t, err)
	_ = f.Close()
	deps.notifier.AssertExpectations(t)
}

func TestReportService_PublishReport_UploadFailure(t *testing.T) {
	svc, deps := createTestReportService()
	owner := uuid.New()
	deps.surveys.On("GetByID", ctxArg, uint(4)).Return(&entity.Survey{ID: 4, OwnerID: owner}, nil)
	deps.questions.On("ListBySurvey", ctxArg, uint(4)).Return([]entity.Question{}, nil)
	deps.responses.On("ListBySurvey", ctxArg, uint(4), repository.ResponseFilter{}).Return([]entity.Response{}, nil)
	deps.stats.On("ListBySurvey", ctxArg, uint(4), owner).Return([]entity.AiStatistic{}, nil)
	deps.storage.On("Upload", ctxArg, mock.Anything, ContentTypeXLSX).Return("", errors.New("bucket missing"))

	_, err := svc.PublishReport(context.Background(), 4, owner, "owner@example.com")

	assert.Error(t, err)
	deps.notifier.AssertNotCalled(t, "ReportReady", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_PublishReport_NoStorage(t *testing.T) {
	svc := NewReportService(nil, nil, nil, nil, nil, nil, logger.NewNop())

	_, err := svc.PublishReport(context.Background(), 4, uuid.New(), "")

	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/pkg/logger"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	responsesSheet  = "Responses"
	statisticsSheet = "Statistics"
)

// ObjectStorage stores generated files and returns their public URL
type ObjectStorage interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error)
}

// ResponseExport holds everything needed to render a survey's responses
type ResponseExport struct {
	Survey      *entity.Survey
	Questions   []entity.Question
	Responses   []entity.Response
	Statistics  []entity.AiStatistic
	GeneratedAt time.Time
}

// Report is an uploaded report file
type Report struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// ReportService builds response exports and uploaded reports
type ReportService struct {
	surveyRepo   repository.SurveyRepository
	questionRepo repository.QuestionRepository
	responseRepo repository.ResponseRepository
	statRepo     repository.AiStatisticRepository
	storage      ObjectStorage
	notifier     Notifier
	log          *logger.Logger
	now          func() time.Time
}

// NewReportService creates the report service
func NewReportService(
	surveyRepo repository.SurveyRepository,
	questionRepo repository.QuestionRepository,
	responseRepo repository.ResponseRepository,
	statRepo repository.AiStatisticRepository,
	storage ObjectStorage,
	notifier Notifier,
	log *logger.Logger,
) *ReportService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &ReportService{
		surveyRepo:   surveyRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		statRepo:     statRepo,
		storage:      storage,
		notifier:     notifier,
		log:          log.With("component", "ReportService"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ParseFormat normalises an export format, defaulting to csv
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", apperrors.Validation("unsupported export format %q", format)
	}
}

// LoadExport collects an owned survey's questions and responses
func (s *ReportService) LoadExport(ctx context.Context, surveyID uint, ownerID uuid.UUID, filter repository.ResponseFilter) (*ResponseExport, error) {
	survey, err := retryRead(ctx, func() (*entity.Survey, error) {
		return s.surveyRepo.GetByID(ctx, surveyID)
	})
	if err != nil || !survey.OwnedBy(ownerID) {
		if err == nil || isNotFound(err) {
			return nil, fmt.Errorf("survey #%d: %w", surveyID, apperrors.ErrNotFoundOrForbidden)
		}
		return nil, fmt.Errorf("failed to load survey #%d: %w", surveyID, err)
	}

	questions, err := retryRead(ctx, func() ([]entity.Question, error) {
		return s.questionRepo.ListBySurvey(ctx, surveyID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	responses, err := retryRead(ctx, func() ([]entity.Response, error) {
		return s.responseRepo.ListBySurvey(ctx, surveyID, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	return &ResponseExport{
		Survey:      survey,
		Questions:   questions,
		Responses:   responses,
		GeneratedAt: s.now(),
	}, nil
}

// PublishReport renders an xlsx report with responses and statistics,
// uploads it and returns its public URL.
func (s *ReportService) PublishReport(ctx context.Context, surveyID uint, ownerID uuid.UUID, notifyEmail string) (*Report, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("report storage: %w", ErrFeatureDisabled)
	}

	export, err := s.LoadExport(ctx, surveyID, ownerID, repository.ResponseFilter{})
	if err != nil {
		return nil, err
	}
	stats, err := retryRead(ctx, func() ([]entity.AiStatistic, error) {
		return s.statRepo.ListBySurvey(ctx, surveyID, ownerID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	export.Statistics = stats

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	path := fmt.Sprintf("surveys/%d/%s.xlsx", surveyID, export.Filename())
	url, err := s.storage.Upload(ctx, path, ContentTypeXLSX, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}
	s.log.Info("report uploaded", "survey_id", surveyID, "path", path)

	if notifyEmail != "" {
		if err := s.notifier.ReportReady(ctx, notifyEmail, export.Survey.Title, url); err != nil {
			s.log.Warn("report notification failed", "survey_id", surveyID, "error", err)
		}
	}
	return &Report{Path: path, URL: url}, nil
}

// Filename is the base name used for downloads and uploads
func (e *ResponseExport) Filename() string {
	return fmt.Sprintf("survey_%d_responses_%s", e.Survey.ID, e.GeneratedAt.Format("2006-01-02_150405"))
}

// submissionRow is one respondent's answers keyed by question ID
type submissionRow struct {
	id        uuid.UUID
	createdAt time.Time
	answers   map[uint]string
}

// rows pivots responses into one row per submission, oldest first
func (e *ResponseExport) rows() []submissionRow {
	byID := make(map[uuid.UUID]*submissionRow)
	order := make([]uuid.UUID, 0)
	for i := range e.Responses {
		r := &e.Responses[i]
		row, ok := byID[r.SubmissionID]
		if !ok {
			row = &submissionRow{id: r.SubmissionID, createdAt: r.CreatedAt, answers: make(map[uint]string)}
			byID[r.SubmissionID] = row
			order = append(order, r.SubmissionID)
		}
		row.answers[r.QuestionID] = r.AnswerValue()
	}

	out := make([]submissionRow, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].createdAt.Before(out[j].createdAt) })
	return out
}

func (e *ResponseExport) header() []string {
	h := []string{"Submission", "Submitted at"}
	for _, q := range e.Questions {
		label := fmt.Sprintf("%d. %s", q.OrderNum, q.QuestionText)
		if q.RequiredQuestion != nil {
			label += " [" + q.RequiredQuestion.Category + "]"
		}
		h = append(h, label)
	}
	return h
}

func (e *ResponseExport) record(row submissionRow) []string {
	rec := []string{row.id.String(), row.createdAt.Format(time.RFC3339)}
	for _, q := range e.Questions {
		rec = append(rec, sanitizeForExcel(row.answers[q.ID]))
	}
	return rec
}

// WriteCSV renders one line per submission with a UTF-8 BOM for Excel
func (e *ResponseExport) WriteCSV(w io.Writer) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(e.header()); err != nil {
		return err
	}
	for _, row := range e.rows() {
		if err := writer.Write(e.record(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX renders the responses sheet, plus a statistics sheet when
// snapshots are attached.
func (e *ResponseExport) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", responsesSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(responsesSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetRow("A1", toCells(e.header())); err != nil {
		return err
	}
	for i, row := range e.rows() {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toCells(e.record(row))); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	if len(e.Statistics) > 0 {
		if err := e.writeStatisticsSheet(f); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func (e *ResponseExport) writeStatisticsSheet(f *excelize.File) error {
	if _, err := f.NewSheet(statisticsSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(statisticsSheet)
	if err != nil {
		return err
	}
	headers := []interface{}{"Analysis date", "Responses", "Average rating", "Main age group", "Main gender", "Top pros", "Top cons"}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}
	for i, st := range e.Statistics {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			st.AnalysisDate.Format(time.RFC3339),
			st.TotalResponses,
			st.AverageRating,
			st.MainCustomerAgeGroup,
			st.MainCustomerGender,
			sanitizeForExcel(strings.Join(st.TopPros, "; ")),
			sanitizeForExcel(strings.Join(st.TopCons, "; ")),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel neutralises values that spreadsheet apps would run as formulas
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-api/internal/pkg/errors"
	"github.com/yourusername/survey-api/internal/testutil"
)

func strPtr(s string) *string { return &s }

type repos struct {
	surveys   *SurveyRepo
	questions *QuestionRepo
	required  *RequiredQuestionRepo
	responses *ResponseRepo
	customers *CustomerInfoRepo
	stats     *AiStatisticRepo
}

func newRepos(tx *gorm.DB) repos {
	return repos{
		surveys:   NewSurveyRepo(tx, time.Second),
		questions: NewQuestionRepo(tx, time.Second),
		required:  NewRequiredQuestionRepo(tx, time.Second),
		responses: NewResponseRepo(tx, time.Second),
		customers: NewCustomerInfoRepo(tx, time.Second),
		stats:     NewAiStatisticRepo(tx, time.Second),
	}
}

func createSurvey(t *testing.T, r repos, owner uuid.UUID) *entity.Survey {
	t.Helper()
	s := &entity.Survey{Title: "Lunch survey", OwnerID: owner}
	require.NoError(t, r.surveys.Create(context.Background(), s))
	return s
}

func addQuestion(t *testing.T, r repos, surveyID uint, qt entity.QuestionType, requiredID *uint) *entity.Question {
	t.Helper()
	q := &entity.Question{SurveyID: surveyID, QuestionType: qt, QuestionText: "q", RequiredQuestionID: requiredID}
	require.NoError(t, r.questions.Create(context.Background(), q))
	return q
}

func TestSurveyRepo_ActivateKeepsSingleActive(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	owner := uuid.New()

	first := createSurvey(t, r, owner)
	second := createSurvey(t, r, owner)

	require.NoError(t, r.surveys.Activate(ctx, first.ID, owner))
	require.NoError(t, r.surveys.Activate(ctx, second.ID, owner))

	active, err := r.surveys.GetActiveByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	err = r.surveys.Activate(ctx, first.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFoundOrForbidden)
}

func TestSurveyRepo_GetActiveByOwner_NotFound(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)

	_, err := r.surveys.GetActiveByOwner(context.Background(), uuid.New())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSurveyRepo_GetActiveByOwner_Ambiguous(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	owner := uuid.New()

	// simulate data written before the partial index existed
	require.NoError(t, tx.Exec("DROP INDEX idx_surveys_single_active").Error)
	a := createSurvey(t, r, owner)
	b := createSurvey(t, r, owner)
	require.NoError(t, tx.Model(&entity.Survey{}).Where("id IN ?", []uint{a.ID, b.ID}).Update("is_active", true).Error)

	_, err := r.surveys.GetActiveByOwner(context.Background(), owner)

	assert.ErrorIs(t, err, apperrors.ErrAmbiguousState)
}

func TestSurveyRepo_ExistsForOwner(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	owner := uuid.New()
	s := createSurvey(t, r, owner)

	ok, err := r.surveys.ExistsForOwner(ctx, s.ID, owner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.surveys.ExistsForOwner(ctx, s.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.surveys.ExistsForOwner(ctx, s.ID+100000, owner)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuestionRepo_OrderAssignmentReorderAndDelete(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	s := createSurvey(t, r, uuid.New())

	q1 := addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)
	q2 := addQuestion(t, r, s.ID, entity.QuestionTypeFreeText, nil)
	q3 := addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)
	assert.Equal(t, []int{1, 2, 3}, []int{q1.OrderNum, q2.OrderNum, q3.OrderNum})

	require.NoError(t, r.questions.Reorder(ctx, s.ID, []uint{q3.ID, q1.ID, q2.ID}))
	list, err := r.questions.ListBySurvey(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{q3.ID, q1.ID, q2.ID}, []uint{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, r.questions.Delete(ctx, s.ID, q3.ID))
	list, err = r.questions.ListBySurvey(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].OrderNum)
	assert.Equal(t, 2, list[1].OrderNum)

	err = r.questions.Reorder(ctx, s.ID, []uint{q1.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestQuestionRepo_DeleteAnsweredQuestionIsRejected(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	s := createSurvey(t, r, uuid.New())

	answered := addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)
	unanswered := addQuestion(t, r, s.ID, entity.QuestionTypeFreeText, nil)
	rows := []entity.Response{
		{SubmissionID: uuid.New(), SurveyID: s.ID, QuestionID: answered.ID, SelectedOption: strPtr("5")},
	}
	require.NoError(t, r.responses.CreateSubmission(ctx, rows, nil))

	err := r.questions.Delete(ctx, s.ID, answered.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "has responses")

	stored, err := r.responses.ListBySurvey(ctx, s.ID, repository.ResponseFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	require.NoError(t, r.questions.Delete(ctx, s.ID, unanswered.ID))
	list, err := r.questions.ListBySurvey(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, answered.ID, list[0].ID)
}

func TestQuestionRepo_ForeignKeyBlocksDirectDelete(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	s := createSurvey(t, r, uuid.New())

	q := addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)
	rows := []entity.Response{{SubmissionID: uuid.New(), SurveyID: s.ID, QuestionID: q.ID, SelectedOption: strPtr("3")}}
	require.NoError(t, r.responses.CreateSubmission(ctx, rows, nil))

	err := tx.Exec("SAVEPOINT fk_check").Error
	require.NoError(t, err)
	err = tx.Delete(&entity.Question{}, q.ID).Error
	require.Error(t, err)
	assert.True(t, isForeignKeyViolation(err))
	require.NoError(t, tx.Exec("ROLLBACK TO SAVEPOINT fk_check").Error)
}

func TestQuestionRepo_ListPreloadsRequiredQuestion(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	s := createSurvey(t, r, uuid.New())

	rq, err := r.required.GetByCategory(ctx, "visit_frequency")
	require.NoError(t, err)

	addQuestion(t, r, s.ID, entity.QuestionTypeMultipleChoice, &rq.ID)
	addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)

	list, err := r.questions.ListBySurvey(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].RequiredQuestion)
	assert.Equal(t, "visit_frequency", list[0].RequiredQuestion.Category)
	assert.Nil(t, list[1].RequiredQuestion)
}

func TestQuestionRepo_CreateWithUnknownRequiredQuestion(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	s := createSurvey(t, r, uuid.New())
	missing := uint(999999)

	q := &entity.Question{SurveyID: s.ID, QuestionType: entity.QuestionTypeRating, QuestionText: "q", RequiredQuestionID: &missing}
	err := r.questions.Create(context.Background(), q)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRequiredQuestionRepo_GetByCategory_NotFound(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)

	_, err := r.required.GetByCategory(context.Background(), "no_such_category")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResponseRepo_SubmissionAndCategoryCounts(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	s := createSurvey(t, r, uuid.New())

	rq, err := r.required.GetByCategory(ctx, "visit_frequency")
	require.NoError(t, err)
	q1 := addQuestion(t, r, s.ID, entity.QuestionTypeMultipleChoice, &rq.ID)
	q2 := addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)
	q3 := addQuestion(t, r, s.ID, entity.QuestionTypeFreeText, nil)

	submission := uuid.New()
	rows := []entity.Response{
		{SubmissionID: submission, SurveyID: s.ID, QuestionID: q1.ID, SelectedOption: strPtr("weekly"), RequiredQuestionCategory: strPtr("visit_frequency")},
		{SubmissionID: submission, SurveyID: s.ID, QuestionID: q2.ID, SelectedOption: strPtr("4")},
		{SubmissionID: submission, SurveyID: s.ID, QuestionID: q3.ID, TextValue: strPtr("kind staff")},
	}
	customer := &entity.CustomerInfo{SurveyID: s.ID, AgeGroup: "20대", Gender: "female"}
	require.NoError(t, r.responses.CreateSubmission(ctx, rows, customer))

	stored, err := r.responses.ListBySurvey(ctx, s.ID, repository.ResponseFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, row := range stored {
		assert.Equal(t, s.ID, row.SurveyID)
	}

	counts, err := r.responses.CountByCategory(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"visit_frequency": 1, "null": 2}, counts)

	customers, err := r.customers.ListBySurvey(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "20대", customers[0].AgeGroup)
}

func TestResponseRepo_FailedRowRollsBackBatch(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	s := createSurvey(t, r, uuid.New())
	q := addQuestion(t, r, s.ID, entity.QuestionTypeRating, nil)

	rows := []entity.Response{
		{SubmissionID: uuid.New(), SurveyID: s.ID, QuestionID: q.ID, SelectedOption: strPtr("5")},
		{SubmissionID: uuid.New(), SurveyID: s.ID, QuestionID: 999999, SelectedOption: strPtr("1")},
	}
	err := r.responses.CreateSubmission(ctx, rows, nil)

	require.Error(t, err)
	var rowErr *repository.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Index)
	assert.Equal(t, uint(999999), rowErr.QuestionID)

	stored, err := r.responses.ListBySurvey(ctx, s.ID, repository.ResponseFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAiStatisticRepo_ListNewestFirst(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	r := newRepos(tx)
	ctx := context.Background()
	owner := uuid.New()
	s := createSurvey(t, r, owner)

	now := time.Now().UTC()
	older := &entity.AiStatistic{SurveyID: s.ID, UserID: owner, AnalysisDate: now.Add(-48 * time.Hour), TotalResponses: 3}
	newer := &entity.AiStatistic{SurveyID: s.ID, UserID: owner, AnalysisDate: now, TotalResponses: 9}
	require.NoError(t, r.stats.Create(ctx, older))
	require.NoError(t, r.stats.Create(ctx, newer))

	list, err := r.stats.ListBySurvey(ctx, s.ID, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	empty, err := r.stats.ListBySurvey(ctx, s.ID, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

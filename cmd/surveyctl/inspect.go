package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/yourusername/survey-api/internal/domain/repository"
)

// surveyInspector dumps one survey for diagnostics
type surveyInspector struct {
	surveys   repository.SurveyRepository
	questions repository.QuestionRepository
	responses repository.ResponseRepository
}

func (i surveyInspector) Print(ctx context.Context, w io.Writer, surveyID uint) error {
	survey, err := i.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("load survey %d: %w", surveyID, err)
	}
	questions, err := i.questions.ListBySurvey(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	counts, err := i.responses.CountByCategory(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("count responses: %w", err)
	}

	fmt.Fprintf(w, "Survey #%d %q\n", survey.ID, survey.Title)
	fmt.Fprintf(w, "  owner:   %s\n  active:  %t\n  created: %s\n\n",
		survey.OwnerID, survey.IsActive, survey.CreatedAt.Format("2006-01-02 15:04:05"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tTYPE\tCATEGORY\tTEXT")
	for _, q := range questions {
		category := "-"
		if q.RequiredQuestion != nil {
			category = q.RequiredQuestion.Category
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", q.OrderNum, q.ID, q.QuestionType, category, q.QuestionText)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	categories := make([]string, 0, len(counts))
	total := 0
	for c, n := range counts {
		categories = append(categories, c)
		total += n
	}
	sort.Strings(categories)

	fmt.Fprintf(w, "\nResponses: %d\n", total)
	for _, c := range categories {
		fmt.Fprintf(w, "  %-24s %d\n", c, counts[c])
	}
	return nil
}

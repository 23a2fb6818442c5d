package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yourusername/survey-api/pkg/logger"
)

const (
	maxInsights         = 3
	maxAnalyzedAnswers  = 200
	analyzerSystemRole  = "You summarise restaurant customer feedback. Reply with JSON only."
	analyzerInstruction = `Below are free-text answers from a restaurant customer survey, one per line.
Return a JSON object {"pros": [...], "cons": [...]} with at most 3 short phrases each,
most frequently mentioned first, written in the language of the answers.`
)

// Insights are the strengths and weaknesses extracted from free-text answers
type Insights struct {
	Pros []string `json:"pros"`
	Cons []string `json:"cons"`
}

// Analyzer extracts insights from free-text answers
type Analyzer interface {
	Analyze(ctx context.Context, answers []string) (Insights, error)
}

// NoopAnalyzer is used when no AI provider is configured
type NoopAnalyzer struct{}

func (NoopAnalyzer) Analyze(ctx context.Context, answers []string) (Insights, error) {
	return Insights{Pros: []string{}, Cons: []string{}}, nil
}

// chatCompleter is the part of *openai.Client the analyzer needs
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAnalyzer asks a chat completion model for pros and cons
type OpenAIAnalyzer struct {
	client  chatCompleter
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewOpenAIAnalyzer creates an analyzer backed by the OpenAI API
func NewOpenAIAnalyzer(apiKey, model string, timeout time.Duration, log *logger.Logger) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	log.Info("initializing OpenAI analyzer", "model", model)
	return &OpenAIAnalyzer{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		log:     log.With("component", "OpenAIAnalyzer"),
	}, nil
}

// Analyze implements Analyzer
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, answers []string) (Insights, error) {
	answers = compactAnswers(answers)
	if len(answers) == 0 {
		return Insights{Pros: []string{}, Cons: []string{}}, nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzerSystemRole},
			{Role: openai.ChatMessageRoleUser, Content: analyzerInstruction + "\n\n" + strings.Join(answers, "\n")},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Insights{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Insights{}, errors.New("openai returned no choices")
	}
	a.log.Debug("analysis received", "finish_reason", resp.Choices[0].FinishReason, "answers", len(answers))

	return parseInsights(resp.Choices[0].Message.Content)
}

func parseInsights(content string) (Insights, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out Insights
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return Insights{}, fmt.Errorf("unexpected analyzer reply: %w", err)
	}
	out.Pros = trimInsights(out.Pros)
	out.Cons = trimInsights(out.Cons)
	return out, nil
}

func trimInsights(list []string) []string {
	out := make([]string, 0, maxInsights)
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxInsights {
			break
		}
	}
	return out
}

func compactAnswers(answers []string) []string {
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		a = strings.Join(strings.Fields(a), " ")
		if a == "" {
			continue
		}
		out = append(out, a)
		if len(out) == maxAnalyzedAnswers {
			break
		}
	}
	return out
}

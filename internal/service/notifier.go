package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/yourusername/survey-api/internal/domain/entity"
	"github.com/yourusername/survey-api/pkg/logger"
)

// Notifier tells owners that new results are available
type Notifier interface {
	StatisticsReady(ctx context.Context, toEmail string, surveyTitle string, stat *entity.AiStatistic) error
	ReportReady(ctx context.Context, toEmail string, surveyTitle, url string) error
}

// NoopNotifier is used when email delivery is disabled
type NoopNotifier struct {
	Log *logger.Logger
}

func (n NoopNotifier) StatisticsReady(ctx context.Context, toEmail string, surveyTitle string, stat *entity.AiStatistic) error {
	if n.Log != nil {
		n.Log.Debug("noop statistics notification", "to", toEmail, "survey", surveyTitle)
	}
	return nil
}

func (n NoopNotifier) ReportReady(ctx context.Context, toEmail string, surveyTitle, url string) error {
	if n.Log != nil {
		n.Log.Debug("noop report notification", "to", toEmail, "survey", surveyTitle)
	}
	return nil
}

// emailSender is the part of the Resend client the notifier needs
type emailSender interface {
	SendWithOptions(ctx context.Context, params *resend.SendEmailRequest, options *resend.SendEmailOptions) (*resend.SendEmailResponse, error)
}

// ResendNotifier sends notifications via the Resend REST API
type ResendNotifier struct {
	from   string
	sender emailSender
	sleep  func(time.Duration) <-chan time.Time
}

// NewResendNotifier creates a Resend-backed notifier
func NewResendNotifier(apiKey, from string) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendNotifier{
		from:   from,
		sender: resend.NewClient(apiKey).Emails,
		sleep:  time.After,
	}, nil
}

// StatisticsReady implements Notifier
func (n *ResendNotifier) StatisticsReady(ctx context.Context, toEmail string, surveyTitle string, stat *entity.AiStatistic) error {
	if toEmail == "" || stat == nil {
		return fmt.Errorf("recipient and statistic are required")
	}
	subject := fmt.Sprintf("New statistics for %q", surveyTitle)
	text := fmt.Sprintf(
		"%d responses, average rating %.2f.\nStrengths: %s\nWeaknesses: %s",
		stat.TotalResponses, stat.AverageRating,
		strings.Join(stat.TopPros, ", "), strings.Join(stat.TopCons, ", "),
	)
	htmlBody := fmt.Sprintf(
		"<p><strong>%d</strong> responses, average rating <strong>%.2f</strong>.</p><p>Strengths: %s</p><p>Weaknesses: %s</p>",
		stat.TotalResponses, stat.AverageRating,
		html.EscapeString(strings.Join(stat.TopPros, ", ")), html.EscapeString(strings.Join(stat.TopCons, ", ")),
	)
	key := fmt.Sprintf("ai-statistic-%d", stat.ID)
	return n.send(ctx, toEmail, subject, text, htmlBody, key)
}

// ReportReady implements Notifier
func (n *ResendNotifier) ReportReady(ctx context.Context, toEmail string, surveyTitle, url string) error {
	if toEmail == "" || url == "" {
		return fmt.Errorf("recipient and url are required")
	}
	subject := fmt.Sprintf("Your report for %q is ready", surveyTitle)
	text := "Download the report: " + url
	htmlBody := fmt.Sprintf("<p><a href=\"%s\">Download the report</a></p>", html.EscapeString(url))
	return n.send(ctx, toEmail, subject, text, htmlBody, "")
}

func (n *ResendNotifier) send(ctx context.Context, to, subject, text, htmlBody, idempotencyKey string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Text:    text,
		Html:    htmlBody,
	}
	options := &resend.SendEmailOptions{}
	if idempotencyKey != "" {
		options.IdempotencyKey = idempotencyKey
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := n.sender.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		wait, ok := resendRetryDelay(err, attempt)
		if !ok {
			return fmt.Errorf("resend send failed: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.sleep(wait):
		}
	}
	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}
	return 0, false
}

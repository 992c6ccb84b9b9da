package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restocheck/internal/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// ChannelResult is the per-channel outcome of one delivery attempt.
type ChannelResult struct {
	Channel        string   `json:"channel"`
	Success        bool     `json:"success"`
	Method         string   `json:"method,omitempty"` // smtp | api | webhook
	RecipientCount int      `json:"recipient_count"`
	SentCount      int      `json:"sent_count,omitempty"`
	FailedCount    int      `json:"failed_count,omitempty"`
	Error          string   `json:"error,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

const channelTimeout = 15 * time.Second

const emailBodyTemplate = `<h2>%s</h2>
<p>Your scheduled inspection report is ready.</p>
<ul>
  <li>Inspections: <strong>%d</strong></li>
  <li>Passed: <strong>%d</strong></li>
  <li>Needs attention: <strong>%d</strong></li>
  <li>Generated: %s</li>
</ul>
<p><a href="%s">Download CSV</a></p>`

const emailBodyEmpty = `<h2>%s</h2>
<p>No inspections were recorded in the selected period.</p>
<p><a href="%s">Download CSV</a></p>`

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers a report summary with the CSV attached over SMTP,
// with a webhook fallback when SMTP rejects the message.
type EmailSender struct {
	smtp       SMTPSettings
	webhookURL string
	client     *resty.Client

	// dial is swapped in tests.
	dial func(m *gomail.Message) error
}

func NewEmailSender(smtp SMTPSettings, webhookURL string) *EmailSender {
	s := &EmailSender{
		smtp:       smtp,
		webhookURL: webhookURL,
		client:     resty.New().SetTimeout(channelTimeout),
	}
	s.dial = func(m *gomail.Message) error {
		d := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
		return d.DialAndSend(m)
	}
	return s
}

// Configured reports whether SMTP delivery can be attempted at all.
func (s *EmailSender) Configured() bool {
	return s.smtp.Host != "" && s.smtp.From != ""
}

// Send mails the report summary to all recipients in one message. SMTP
// failures fall back to the webhook; an unconfigured channel is reported as a
// failure, never a crash.
func (s *EmailSender) Send(ctx context.Context, config *models.NotificationConfig, report *ReportResult, to []string) ChannelResult {
	result := ChannelResult{Channel: "email", RecipientCount: len(to)}

	if !s.Configured() {
		result.Error = "email channel is not configured (missing SMTP settings)"
		return result
	}
	if len(to) == 0 {
		result.Error = "no email recipients resolved"
		return result
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.smtp.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", fmt.Sprintf("Inspection report: %s", config.Name))
	m.SetBody("text/html", s.renderBody(config, report))
	if report.FilePath != "" {
		m.Attach(report.FilePath)
	}

	if err := s.dialAndSend(ctx, m); err != nil {
		log.Warnf("SMTP delivery for %q failed: %v", config.Name, err)
		if webhookErr := s.Webhook(ctx, config, report, to); webhookErr != nil {
			result.Error = fmt.Sprintf("smtp: %v; webhook: %v", err, webhookErr)
			return result
		}
		result.Success = true
		result.Method = "webhook"
		return result
	}

	result.Success = true
	result.Method = "smtp"
	result.SentCount = len(to)
	return result
}

// dialAndSend bounds the blocking gomail dial with the channel timeout so a
// stuck SMTP server cannot hold up the scheduler.
func (s *EmailSender) dialAndSend(ctx context.Context, m *gomail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, channelTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.dial(m) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp send timed out: %w", ctx.Err())
	}
}

func (s *EmailSender) renderBody(config *models.NotificationConfig, report *ReportResult) string {
	if report.IsEmpty {
		return fmt.Sprintf(emailBodyEmpty, config.Name, report.CSVUrl)
	}
	return fmt.Sprintf(emailBodyTemplate,
		config.Name,
		report.RecordCount,
		report.PassedCount,
		report.AttentionCount,
		report.GeneratedAt.Format("2006-01-02 15:04:05"),
		report.CSVUrl,
	)
}

// Webhook posts the report payload to the configured delivery webhook. Also
// used directly for manual one-off report generation.
func (s *EmailSender) Webhook(ctx context.Context, config *models.NotificationConfig, report *ReportResult, to []string) error {
	if s.webhookURL == "" {
		return fmt.Errorf("no email webhook configured")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"type":         "email_report",
			"name":         config.Name,
			"recipients":   to,
			"csv_url":      report.CSVUrl,
			"csv_content":  report.CSVContent,
			"record_count": report.RecordCount,
			"passed":       report.PassedCount,
			"attention":    report.AttentionCount,
			"generated_at": report.GeneratedAt.Format(time.RFC3339),
		}).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("email webhook request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("email webhook returned status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

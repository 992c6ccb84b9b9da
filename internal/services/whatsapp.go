package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restocheck/internal/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WhatsAppSettings struct {
	APIURL     string
	Token      string
	WebhookURL string
}

// WhatsAppSender pushes report summaries through the messaging API, one call
// per recipient, with a single webhook fallback when no direct send succeeds.
type WhatsAppSender struct {
	settings WhatsAppSettings
	client   *resty.Client
}

func NewWhatsAppSender(settings WhatsAppSettings) *WhatsAppSender {
	return &WhatsAppSender{
		settings: settings,
		client:   resty.New().SetTimeout(channelTimeout),
	}
}

func (s *WhatsAppSender) Send(ctx context.Context, config *models.NotificationConfig, report *ReportResult, phones []string) ChannelResult {
	result := ChannelResult{Channel: "whatsapp", RecipientCount: len(phones)}

	if len(phones) == 0 {
		result.Error = "no whatsapp recipients resolved"
		return result
	}

	text := s.composeSummary(config, report)

	for _, phone := range phones {
		if err := s.SendMessage(ctx, phone, text); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", phone, err))
			continue
		}
		result.SentCount++
	}

	if result.SentCount > 0 {
		result.Success = true
		result.Method = "api"
		return result
	}

	// Every direct send failed: one webhook attempt with the full list.
	if err := s.sendWebhook(ctx, config, report, phones, text); err != nil {
		result.Error = fmt.Sprintf("all direct sends failed; webhook: %v", err)
		return result
	}
	result.Success = true
	result.Method = "webhook"
	return result
}

// SendMessage pushes one text message to one phone number.
func (s *WhatsAppSender) SendMessage(ctx context.Context, phone, text string) error {
	if s.settings.APIURL == "" || s.settings.Token == "" {
		return fmt.Errorf("whatsapp API is not configured")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.settings.Token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"to":   phone,
			"type": "text",
			"text": map[string]string{"body": text},
		}).
		Post(s.settings.APIURL)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("whatsapp API returned status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func (s *WhatsAppSender) composeSummary(config *models.NotificationConfig, report *ReportResult) string {
	if report.IsEmpty {
		return fmt.Sprintf("📋 %s\nNo inspections recorded in the selected period.\n%s", config.Name, report.CSVUrl)
	}
	return fmt.Sprintf("📋 %s\n%d inspections (%d passed, %d need attention)\nDownload: %s",
		config.Name, report.RecordCount, report.PassedCount, report.AttentionCount, report.CSVUrl)
}

func (s *WhatsAppSender) sendWebhook(ctx context.Context, config *models.NotificationConfig, report *ReportResult, phones []string, text string) error {
	if s.settings.WebhookURL == "" {
		return fmt.Errorf("no whatsapp webhook configured")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"type":       "whatsapp_report",
			"name":       config.Name,
			"recipients": phones,
			"message":    text,
			"csv_url":    report.CSVUrl,
		}).
		Post(s.settings.WebhookURL)
	if err != nil {
		return fmt.Errorf("whatsapp webhook request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("whatsapp webhook returned status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// SectionEmployeeSource resolves the employees assigned to a section.
type SectionEmployeeSource interface {
	EmployeesBySection(ctx context.Context, sectionID primitive.ObjectID) ([]models.Employee, error)
}

// TriggerOutcome reports a checklist trigger run.
type TriggerOutcome struct {
	RestaurantID  primitive.ObjectID `json:"restaurant_id"`
	SectionID     primitive.ObjectID `json:"section_id"`
	EmployeeCount int                `json:"employee_count"`
	SentCount     int                `json:"sent_count"`
	FailedCount   int                `json:"failed_count"`
	TriggeredAt   time.Time          `json:"triggered_at"`
}

// SectionTrigger is the capability the legacy scheduler fires: prompt every
// employee of a section to run their checklist. Plain parameters and a typed
// result, shared by the HTTP route and the scheduler.
type SectionTrigger interface {
	Trigger(ctx context.Context, restaurantID, sectionID primitive.ObjectID) (*TriggerOutcome, error)
}

// ChecklistTrigger implements SectionTrigger over the catalog and the
// WhatsApp sender.
type ChecklistTrigger struct {
	catalog SectionEmployeeSource
	sender  *WhatsAppSender
}

func NewChecklistTrigger(catalog SectionEmployeeSource, sender *WhatsAppSender) *ChecklistTrigger {
	return &ChecklistTrigger{catalog: catalog, sender: sender}
}

func (t *ChecklistTrigger) Trigger(ctx context.Context, restaurantID, sectionID primitive.ObjectID) (*TriggerOutcome, error) {
	employees, err := t.catalog.EmployeesBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve section employees: %w", err)
	}

	outcome := &TriggerOutcome{
		RestaurantID:  restaurantID,
		SectionID:     sectionID,
		EmployeeCount: len(employees),
		TriggeredAt:   time.Now(),
	}

	text := "✅ Time for your section inspection! Reply START to begin the checklist."
	for _, employee := range employees {
		if employee.WhatsAppNumber == "" {
			continue
		}
		if err := t.sender.SendMessage(ctx, employee.WhatsAppNumber, text); err != nil {
			outcome.FailedCount++
			log.Warnf("checklist prompt to %s failed: %v", employee.Name, err)
			continue
		}
		outcome.SentCount++
	}

	log.WithFields(log.Fields{
		"section":   sectionID.Hex(),
		"employees": outcome.EmployeeCount,
		"sent":      outcome.SentCount,
	}).Info("section checklist triggered")

	return outcome, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"restocheck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func testSMTPSettings() SMTPSettings {
	return SMTPSettings{
		Host: "smtp.example.com",
		Port: 587,
		From: "reports@restocheck.app",
	}
}

func testReport() *ReportResult {
	return &ReportResult{
		Success:     true,
		CSVUrl:      "http://localhost:8080/uploads/reports/test.csv",
		CSVContent:  "\"Employee\"\r\n",
		RecordCount: 3,
		PassedCount: 2,
	}
}

func TestEmailSendUnconfigured(t *testing.T) {
	s := NewEmailSender(SMTPSettings{}, "")

	result := s.Send(context.Background(), &models.NotificationConfig{Name: "r"}, testReport(), []string{"a@example.com"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not configured")
}

func TestEmailSendNoRecipients(t *testing.T) {
	s := NewEmailSender(testSMTPSettings(), "")

	result := s.Send(context.Background(), &models.NotificationConfig{Name: "r"}, testReport(), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no email recipients")
}

func TestEmailSendOverSMTP(t *testing.T) {
	s := NewEmailSender(testSMTPSettings(), "")

	var sent *gomail.Message
	s.dial = func(m *gomail.Message) error {
		sent = m
		return nil
	}

	to := []string{"a@example.com", "b@example.com"}
	result := s.Send(context.Background(), &models.NotificationConfig{Name: "Daily Ops"}, testReport(), to)

	require.True(t, result.Success)
	assert.Equal(t, "smtp", result.Method)
	assert.Equal(t, 2, result.SentCount)

	require.NotNil(t, sent)
	assert.Equal(t, to, sent.GetHeader("To"))
	assert.Equal(t, []string{"Inspection report: Daily Ops"}, sent.GetHeader("Subject"))
}

func TestEmailFallsBackToWebhook(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewEmailSender(testSMTPSettings(), server.URL)
	s.dial = func(m *gomail.Message) error { return errors.New("connection refused") }

	result := s.Send(context.Background(), &models.NotificationConfig{Name: "Daily Ops"}, testReport(), []string{"a@example.com"})

	require.True(t, result.Success)
	assert.Equal(t, "webhook", result.Method)
	assert.Equal(t, "email_report", payload["type"])
	assert.Equal(t, "Daily Ops", payload["name"])
}

func TestEmailReportsBothFailures(t *testing.T) {
	s := NewEmailSender(testSMTPSettings(), "")
	s.dial = func(m *gomail.Message) error { return errors.New("connection refused") }

	result := s.Send(context.Background(), &models.NotificationConfig{Name: "r"}, testReport(), []string{"a@example.com"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "smtp:")
	assert.Contains(t, result.Error, "webhook:")
}

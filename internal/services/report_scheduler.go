package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"restocheck/internal/models"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportConfigSource is the slice of the config store the scheduler needs.
type ReportConfigSource interface {
	FindActive(ctx context.Context) ([]models.NotificationConfig, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.NotificationConfig, error)
	UpdateSendTimes(ctx context.Context, id primitive.ObjectID, lastSent, nextSend time.Time) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, config *models.NotificationConfig) (*ReportResult, error)
}

type EmailChannel interface {
	Send(ctx context.Context, config *models.NotificationConfig, report *ReportResult, to []string) ChannelResult
	Webhook(ctx context.Context, config *models.NotificationConfig, report *ReportResult, to []string) error
}

type WhatsAppChannel interface {
	Send(ctx context.Context, config *models.NotificationConfig, report *ReportResult, phones []string) ChannelResult
}

type RecipientSource interface {
	Emails(ctx context.Context, recipients models.NotificationRecipients, accountID primitive.ObjectID) []string
	Phones(ctx context.Context, recipients models.NotificationRecipients, accountID primitive.ObjectID) []string
	AccountFor(ctx context.Context, createdBy primitive.ObjectID) primitive.ObjectID
}

// TriggerResult is returned by manual and scheduled pipeline runs.
type TriggerResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Results []ChannelResult `json:"results,omitempty"`
	Report  *ReportResult   `json:"report,omitempty"`
}

// SchedulerStatus is the admin-facing snapshot of the job map.
type SchedulerStatus struct {
	Initialized    bool     `json:"initialized"`
	ScheduledCount int      `json:"scheduled_count"`
	ActiveJobs     []string `json:"active_jobs"`
}

const executionTimeout = 2 * time.Minute

// ReportScheduler keeps one repeating cron entry per active report
// notification config and runs the aggregate→resolve→deliver pipeline when a
// timer fires. The job map holds only ids; config documents stay owned by the
// store, and deleting one cancels its entry without touching the document
// here.
type ReportScheduler struct {
	cron *cron.Cron

	// initMu serializes Init bodies; mu guards the maps and flags.
	initMu sync.Mutex

	mu          sync.Mutex
	jobs        map[string]cron.EntryID
	inFlight    map[string]bool
	initialized bool

	configs    ReportConfigSource
	reports    ReportGenerator
	recipients RecipientSource
	email      EmailChannel
	whatsapp   WhatsAppChannel

	reportsDir      string
	defaultTimeZone string
}

func NewReportScheduler(
	configs ReportConfigSource,
	reports ReportGenerator,
	recipients RecipientSource,
	email EmailChannel,
	whatsapp WhatsAppChannel,
	reportsDir, defaultTimeZone string,
) *ReportScheduler {
	return &ReportScheduler{
		cron:            cron.New(),
		jobs:            make(map[string]cron.EntryID),
		inFlight:        make(map[string]bool),
		configs:         configs,
		reports:         reports,
		recipients:      recipients,
		email:           email,
		whatsapp:        whatsapp,
		reportsDir:      reportsDir,
		defaultTimeZone: defaultTimeZone,
	}
}

// Init ensures the reports directory exists, schedules every active config
// and starts the cron runner. Idempotent: a second call is a no-op. Failure
// here should abort startup; without a durable output directory or the known
// schedule state the service cannot run.
func (s *ReportScheduler) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := os.MkdirAll(s.reportsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory %s: %w", s.reportsDir, err)
	}

	if err := s.LoadAndSchedule(ctx); err != nil {
		return err
	}

	s.cron.Start()

	s.mu.Lock()
	s.initialized = true
	count := len(s.jobs)
	s.mu.Unlock()

	log.Infof("report scheduler started with %d notification(s)", count)
	return nil
}

// LoadAndSchedule replaces the whole job map with the store's current set of
// active configs. A config that fails validation is logged and skipped; it
// never aborts the rest of the load.
func (s *ReportScheduler) LoadAndSchedule(ctx context.Context) error {
	configs, err := s.configs.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load report notifications: %w", err)
	}

	s.removeAllJobs()

	for i := range configs {
		config := configs[i]
		if err := s.Schedule(&config); err != nil {
			log.Warnf("skipping report notification %q: %v", config.Name, err)
		}
	}
	return nil
}

// FireSpec derives the cron expression for a config, evaluated in the
// config's zone. Weekly uses Sunday=0 weekday numbers; monthly with a day a
// short month lacks simply does not fire that month.
func (s *ReportScheduler) FireSpec(config *models.NotificationConfig) (string, error) {
	if err := config.Validate(); err != nil {
		return "", err
	}
	hour, minute, _ := config.ParseClock()

	zone := config.TimeZone
	if zone == "" {
		zone = s.defaultTimeZone
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", fmt.Errorf("invalid time zone %q: %w", zone, err)
	}

	var expr string
	switch config.Frequency {
	case models.FrequencyDaily:
		expr = fmt.Sprintf("%d %d * * *", minute, hour)
	case models.FrequencyWeekly:
		day, _ := models.WeekdayNumber(config.DayOfWeek)
		expr = fmt.Sprintf("%d %d * * %d", minute, hour, day)
	case models.FrequencyMonthly:
		expr = fmt.Sprintf("%d %d %d * *", minute, hour, config.DayOfMonth)
	default:
		return "", fmt.Errorf("unsupported frequency %q", config.Frequency)
	}

	return fmt.Sprintf("CRON_TZ=%s %s", zone, expr), nil
}

// Schedule registers the repeating timer for a config, replacing any
// existing entry for the same id. At most one live entry per id.
func (s *ReportScheduler) Schedule(config *models.NotificationConfig) error {
	spec, err := s.FireSpec(config)
	if err != nil {
		return err
	}

	id := config.ID.Hex()
	entryID, err := s.cron.AddFunc(spec, func() { s.onFire(id) })
	if err != nil {
		return fmt.Errorf("failed to register cron entry: %w", err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[id]; ok {
		s.cron.Remove(old)
	}
	s.jobs[id] = entryID
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"notification": config.Name,
		"spec":         spec,
	}).Info("report notification scheduled")
	return nil
}

// Cancel removes the timer for an id. Reports whether one existed. An
// execution already in flight finishes; only future fires are stopped.
func (s *ReportScheduler) Cancel(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.jobs[id.Hex()]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.jobs, id.Hex())
	return true
}

// AddOrUpdate reconciles the job map with a config's persisted state: active
// configs get (re)scheduled, inactive ones cancelled. Call after every
// create or update.
func (s *ReportScheduler) AddOrUpdate(config *models.NotificationConfig) error {
	if !config.Active {
		s.Cancel(config.ID)
		return nil
	}
	return s.Schedule(config)
}

// onFire is the cron callback. Nothing may escape it: a failure in one job
// must not take down the runner or the sibling jobs.
func (s *ReportScheduler) onFire(id string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic in report notification %s: %v", id, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), executionTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		log.Errorf("invalid notification id %q in job map", id)
		return
	}

	// Re-fetch fresh: the config may have been edited or deactivated after
	// this timer was registered.
	config, err := s.configs.FindByID(ctx, objectID)
	if err != nil {
		log.Errorf("failed to load report notification %s: %v", id, err)
		return
	}
	if config == nil || !config.Active {
		log.Debugf("report notification %s missing or inactive, skipping fire", id)
		return
	}

	result := s.ExecuteNotification(ctx, objectID)
	if !result.Success {
		log.Warnf("report notification %q run failed: %s", config.Name, result.Message)
	}
}

// ExecuteNotification runs the full pipeline for one config: aggregate,
// resolve recipients, deliver on each configured channel, record
// bookkeeping. Channel failures are independent; both channels are always
// attempted when configured.
func (s *ReportScheduler) ExecuteNotification(ctx context.Context, id primitive.ObjectID) *TriggerResult {
	key := id.Hex()

	s.mu.Lock()
	if s.inFlight[key] {
		s.mu.Unlock()
		return &TriggerResult{Success: false, Message: "notification is already running"}
	}
	s.inFlight[key] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	config, err := s.configs.FindByID(ctx, id)
	if err != nil {
		return &TriggerResult{Success: false, Message: fmt.Sprintf("failed to load notification: %v", err)}
	}
	if config == nil {
		return &TriggerResult{Success: false, Message: "notification not found"}
	}

	report, err := s.reports.Generate(ctx, config)
	if err != nil {
		log.Errorf("report generation for %q failed: %v", config.Name, err)
		return &TriggerResult{Success: false, Message: fmt.Sprintf("report generation failed: %v", err)}
	}

	accountID := s.recipients.AccountFor(ctx, config.CreatedBy)

	var results []ChannelResult
	if config.Channels.Email {
		emails := s.recipients.Emails(ctx, config.Recipients, accountID)
		results = append(results, s.email.Send(ctx, config, report, emails))
	}
	if config.Channels.WhatsApp {
		phones := s.recipients.Phones(ctx, config.Recipients, accountID)
		results = append(results, s.whatsapp.Send(ctx, config, report, phones))
	}

	now := time.Now()
	if err := s.configs.UpdateSendTimes(ctx, id, now, s.nextSend(config, now)); err != nil {
		log.Warnf("failed to record send times for %q: %v", config.Name, err)
	}

	return &TriggerResult{Success: true, Results: results, Report: report}
}

// nextSend computes the next fire instant from the config's cron spec.
func (s *ReportScheduler) nextSend(config *models.NotificationConfig, after time.Time) time.Time {
	spec, err := s.FireSpec(config)
	if err != nil {
		return after
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return after
	}
	return schedule.Next(after)
}

// TriggerManually runs the pipeline for a persisted config right now,
// bypassing the timer. Used for "send test notification".
func (s *ReportScheduler) TriggerManually(ctx context.Context, id primitive.ObjectID) *TriggerResult {
	return s.ExecuteNotification(ctx, id)
}

// ManualGenerate runs the aggregation for an ephemeral pseudo-config without
// touching any persisted notification: default 30-day window over all
// restaurants and sections unless filters are given. With sendWebhook set the
// result is additionally pushed through the email webhook.
func (s *ReportScheduler) ManualGenerate(ctx context.Context, sendWebhook bool, filters *models.ReportFilters) *TriggerResult {
	config := &models.NotificationConfig{
		Name:     "Manual Report",
		TimeZone: s.defaultTimeZone,
		Filters: models.ReportFilters{
			Restaurants:   models.FilterScopeAll,
			Sections:      models.FilterScopeAll,
			DateRangeDays: defaultDateRangeDays,
		},
	}
	if filters != nil {
		config.Filters = *filters
	}

	report, err := s.reports.Generate(ctx, config)
	if err != nil {
		return &TriggerResult{Success: false, Message: fmt.Sprintf("report generation failed: %v", err)}
	}

	result := &TriggerResult{Success: true, Report: report}
	if sendWebhook {
		if err := s.email.Webhook(ctx, config, report, nil); err != nil {
			result.Results = append(result.Results, ChannelResult{
				Channel: "webhook", Success: false, Error: err.Error(),
			})
		} else {
			result.Results = append(result.Results, ChannelResult{
				Channel: "webhook", Success: true, Method: "webhook",
			})
		}
	}
	return result
}

// Status snapshots the job map for the admin API.
func (s *ReportScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		jobs = append(jobs, id)
	}
	return SchedulerStatus{
		Initialized:    s.initialized,
		ScheduledCount: len(s.jobs),
		ActiveJobs:     jobs,
	}
}

// JobCount reports the number of live timers.
func (s *ReportScheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *ReportScheduler) removeAllJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entryID := range s.jobs {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
	}
}

// StopAll destroys every timer and halts the runner. In-flight executions
// are not awaited; shutdown is best effort, not a graceful drain.
func (s *ReportScheduler) StopAll() {
	s.removeAllJobs()
	s.cron.Stop()

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()

	log.Info("report scheduler stopped")
}

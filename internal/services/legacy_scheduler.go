package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"restocheck/internal/models"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LegacyConfigSource is the slice of the legacy notification store the
// scheduler needs.
type LegacyConfigSource interface {
	FindActive(ctx context.Context) ([]models.LegacyNotification, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.LegacyNotification, error)
	Create(ctx context.Context, notification *models.LegacyNotification) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	UpdateLastTriggered(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// LegacyScheduler drives the older per-section WhatsApp nudges: one cron
// entry per active notification, firing the checklist prompt at every
// employee assigned to the section. The trigger capability is injected; a nil
// trigger disables delivery but keeps the record bookkeeping intact.
type LegacyScheduler struct {
	cron *cron.Cron

	// initMu serializes Init bodies; mu guards the job map and flag.
	initMu sync.Mutex

	mu          sync.Mutex
	jobs        map[string]cron.EntryID
	initialized bool

	notifications LegacyConfigSource
	trigger       SectionTrigger

	defaultTimeZone string
}

func NewLegacyScheduler(notifications LegacyConfigSource, trigger SectionTrigger, defaultTimeZone string) *LegacyScheduler {
	return &LegacyScheduler{
		cron:            cron.New(),
		jobs:            make(map[string]cron.EntryID),
		notifications:   notifications,
		trigger:         trigger,
		defaultTimeZone: defaultTimeZone,
	}
}

// Init loads active notifications, schedules them and starts the runner.
// Idempotent.
func (s *LegacyScheduler) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	notifications, err := s.notifications.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	for i := range notifications {
		n := notifications[i]
		if err := s.schedule(&n); err != nil {
			log.Warnf("skipping notification %s: %v", n.ID.Hex(), err)
		}
	}

	s.cron.Start()

	s.mu.Lock()
	s.initialized = true
	count := len(s.jobs)
	s.mu.Unlock()

	log.Infof("legacy notification scheduler started with %d notification(s)", count)
	return nil
}

// FireSpec derives the cron expression. Alternate-day frequency fires on
// odd calendar days, so consecutive fires are normally two days apart; a
// 31-day month ends with a day-31 then day-1 pair.
func (s *LegacyScheduler) FireSpec(n *models.LegacyNotification) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	hour, minute, _ := n.ParseClock()

	zone := n.TimeZone
	if zone == "" {
		zone = s.defaultTimeZone
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", fmt.Errorf("invalid time zone %q: %w", zone, err)
	}

	var expr string
	switch n.Frequency {
	case models.FrequencyDaily:
		expr = fmt.Sprintf("%d %d * * *", minute, hour)
	case models.FrequencyAlternate:
		expr = fmt.Sprintf("%d %d */2 * *", minute, hour)
	default:
		return "", fmt.Errorf("unsupported frequency %q", n.Frequency)
	}

	return fmt.Sprintf("CRON_TZ=%s %s", zone, expr), nil
}

func (s *LegacyScheduler) schedule(n *models.LegacyNotification) error {
	spec, err := s.FireSpec(n)
	if err != nil {
		return err
	}

	id := n.ID.Hex()
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
		"notification": id,
		"spec":         spec,
	}).Info("section notification scheduled")
	return nil
}

// AddNotification persists a new notification and registers its timer. The
// record and the timer stay consistent: a persistence failure leaves no
// orphan timer, a scheduling failure rolls the record back.
func (s *LegacyScheduler) AddNotification(ctx context.Context, n *models.LegacyNotification) error {
	if _, err := s.FireSpec(n); err != nil {
		return err
	}

	n.IsActive = true
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	if err := s.schedule(n); err != nil {
		if delErr := s.notifications.Delete(ctx, n.ID); delErr != nil {
			log.Errorf("failed to roll back notification %s: %v", n.ID.Hex(), delErr)
		}
		return err
	}
	return nil
}

// DeleteNotification cancels the timer and removes the record.
func (s *LegacyScheduler) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	s.cancel(id)
	if err := s.notifications.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

func (s *LegacyScheduler) cancel(id primitive.ObjectID) bool {
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

func (s *LegacyScheduler) onFire(id string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic in section notification %s: %v", id, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), executionTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		log.Errorf("invalid notification id %q in job map", id)
		return
	}

	n, err := s.notifications.FindByID(ctx, objectID)
	if err != nil {
		log.Errorf("failed to load notification %s: %v", id, err)
		return
	}
	if n == nil || !n.IsActive {
		log.Debugf("notification %s missing or inactive, skipping fire", id)
		return
	}

	if s.trigger == nil {
		log.Warnf("no section trigger configured, skipping notification %s", id)
		return
	}

	outcome, err := s.trigger.Trigger(ctx, n.RestaurantID, n.SectionID)
	if err != nil {
		log.Errorf("section trigger for notification %s failed: %v", id, err)
		return
	}

	if err := s.notifications.UpdateLastTriggered(ctx, objectID, time.Now()); err != nil {
		log.Warnf("failed to record trigger time for %s: %v", id, err)
	}

	log.WithFields(log.Fields{
		"notification": id,
		"employees":    outcome.EmployeeCount,
		"sent":         outcome.SentCount,
		"failed":       outcome.FailedCount,
	}).Info("section notification delivered")
}

// JobCount reports the number of live timers.
func (s *LegacyScheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// StopAll destroys every timer and halts the runner.
func (s *LegacyScheduler) StopAll() {
	s.mu.Lock()
	for id, entryID := range s.jobs {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
	}
	s.initialized = false
	s.mu.Unlock()

	s.cron.Stop()
	log.Info("legacy notification scheduler stopped")
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"restocheck/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeLegacyStore struct {
	mu            sync.Mutex
	notifications map[primitive.ObjectID]*models.LegacyNotification
	triggered     map[primitive.ObjectID]time.Time
	loads         int
}

func newFakeLegacyStore(notifications ...*models.LegacyNotification) *fakeLegacyStore {
	s := &fakeLegacyStore{
		notifications: map[primitive.ObjectID]*models.LegacyNotification{},
		triggered:     map[primitive.ObjectID]time.Time{},
	}
	for _, n := range notifications {
		s.notifications[n.ID] = n
	}
	return s
}

func (s *fakeLegacyStore) FindActive(ctx context.Context) ([]models.LegacyNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	var out []models.LegacyNotification
	for _, n := range s.notifications {
		if n.IsActive {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *fakeLegacyStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LegacyNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (s *fakeLegacyStore) Create(ctx context.Context, n *models.LegacyNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	s.notifications[n.ID] = n
	return nil
}

func (s *fakeLegacyStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notifications, id)
	return nil
}

func (s *fakeLegacyStore) UpdateLastTriggered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggered[id] = at
	return nil
}

type fakeTrigger struct {
	mu           sync.Mutex
	calls        int
	restaurantID primitive.ObjectID
	sectionID    primitive.ObjectID
}

func (f *fakeTrigger) Trigger(ctx context.Context, restaurantID, sectionID primitive.ObjectID) (*TriggerOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.restaurantID = restaurantID
	f.sectionID = sectionID
	return &TriggerOutcome{
		RestaurantID:  restaurantID,
		SectionID:     sectionID,
		EmployeeCount: 2,
		SentCount:     2,
		TriggeredAt:   time.Now(),
	}, nil
}

func testLegacyNotification(frequency string) *models.LegacyNotification {
	return &models.LegacyNotification{
		ID:           primitive.NewObjectID(),
		UserID:       primitive.NewObjectID(),
		RestaurantID: primitive.NewObjectID(),
		SectionID:    primitive.NewObjectID(),
		Frequency:    frequency,
		Time:         "10:00",
		TimeZone:     "UTC",
		IsActive:     true,
	}
}

func TestLegacyFireSpec(t *testing.T) {
	s := NewLegacyScheduler(newFakeLegacyStore(), &fakeTrigger{}, "UTC")

	daily := testLegacyNotification(models.FrequencyDaily)
	spec, err := s.FireSpec(daily)
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=UTC 0 10 * * *", spec)

	alternate := testLegacyNotification(models.FrequencyAlternate)
	spec, err = s.FireSpec(alternate)
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=UTC 0 10 */2 * *", spec)

	weekly := testLegacyNotification("weekly")
	_, err = s.FireSpec(weekly)
	assert.ErrorContains(t, err, "unsupported frequency")
}

func TestAlternateDayFiresOnOddDays(t *testing.T) {
	s := NewLegacyScheduler(newFakeLegacyStore(), &fakeTrigger{}, "UTC")

	spec, err := s.FireSpec(testLegacyNotification(models.FrequencyAlternate))
	require.NoError(t, err)
	schedule, err := cron.ParseStandard(spec)
	require.NoError(t, err)

	// Two days apart inside a month.
	next := schedule.Next(time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), next)

	// A 31-day month ends with consecutive fires on day 31 and day 1.
	next = schedule.Next(time.Date(2026, 3, 31, 10, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), next)
}

func TestAddNotificationPersistsAndSchedules(t *testing.T) {
	store := newFakeLegacyStore()
	s := NewLegacyScheduler(store, &fakeTrigger{}, "UTC")

	n := testLegacyNotification(models.FrequencyDaily)
	n.ID = primitive.NilObjectID
	require.NoError(t, s.AddNotification(context.Background(), n))

	assert.False(t, n.ID.IsZero())
	assert.True(t, n.IsActive)
	assert.Equal(t, 1, s.JobCount())

	stored, err := store.FindByID(context.Background(), n.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestAddNotificationRejectsInvalid(t *testing.T) {
	store := newFakeLegacyStore()
	s := NewLegacyScheduler(store, &fakeTrigger{}, "UTC")

	n := testLegacyNotification(models.FrequencyDaily)
	n.Time = "25:99"
	require.Error(t, s.AddNotification(context.Background(), n))

	// Nothing persisted, no timer registered.
	assert.Equal(t, 0, s.JobCount())
	active, err := store.FindActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeleteNotificationRemovesTimerAndRecord(t *testing.T) {
	n := testLegacyNotification(models.FrequencyDaily)
	store := newFakeLegacyStore(n)
	s := NewLegacyScheduler(store, &fakeTrigger{}, "UTC")
	require.NoError(t, s.schedule(n))

	require.NoError(t, s.DeleteNotification(context.Background(), n.ID))

	assert.Equal(t, 0, s.JobCount())
	stored, err := store.FindByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLegacyFireInvokesTrigger(t *testing.T) {
	n := testLegacyNotification(models.FrequencyDaily)
	store := newFakeLegacyStore(n)
	trigger := &fakeTrigger{}
	s := NewLegacyScheduler(store, trigger, "UTC")

	s.onFire(n.ID.Hex())

	assert.Equal(t, 1, trigger.calls)
	assert.Equal(t, n.RestaurantID, trigger.restaurantID)
	assert.Equal(t, n.SectionID, trigger.sectionID)
	assert.False(t, store.triggered[n.ID].IsZero())
}

func TestLegacyFireSkipsInactive(t *testing.T) {
	n := testLegacyNotification(models.FrequencyDaily)
	n.IsActive = false
	store := newFakeLegacyStore(n)
	trigger := &fakeTrigger{}
	s := NewLegacyScheduler(store, trigger, "UTC")

	s.onFire(n.ID.Hex())

	assert.Equal(t, 0, trigger.calls)
}

func TestLegacyInitConcurrentCallsLoadOnce(t *testing.T) {
	n := testLegacyNotification(models.FrequencyDaily)
	store := newFakeLegacyStore(n)
	s := NewLegacyScheduler(store, &fakeTrigger{}, "UTC")
	defer s.StopAll()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Init(context.Background()))
		}()
	}
	wg.Wait()

	store.mu.Lock()
	loads := store.loads
	store.mu.Unlock()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, s.JobCount())
}

func TestLegacyFireToleratesNilTrigger(t *testing.T) {
	n := testLegacyNotification(models.FrequencyDaily)
	store := newFakeLegacyStore(n)
	s := NewLegacyScheduler(store, nil, "UTC")

	assert.NotPanics(t, func() { s.onFire(n.ID.Hex()) })
	assert.True(t, store.triggered[n.ID].IsZero())
}

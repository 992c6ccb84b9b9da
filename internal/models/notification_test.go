package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c := NotificationConfig{Time: "09:30"}
	hour, minute, err := c.ParseClock()
	require.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)

	c.Time = "23:59"
	hour, minute, err = c.ParseClock()
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)

	for _, bad := range []string{"", "9:30:00", "25:00", "09:60", "morning"} {
		c.Time = bad
		_, _, err := c.ParseClock()
		assert.Error(t, err, "time %q", bad)
	}
}

func TestNotificationConfigValidate(t *testing.T) {
	base := NotificationConfig{Frequency: FrequencyDaily, Time: "08:00"}
	assert.NoError(t, base.Validate())

	weekly := NotificationConfig{Frequency: FrequencyWeekly, Time: "08:00", DayOfWeek: "Friday"}
	assert.NoError(t, weekly.Validate())

	weekly.DayOfWeek = "someday"
	assert.ErrorContains(t, weekly.Validate(), "day_of_week")

	monthly := NotificationConfig{Frequency: FrequencyMonthly, Time: "08:00", DayOfMonth: 15}
	assert.NoError(t, monthly.Validate())

	monthly.DayOfMonth = 0
	assert.ErrorContains(t, monthly.Validate(), "day_of_month")
	monthly.DayOfMonth = 32
	assert.ErrorContains(t, monthly.Validate(), "day_of_month")

	unknown := NotificationConfig{Frequency: "hourly", Time: "08:00"}
	assert.ErrorContains(t, unknown.Validate(), "unsupported frequency")
}

func TestLegacyNotificationValidate(t *testing.T) {
	n := LegacyNotification{Frequency: FrequencyDaily, Time: "10:00"}
	assert.NoError(t, n.Validate())

	n.Frequency = FrequencyAlternate
	assert.NoError(t, n.Validate())

	n.Frequency = FrequencyWeekly
	assert.ErrorContains(t, n.Validate(), "unsupported frequency")

	n.Frequency = FrequencyDaily
	n.Time = "10am"
	assert.Error(t, n.Validate())
}

func TestWeekdayNumber(t *testing.T) {
	n, ok := WeekdayNumber("Sunday")
	require.True(t, ok)
	assert.Equal(t, 0, n)

	n, ok = WeekdayNumber(" friday ")
	require.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = WeekdayNumber("someday")
	assert.False(t, ok)
}

func TestRecipientsEnabled(t *testing.T) {
	assert.Empty(t, NotificationRecipients{}.Enabled())

	roles := NotificationRecipients{Owner: true, Employee: true}.Enabled()
	assert.Equal(t, []RecipientRole{RecipientOwner, RecipientEmployee}, roles)
}

func TestUserRoleFor(t *testing.T) {
	for _, recipientRole := range AllRecipientRoles() {
		role, ok := UserRoleFor(recipientRole)
		require.True(t, ok, "role %q", recipientRole)
		assert.True(t, role.IsValid())
	}

	_, ok := UserRoleFor("manager")
	assert.False(t, ok)
}

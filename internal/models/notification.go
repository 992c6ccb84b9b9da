package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report notification frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"

	// Legacy notification frequencies.
	FrequencyAlternate = "alternate"
)

// weekdayNumbers maps day names to cron weekday numbers, Sunday=0.
var weekdayNumbers = map[string]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

// WeekdayNumber resolves a weekday name (case-insensitive) to 0-6, Sunday=0.
func WeekdayNumber(name string) (int, bool) {
	n, ok := weekdayNumbers[strings.ToLower(strings.TrimSpace(name))]
	return n, ok
}

// NotificationChannels selects which delivery channels a report notification
// uses. Both may be false; the schedule still runs and records bookkeeping.
type NotificationChannels struct {
	Email    bool `bson:"email" json:"email"`
	WhatsApp bool `bson:"whatsapp" json:"whatsapp"`
}

// NotificationRecipients are role flags resolved to concrete contacts at send
// time (see services recipient resolver).
type NotificationRecipients struct {
	SuperAdmin      bool `bson:"super_admin" json:"super_admin"`
	Owner           bool `bson:"owner" json:"owner"`
	DistrictManager bool `bson:"district_manager" json:"district_manager"`
	GeneralManager  bool `bson:"general_manager" json:"general_manager"`
	Employee        bool `bson:"employee" json:"employee"`
}

// Enabled returns the recipient roles whose flag is set.
func (r NotificationRecipients) Enabled() []RecipientRole {
	var roles []RecipientRole
	if r.SuperAdmin {
		roles = append(roles, RecipientSuperAdmin)
	}
	if r.Owner {
		roles = append(roles, RecipientOwner)
	}
	if r.DistrictManager {
		roles = append(roles, RecipientDistrictManager)
	}
	if r.GeneralManager {
		roles = append(roles, RecipientGeneralManager)
	}
	if r.Employee {
		roles = append(roles, RecipientEmployee)
	}
	return roles
}

const (
	FilterScopeAll      = "all"
	FilterScopeSpecific = "specific"
)

// ReportFilters scope the aggregation window and the restaurants/sections
// included in a generated report.
type ReportFilters struct {
	Restaurants         string               `bson:"restaurants" json:"restaurants"` // all | specific
	Sections            string               `bson:"sections" json:"sections"`       // all | specific
	DateRangeDays       int                  `bson:"date_range_days" json:"date_range_days"`
	SelectedRestaurants []primitive.ObjectID `bson:"selected_restaurants,omitempty" json:"selected_restaurants,omitempty"`
	SelectedSections    []primitive.ObjectID `bson:"selected_sections,omitempty" json:"selected_sections,omitempty"`
}

// NotificationConfig is a recurring report notification created from the
// admin dashboard.
type NotificationConfig struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name string             `bson:"name" json:"name"`

	Frequency  string `bson:"frequency" json:"frequency"`
	Time       string `bson:"time" json:"time"` // HH:MM, local to TimeZone
	TimeZone   string `bson:"time_zone" json:"time_zone"`
	DayOfWeek  string `bson:"day_of_week,omitempty" json:"day_of_week,omitempty"`
	DayOfMonth int    `bson:"day_of_month,omitempty" json:"day_of_month,omitempty"`

	Channels   NotificationChannels   `bson:"channels" json:"channels"`
	Recipients NotificationRecipients `bson:"recipients" json:"recipients"`
	Filters    ReportFilters          `bson:"filters" json:"filters"`

	Active    bool               `bson:"active" json:"active"`
	CreatedBy primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy primitive.ObjectID `bson:"updated_by,omitempty" json:"updated_by,omitempty"`

	LastSent *time.Time `bson:"last_sent,omitempty" json:"last_sent,omitempty"`
	NextSend *time.Time `bson:"next_send,omitempty" json:"next_send,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ParseClock splits the HH:MM time field.
func (c *NotificationConfig) ParseClock() (hour, minute int, err error) {
	if _, err := time.Parse("15:04", c.Time); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", c.Time)
	}
	fmt.Sscanf(c.Time, "%d:%d", &hour, &minute)
	return hour, minute, nil
}

// Validate checks the frequency-dependent fields. A failing config is skipped
// at schedule time; the error says why.
func (c *NotificationConfig) Validate() error {
	if _, _, err := c.ParseClock(); err != nil {
		return err
	}
	switch c.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if _, ok := WeekdayNumber(c.DayOfWeek); !ok {
			return fmt.Errorf("weekly notification requires a valid day_of_week, got %q", c.DayOfWeek)
		}
	case FrequencyMonthly:
		if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
			return fmt.Errorf("monthly notification requires day_of_month 1-31, got %d", c.DayOfMonth)
		}
	default:
		return fmt.Errorf("unsupported frequency %q", c.Frequency)
	}
	return nil
}

// LegacyNotification is the older restaurant+section WhatsApp nudge. Delivery
// is implicit: trigger the checklist prompt to every employee assigned to the
// section.
type LegacyNotification struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	RestaurantID primitive.ObjectID `bson:"restaurant_id" json:"restaurant_id"`
	SectionID    primitive.ObjectID `bson:"section_id" json:"section_id"`

	Frequency string `bson:"frequency" json:"frequency"` // daily | alternate
	Time      string `bson:"time" json:"time"`           // HH:MM
	TimeZone  string `bson:"time_zone" json:"time_zone"`

	IsActive      bool       `bson:"is_active" json:"is_active"`
	LastTriggered *time.Time `bson:"last_triggered,omitempty" json:"last_triggered,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (n *LegacyNotification) ParseClock() (hour, minute int, err error) {
	if _, err := time.Parse("15:04", n.Time); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", n.Time)
	}
	fmt.Sscanf(n.Time, "%d:%d", &hour, &minute)
	return hour, minute, nil
}

func (n *LegacyNotification) Validate() error {
	if _, _, err := n.ParseClock(); err != nil {
		return err
	}
	switch n.Frequency {
	case FrequencyDaily, FrequencyAlternate:
		return nil
	default:
		return fmt.Errorf("unsupported frequency %q", n.Frequency)
	}
}

package handlers

import (
	"net/http"

	"restocheck/internal/models"
	"restocheck/internal/services"
	"restocheck/internal/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationHandler struct {
	configs   *store.ReportNotificationStore
	scheduler *services.ReportScheduler
	legacy    *services.LegacyScheduler
}

func NewNotificationHandler(
	configs *store.ReportNotificationStore,
	scheduler *services.ReportScheduler,
	legacy *services.LegacyScheduler,
) *NotificationHandler {
	return &NotificationHandler{
		configs:   configs,
		scheduler: scheduler,
		legacy:    legacy,
	}
}

type ReportNotificationRequest struct {
	Name       string                        `json:"name" binding:"required,min=1,max=100"`
	Frequency  string                        `json:"frequency" binding:"required"`
	Time       string                        `json:"time" binding:"required"`
	TimeZone   string                        `json:"time_zone"`
	DayOfWeek  string                        `json:"day_of_week"`
	DayOfMonth int                           `json:"day_of_month"`
	Channels   models.NotificationChannels   `json:"channels"`
	Recipients models.NotificationRecipients `json:"recipients"`
	Filters    models.ReportFilters          `json:"filters"`
	Active     *bool                         `json:"active"`
}

func (r *ReportNotificationRequest) apply(config *models.NotificationConfig) {
	config.Name = r.Name
	config.Frequency = r.Frequency
	config.Time = r.Time
	config.TimeZone = r.TimeZone
	config.DayOfWeek = r.DayOfWeek
	config.DayOfMonth = r.DayOfMonth
	config.Channels = r.Channels
	config.Recipients = r.Recipients
	config.Filters = r.Filters
	config.Active = true
	if r.Active != nil {
		config.Active = *r.Active
	}
}

// List returns every report notification config, active or not.
func (h *NotificationHandler) List(c *gin.Context) {
	configs, err := h.configs.FindAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": configs, "count": len(configs)})
}

func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}

	config, err := h.configs.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// Create persists a new config and registers its timer when active.
func (h *NotificationHandler) Create(c *gin.Context) {
	var req ReportNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	config := &models.NotificationConfig{}
	req.apply(config)
	if userID, exists := c.Get("user_id"); exists {
		config.CreatedBy = userID.(primitive.ObjectID)
	}

	if err := config.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configs.Create(c.Request.Context(), config); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save notification"})
		return
	}

	if err := h.scheduler.AddOrUpdate(config); err != nil {
		log.Errorf("failed to schedule notification %s: %v", config.ID.Hex(), err)
		c.JSON(http.StatusCreated, gin.H{
			"notification": config,
			"warning":      "Saved but not scheduled: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"notification": config})
}

// Update replaces an existing config and reconciles its timer.
func (h *NotificationHandler) Update(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}

	var req ReportNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	config, err := h.configs.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	req.apply(config)
	if userID, exists := c.Get("user_id"); exists {
		config.UpdatedBy = userID.(primitive.ObjectID)
	}

	if err := config.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.configs.Update(c.Request.Context(), config); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	if err := h.scheduler.AddOrUpdate(config); err != nil {
		log.Errorf("failed to reschedule notification %s: %v", config.ID.Hex(), err)
	}

	c.JSON(http.StatusOK, gin.H{"notification": config})
}

// Delete removes a config and cancels its timer. The timer goes first so a
// fire cannot race the removal.
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}

	h.scheduler.Cancel(id)

	if err := h.configs.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// Trigger runs a persisted config's pipeline immediately.
func (h *NotificationHandler) Trigger(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}

	result := h.scheduler.TriggerManually(c.Request.Context(), id)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

type GenerateRequest struct {
	SendWebhook bool                  `json:"send_webhook"`
	Filters     *models.ReportFilters `json:"filters"`
}

// Generate produces a one-off report without a persisted config.
func (h *NotificationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
			return
		}
	}

	result := h.scheduler.ManualGenerate(c.Request.Context(), req.SendWebhook, req.Filters)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// Status reports the scheduler's job map.
func (h *NotificationHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// Refresh reloads every active config from the store and rebuilds the job
// map, recovering from any drift between the two.
func (h *NotificationHandler) Refresh(c *gin.Context) {
	if err := h.scheduler.LoadAndSchedule(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

type LegacyNotificationRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	SectionID    string `json:"section_id" binding:"required"`
	Frequency    string `json:"frequency" binding:"required"`
	Time         string `json:"time" binding:"required"`
	TimeZone     string `json:"time_zone"`
}

// CreateLegacy registers a recurring section checklist nudge.
func (h *NotificationHandler) CreateLegacy(c *gin.Context) {
	var req LegacyNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	restaurantID, err := primitive.ObjectIDFromHex(req.RestaurantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant id"})
		return
	}
	sectionID, err := primitive.ObjectIDFromHex(req.SectionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section id"})
		return
	}

	notification := &models.LegacyNotification{
		RestaurantID: restaurantID,
		SectionID:    sectionID,
		Frequency:    req.Frequency,
		Time:         req.Time,
		TimeZone:     req.TimeZone,
	}
	if userID, exists := c.Get("user_id"); exists {
		notification.UserID = userID.(primitive.ObjectID)
	}

	if err := h.legacy.AddNotification(c.Request.Context(), notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"notification": notification})
}

// DeleteLegacy cancels the nudge timer and removes the record.
func (h *NotificationHandler) DeleteLegacy(c *gin.Context) {
	id, ok := objectIDParam(c)
	if !ok {
		return
	}

	if err := h.legacy.DeleteNotification(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

func objectIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

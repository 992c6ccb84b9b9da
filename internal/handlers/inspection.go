package handlers

import (
	"context"
	"net/http"
	"time"

	"restocheck/internal/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InspectionRecorder persists completed checklist runs.
type InspectionRecorder interface {
	Insert(ctx context.Context, inspection *models.Inspection) error
}

// EmployeeLookup resolves an inbound WhatsApp number to an employee.
type EmployeeLookup interface {
	EmployeeByWhatsApp(ctx context.Context, number string) (*models.Employee, error)
}

// InspectionHandler receives completed checklists from the WhatsApp
// messaging provider. The provider authenticates with the shared API token,
// not a user JWT.
type InspectionHandler struct {
	inspections InspectionRecorder
	employees   EmployeeLookup
	token       string
}

func NewInspectionHandler(inspections InspectionRecorder, employees EmployeeLookup, token string) *InspectionHandler {
	return &InspectionHandler{
		inspections: inspections,
		employees:   employees,
		token:       token,
	}
}

type InspectionResponseRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Passed     *bool  `json:"passed"`
	Comment    string `json:"comment"`
}

type SubmitInspectionRequest struct {
	WhatsAppNumber string                      `json:"whatsapp_number" binding:"required"`
	SectionID      string                      `json:"section_id" binding:"required"`
	SentAt         time.Time                   `json:"sent_at"`
	Responses      []InspectionResponseRequest `json:"responses" binding:"required,min=1"`
}

// Submit records a finished checklist run. Any failed answer marks the whole
// inspection as needing attention.
func (h *InspectionHandler) Submit(c *gin.Context) {
	if h.token != "" && c.GetHeader("X-Webhook-Token") != h.token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
		return
	}

	var req SubmitInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sectionID, err := primitive.ObjectIDFromHex(req.SectionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section id"})
		return
	}

	employee, err := h.employees.EmployeeByWhatsApp(c.Request.Context(), req.WhatsAppNumber)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if employee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No employee registered for this number"})
		return
	}

	now := time.Now()
	sentAt := req.SentAt
	if sentAt.IsZero() {
		sentAt = now
	}

	status := models.InspectionStatusPassed
	responses := make([]models.InspectionResponse, 0, len(req.Responses))
	for _, response := range req.Responses {
		questionID, err := primitive.ObjectIDFromHex(response.QuestionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
			return
		}
		if response.Passed != nil && !*response.Passed {
			status = models.InspectionStatusAttention
		}
		responses = append(responses, models.InspectionResponse{
			QuestionID: questionID,
			Passed:     response.Passed,
			Comment:    response.Comment,
		})
	}

	inspection := &models.Inspection{
		EmployeeID: employee.ID,
		SectionID:  sectionID,
		Date:       now,
		SentAt:     sentAt,
		DoneAt:     now,
		Status:     status,
		Responses:  responses,
	}

	if err := h.inspections.Insert(c.Request.Context(), inspection); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save inspection"})
		return
	}

	log.WithFields(log.Fields{
		"employee": employee.Name,
		"section":  sectionID.Hex(),
		"status":   status,
	}).Info("inspection recorded")

	c.JSON(http.StatusCreated, gin.H{"inspection": inspection})
}

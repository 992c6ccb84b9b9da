package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	InspectionStatusPassed    = "passed"
	InspectionStatusAttention = "attention"
)

// InspectionResponse is one answered checklist question. Passed is nil when
// the employee skipped the question (reported as N/A).
type InspectionResponse struct {
	QuestionID primitive.ObjectID `bson:"question_id" json:"question_id"`
	Passed     *bool              `bson:"passed,omitempty" json:"passed,omitempty"`
	Comment    string             `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Inspection is a completed checklist run recorded by the WhatsApp flow.
type Inspection struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	EmployeeID primitive.ObjectID   `bson:"employee_id" json:"employee_id"`
	SectionID  primitive.ObjectID   `bson:"section_id" json:"section_id"`
	Date       time.Time            `bson:"date" json:"date"`
	SentAt     time.Time            `bson:"sent_at" json:"sent_at"`
	DoneAt     time.Time            `bson:"done_at" json:"done_at"`
	Status     string               `bson:"status" json:"status"`
	Responses  []InspectionResponse `bson:"responses" json:"responses"`
}

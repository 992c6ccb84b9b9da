package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Restaurant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	AccountID primitive.ObjectID `bson:"account_id" json:"account_id"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Question is a single checklist item. Questions live embedded on the section
// document; inspection responses reference them by id.
type Question struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Text string             `bson:"text" json:"text"`
}

type Section struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	RestaurantID primitive.ObjectID `bson:"restaurant_id" json:"restaurant_id"`
	Questions    []Question         `bson:"questions" json:"questions"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

type Employee struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name           string               `bson:"name" json:"name"`
	WhatsAppNumber string               `bson:"whatsapp_number" json:"whatsapp_number"`
	SectionIDs     []primitive.ObjectID `bson:"section_ids" json:"section_ids"`
	AccountID      primitive.ObjectID   `bson:"account_id" json:"account_id"`
	IsActive       bool                 `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
}

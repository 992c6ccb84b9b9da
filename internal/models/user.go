package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	Name string   `bson:"name" json:"name"`
	Role UserRole `bson:"role" json:"role"`

	// AccountID scopes every document to the owning admin account. Users
	// created by the same account share its id; the account owner points at
	// itself.
	AccountID primitive.ObjectID `bson:"account_id,omitempty" json:"account_id,omitempty"`

	IsActive bool `bson:"is_active" json:"is_active"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

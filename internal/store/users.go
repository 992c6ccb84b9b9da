package store

import (
	"context"
	"fmt"
	"time"

	"restocheck/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{collection: db.Collection("users")}
}

// FindByRole returns active users holding role within an account scope.
func (s *UserStore) FindByRole(ctx context.Context, role models.UserRole, accountID primitive.ObjectID) ([]models.User, error) {
	filter := bson.M{
		"role":      role,
		"is_active": true,
	}
	if !accountID.IsZero() {
		filter["account_id"] = accountID
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return &user, nil
}

// RecordLogin stamps the last login time. Best effort.
func (s *UserStore) RecordLogin(ctx context.Context, userID primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"last_login_at": at, "updated_at": at}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// AccountIDFor resolves the owning account id for a user. The account owner
// points at itself so reports created by the owner stay account-scoped.
func (s *UserStore) AccountIDFor(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, nil
	}
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to query user: %w", err)
	}
	if user.AccountID.IsZero() {
		return user.ID, nil
	}
	return user.AccountID, nil
}

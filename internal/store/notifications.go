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

// ReportNotificationStore persists recurring report notification configs.
type ReportNotificationStore struct {
	collection *mongo.Collection
}

func NewReportNotificationStore(db *mongo.Database) *ReportNotificationStore {
	return &ReportNotificationStore{collection: db.Collection("report_notifications")}
}

func (s *ReportNotificationStore) FindActive(ctx context.Context) ([]models.NotificationConfig, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query active report notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var configs []models.NotificationConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode report notifications: %w", err)
	}
	return configs, nil
}

func (s *ReportNotificationStore) FindAll(ctx context.Context) ([]models.NotificationConfig, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query report notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var configs []models.NotificationConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, fmt.Errorf("failed to decode report notifications: %w", err)
	}
	return configs, nil
}

func (s *ReportNotificationStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.NotificationConfig, error) {
	var config models.NotificationConfig
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&config)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report notification: %w", err)
	}
	return &config, nil
}

func (s *ReportNotificationStore) Create(ctx context.Context, config *models.NotificationConfig) error {
	config.CreatedAt = time.Now()
	config.UpdatedAt = config.CreatedAt
	result, err := s.collection.InsertOne(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to insert report notification: %w", err)
	}
	config.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *ReportNotificationStore) Update(ctx context.Context, config *models.NotificationConfig) error {
	config.UpdatedAt = time.Now()
	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": config.ID}, config)
	if err != nil {
		return fmt.Errorf("failed to update report notification: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("report notification %s not found", config.ID.Hex())
	}
	return nil
}

func (s *ReportNotificationStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete report notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("report notification %s not found", id.Hex())
	}
	return nil
}

// UpdateSendTimes records the post-fire bookkeeping.
func (s *ReportNotificationStore) UpdateSendTimes(ctx context.Context, id primitive.ObjectID, lastSent, nextSend time.Time) error {
	update := bson.M{"$set": bson.M{
		"last_sent":  lastSent,
		"next_send":  nextSend,
		"updated_at": time.Now(),
	}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to update send times: %w", err)
	}
	return nil
}

// LegacyNotificationStore persists the restaurant+section WhatsApp nudges.
type LegacyNotificationStore struct {
	collection *mongo.Collection
}

func NewLegacyNotificationStore(db *mongo.Database) *LegacyNotificationStore {
	return &LegacyNotificationStore{collection: db.Collection("notifications")}
}

func (s *LegacyNotificationStore) FindActive(ctx context.Context) ([]models.LegacyNotification, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to query active notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.LegacyNotification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (s *LegacyNotificationStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LegacyNotification, error) {
	var notification models.LegacyNotification
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}
	return &notification, nil
}

func (s *LegacyNotificationStore) Create(ctx context.Context, notification *models.LegacyNotification) error {
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = notification.CreatedAt
	result, err := s.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	notification.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *LegacyNotificationStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("notification %s not found", id.Hex())
	}
	return nil
}

func (s *LegacyNotificationStore) UpdateLastTriggered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"last_triggered": at,
		"updated_at":     time.Now(),
	}}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to update last triggered: %w", err)
	}
	return nil
}

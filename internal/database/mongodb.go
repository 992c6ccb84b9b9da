package database

import (
	"context"
	"fmt"
	"time"

	"restocheck/internal/config"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Infof("connected to MongoDB database %s", cfg.DatabaseName)

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.DatabaseName),
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	log.Info("disconnected from MongoDB")
	return nil
}

// CreateIndexes creates the indexes every collection relies on.
// bson.D keeps compound key order.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	users := m.Database.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Recipient resolution queries by role within an account.
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "account_id", Value: 1},
			},
		},
	}
	if _, err := users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	inspections := m.Database.Collection("inspections")
	inspectionIndexes := []mongo.IndexModel{
		{
			// Aggregation window queries: date range, optionally scoped by section.
			Keys: bson.D{
				{Key: "date", Value: -1},
				{Key: "section_id", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "employee_id", Value: 1}},
		},
	}
	if _, err := inspections.Indexes().CreateMany(ctx, inspectionIndexes); err != nil {
		return fmt.Errorf("failed to create inspection indexes: %w", err)
	}

	sections := m.Database.Collection("sections")
	sectionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "restaurant_id", Value: 1}},
		},
	}
	if _, err := sections.Indexes().CreateMany(ctx, sectionIndexes); err != nil {
		return fmt.Errorf("failed to create section indexes: %w", err)
	}

	employees := m.Database.Collection("employees")
	employeeIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "whatsapp_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "section_ids", Value: 1}},
		},
	}
	if _, err := employees.Indexes().CreateMany(ctx, employeeIndexes); err != nil {
		return fmt.Errorf("failed to create employee indexes: %w", err)
	}

	reportConfigs := m.Database.Collection("report_notifications")
	reportConfigIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "active", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_by", Value: 1}},
		},
	}
	if _, err := reportConfigs.Indexes().CreateMany(ctx, reportConfigIndexes); err != nil {
		return fmt.Errorf("failed to create report notification indexes: %w", err)
	}

	legacy := m.Database.Collection("notifications")
	legacyIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "is_active", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "restaurant_id", Value: 1},
				{Key: "section_id", Value: 1},
			},
		},
	}
	if _, err := legacy.Indexes().CreateMany(ctx, legacyIndexes); err != nil {
		return fmt.Errorf("failed to create legacy notification indexes: %w", err)
	}

	log.Info("MongoDB indexes created")
	return nil
}

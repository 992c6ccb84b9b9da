package store

import (
	"context"
	"fmt"
	"time"

	"restocheck/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InspectionStore struct {
	collection *mongo.Collection
}

func NewInspectionStore(db *mongo.Database) *InspectionStore {
	return &InspectionStore{collection: db.Collection("inspections")}
}

// FindInRange returns inspections in [from, to), newest first. An empty
// sectionIDs slice means no section filter.
func (s *InspectionStore) FindInRange(ctx context.Context, from, to time.Time, sectionIDs []primitive.ObjectID) ([]models.Inspection, error) {
	filter := bson.M{
		"date": bson.M{"$gte": from, "$lt": to},
	}
	if len(sectionIDs) > 0 {
		filter["section_id"] = bson.M{"$in": sectionIDs}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer cursor.Close(ctx)

	var inspections []models.Inspection
	if err := cursor.All(ctx, &inspections); err != nil {
		return nil, fmt.Errorf("failed to decode inspections: %w", err)
	}
	return inspections, nil
}

func (s *InspectionStore) Insert(ctx context.Context, inspection *models.Inspection) error {
	result, err := s.collection.InsertOne(ctx, inspection)
	if err != nil {
		return fmt.Errorf("failed to insert inspection: %w", err)
	}
	inspection.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

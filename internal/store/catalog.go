package store

import (
	"context"
	"fmt"

	"restocheck/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogStore covers the restaurant / section / employee collections the
// report pipeline joins against.
type CatalogStore struct {
	restaurants *mongo.Collection
	sections    *mongo.Collection
	employees   *mongo.Collection
}

func NewCatalogStore(db *mongo.Database) *CatalogStore {
	return &CatalogStore{
		restaurants: db.Collection("restaurants"),
		sections:    db.Collection("sections"),
		employees:   db.Collection("employees"),
	}
}

func (s *CatalogStore) RestaurantsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Restaurant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.restaurants.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var restaurants []models.Restaurant
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *CatalogStore) SectionsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Section, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findSections(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *CatalogStore) SectionsByRestaurants(ctx context.Context, restaurantIDs []primitive.ObjectID) ([]models.Section, error) {
	if len(restaurantIDs) == 0 {
		return nil, nil
	}
	return s.findSections(ctx, bson.M{"restaurant_id": bson.M{"$in": restaurantIDs}})
}

func (s *CatalogStore) findSections(ctx context.Context, filter bson.M) ([]models.Section, error) {
	cursor, err := s.sections.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer cursor.Close(ctx)

	var sections []models.Section
	if err := cursor.All(ctx, &sections); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	return sections, nil
}

func (s *CatalogStore) EmployeesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.findEmployees(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// EmployeesBySection returns the active employees assigned to a section.
func (s *CatalogStore) EmployeesBySection(ctx context.Context, sectionID primitive.ObjectID) ([]models.Employee, error) {
	return s.findEmployees(ctx, bson.M{"section_ids": sectionID, "is_active": true})
}

// EmployeeByWhatsApp resolves the employee behind an inbound WhatsApp
// number. Nil when no employee is registered for it.
func (s *CatalogStore) EmployeeByWhatsApp(ctx context.Context, number string) (*models.Employee, error) {
	var employee models.Employee
	err := s.employees.FindOne(ctx, bson.M{"whatsapp_number": number}).Decode(&employee)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query employee by whatsapp number: %w", err)
	}
	return &employee, nil
}

func (s *CatalogStore) findEmployees(ctx context.Context, filter bson.M) ([]models.Employee, error) {
	cursor, err := s.employees.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer cursor.Close(ctx)

	var employees []models.Employee
	if err := cursor.All(ctx, &employees); err != nil {
		return nil, fmt.Errorf("failed to decode employees: %w", err)
	}
	return employees, nil
}

package services

import (
	"context"

	"github.com/ItzSouraseez/knowyourplate/models"
)

// Catalog exposes the restaurant read queries as methods so views can
// depend on an interface instead of the global pool.
type Catalog struct{}

func (Catalog) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	return ListRestaurants(ctx)
}

func (Catalog) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	return GetRestaurant(ctx, id)
}

func (Catalog) ListSections(ctx context.Context, restaurantID string) ([]models.Section, error) {
	return ListSections(ctx, restaurantID)
}

func (Catalog) ListFoodItems(ctx context.Context, restaurantID, sectionID string) ([]models.FoodItem, error) {
	return ListFoodItems(ctx, restaurantID, sectionID)
}

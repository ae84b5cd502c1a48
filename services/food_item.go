package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ItzSouraseez/knowyourplate/db"
	"github.com/ItzSouraseez/knowyourplate/models"
)

// ListFoodItems returns the food items of one section with their attribute
// bags decoded from jsonb.
func ListFoodItems(ctx context.Context, restaurantID, sectionID string) ([]models.FoodItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, attributes FROM food_items
		WHERE restaurant_id = $1 AND section_id = $2
		ORDER BY id`,
		restaurantID, sectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.FoodItem
	for rows.Next() {
		var id string
		var attrsJSON []byte
		if err := rows.Scan(&id, &attrsJSON); err != nil {
			return nil, err
		}
		item, err := decodeFoodItem(id, sectionID, attrsJSON)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func decodeFoodItem(id, sectionID string, attrsJSON []byte) (models.FoodItem, error) {
	item := models.FoodItem{ID: id, SectionID: sectionID, Attributes: map[string]any{}}
	if len(attrsJSON) == 0 {
		return item, nil
	}
	if err := json.Unmarshal(attrsJSON, &item.Attributes); err != nil {
		return item, fmt.Errorf("failed to unmarshal food item %s attributes: %w", id, err)
	}
	if item.Attributes == nil {
		item.Attributes = map[string]any{}
	}
	return item, nil
}

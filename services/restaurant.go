package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ItzSouraseez/knowyourplate/db"
	"github.com/ItzSouraseez/knowyourplate/models"

	"github.com/jackc/pgx/v5"
)

// ListRestaurants returns every restaurant in enumeration order.
func ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, COALESCE(restaurant_name, '') FROM restaurants
		ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Restaurant
	for rows.Next() {
		var r models.Restaurant
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// GetRestaurant returns the restaurant with the given id, or
// models.ErrRestaurantNotFound.
func GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	r := models.Restaurant{ID: id}
	err := db.Pool.QueryRow(ctx, `SELECT COALESCE(restaurant_name, '') FROM restaurants WHERE id = $1`, id).Scan(&r.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrRestaurantNotFound, id)
		}
		return nil, err
	}
	return &r, nil
}

// ListSections returns the sections of one restaurant.
func ListSections(ctx context.Context, restaurantID string) ([]models.Section, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, COALESCE(name, '') FROM sections
		WHERE restaurant_id = $1
		ORDER BY id`,
		restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []models.Section
	for rows.Next() {
		s := models.Section{RestaurantID: restaurantID}
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

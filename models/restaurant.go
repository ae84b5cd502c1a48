package models

import "errors"

// UnnamedRestaurant is shown when a restaurant record carries no name.
const UnnamedRestaurant = "Unnamed Restaurant"

// ErrRestaurantNotFound is returned when no restaurant has the requested id.
var ErrRestaurantNotFound = errors.New("restaurant not found")

type Restaurant struct {
	ID   string
	Name string // may be empty; use DisplayName for rendering
}

func (r Restaurant) DisplayName() string {
	if r.Name == "" {
		return UnnamedRestaurant
	}
	return r.Name
}

// Section is a named group of food items under one restaurant.
type Section struct {
	ID           string
	RestaurantID string
	Name         string
}

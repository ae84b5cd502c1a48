package views

import (
	"strings"

	"github.com/ItzSouraseez/knowyourplate/models"
)

// FilterRestaurants keeps the restaurants whose display name contains query,
// ignoring case. An empty query returns list as is.
func FilterRestaurants(list []models.Restaurant, query string) []models.Restaurant {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	out := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.DisplayName()), q) {
			out = append(out, r)
		}
	}
	return out
}

package views

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ItzSouraseez/knowyourplate/models"
)

// Menu is one restaurant's sections and their food items. Items are keyed by
// section id so sections sharing a display name stay distinct.
type Menu struct {
	RestaurantID   string
	RestaurantName string
	Sections       []models.Section
	Items          map[string][]models.FoodItem
}

// SectionNames returns the display names in section order.
func (m *Menu) SectionNames() []string {
	names := make([]string, len(m.Sections))
	for i, s := range m.Sections {
		names[i] = s.Name
	}
	return names
}

// Section returns the section with the given id.
func (m *Menu) Section(id string) (models.Section, bool) {
	for _, s := range m.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return models.Section{}, false
}

// LoadMenu fetches the restaurant, its sections, then the food items of every
// section with at most fanout fetches in flight. The result keeps the store's
// section order whatever order the item fetches finish in. Any failure
// discards everything fetched so far.
func LoadMenu(ctx context.Context, c Catalog, restaurantID string, fanout int) (*Menu, error) {
	r, err := c.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("get restaurant %s: %w", restaurantID, err)
	}
	if r == nil {
		return nil, fmt.Errorf("get restaurant %s: %w", restaurantID, models.ErrRestaurantNotFound)
	}

	sections, err := c.ListSections(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list sections of %s: %w", restaurantID, err)
	}

	items := make([][]models.FoodItem, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	if fanout > 0 {
		g.SetLimit(fanout)
	}
	for i, sec := range sections {
		g.Go(func() error {
			fi, err := c.ListFoodItems(gctx, restaurantID, sec.ID)
			if err != nil {
				return fmt.Errorf("list food items of section %s: %w", sec.ID, err)
			}
			items[i] = fi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &Menu{
		RestaurantID:   restaurantID,
		RestaurantName: r.DisplayName(),
		Sections:       sections,
		Items:          make(map[string][]models.FoodItem, len(sections)),
	}
	for i, sec := range sections {
		m.Items[sec.ID] = items[i]
	}
	return m, nil
}

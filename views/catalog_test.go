package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ItzSouraseez/knowyourplate/models"
)

// fakeCatalog is an in-memory Catalog with hooks for failures, delays and
// call counting.
type fakeCatalog struct {
	mu          sync.Mutex
	restaurants []models.Restaurant
	sections    map[string][]models.Section  // by restaurant id
	items       map[string][]models.FoodItem // by section id

	listErr     error
	sectionsErr error
	itemErr     map[string]error
	itemDelay   map[string]time.Duration
	listGate    chan struct{} // when set, ListRestaurants waits for it

	calls       map[string]int
	inFlight    int
	maxInFlight int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		sections:  map[string][]models.Section{},
		items:     map[string][]models.FoodItem{},
		itemErr:   map[string]error{},
		itemDelay: map[string]time.Duration{},
		calls:     map[string]int{},
	}
}

func (f *fakeCatalog) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeCatalog) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCatalog) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	f.count("ListRestaurants")
	if f.listGate != nil {
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Restaurant(nil), f.restaurants...), nil
}

func (f *fakeCatalog) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	f.count("GetRestaurant")
	for _, r := range f.restaurants {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrRestaurantNotFound, id)
}

func (f *fakeCatalog) ListSections(_ context.Context, restaurantID string) ([]models.Section, error) {
	f.count("ListSections")
	if f.sectionsErr != nil {
		return nil, f.sectionsErr
	}
	return append([]models.Section(nil), f.sections[restaurantID]...), nil
}

func (f *fakeCatalog) ListFoodItems(ctx context.Context, _, sectionID string) ([]models.FoodItem, error) {
	f.count("ListFoodItems")
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.itemDelay[sectionID]
	err := f.itemErr[sectionID]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]models.FoodItem(nil), f.items[sectionID]...), nil
}

// pizzaCatalog has one restaurant with two sections, the first slower than the second.
func pizzaCatalog() *fakeCatalog {
	f := newFakeCatalog()
	f.restaurants = []models.Restaurant{{ID: "r1", Name: "Pizza Place"}, {ID: "r2"}}
	f.sections["r1"] = []models.Section{
		{ID: "s1", RestaurantID: "r1", Name: "Pizzas"},
		{ID: "s2", RestaurantID: "r1", Name: "Drinks"},
	}
	f.items["s1"] = []models.FoodItem{
		{ID: "f1", SectionID: "s1", Attributes: map[string]any{"name": "Margherita", "images": []any{"a.jpg", "b.jpg"}}},
		{ID: "f2", SectionID: "s1", Attributes: map[string]any{"name": "Diavola"}},
	}
	f.items["s2"] = []models.FoodItem{
		{ID: "f3", SectionID: "s2", Attributes: map[string]any{"name": "Lemonade"}},
	}
	f.itemDelay["s1"] = 30 * time.Millisecond
	return f
}

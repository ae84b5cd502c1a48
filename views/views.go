// Package views holds the state behind the two screens of the menu browser:
// the restaurant list and one restaurant's menu. Rendering surfaces (web, bot)
// mount a view against a session, read snapshots and forward user actions.
package views

import (
	"context"
	"fmt"

	"github.com/ItzSouraseez/knowyourplate/models"
)

// Catalog is the read side of the document store.
type Catalog interface {
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	// GetRestaurant returns an error wrapping models.ErrRestaurantNotFound for unknown ids.
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	ListSections(ctx context.Context, restaurantID string) ([]models.Section, error)
	ListFoodItems(ctx context.Context, restaurantID, sectionID string) ([]models.FoodItem, error)
}

// User-facing texts.
const (
	MsgListLoadFailed = "Failed to load restaurants. Please try again later."
	MsgMenuLoadFailed = "Failed to load menu. Please try again later."
	MsgNoRestaurants  = "No restaurants found."
	MsgNoMenuItems    = "No menu items available."
	MsgNoImages       = "No Images"
)

func MsgEmptySection(name string) string {
	return fmt.Sprintf("No items in %s section.", name)
}

// liveness ties loads to one mounted view instance. A load captures the
// generation when it starts and may commit only while the view is mounted and
// the generation is unchanged. Callers hold the owning view's mutex.
type liveness struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

func (l *liveness) mount(parent context.Context) {
	l.unmount()
	l.ctx, l.cancel = context.WithCancel(parent)
	l.gen++
}

func (l *liveness) unmount() {
	if l.cancel != nil {
		l.cancel()
	}
	l.ctx, l.cancel = nil, nil
	l.gen++
}

// invalidate makes every in-flight load stale without unmounting.
func (l *liveness) invalidate() {
	l.gen++
}

func (l *liveness) token() (context.Context, uint64, bool) {
	if l.ctx == nil {
		return nil, 0, false
	}
	l.gen++
	return l.ctx, l.gen, true
}

func (l *liveness) valid(gen uint64) bool {
	return l.ctx != nil && l.ctx.Err() == nil && gen == l.gen
}

func (l *liveness) mounted() bool {
	return l.ctx != nil
}

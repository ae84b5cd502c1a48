package views

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
)

// MenuState is a snapshot of one restaurant's menu screen. Menu is nil until
// a load succeeds and after any failure.
type MenuState struct {
	Identity     *models.Identity
	RestaurantID string
	Loading      bool
	Menu         *Menu
	Err          string

	collapse *Collapse
}

// Collapsed reports whether the section is collapsed in this snapshot.
func (s MenuState) Collapsed(sectionID string) bool {
	return s.collapse != nil && s.collapse.Collapsed(sectionID)
}

// MenuView loads one restaurant's full menu per sign-in and tracks which
// sections are collapsed.
type MenuView struct {
	catalog      Catalog
	log          *zap.Logger
	restaurantID string
	fanout       int
	timeout      time.Duration

	mu          sync.Mutex
	state       MenuState
	collapse    *Collapse
	live        liveness
	sess        *session.Session
	unsubscribe func()
}

type MenuOptions struct {
	Fanout  int
	Timeout time.Duration
}

func NewMenuView(c Catalog, restaurantID string, opts MenuOptions, log *zap.Logger) *MenuView {
	return &MenuView{
		catalog:      c,
		log:          log.Named("views.menu").With(zap.String("restaurant_id", restaurantID)),
		restaurantID: restaurantID,
		fanout:       opts.Fanout,
		timeout:      opts.Timeout,
		state:        MenuState{RestaurantID: restaurantID},
		collapse:     NewCollapse(),
	}
}

func (v *MenuView) RestaurantID() string {
	return v.restaurantID
}

// Mount attaches the view to s and replays the current sign-in state.
func (v *MenuView) Mount(ctx context.Context, s *session.Session) {
	v.Unmount()
	v.mu.Lock()
	v.live.mount(ctx)
	v.sess = s
	v.mu.Unlock()

	unsubscribe := s.Subscribe(v.onAuth)

	v.mu.Lock()
	v.unsubscribe = unsubscribe
	v.mu.Unlock()
}

// Unmount detaches the view and discards any load still in flight.
func (v *MenuView) Unmount() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.sess = nil
	v.live.unmount()
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Context is cancelled when the view is unmounted. It is nil while unmounted.
func (v *MenuView) Context() context.Context {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.live.ctx
}

func (v *MenuView) onAuth(id *models.Identity) {
	v.mu.Lock()
	if v.sess != nil && v.sess.Current() != id {
		v.mu.Unlock()
		v.log.Debug("dropping superseded sign-in notification")
		return
	}
	if id == nil {
		v.live.invalidate()
		v.state = MenuState{RestaurantID: v.restaurantID}
		v.collapse.Reset()
		v.mu.Unlock()
		return
	}
	v.state.Identity = id
	ctx, gen, ok := v.live.token()
	if !ok || v.restaurantID == "" {
		v.mu.Unlock()
		return
	}
	v.state.Loading = true
	v.state.Err = ""
	v.mu.Unlock()

	v.load(ctx, gen)
}

func (v *MenuView) load(ctx context.Context, gen uint64) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	v.log.Debug("fetching menu")
	menu, err := LoadMenu(ctx, v.catalog, v.restaurantID, v.fanout)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.live.valid(gen) {
		v.log.Debug("discarding stale menu")
		return
	}
	v.state.Loading = false
	if err != nil {
		if errors.Is(err, models.ErrRestaurantNotFound) {
			v.log.Warn("restaurant not found", zap.Error(err))
		} else {
			v.log.Error("fetch menu", zap.Error(err))
		}
		v.state.Menu = nil
		v.state.Err = MsgMenuLoadFailed
		return
	}
	v.collapse.Reset()
	v.state.Menu = menu
	v.log.Debug("menu loaded", zap.Int("sections", len(menu.Sections)))
}

// Toggle flips one section between expanded and collapsed and reports
// whether it is now collapsed.
func (v *MenuView) Toggle(sectionID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collapse.Toggle(sectionID)
}

// Snapshot returns a copy of the current state.
func (v *MenuView) Snapshot() MenuState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.collapse = v.collapse.clone()
	return s
}

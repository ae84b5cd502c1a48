package views

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
)

// ListState is a snapshot of the restaurant list screen.
type ListState struct {
	Identity    *models.Identity
	Loading     bool
	Restaurants []models.Restaurant // every restaurant, names already defaulted
	Query       string
	Err         string
}

// Visible returns the restaurants matching the current query.
func (s ListState) Visible() []models.Restaurant {
	return FilterRestaurants(s.Restaurants, s.Query)
}

// ListView loads all restaurants once per sign-in and filters them by name.
type ListView struct {
	catalog Catalog
	log     *zap.Logger
	timeout time.Duration

	mu          sync.Mutex
	state       ListState
	live        liveness
	sess        *session.Session
	unsubscribe func()
}

func NewListView(c Catalog, log *zap.Logger, timeout time.Duration) *ListView {
	return &ListView{
		catalog: c,
		log:     log.Named("views.list"),
		timeout: timeout,
	}
}

// Mount attaches the view to s. The current sign-in state is replayed
// immediately, so a signed-in session loads before Mount returns.
func (v *ListView) Mount(ctx context.Context, s *session.Session) {
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
func (v *ListView) Unmount() {
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

func (v *ListView) onAuth(id *models.Identity) {
	v.mu.Lock()
	if v.sess != nil && v.sess.Current() != id {
		v.mu.Unlock()
		v.log.Debug("dropping superseded sign-in notification")
		return
	}
	v.state.Identity = id
	if id == nil {
		v.live.invalidate()
		v.state = ListState{}
		v.mu.Unlock()
		return
	}
	ctx, gen, ok := v.live.token()
	if !ok {
		v.mu.Unlock()
		return
	}
	v.state.Loading = true
	v.state.Err = ""
	v.mu.Unlock()

	v.load(ctx, gen)
}

func (v *ListView) load(ctx context.Context, gen uint64) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	v.log.Debug("fetching restaurants")
	list, err := v.catalog.ListRestaurants(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.live.valid(gen) {
		v.log.Debug("discarding stale restaurant list")
		return
	}
	v.state.Loading = false
	if err != nil {
		v.log.Error("fetch restaurants", zap.Error(err))
		v.state.Restaurants = nil
		v.state.Err = MsgListLoadFailed
		return
	}
	for i := range list {
		list[i].Name = list[i].DisplayName()
	}
	v.state.Restaurants = list
	v.log.Debug("restaurants loaded", zap.Int("count", len(list)))
}

// SetQuery stores the live search text.
func (v *ListView) SetQuery(q string) {
	v.mu.Lock()
	v.state.Query = q
	v.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (v *ListView) Snapshot() ListState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Restaurants = append([]models.Restaurant(nil), v.state.Restaurants...)
	return s
}

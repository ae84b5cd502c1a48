// Package session holds the signed-in state shared by the views of one client
// and notifies subscribed views of sign-in and sign-out transitions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ItzSouraseez/knowyourplate/models"
)

var (
	ErrSignIn  = errors.New("sign in failed")
	ErrSignOut = errors.New("sign out failed")
)

// User-facing messages for the two session failures.
const (
	MsgSignInFailed  = "Failed to sign in."
	MsgSignOutFailed = "Failed to sign out."
)

// Listener receives the current identity on subscribe and after every
// transition; nil means signed out. Calls are made outside the session lock,
// so when transitions race a listener can see them out of order. Listeners
// that act on the value should drop it unless it is still Current.
type Listener func(id *models.Identity)

// Flow runs one interactive consent flow against an identity provider.
type Flow func(ctx context.Context) (*models.Identity, error)

// Provider invalidates an identity it issued.
type Provider interface {
	SignOut(ctx context.Context, id *models.Identity) error
}

type Session struct {
	provider Provider

	mu        sync.Mutex
	identity  *models.Identity
	listeners map[uint64]Listener
	nextID    uint64
	lastSeen  time.Time
	notice    string
}

func New(p Provider) *Session {
	return &Session{
		provider:  p,
		listeners: make(map[uint64]Listener),
		lastSeen:  time.Now(),
	}
}

// Current returns the signed-in identity or nil.
func (s *Session) Current() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Subscribe registers l and calls it once with the current identity before
// returning. The returned func unregisters l; calling it more than once is a no-op.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	current := s.identity
	s.mu.Unlock()

	l(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Listeners reports how many listeners are registered.
func (s *Session) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// SignIn runs flow. On failure the session stays as it was and no listener
// fires; the returned error wraps ErrSignIn.
func (s *Session) SignIn(ctx context.Context, flow Flow) error {
	id, err := flow(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignIn, err)
	}
	if id == nil {
		return fmt.Errorf("%w: provider returned no identity", ErrSignIn)
	}
	s.transition(id)
	return nil
}

// SignOut asks the provider to invalidate the identity. If the provider fails
// the identity is kept and the error wraps ErrSignOut.
func (s *Session) SignOut(ctx context.Context) error {
	current := s.Current()
	if current == nil {
		return nil
	}
	if s.provider != nil {
		if err := s.provider.SignOut(ctx, current); err != nil {
			return fmt.Errorf("%w: %w", ErrSignOut, err)
		}
	}
	s.transition(nil)
	return nil
}

func (s *Session) transition(id *models.Identity) {
	s.mu.Lock()
	s.identity = id
	s.lastSeen = time.Now()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(id)
	}
}

// Flash stores a one-shot message for the next rendered view.
func (s *Session) Flash(msg string) {
	s.mu.Lock()
	s.notice = msg
	s.mu.Unlock()
}

// TakeFlash returns and clears the stored message.
func (s *Session) TakeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.notice
	s.notice = ""
	return msg
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

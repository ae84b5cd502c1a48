package session

import (
	"sync"
	"time"
)

// Store keeps one Session per client key (a browser cookie, a chat id).
type Store struct {
	provider Provider

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore(p Provider) *Store {
	return &Store{
		provider: p,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns the session for key, creating a signed-out one if needed.
func (st *Store) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	if !ok {
		s = New(st.provider)
		st.sessions[key] = s
	}
	s.touch(st.now())
	return s
}

// Lookup returns the session for key without creating one.
func (st *Store) Lookup(key string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

func (st *Store) Drop(key string) {
	st.mu.Lock()
	delete(st.sessions, key)
	st.mu.Unlock()
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and without listeners.
// It returns the number dropped.
func (st *Store) Sweep(maxIdle time.Duration) int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for key, s := range st.sessions {
		if s.idleSince(now) > maxIdle && s.Listeners() == 0 {
			delete(st.sessions, key)
			n++
		}
	}
	return n
}

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItzSouraseez/knowyourplate/models"
)

type stubProvider struct {
	err   error
	calls int
}

func (p *stubProvider) SignOut(context.Context, *models.Identity) error {
	p.calls++
	return p.err
}

func okFlow(name string) Flow {
	return func(context.Context) (*models.Identity, error) {
		return &models.Identity{Subject: name, DisplayName: name, Provider: "test"}, nil
	}
}

func TestSubscribe_ReplaysCurrentState(t *testing.T) {
	s := New(&stubProvider{})

	var got []*models.Identity
	unsubscribe := s.Subscribe(func(id *models.Identity) { got = append(got, id) })
	require.Len(t, got, 1)
	assert.Nil(t, got[0])

	require.NoError(t, s.SignIn(context.Background(), okFlow("ada")))
	require.Len(t, got, 2)
	assert.Equal(t, "ada", got[1].DisplayName)

	var late *models.Identity
	s.Subscribe(func(id *models.Identity) { late = id })
	require.NotNil(t, late)
	assert.Equal(t, "ada", late.Subject)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, s.Listeners())

	require.NoError(t, s.SignOut(context.Background()))
	assert.Len(t, got, 2, "unsubscribed listener must not fire")
	assert.Nil(t, late)
}

func TestSignIn_FailureLeavesSignedOut(t *testing.T) {
	s := New(&stubProvider{})
	fired := 0
	s.Subscribe(func(*models.Identity) { fired++ })

	boom := errors.New("popup closed")
	err := s.SignIn(context.Background(), func(context.Context) (*models.Identity, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSignIn)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s.Current())
	assert.Equal(t, 1, fired, "only the subscribe replay")

	err = s.SignIn(context.Background(), func(context.Context) (*models.Identity, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrSignIn)
	assert.Nil(t, s.Current())
}

func TestSignOut(t *testing.T) {
	p := &stubProvider{}
	s := New(p)

	require.NoError(t, s.SignOut(context.Background()))
	assert.Equal(t, 0, p.calls, "signed-out session does not call the provider")

	require.NoError(t, s.SignIn(context.Background(), okFlow("ada")))
	p.err = errors.New("network")
	err := s.SignOut(context.Background())
	assert.ErrorIs(t, err, ErrSignOut)
	assert.NotNil(t, s.Current(), "identity kept when provider fails")

	p.err = nil
	require.NoError(t, s.SignOut(context.Background()))
	assert.Nil(t, s.Current())
}

func TestFlash(t *testing.T) {
	s := New(nil)
	assert.Empty(t, s.TakeFlash())
	s.Flash(MsgSignInFailed)
	assert.Equal(t, MsgSignInFailed, s.TakeFlash())
	assert.Empty(t, s.TakeFlash())
}

func TestStore(t *testing.T) {
	st := NewStore(nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	a := st.Get("a")
	assert.Same(t, a, st.Get("a"))
	_, ok := st.Lookup("b")
	assert.False(t, ok)

	b := st.Get("b")
	unsubscribe := b.Subscribe(func(*models.Identity) {})

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, st.Sweep(time.Hour), "b has a listener")
	_, ok = st.Lookup("a")
	assert.False(t, ok)

	unsubscribe()
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, st.Sweep(time.Hour))
	assert.Equal(t, 0, st.Len())

	st.Get("c")
	st.Drop("c")
	assert.Equal(t, 0, st.Len())
}

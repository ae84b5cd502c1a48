package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
)

const ProviderPassword = "password"

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrThrottled          = errors.New("too many failed attempts")
)

// CredentialStore is the persistence behind password sign-in.
type CredentialStore interface {
	// Verify returns nil, nil when the login is unknown, inactive or the password does not match.
	Verify(ctx context.Context, login, password string) (*models.Identity, error)
	WaitSeconds(ctx context.Context, login string) (int, error)
	Failed(ctx context.Context, login string) error
	Succeeded(ctx context.Context, login string) error
}

// Password signs users in with a login and password, throttling repeated
// failures per login.
type Password struct {
	store CredentialStore
	log   *zap.Logger
}

func NewPassword(store CredentialStore, log *zap.Logger) *Password {
	return &Password{store: store, log: log.Named("auth.password")}
}

// Flow returns a sign-in flow for one login attempt.
func (p *Password) Flow(login, password string) session.Flow {
	login = strings.TrimSpace(login)
	return func(ctx context.Context) (*models.Identity, error) {
		if login == "" || password == "" {
			return nil, ErrInvalidCredentials
		}
		wait, err := p.store.WaitSeconds(ctx, login)
		if err != nil {
			return nil, fmt.Errorf("throttle lookup: %w", err)
		}
		if wait > 0 {
			p.log.Info("login throttled", zap.String("login", login), zap.Int("wait_seconds", wait))
			return nil, fmt.Errorf("%w: retry in %ds", ErrThrottled, wait)
		}

		id, err := p.store.Verify(ctx, login, password)
		if err != nil {
			return nil, fmt.Errorf("verify credential: %w", err)
		}
		if id == nil {
			if err := p.store.Failed(ctx, login); err != nil {
				p.log.Warn("record failed login", zap.String("login", login), zap.Error(err))
			}
			return nil, ErrInvalidCredentials
		}
		if err := p.store.Succeeded(ctx, login); err != nil {
			p.log.Warn("record successful login", zap.String("login", login), zap.Error(err))
		}
		id.Provider = ProviderPassword
		return id, nil
	}
}

// SignOut has nothing to revoke; password identities live only in the session.
func (p *Password) SignOut(context.Context, *models.Identity) error {
	return nil
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/ItzSouraseez/knowyourplate/db"
	"github.com/ItzSouraseez/knowyourplate/models"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	LoginRateLimitCount  = 5
	LoginRateLimitWindow = 10 * time.Minute
)

// VerifyCredential checks password against user_credentials; returns the identity
// when the credential exists, is active and the password matches. A nil identity
// with a nil error means the check failed.
func VerifyCredential(ctx context.Context, login, plainPassword string) (*models.Identity, error) {
	var hash, displayName string
	var isActive bool
	err := db.Pool.QueryRow(ctx, `
		SELECT password_hash, display_name, is_active FROM user_credentials WHERE login = $1`,
		login,
	).Scan(&hash, &displayName, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !isActive {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(plainPassword)) != nil {
		return nil, nil
	}
	if displayName == "" {
		displayName = login
	}
	return &models.Identity{Subject: login, DisplayName: displayName, Provider: "password"}, nil
}

// UpsertCredential stores a bcrypt hash of plainPassword for login and marks it active.
func UpsertCredential(ctx context.Context, login, displayName, plainPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO user_credentials (login, display_name, password_hash, is_active, updated_at)
		VALUES ($1, $2, $3, true, now())
		ON CONFLICT (login) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			password_hash = EXCLUDED.password_hash,
			is_active = true,
			updated_at = now()`,
		login, displayName, string(hash),
	)
	return err
}

// RecordLoginAttempt records a login attempt for auditing (do not log password).
func RecordLoginAttempt(ctx context.Context, login string, success bool) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_attempts (login, success) VALUES ($1, $2)`,
		login, success,
	)
	return err
}

// CountRecentFailedAttempts returns number of failed login attempts within LoginRateLimitWindow.
func CountRecentFailedAttempts(ctx context.Context, login string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE login = $1 AND success = false AND attempted_at > $2`,
		login, time.Now().Add(-LoginRateLimitWindow),
	).Scan(&n)
	return n, err
}

// CleanupOldLoginAttempts removes attempts older than 24h.
func CleanupOldLoginAttempts(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM login_attempts WHERE attempted_at < now() - interval '24 hours'`)
	return err
}

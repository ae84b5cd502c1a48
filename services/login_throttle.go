package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ItzSouraseez/knowyourplate/db"
	"github.com/ItzSouraseez/knowyourplate/models"

	"github.com/jackc/pgx/v5"
)

const ThrottleCooldownCapSeconds = 30

// LoginThrottleWaitSeconds returns how many seconds the login must wait before trying again (0 if no cooldown).
func LoginThrottleWaitSeconds(ctx context.Context, login string) (int, error) {
	var cooldownUntil *time.Time
	err := db.Pool.QueryRow(ctx, `
		SELECT cooldown_until FROM login_throttle WHERE login = $1`,
		login,
	).Scan(&cooldownUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return waitSeconds(cooldownUntil, time.Now()), nil
}

func waitSeconds(cooldownUntil *time.Time, now time.Time) int {
	if cooldownUntil == nil || !now.Before(*cooldownUntil) {
		return 0
	}
	return int(cooldownUntil.Sub(now).Seconds()) + 1 // round up
}

// RecordLoginFailed increments fail_count and sets cooldown_until = now() + min(30, 2^fail_count) seconds.
func RecordLoginFailed(ctx context.Context, login string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_throttle (login, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 1, now(), now() + (LEAST(30, POWER(2, 1)::int) || ' seconds')::interval, now())
		ON CONFLICT (login) DO UPDATE SET
			fail_count = login_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST(30, POWER(2, login_throttle.fail_count + 1)::int) || ' seconds')::interval,
			updated_at = now()`,
		login,
	)
	if err != nil {
		return err
	}
	return RecordLoginAttempt(ctx, login, false)
}

// RecordLoginSuccess resets fail_count and cooldown_until for the login.
func RecordLoginSuccess(ctx context.Context, login string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO login_throttle (login, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 0, NULL, NULL, now())
		ON CONFLICT (login) DO UPDATE SET
			fail_count = 0,
			last_failed_at = NULL,
			cooldown_until = NULL,
			updated_at = now()`,
		login,
	)
	if err != nil {
		return err
	}
	return RecordLoginAttempt(ctx, login, true)
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}

// Credentials adapts the credential and throttle queries to the password
// identity provider.
type Credentials struct{}

func (Credentials) Verify(ctx context.Context, login, password string) (*models.Identity, error) {
	return VerifyCredential(ctx, login, password)
}

// WaitSeconds combines the per-login cooldown with the sliding window of
// failed attempts.
func (Credentials) WaitSeconds(ctx context.Context, login string) (int, error) {
	wait, err := LoginThrottleWaitSeconds(ctx, login)
	if err != nil || wait > 0 {
		return wait, err
	}
	n, err := CountRecentFailedAttempts(ctx, login)
	if err != nil {
		return 0, err
	}
	if n >= LoginRateLimitCount {
		return ThrottleCooldownCapSeconds, nil
	}
	return 0, nil
}

func (Credentials) Failed(ctx context.Context, login string) error {
	return RecordLoginFailed(ctx, login)
}

func (Credentials) Succeeded(ctx context.Context, login string) error {
	return RecordLoginSuccess(ctx, login)
}

// Package auth implements the identity providers behind session sign-in.
package auth

import (
	"context"
	"fmt"

	"github.com/ItzSouraseez/knowyourplate/models"
	"github.com/ItzSouraseez/knowyourplate/session"
)

// Registry dispatches sign-out to the provider that issued the identity.
type Registry map[string]session.Provider

func (r Registry) SignOut(ctx context.Context, id *models.Identity) error {
	p, ok := r[id.Provider]
	if !ok {
		return fmt.Errorf("unknown identity provider %q", id.Provider)
	}
	return p.SignOut(ctx, id)
}

// Package entitlements stores per-user solve entitlements and exposes a single
// atomic read-modify-write primitive over them.
package entitlements

import (
	"context"

	"github.com/dmitrijs2005/mathsolver/internal/server/models"
)

// MutateFunc inspects and possibly changes e. It reports whether e was
// changed and must be written back. It may be called more than once for a
// single Mutate when the store retries, so it must not have side effects.
type MutateFunc func(e *models.Entitlement) (changed bool, err error)

// Repository serialises entitlement changes per user. Mutate returns the
// entitlement as committed, or common.ErrorNotFound for an unknown user.
type Repository interface {
	Get(ctx context.Context, userID string) (models.Entitlement, error)
	Mutate(ctx context.Context, userID string, fn MutateFunc) (models.Entitlement, error)
}

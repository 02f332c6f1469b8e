// Package cache holds short-lived copies of account identity data so that a
// burst of connections from one user does not hit the database each time.
// Entitlement balances are never cached.
package cache

import (
	"context"

	"github.com/dmitrijs2005/mathsolver/internal/server/models"
)

// UserCache is a read-through cache for account lookups. A miss is reported
// as (nil, nil).
type UserCache interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Set(ctx context.Context, user *models.User) error
}

// Nop caches nothing. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.User, error) { return nil, nil }
func (Nop) Set(context.Context, *models.User) error            { return nil }

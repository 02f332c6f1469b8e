package repomanager

import (
	"context"

	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/results"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
	Users() users.Repository
	Entitlements() entitlements.Repository
	Results() results.Repository
}

package repomanager

import (
	"context"

	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/memory"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/results"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process memory; data is lost
// on restart.
type InMemoryRepositoryManager struct {
	store *memory.Store
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: memory.NewStore()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *InMemoryRepositoryManager) Close() error                        { return nil }

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.store.Users()
}

func (m *InMemoryRepositoryManager) Entitlements() entitlements.Repository {
	return m.store.Entitlements()
}

func (m *InMemoryRepositoryManager) Results() results.Repository {
	return m.store.Results()
}

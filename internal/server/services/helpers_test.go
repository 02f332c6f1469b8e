package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/entitlements"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/results"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

var errDBDown = errors.New("connection refused")

// brokenManager wraps a working manager and fails selected repositories.
type brokenManager struct {
	repomanager.RepositoryManager
	users        users.Repository
	entitlements entitlements.Repository
	results      results.Repository
}

func (m *brokenManager) Users() users.Repository {
	if m.users != nil {
		return m.users
	}
	return m.RepositoryManager.Users()
}

func (m *brokenManager) Entitlements() entitlements.Repository {
	if m.entitlements != nil {
		return m.entitlements
	}
	return m.RepositoryManager.Entitlements()
}

func (m *brokenManager) Results() results.Repository {
	if m.results != nil {
		return m.results
	}
	return m.RepositoryManager.Results()
}

type failingUsers struct{ users.Repository }

func (failingUsers) GetByID(context.Context, string) (*models.User, error) { return nil, errDBDown }

type failingEntitlements struct{ entitlements.Repository }

func (failingEntitlements) Mutate(context.Context, string, entitlements.MutateFunc) (models.Entitlement, error) {
	return models.Entitlement{}, errDBDown
}

func (failingEntitlements) Get(context.Context, string) (models.Entitlement, error) {
	return models.Entitlement{}, errDBDown
}

type failingResults struct{ results.Repository }

func (failingResults) Create(context.Context, *models.Result) (*models.Result, error) {
	return nil, errDBDown
}

func seedUser(t *testing.T, m repomanager.RepositoryManager, credits int64, subscription *time.Time) *models.User {
	t.Helper()
	u, err := m.Users().Create(context.Background(), &models.User{
		Email:       t.Name() + "@example.com",
		Entitlement: models.Entitlement{Credits: credits, SubscriptionExpiresAt: subscription},
	})
	require.NoError(t, err)
	return u
}

// Package memory provides process-local implementations of the users,
// entitlements and results repositories. It backs the server when no
// database DSN is configured and serves as a fake in service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/entitlements"
	"github.com/google/uuid"
)

type userRecord struct {
	mu   sync.Mutex
	user models.User
}

// Store is shared by the three repository views below.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*userRecord
	results []models.Result
}

func NewStore() *Store {
	return &Store{users: make(map[string]*userRecord)}
}

func (s *Store) Users() *Users               { return &Users{s} }
func (s *Store) Entitlements() *Entitlements { return &Entitlements{s} }
func (s *Store) Results() *Results           { return &Results{s} }

func (s *Store) record(id string) (*userRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.users[id]
	return r, ok
}

type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastLogin.IsZero() {
		user.LastLogin = now
	}
	if user.Role == "" {
		user.Role = common.RoleUser
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, r := range u.s.users {
		if r.user.Email == user.Email && user.Email != "" {
			return nil, common.ErrorValidation
		}
	}
	u.s.users[user.ID] = &userRecord{user: *user}
	return user, nil
}

func (u *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	r, ok := u.s.record(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user := r.user
	return &user, nil
}

type Entitlements struct{ s *Store }

func (e *Entitlements) Get(_ context.Context, userID string) (models.Entitlement, error) {
	r, ok := e.s.record(userID)
	if !ok {
		return models.Entitlement{}, common.ErrorNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyEntitlement(r.user.Entitlement), nil
}

// Mutate holds the user's lock while fn runs, so calls for one user are
// serialised while different users proceed independently.
func (e *Entitlements) Mutate(ctx context.Context, userID string, fn entitlements.MutateFunc) (models.Entitlement, error) {
	if err := ctx.Err(); err != nil {
		return models.Entitlement{}, err
	}

	r, ok := e.s.record(userID)
	if !ok {
		return models.Entitlement{}, common.ErrorNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ent := copyEntitlement(r.user.Entitlement)
	changed, err := fn(&ent)
	if err != nil {
		return models.Entitlement{}, err
	}
	if changed {
		r.user.Entitlement = copyEntitlement(ent)
	}
	return ent, nil
}

func copyEntitlement(e models.Entitlement) models.Entitlement {
	if e.SubscriptionExpiresAt != nil {
		t := *e.SubscriptionExpiresAt
		e.SubscriptionExpiresAt = &t
	}
	return e
}

type Results struct{ s *Store }

func (r *Results) Create(_ context.Context, result *models.Result) (*models.Result, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.results {
		if existing.ID == result.ID {
			return nil, common.ErrorValidation
		}
	}
	r.s.results = append(r.s.results, *result)
	return result, nil
}

func (r *Results) ListByUser(_ context.Context, userID string, limit int) ([]*models.Result, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var list []*models.Result
	for i := range r.s.results {
		if r.s.results[i].UserID == userID {
			res := r.s.results[i]
			list = append(list, &res)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Package services contains server-side business logic: who a bearer is,
// what they may spend, and what gets recorded once a solve completes.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/auth"
	"github.com/dmitrijs2005/mathsolver/internal/server/cache"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/repomanager"
)

// IdentityService turns bearer tokens into accounts.
type IdentityService struct {
	repomanager repomanager.RepositoryManager
	verifier    *auth.Verifier
	issuer      *auth.Issuer
	cache       cache.UserCache
	logger      logging.Logger
}

func NewIdentityService(m repomanager.RepositoryManager, verifier *auth.Verifier, issuer *auth.Issuer,
	c cache.UserCache, logger logging.Logger) *IdentityService {
	if c == nil {
		c = cache.Nop{}
	}
	return &IdentityService{
		repomanager: m,
		verifier:    verifier,
		issuer:      issuer,
		cache:       c,
		logger:      logger,
	}
}

// Authenticate verifies an access token and loads its account. Refresh
// tokens are refused. Errors are common.ErrInvalidToken,
// common.ErrTokenExpired, common.ErrorNotFound or an infrastructure error.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*auth.Identity, *models.User, error) {
	identity, err := s.verifier.Verify(token)
	if err != nil {
		return nil, nil, err
	}
	if identity.IsRefresh() {
		return nil, nil, common.ErrInvalidToken
	}

	user, err := s.FetchUser(ctx, identity.SubjectID)
	if err != nil {
		return identity, nil, err
	}
	return identity, user, nil
}

// FetchUser reads through the user cache. Cache failures are logged and
// fall back to the repository.
func (s *IdentityService) FetchUser(ctx context.Context, id string) (*models.User, error) {
	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "user cache read failed", "user_id", id, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.repomanager.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	if err := s.cache.Set(ctx, user); err != nil {
		s.logger.Warn(ctx, "user cache write failed", "user_id", id, "error", err)
	}
	return user, nil
}

// Refresh exchanges a valid refresh token for a new access token carrying the
// account's current role.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	identity, err := s.verifier.Verify(refreshToken)
	if err != nil {
		return "", err
	}
	if !identity.IsRefresh() {
		return "", common.ErrInvalidToken
	}

	user, err := s.FetchUser(ctx, identity.SubjectID)
	if err != nil {
		return "", err
	}

	return s.issuer.AccessToken(user.ID, user.Role)
}

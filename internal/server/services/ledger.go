package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/repomanager"
)

// LedgerService is the only writer of entitlements. Every change goes
// through the repository's per-user atomic Mutate.
type LedgerService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewLedgerService(m repomanager.RepositoryManager, logger logging.Logger) *LedgerService {
	return &LedgerService{repomanager: m, logger: logger, now: time.Now}
}

// CheckAndDebit decides whether userID may run one solve and, if it is paid
// by a credit, takes that credit. An active subscription is preferred and
// costs nothing. The returned error is set only for infrastructure failures;
// denial and unknown user are outcomes.
func (s *LedgerService) CheckAndDebit(ctx context.Context, userID string) (models.Debit, error) {
	var source models.DebitSource

	remaining, err := s.repomanager.Entitlements().Mutate(ctx, userID, func(e *models.Entitlement) (bool, error) {
		source = e.TryDebit(s.now())
		return source == models.SourceCredit, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Debit{Outcome: models.DebitUserNotFound}, nil
		}
		return models.Debit{}, fmt.Errorf("check and debit: %w", err)
	}

	if source == models.SourceNone {
		return models.Debit{Outcome: models.DebitInsufficient, Remaining: remaining}, nil
	}

	s.logger.Debug(ctx, "entitlement debited", "user_id", userID, "source", source.String(), "credits_left", remaining.Credits)
	return models.Debit{Outcome: models.DebitGranted, Source: source, Remaining: remaining}, nil
}

// Grant adds credits and subscription days to userID.
func (s *LedgerService) Grant(ctx context.Context, userID string, credits int64, days int) (models.Entitlement, error) {
	now := s.now()

	e, err := s.repomanager.Entitlements().Mutate(ctx, userID, func(e *models.Entitlement) (bool, error) {
		if err := e.Grant(credits, days, now); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return models.Entitlement{}, common.ErrorNotFound
		case errors.Is(err, models.ErrInvalidGrant):
			return models.Entitlement{}, fmt.Errorf("%w: %w", common.ErrorValidation, err)
		}
		return models.Entitlement{}, fmt.Errorf("grant: %w", err)
	}

	s.logger.Info(ctx, "entitlement granted", "user_id", userID, "credits", credits, "days", days, "credits_now", e.Credits)
	return e, nil
}

// Balance returns userID's current entitlement without changing it.
func (s *LedgerService) Balance(ctx context.Context, userID string) (models.Entitlement, error) {
	e, err := s.repomanager.Entitlements().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Entitlement{}, common.ErrorNotFound
		}
		return models.Entitlement{}, fmt.Errorf("balance: %w", err)
	}
	return e, nil
}

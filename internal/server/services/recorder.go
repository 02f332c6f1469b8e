package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/logging"
	"github.com/dmitrijs2005/mathsolver/internal/server/inputs"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/dmitrijs2005/mathsolver/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RecorderService writes one immutable Result per completed solve.
type RecorderService struct {
	repomanager repomanager.RepositoryManager
	store       inputs.Store
	retention   time.Duration
	logger      logging.Logger
	now         func() time.Time
}

// NewRecorderService returns a recorder archiving inputs in store. A zero
// retention leaves ExpiresAt unset.
func NewRecorderService(m repomanager.RepositoryManager, store inputs.Store, retention time.Duration, logger logging.Logger) *RecorderService {
	if store == nil {
		store = inputs.DigestStore{}
	}
	return &RecorderService{repomanager: m, store: store, retention: retention, logger: logger, now: time.Now}
}

// Record archives img and appends a Result. Each call creates a new record.
// Failures are wrapped in common.ErrPersistence; a failed archive falls back
// to the digest reference instead of failing the record.
func (s *RecorderService) Record(ctx context.Context, userID string, img inputs.Image, outputText string) (string, error) {
	ref, err := s.store.Put(ctx, userID, img)
	if err != nil {
		ref = inputs.DigestRef(img.Data)
		s.logger.Warn(ctx, "input archive failed, keeping digest only", "user_id", userID, "input_ref", ref, "error", err)
	}

	now := s.now().UTC()
	result := &models.Result{
		ID:         uuid.NewString(),
		UserID:     userID,
		InputRef:   ref,
		OutputText: outputText,
		CreatedAt:  now,
	}
	if s.retention > 0 {
		expires := now.Add(s.retention)
		result.ExpiresAt = &expires
	}

	if _, err := s.repomanager.Results().Create(ctx, result); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	return result.ID, nil
}

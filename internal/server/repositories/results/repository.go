package results

import (
	"context"

	"github.com/dmitrijs2005/mathsolver/internal/server/models"
)

// Repository is append-only: results are created once and never updated.
type Repository interface {
	Create(ctx context.Context, result *models.Result) (*models.Result, error)
	// ListByUser returns the user's results, newest first. A limit of zero
	// or less returns all of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Result, error)
}

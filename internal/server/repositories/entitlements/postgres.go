package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mathsolver/internal/common"
	"github.com/dmitrijs2005/mathsolver/internal/dbx"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (models.Entitlement, error) {
	return r.load(ctx, r.db, userID, false)
}

// Mutate locks the user row for the duration of fn. Concurrent callers for
// the same user queue on the row lock; the credit floor is also enforced by
// the table's CHECK constraint.
func (r *PostgresRepository) Mutate(ctx context.Context, userID string, fn MutateFunc) (models.Entitlement, error) {
	var committed models.Entitlement

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := r.load(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		changed, err := fn(&e)
		if err != nil {
			return err
		}

		if changed {
			if err := r.store(ctx, tx, userID, e); err != nil {
				return err
			}
		}

		committed = e
		return nil
	})

	if err != nil {
		return models.Entitlement{}, err
	}
	return committed, nil
}

func (r *PostgresRepository) load(ctx context.Context, db dbx.DBTX, userID string, forUpdate bool) (models.Entitlement, error) {
	query := `SELECT credits, subscription_expires_at FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var e models.Entitlement
	var expires sql.NullTime

	err := db.QueryRowContext(ctx, query, userID).Scan(&e.Credits, &expires)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, sql.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
			return models.Entitlement{}, common.ErrorNotFound
		}
		return models.Entitlement{}, fmt.Errorf("db error: %w", err)
	}

	if expires.Valid {
		e.SubscriptionExpiresAt = &expires.Time
	}
	return e, nil
}

func (r *PostgresRepository) store(ctx context.Context, db dbx.DBTX, userID string, e models.Entitlement) error {
	query := `UPDATE users SET credits = $2, subscription_expires_at = $3 WHERE id = $1 AND $2 >= 0`

	res, err := db.ExecContext(ctx, query, userID, e.Credits, e.SubscriptionExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("db error: entitlement update touched %d rows", n)
	}
	return nil
}

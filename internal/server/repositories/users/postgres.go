package users

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
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, name, role, credits, subscription_expires_at)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, last_login
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.Role, user.Credits, user.SubscriptionExpiresAt).
		Scan(&user.ID, &user.CreatedAt, &user.LastLogin)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, name, role, credits, subscription_expires_at, created_at, last_login FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	var expires sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &user.Role,
		&user.Credits, &expires, &user.CreatedAt, &user.LastLogin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if expires.Valid {
		user.SubscriptionExpiresAt = &expires.Time
	}

	return user, nil
}

// isInvalidID reports a malformed uuid (SQLSTATE 22P02). A token subject that
// is not a uuid cannot name an account.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

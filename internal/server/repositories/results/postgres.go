// Package results persists the record of each completed solve.
package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mathsolver/internal/dbx"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, result *models.Result) (*models.Result, error) {

	query :=
		`INSERT INTO results (id, user_id, input_ref, output_text, created_at, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 `

	_, err := r.db.ExecContext(ctx, query,
		result.ID, result.UserID, result.InputRef, result.OutputText, result.CreatedAt, result.ExpiresAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Result, error) {
	query :=
		`SELECT id, user_id, input_ref, output_text, created_at, expires_at FROM results
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
		 `

	// LIMIT NULL is LIMIT ALL.
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}

	rows, err := r.db.QueryContext(ctx, query, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []*models.Result
	for rows.Next() {
		res := &models.Result{}
		var expires sql.NullTime
		if err := rows.Scan(&res.ID, &res.UserID, &res.InputRef, &res.OutputText, &res.CreatedAt, &expires); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if expires.Valid {
			res.ExpiresAt = &expires.Time
		}
		list = append(list, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}

package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mathsolver/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertQuery = `(?s)^INSERT\s+INTO\s+results\s*\(id,\s*user_id,\s*input_ref,\s*output_text,\s*created_at,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	expires := now.Add(time.Hour)
	res := &models.Result{ID: "r1", UserID: "u1", InputRef: "blake3:ab", OutputText: "4", CreatedAt: now, ExpiresAt: &expires}

	mock.ExpectExec(insertQuery).
		WithArgs("r1", "u1", "blake3:ab", "4", now, expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), res)
	require.NoError(t, err)
	assert.Same(t, res, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQuery).WillReturnError(errors.New("disk full"))

	_, err := repo.Create(context.Background(), &models.Result{ID: "r1"})
	assert.ErrorContains(t, err, "db error: disk full")
}

func TestListByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "input_ref", "output_text", "created_at", "expires_at"}).
		AddRow("r2", "u1", "ref2", "x=2", now, nil).
		AddRow("r1", "u1", "ref1", "4", now.Add(-time.Minute), now.Add(time.Hour))

	mock.ExpectQuery(`(?s)^SELECT .* FROM results\s+WHERE user_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`).
		WithArgs("u1", 10).
		WillReturnRows(rows)

	list, err := repo.ListByUser(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Nil(t, list[0].ExpiresAt)
	assert.NotNil(t, list[1].ExpiresAt)
}

func TestListByUser_ZeroLimitIsUnbounded(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "input_ref", "output_text", "created_at", "expires_at"}).
		AddRow("r1", "u1", "ref1", "4", time.Now(), nil)

	mock.ExpectQuery(`(?s)^SELECT .* FROM results.*LIMIT \$2`).
		WithArgs("u1", nil).
		WillReturnRows(rows)

	list, err := repo.ListByUser(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListByUser_QueryError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("timeout"))

	_, err := repo.ListByUser(context.Background(), "u1", 10)
	assert.ErrorContains(t, err, "db error: timeout")
}

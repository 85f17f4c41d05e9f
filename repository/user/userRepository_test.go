package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/angata1/PawBit/model"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (Repo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return New(db), mock, db
}

const ensureQ = `(?s)^\s*INSERT INTO users \(auth_id, email, name, is_anonymous\)\s+VALUES \(\$1,\$2,\$3,\$4\)\s+ON CONFLICT \(auth_id\) DO NOTHING\s*$`

func TestEnsure_Created(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(ensureQ).
		WithArgs("auth-1", "a@example.com", "Alice", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := r.Ensure(context.Background(), &model.User{AuthID: "auth-1", Email: "a@example.com", Name: "Alice"})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_ExistingIsNoop(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(ensureQ).
		WithArgs("auth-1", "a@example.com", "Alice", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := r.Ensure(context.Background(), &model.User{AuthID: "auth-1", Email: "a@example.com", Name: "Alice"})
	require.NoError(t, err)
	require.False(t, created)
}

func TestEnsure_DBError(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(ensureQ).WillReturnError(errors.New("db down"))

	_, err := r.Ensure(context.Background(), &model.User{AuthID: "auth-1"})
	require.ErrorContains(t, err, "ensure user: db down")
}

func TestByAuthID_Found(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT auth_id, email, name, balance, is_anonymous, created_at\s+FROM users\s+WHERE auth_id=\$1`).
		WithArgs("auth-1").
		WillReturnRows(sqlmock.NewRows([]string{"auth_id", "email", "name", "balance", "is_anonymous", "created_at"}).
			AddRow("auth-1", "a@example.com", "Alice", "12.50", false, now))

	u, err := r.ByAuthID(context.Background(), "auth-1")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.Name)
	require.Equal(t, "12.5", u.Balance.String())
}

func TestByAuthID_NotFound(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT auth_id`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := r.ByAuthID(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	name := "Bob"
	anon := true
	mock.ExpectExec(`(?s)UPDATE users\s+SET name = COALESCE\(\$2, name\), is_anonymous = COALESCE\(\$3, is_anonymous\)\s+WHERE auth_id=\$1`).
		WithArgs("auth-1", &name, &anon).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, r.UpdateProfile(context.Background(), "auth-1", &name, &anon))

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, r.UpdateProfile(context.Background(), "ghost", &name, nil), ErrNotFound)
}

func TestLeaderboard_RanksRows(t *testing.T) {
	r, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT u.name, u.is_anonymous, SUM\(d.amount_eur\) AS total.*LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"name", "is_anonymous", "total"}).
			AddRow("Emily Davis", false, "310.00").
			AddRow("Anonymous", true, "95.00"))

	rows, err := r.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 1, rows[0].Rank)
	require.Equal(t, "310", rows[0].TotalDonated.String())
	require.Equal(t, 2, rows[1].Rank)
	require.True(t, rows[1].IsAnonymous)
}

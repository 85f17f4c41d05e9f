package depositrepo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/angata1/PawBit/model"
	"github.com/stretchr/testify/require"
)

func TestTrack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO deposit_intents .*ON CONFLICT \(payment_intent_id\) DO NOTHING`).
		WithArgs("pi_1", "auth-1", int64(1000), "usd").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = New(db).Track(context.Background(), &model.DepositIntent{
		PaymentIntentID: "pi_1", UserAuthID: "auth-1", AmountMinor: 1000, Currency: "usd",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM deposit_intents`).WithArgs("pi_x").WillReturnError(sql.ErrNoRows)

	_, err = New(db).Get(context.Background(), "pi_x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPendingAndMark(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Now().Add(-time.Minute)
	mock.ExpectQuery(`(?s)WHERE status='pending' AND created_at < \$1\s+ORDER BY updated_at ASC, created_at ASC\s+LIMIT \$2`).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows([]string{"payment_intent_id", "user_auth_id", "amount_minor", "currency", "status", "created_at", "updated_at"}).
			AddRow("pi_1", "auth-1", int64(1000), "usd", "pending", cutoff, cutoff))
	mock.ExpectExec(`(?s)UPDATE deposit_intents\s+SET status=\$2, updated_at=NOW\(\)\s+WHERE payment_intent_id=\$1`).
		WithArgs("pi_1", "credited").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`(?s)UPDATE deposit_intents\s+SET updated_at=NOW\(\)\s+WHERE payment_intent_id=\$1 AND status='pending'`).
		WithArgs("pi_2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := New(db)
	rows, err := r.ListPending(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, model.DepositPending, rows[0].Status)

	require.NoError(t, r.MarkStatus(context.Background(), "pi_1", model.DepositCredited))
	require.NoError(t, r.Touch(context.Background(), "pi_2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

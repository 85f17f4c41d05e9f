package walletrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angata1/PawBit/model"
	"github.com/angata1/PawBit/util/dbx"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = errors.New("user not found")
	ErrFeederNotFound    = errors.New("feeder not found")
)

type Credit struct {
	UserAuthID string
	Amount     decimal.Decimal
	// Key is stored as both the ledger type tag and the unique idempotency key.
	Key string
}

type Debit struct {
	UserAuthID string
	FeederID   string
	Amount     decimal.Decimal
}

type Applied struct {
	Balance   decimal.Decimal
	Duplicate bool
	EntryID   int64
	MealID    int64
}

// Repo applies ledger deltas. Every method that moves money keeps the
// balance update, the ledger entry and any side record in one transaction.
type Repo interface {
	Credit(ctx context.Context, c Credit) (*Applied, error)
	Debit(ctx context.Context, d Debit) (*Applied, error)
	Balance(ctx context.Context, userAuthID string) (decimal.Decimal, error)
	ListLedger(ctx context.Context, userAuthID string, limit int) ([]model.LedgerEntry, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Credit(ctx context.Context, c Credit) (*Applied, error) {
	if !c.Amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive, got %s", c.Amount)
	}
	out := &Applied{}
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// the unique key makes a concurrent duplicate wait here, then skip
		const qIns = `
INSERT INTO donations (user_auth_id, amount_eur, type, idempotency_key)
VALUES ($1,$2,$3,$3)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING id`
		err := tx.QueryRowContext(ctx, qIns, c.UserAuthID, c.Amount, c.Key).Scan(&out.EntryID)
		if errors.Is(err, sql.ErrNoRows) {
			out.Duplicate = true
			out.Balance, err = balance(ctx, tx, c.UserAuthID)
			return err
		}
		if err != nil {
			return fmt.Errorf("insert deposit entry: %w", err)
		}

		if out.Balance, err = applyDelta(ctx, tx, c.UserAuthID, c.Amount); err != nil {
			return err
		}
		return setBalanceAfter(ctx, tx, out.EntryID, out.Balance)
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *repo) Debit(ctx context.Context, d Debit) (*Applied, error) {
	if !d.Amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", d.Amount)
	}
	out := &Applied{}
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if out.Balance, err = applyDelta(ctx, tx, d.UserAuthID, d.Amount.Neg()); err != nil {
			return err
		}

		const qMeal = `
INSERT INTO meals (feeder_id, user_auth_id, total_cost_eur)
VALUES ($1,$2,$3)
RETURNING id`
		if err := tx.QueryRowContext(ctx, qMeal, d.FeederID, d.UserAuthID, d.Amount).Scan(&out.MealID); err != nil {
			return fmt.Errorf("insert meal: %w", err)
		}

		const qLedger = `
INSERT INTO donations (user_auth_id, amount_eur, type, meal_id, balance_after)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
		if err := tx.QueryRowContext(ctx, qLedger, d.UserAuthID, d.Amount.Neg(), model.LedgerFeeding, out.MealID, out.Balance).
			Scan(&out.EntryID); err != nil {
			return fmt.Errorf("insert feeding entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *repo) Balance(ctx context.Context, userAuthID string) (decimal.Decimal, error) {
	return balance(ctx, r.db, userAuthID)
}

func (r *repo) ListLedger(ctx context.Context, userAuthID string, limit int) ([]model.LedgerEntry, error) {
	const q = `
SELECT id, user_auth_id, amount_eur, type, meal_id, balance_after, created_at
FROM donations
WHERE user_auth_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, userAuthID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var (
			e      model.LedgerEntry
			mealID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserAuthID, &e.Amount, &e.Type, &mealID, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		if mealID.Valid {
			e.MealID = &mealID.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// applyDelta moves the balance by delta in a single conditional statement,
// refusing any change that would leave it negative.
func applyDelta(ctx context.Context, tx dbx.DBTX, userAuthID string, delta decimal.Decimal) (decimal.Decimal, error) {
	const q = `
UPDATE users
SET balance = balance + $2
WHERE auth_id=$1 AND balance + $2 >= 0
RETURNING balance`
	var bal decimal.Decimal
	err := tx.QueryRowContext(ctx, q, userAuthID, delta).Scan(&bal)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("apply balance delta: %w", err)
	}

	var exists bool
	const qExists = `SELECT EXISTS (SELECT 1 FROM users WHERE auth_id=$1)`
	if err := tx.QueryRowContext(ctx, qExists, userAuthID).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return decimal.Zero, ErrUserNotFound
	}
	return decimal.Zero, ErrInsufficientFunds
}

func setBalanceAfter(ctx context.Context, tx dbx.DBTX, entryID int64, bal decimal.Decimal) error {
	const q = `UPDATE donations SET balance_after=$2 WHERE id=$1`
	if _, err := tx.ExecContext(ctx, q, entryID, bal); err != nil {
		return fmt.Errorf("stamp balance_after: %w", err)
	}
	return nil
}

func balance(ctx context.Context, db dbx.DBTX, userAuthID string) (decimal.Decimal, error) {
	const q = `SELECT balance FROM users WHERE auth_id=$1`
	var bal decimal.Decimal
	if err := db.QueryRowContext(ctx, q, userAuthID).Scan(&bal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return bal, nil
}

// classify maps constraint violations raised by Postgres onto repository errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "users_balance_non_negative" {
			return ErrInsufficientFunds
		}
	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "meals_feeder_id_fkey":
			return ErrFeederNotFound
		case "meals_user_auth_id_fkey", "donations_user_auth_id_fkey":
			return ErrUserNotFound
		}
	}
	return err
}

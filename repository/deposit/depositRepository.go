package depositrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/angata1/PawBit/model"
	"github.com/angata1/PawBit/util/dbx"
)

var ErrNotFound = errors.New("deposit intent not found")

// Repo tracks payment intents created for signed-in users so that deposits
// the client never confirmed can be reconciled later.
type Repo interface {
	Track(ctx context.Context, in *model.DepositIntent) error
	Get(ctx context.Context, paymentIntentID string) (*model.DepositIntent, error)
	MarkStatus(ctx context.Context, paymentIntentID string, status model.DepositStatus) error
	// Touch stamps updated_at on a pending intent so that ListPending
	// rotates it behind intents that were checked less recently.
	Touch(ctx context.Context, paymentIntentID string) error
	// ListPending returns pending intents created before the cutoff, least
	// recently checked first.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]model.DepositIntent, error)
}

type repo struct{ db dbx.DBTX }

func New(db dbx.DBTX) Repo { return &repo{db: db} }

func (r *repo) Track(ctx context.Context, in *model.DepositIntent) error {
	const q = `
INSERT INTO deposit_intents (payment_intent_id, user_auth_id, amount_minor, currency, status)
VALUES ($1,$2,$3,$4,'pending')
ON CONFLICT (payment_intent_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, in.PaymentIntentID, in.UserAuthID, in.AmountMinor, in.Currency); err != nil {
		return fmt.Errorf("track deposit intent: %w", err)
	}
	return nil
}

func (r *repo) Get(ctx context.Context, paymentIntentID string) (*model.DepositIntent, error) {
	const q = `
SELECT payment_intent_id, user_auth_id, amount_minor, currency, status, created_at, updated_at
FROM deposit_intents
WHERE payment_intent_id=$1`
	d := &model.DepositIntent{}
	err := r.db.QueryRowContext(ctx, q, paymentIntentID).
		Scan(&d.PaymentIntentID, &d.UserAuthID, &d.AmountMinor, &d.Currency, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get deposit intent: %w", err)
	}
	return d, nil
}

func (r *repo) MarkStatus(ctx context.Context, paymentIntentID string, status model.DepositStatus) error {
	const q = `
UPDATE deposit_intents
SET status=$2, updated_at=NOW()
WHERE payment_intent_id=$1`
	if _, err := r.db.ExecContext(ctx, q, paymentIntentID, string(status)); err != nil {
		return fmt.Errorf("mark deposit intent: %w", err)
	}
	return nil
}

func (r *repo) Touch(ctx context.Context, paymentIntentID string) error {
	const q = `
UPDATE deposit_intents
SET updated_at=NOW()
WHERE payment_intent_id=$1 AND status='pending'`
	if _, err := r.db.ExecContext(ctx, q, paymentIntentID); err != nil {
		return fmt.Errorf("touch deposit intent: %w", err)
	}
	return nil
}

func (r *repo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]model.DepositIntent, error) {
	const q = `
SELECT payment_intent_id, user_auth_id, amount_minor, currency, status, created_at, updated_at
FROM deposit_intents
WHERE status='pending' AND created_at < $1
ORDER BY updated_at ASC, created_at ASC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending deposits: %w", err)
	}
	defer rows.Close()

	var out []model.DepositIntent
	for rows.Next() {
		var d model.DepositIntent
		if err := rows.Scan(&d.PaymentIntentID, &d.UserAuthID, &d.AmountMinor, &d.Currency, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

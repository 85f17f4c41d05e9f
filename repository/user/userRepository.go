package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angata1/PawBit/model"
	"github.com/angata1/PawBit/util/dbx"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("user not found")

type Repo interface {
	// Ensure inserts the profile unless a row with the same auth_id exists.
	Ensure(ctx context.Context, u *model.User) (created bool, err error)
	ByAuthID(ctx context.Context, authID string) (*model.User, error)
	UpdateProfile(ctx context.Context, authID string, name *string, anonymous *bool) error
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderRow, error)
}

type repo struct{ db dbx.DBTX }

func New(db dbx.DBTX) Repo { return &repo{db: db} }

func (r *repo) Ensure(ctx context.Context, u *model.User) (bool, error) {
	const q = `
INSERT INTO users (auth_id, email, name, is_anonymous)
VALUES ($1,$2,$3,$4)
ON CONFLICT (auth_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q, u.AuthID, u.Email, u.Name, u.IsAnonymous)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	return n == 1, nil
}

func (r *repo) ByAuthID(ctx context.Context, authID string) (*model.User, error) {
	const q = `
SELECT auth_id, email, name, balance, is_anonymous, created_at
FROM users
WHERE auth_id=$1`
	u := &model.User{}
	err := r.db.QueryRowContext(ctx, q, authID).
		Scan(&u.AuthID, &u.Email, &u.Name, &u.Balance, &u.IsAnonymous, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *repo) UpdateProfile(ctx context.Context, authID string, name *string, anonymous *bool) error {
	const q = `
UPDATE users
SET name = COALESCE($2, name), is_anonymous = COALESCE($3, is_anonymous)
WHERE auth_id=$1`
	res, err := r.db.ExecContext(ctx, q, authID, name, anonymous)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Leaderboard ranks users by the sum of their deposits.
func (r *repo) Leaderboard(ctx context.Context, limit int) ([]model.LeaderRow, error) {
	const q = `
SELECT u.name, u.is_anonymous, SUM(d.amount_eur) AS total
FROM users u
JOIN donations d ON d.user_auth_id = u.auth_id AND d.amount_eur > 0
GROUP BY u.auth_id, u.name, u.is_anonymous
ORDER BY total DESC, u.name ASC
LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderRow
	for rows.Next() {
		var (
			l     model.LeaderRow
			total decimal.Decimal
		)
		if err := rows.Scan(&l.Name, &l.IsAnonymous, &total); err != nil {
			return nil, err
		}
		l.Rank = len(out) + 1
		l.TotalDonated = total
		out = append(out, l)
	}
	return out, rows.Err()
}

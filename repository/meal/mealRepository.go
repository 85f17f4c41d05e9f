package mealrepo

import (
	"context"
	"fmt"

	"github.com/angata1/PawBit/model"
	"github.com/angata1/PawBit/util/dbx"
)

type Repo interface {
	ListRecent(ctx context.Context, limit int) ([]model.Feeding, error)
	ListByFeeder(ctx context.Context, feederID string, limit int) ([]model.Feeding, error)
}

type repo struct{ db dbx.DBTX }

func New(db dbx.DBTX) Repo { return &repo{db: db} }

const selectFeedings = `
SELECT m.id, m.feeder_id,
       CASE WHEN u.is_anonymous THEN 'Anonymous' ELSE u.name END,
       m.total_cost_eur, m.created_at
FROM meals m
JOIN users u ON u.auth_id = m.user_auth_id`

func (r *repo) ListRecent(ctx context.Context, limit int) ([]model.Feeding, error) {
	q := selectFeedings + `
ORDER BY m.created_at DESC, m.id DESC
LIMIT $1`
	return r.list(ctx, q, limit)
}

func (r *repo) ListByFeeder(ctx context.Context, feederID string, limit int) ([]model.Feeding, error) {
	q := selectFeedings + `
WHERE m.feeder_id=$1
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2`
	return r.list(ctx, q, feederID, limit)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.Feeding, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedings: %w", err)
	}
	defer rows.Close()

	var out []model.Feeding
	for rows.Next() {
		var f model.Feeding
		if err := rows.Scan(&f.MealID, &f.FeederID, &f.DonorName, &f.Amount, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

package feederrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/angata1/PawBit/model"
	"github.com/angata1/PawBit/util/dbx"
)

var ErrNotFound = errors.New("feeder not found")

// Repo is the feeder catalogue. The Postgres and in-memory implementations
// are interchangeable.
type Repo interface {
	List(ctx context.Context) ([]model.Feeder, error)
	Get(ctx context.Context, id string) (*model.Feeder, error)
	TouchFed(ctx context.Context, id string, at time.Time) error
}

type pgRepo struct{ db dbx.DBTX }

func NewPostgres(db dbx.DBTX) Repo { return &pgRepo{db: db} }

const selectFeeder = `
SELECT id, name, lat, lng, address, status, food_level, animals_detected, last_feeding_at, live_stream_url
FROM feeders`

type scanner interface{ Scan(dest ...any) error }

func scanFeeder(s scanner) (model.Feeder, error) {
	var (
		f    model.Feeder
		last sql.NullTime
	)
	err := s.Scan(&f.ID, &f.Name, &f.Location.Lat, &f.Location.Lng, &f.Location.Address,
		&f.Status, &f.FoodLevel, &f.AnimalsDetected, &last, &f.LiveStreamURL)
	if last.Valid {
		t := last.Time
		f.LastFeedingAt = &t
	}
	return f, err
}

func (r *pgRepo) List(ctx context.Context) ([]model.Feeder, error) {
	rows, err := r.db.QueryContext(ctx, selectFeeder+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list feeders: %w", err)
	}
	defer rows.Close()

	var out []model.Feeder
	for rows.Next() {
		f, err := scanFeeder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *pgRepo) Get(ctx context.Context, id string) (*model.Feeder, error) {
	f, err := scanFeeder(r.db.QueryRowContext(ctx, selectFeeder+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get feeder: %w", err)
	}
	return &f, nil
}

func (r *pgRepo) TouchFed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE feeders SET last_feeding_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return fmt.Errorf("touch feeder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

package usersvc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/angata1/PawBit/model"
	userrepo "github.com/angata1/PawBit/repository/user"

	"github.com/shopspring/decimal"
)

const (
	profileTransactions = 20
	defaultBoardSize    = 10
	maxBoardSize        = 100
)

var ErrProfileMissing = errors.New("user profile missing")

type Ledger interface {
	ListLedger(ctx context.Context, userAuthID string, limit int) ([]model.LedgerEntry, error)
}

type Profile struct {
	User         *model.User         `json:"user"`
	Balance      decimal.Decimal     `json:"balance"`
	Transactions []model.LedgerEntry `json:"transactions"`
}

type Service interface {
	// Provision creates the users row for id unless it already exists.
	Provision(ctx context.Context, id model.Identity) error
	Profile(ctx context.Context, id model.Identity) (*Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderRow, error)
	SyncProfile(ctx context.Context, authID string, name *string, anonymous *bool) error
}

type service struct {
	ur  userrepo.Repo
	l   Ledger
	log *slog.Logger
}

func New(ur userrepo.Repo, l Ledger, log *slog.Logger) Service {
	return &service{ur: ur, l: l, log: log}
}

func (s *service) Provision(ctx context.Context, id model.Identity) error {
	created, err := s.ur.Ensure(ctx, &model.User{
		AuthID:      id.ID,
		Email:       id.Email,
		Name:        id.DisplayName(),
		IsAnonymous: id.IsAnonymous,
	})
	if err != nil {
		return err
	}
	if created {
		s.log.Info("user provisioned", "auth_id", id.ID)
	}
	return nil
}

func (s *service) Profile(ctx context.Context, id model.Identity) (*Profile, error) {
	if err := s.Provision(ctx, id); err != nil {
		return nil, err
	}
	u, err := s.ur.ByAuthID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, err
	}
	txs, err := s.l.ListLedger(ctx, id.ID, profileTransactions)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []model.LedgerEntry{}
	}
	return &Profile{User: u, Balance: u.Balance, Transactions: txs}, nil
}

func (s *service) Leaderboard(ctx context.Context, limit int) ([]model.LeaderRow, error) {
	if limit <= 0 {
		limit = defaultBoardSize
	}
	if limit > maxBoardSize {
		limit = maxBoardSize
	}
	rows, err := s.ur.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].IsAnonymous {
			rows[i].Name = "Anonymous"
		}
	}
	if rows == nil {
		rows = []model.LeaderRow{}
	}
	return rows, nil
}

func (s *service) SyncProfile(ctx context.Context, authID string, name *string, anonymous *bool) error {
	if name == nil && anonymous == nil {
		return nil
	}
	err := s.ur.UpdateProfile(ctx, authID, name, anonymous)
	if errors.Is(err, userrepo.ErrNotFound) {
		return ErrProfileMissing
	}
	return err
}

// Package memrepo is a mutex-guarded in-memory implementation of the user,
// wallet, meal and deposit repositories. It keeps the same atomicity rules
// as the Postgres store and backs the service and HTTP tests.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	depositrepo "github.com/angata1/PawBit/repository/deposit"
	mealrepo "github.com/angata1/PawBit/repository/meal"
	userrepo "github.com/angata1/PawBit/repository/user"
	walletrepo "github.com/angata1/PawBit/repository/wallet"

	"github.com/angata1/PawBit/model"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	feeders  map[string]bool
	users    map[string]*model.User
	ledger   []model.LedgerEntry
	keys     map[string]int64
	meals    []model.Meal
	deposits map[string]*model.DepositIntent
}

// New returns an empty store. Debits are accepted only for the listed feeders.
func New(feederIDs ...string) *Store {
	s := &Store{
		now:      time.Now,
		feeders:  map[string]bool{},
		users:    map[string]*model.User{},
		keys:     map[string]int64{},
		deposits: map[string]*model.DepositIntent{},
	}
	for _, id := range feederIDs {
		s.feeders[id] = true
	}
	return s
}

// SetBalance overwrites a user's balance. Test helper.
func (s *Store) SetBalance(authID string, bal decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[authID]; ok {
		u.Balance = bal
	}
}

// Meals returns a copy of all recorded meals.
func (s *Store) Meals() []model.Meal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Meal(nil), s.meals...)
}

// users

func (s *Store) Ensure(_ context.Context, u *model.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.AuthID]; ok {
		return false, nil
	}
	cp := *u
	cp.Balance = decimal.Zero
	cp.CreatedAt = s.now()
	s.users[u.AuthID] = &cp
	return true, nil
}

func (s *Store) ByAuthID(_ context.Context, authID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[authID]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UpdateProfile(_ context.Context, authID string, name *string, anonymous *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[authID]
	if !ok {
		return userrepo.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if anonymous != nil {
		u.IsAnonymous = *anonymous
	}
	return nil
}

func (s *Store) Leaderboard(_ context.Context, limit int) ([]model.LeaderRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]decimal.Decimal{}
	for _, e := range s.ledger {
		if e.Amount.IsPositive() {
			totals[e.UserAuthID] = totals[e.UserAuthID].Add(e.Amount)
		}
	}
	out := make([]model.LeaderRow, 0, len(totals))
	for id, total := range totals {
		u := s.users[id]
		out = append(out, model.LeaderRow{Name: u.Name, IsAnonymous: u.IsAnonymous, TotalDonated: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalDonated.Cmp(out[j].TotalDonated); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// wallet

func (s *Store) Credit(_ context.Context, c walletrepo.Credit) (*walletrepo.Applied, error) {
	if !c.Amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive, got %s", c.Amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[c.UserAuthID]
	if !ok {
		return nil, walletrepo.ErrUserNotFound
	}
	if _, dup := s.keys[c.Key]; dup {
		return &walletrepo.Applied{Balance: u.Balance, Duplicate: true}, nil
	}
	u.Balance = u.Balance.Add(c.Amount)
	id := s.appendEntry(c.UserAuthID, c.Amount, c.Key, nil, u.Balance)
	s.keys[c.Key] = id
	return &walletrepo.Applied{Balance: u.Balance, EntryID: id}, nil
}

func (s *Store) Debit(_ context.Context, d walletrepo.Debit) (*walletrepo.Applied, error) {
	if !d.Amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", d.Amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[d.UserAuthID]
	if !ok {
		return nil, walletrepo.ErrUserNotFound
	}
	if u.Balance.LessThan(d.Amount) {
		return nil, walletrepo.ErrInsufficientFunds
	}
	if !s.feeders[d.FeederID] {
		return nil, walletrepo.ErrFeederNotFound
	}
	u.Balance = u.Balance.Sub(d.Amount)
	meal := model.Meal{
		ID:         int64(len(s.meals) + 1),
		FeederID:   d.FeederID,
		UserAuthID: d.UserAuthID,
		Cost:       d.Amount,
		CreatedAt:  s.now(),
	}
	s.meals = append(s.meals, meal)
	id := s.appendEntry(d.UserAuthID, d.Amount.Neg(), model.LedgerFeeding, &meal.ID, u.Balance)
	return &walletrepo.Applied{Balance: u.Balance, EntryID: id, MealID: meal.ID}, nil
}

func (s *Store) appendEntry(authID string, amt decimal.Decimal, typ string, mealID *int64, after decimal.Decimal) int64 {
	id := int64(len(s.ledger) + 1)
	s.ledger = append(s.ledger, model.LedgerEntry{
		ID: id, UserAuthID: authID, Amount: amt, Type: typ,
		MealID: mealID, BalanceAfter: after, CreatedAt: s.now(),
	})
	return id
}

func (s *Store) Balance(_ context.Context, userAuthID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userAuthID]
	if !ok {
		return decimal.Zero, walletrepo.ErrUserNotFound
	}
	return u.Balance, nil
}

func (s *Store) ListLedger(_ context.Context, userAuthID string, limit int) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for i := len(s.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if s.ledger[i].UserAuthID == userAuthID {
			out = append(out, s.ledger[i])
		}
	}
	return out, nil
}

// meals

func (s *Store) ListRecent(_ context.Context, limit int) ([]model.Feeding, error) {
	return s.feedings(func(model.Meal) bool { return true }, limit), nil
}

func (s *Store) ListByFeeder(_ context.Context, feederID string, limit int) ([]model.Feeding, error) {
	return s.feedings(func(m model.Meal) bool { return m.FeederID == feederID }, limit), nil
}

func (s *Store) feedings(keep func(model.Meal) bool, limit int) []model.Feeding {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Feeding
	for i := len(s.meals) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.meals[i]
		if !keep(m) {
			continue
		}
		name := "Anonymous"
		if u := s.users[m.UserAuthID]; u != nil && !u.IsAnonymous {
			name = u.Name
		}
		out = append(out, model.Feeding{MealID: m.ID, FeederID: m.FeederID, DonorName: name, Amount: m.Cost, CreatedAt: m.CreatedAt})
	}
	return out
}

// deposits

func (s *Store) Track(_ context.Context, in *model.DepositIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[in.PaymentIntentID]; ok {
		return nil
	}
	cp := *in
	cp.Status = model.DepositPending
	cp.CreatedAt = s.now()
	cp.UpdatedAt = cp.CreatedAt
	s.deposits[in.PaymentIntentID] = &cp
	return nil
}

func (s *Store) Get(_ context.Context, paymentIntentID string) (*model.DepositIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[paymentIntentID]
	if !ok {
		return nil, depositrepo.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) MarkStatus(_ context.Context, paymentIntentID string, status model.DepositStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.deposits[paymentIntentID]; ok {
		d.Status = status
		d.UpdatedAt = s.now()
	}
	return nil
}

func (s *Store) Touch(_ context.Context, paymentIntentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.deposits[paymentIntentID]; ok && d.Status == model.DepositPending {
		d.UpdatedAt = s.now()
	}
	return nil
}

func (s *Store) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]model.DepositIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DepositIntent
	for _, d := range s.deposits {
		if d.Status == model.DepositPending && d.CreatedAt.Before(createdBefore) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ userrepo.Repo    = (*Store)(nil)
	_ walletrepo.Repo  = (*Store)(nil)
	_ mealrepo.Repo    = (*Store)(nil)
	_ depositrepo.Repo = (*Store)(nil)
)

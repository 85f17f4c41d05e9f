package walletsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/angata1/PawBit/model"
	depositrepo "github.com/angata1/PawBit/repository/deposit"
	striperepo "github.com/angata1/PawBit/repository/stripe"
	walletrepo "github.com/angata1/PawBit/repository/wallet"
	"github.com/angata1/PawBit/util/metrics"

	"github.com/shopspring/decimal"
)

// ErrCode classifies ledger failures for controllers.
type ErrCode string

const (
	ErrInvalidAmount       ErrCode = "INVALID_AMOUNT"
	ErrInvalidFeeder       ErrCode = "INVALID_FEEDER"
	ErrInsufficientFunds   ErrCode = "INSUFFICIENT_FUNDS"
	ErrMissingIntent       ErrCode = "MISSING_INTENT"
	ErrPaymentNotSucceeded ErrCode = "PAYMENT_NOT_SUCCEEDED"
	ErrIntentOwner         ErrCode = "INTENT_OWNER"
	ErrProfileMissing      ErrCode = "PROFILE_MISSING"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Result is the outcome of a ledger mutation.
type Result struct {
	NewBalance       decimal.Decimal
	AlreadyProcessed bool
	MealID           int64
}

// Provisioner creates the user row for an identity if it is missing.
type Provisioner interface {
	Provision(ctx context.Context, id model.Identity) error
}

// FeederDirectory answers whether a feeder can be paid for and records
// that it was fed.
type FeederDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	MarkFed(ctx context.Context, id string)
}

// Service is the ledger. Credit and Debit are its only balance mutations.
type Service interface {
	// Credit confirms a deposit: the payment intent must have succeeded and
	// is credited at most once.
	Credit(ctx context.Context, id model.Identity, paymentIntentID string) (*Result, error)
	// Settle credits an intent already fetched from the processor.
	Settle(ctx context.Context, id model.Identity, in *striperepo.Intent) (*Result, error)
	// Debit pays for a meal at a feeder.
	Debit(ctx context.Context, id model.Identity, feederID string, amount decimal.Decimal) (*Result, error)
	Balance(ctx context.Context, id model.Identity) (decimal.Decimal, error)
}

type service struct {
	wr      walletrepo.Repo
	dr      depositrepo.Repo
	sr      striperepo.Repo
	users   Provisioner
	feeders FeederDirectory
	log     *slog.Logger
}

func New(wr walletrepo.Repo, dr depositrepo.Repo, sr striperepo.Repo, users Provisioner, feeders FeederDirectory, log *slog.Logger) Service {
	return &service{wr: wr, dr: dr, sr: sr, users: users, feeders: feeders, log: log}
}

func (s *service) Credit(ctx context.Context, id model.Identity, paymentIntentID string) (*Result, error) {
	if paymentIntentID == "" {
		return nil, makeErr(ErrMissingIntent)
	}
	in, err := s.sr.GetIntent(ctx, paymentIntentID)
	if err != nil {
		metrics.RecordLedger("credit", "error")
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	return s.Settle(ctx, id, in)
}

func (s *service) Settle(ctx context.Context, id model.Identity, in *striperepo.Intent) (*Result, error) {
	if !in.Succeeded() {
		metrics.RecordLedger("credit", "rejected")
		return nil, makeErr(ErrPaymentNotSucceeded)
	}
	if owner := in.Metadata["user_auth_id"]; owner != "" && owner != id.ID {
		return nil, makeErr(ErrIntentOwner)
	}
	tracked, err := s.dr.Get(ctx, in.ID)
	switch {
	case err == nil:
		if tracked.UserAuthID != id.ID {
			return nil, makeErr(ErrIntentOwner)
		}
	case errors.Is(err, depositrepo.ErrNotFound):
		if tracked, err = s.claim(ctx, id, in); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}

	if err := s.users.Provision(ctx, id); err != nil {
		return nil, err
	}

	applied, err := s.wr.Credit(ctx, walletrepo.Credit{
		UserAuthID: id.ID,
		Amount:     decimal.New(in.Amount, -2),
		Key:        model.DepositKey(in.ID),
	})
	if err != nil {
		metrics.RecordLedger("credit", "error")
		if errors.Is(err, walletrepo.ErrUserNotFound) {
			return nil, makeErr(ErrProfileMissing)
		}
		return nil, err
	}

	if tracked != nil && tracked.Status != model.DepositCredited {
		if err := s.dr.MarkStatus(ctx, in.ID, model.DepositCredited); err != nil {
			s.log.Warn("mark deposit credited failed", "payment_intent_id", in.ID, "err", err)
		}
	}

	if applied.Duplicate {
		metrics.RecordLedger("credit", "duplicate")
	} else {
		metrics.RecordLedger("credit", "ok")
		s.log.Info("deposit credited", "auth_id", id.ID, "payment_intent_id", in.ID, "balance", applied.Balance.StringFixed(2))
	}
	return &Result{NewBalance: applied.Balance, AlreadyProcessed: applied.Duplicate}, nil
}

// claim binds an untracked intent to the first identity that confirms it.
// Later confirmations by anyone else are rejected as foreign.
func (s *service) claim(ctx context.Context, id model.Identity, in *striperepo.Intent) (*model.DepositIntent, error) {
	err := s.dr.Track(ctx, &model.DepositIntent{
		PaymentIntentID: in.ID,
		UserAuthID:      id.ID,
		AmountMinor:     in.Amount,
		Currency:        in.Currency,
	})
	if err != nil {
		return nil, err
	}
	tracked, err := s.dr.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if tracked.UserAuthID != id.ID {
		return nil, makeErr(ErrIntentOwner)
	}
	return tracked, nil
}

func (s *service) Debit(ctx context.Context, id model.Identity, feederID string, amount decimal.Decimal) (*Result, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, makeErr(ErrInvalidAmount)
	}
	if feederID == "" {
		return nil, makeErr(ErrInvalidFeeder)
	}
	if err := s.users.Provision(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.feeders.Exists(ctx, feederID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, makeErr(ErrInvalidFeeder)
	}

	applied, err := s.wr.Debit(ctx, walletrepo.Debit{UserAuthID: id.ID, FeederID: feederID, Amount: amount})
	if err != nil {
		switch {
		case errors.Is(err, walletrepo.ErrInsufficientFunds):
			metrics.RecordLedger("debit", "insufficient")
			return nil, makeErr(ErrInsufficientFunds)
		case errors.Is(err, walletrepo.ErrFeederNotFound):
			return nil, makeErr(ErrInvalidFeeder)
		case errors.Is(err, walletrepo.ErrUserNotFound):
			return nil, makeErr(ErrProfileMissing)
		}
		metrics.RecordLedger("debit", "error")
		return nil, err
	}
	metrics.RecordLedger("debit", "ok")

	s.feeders.MarkFed(ctx, feederID)
	return &Result{NewBalance: applied.Balance, MealID: applied.MealID}, nil
}

func (s *service) Balance(ctx context.Context, id model.Identity) (decimal.Decimal, error) {
	if err := s.users.Provision(ctx, id); err != nil {
		return decimal.Zero, err
	}
	bal, err := s.wr.Balance(ctx, id.ID)
	if errors.Is(err, walletrepo.ErrUserNotFound) {
		return decimal.Zero, makeErr(ErrProfileMissing)
	}
	return bal, err
}

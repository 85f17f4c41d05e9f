package paymentsvc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/angata1/PawBit/model"
	depositrepo "github.com/angata1/PawBit/repository/deposit"
	striperepo "github.com/angata1/PawBit/repository/stripe"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// MaxMinor is the largest amount the processor accepts for one intent.
const MaxMinor = 99999999

type Service interface {
	// CreateIntent opens a payment intent for amount (major units) and returns
	// its client secret. Intents of signed-in callers are tracked for reconciliation.
	CreateIntent(ctx context.Context, amount decimal.Decimal, caller *model.Identity) (string, error)
}

type service struct {
	sr       striperepo.Repo
	dr       depositrepo.Repo
	currency string
	log      *slog.Logger
}

func New(sr striperepo.Repo, dr depositrepo.Repo, currency string, log *slog.Logger) Service {
	return &service{sr: sr, dr: dr, currency: strings.ToLower(currency), log: log}
}

// ToMinor converts a major-unit amount to the processor's integer minor units.
// Amounts that round to zero or exceed MaxMinor are rejected.
func ToMinor(amount decimal.Decimal) (int64, error) {
	minor := amount.Shift(2).Round(0)
	if !minor.IsPositive() || minor.GreaterThan(decimal.NewFromInt(MaxMinor)) {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

func (s *service) CreateIntent(ctx context.Context, amount decimal.Decimal, caller *model.Identity) (string, error) {
	minor, err := ToMinor(amount)
	if err != nil {
		return "", err
	}
	var meta map[string]string
	if caller != nil {
		meta = map[string]string{"user_auth_id": caller.ID}
	}
	in, err := s.sr.CreateIntent(ctx, minor, s.currency, meta)
	if err != nil {
		return "", err
	}
	if caller != nil {
		err := s.dr.Track(ctx, &model.DepositIntent{
			PaymentIntentID: in.ID,
			UserAuthID:      caller.ID,
			AmountMinor:     minor,
			Currency:        s.currency,
		})
		if err != nil {
			s.log.Warn("track deposit intent failed", "payment_intent_id", in.ID, "err", err)
		}
	}
	return in.ClientSecret, nil
}

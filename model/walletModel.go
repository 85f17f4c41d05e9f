// model/wallet.go
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LedgerFeeding = "feeding"
	DepositPrefix = "deposit:"
)

// DepositKey is the ledger type tag of a deposit; it doubles as its idempotency key.
func DepositKey(paymentIntentID string) string { return DepositPrefix + paymentIntentID }

// LedgerEntry is a row of the donations table.
type LedgerEntry struct {
	ID           int64           `json:"id"`
	UserAuthID   string          `json:"user_auth_id"`
	Amount       decimal.Decimal `json:"amount_eur"`
	Type         string          `json:"type"`
	MealID       *int64          `json:"meal_id,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (e LedgerEntry) IsDeposit() bool { return strings.HasPrefix(e.Type, DepositPrefix) }

type Meal struct {
	ID         int64           `json:"id"`
	FeederID   string          `json:"feeder_id"`
	UserAuthID string          `json:"user_auth_id"`
	Cost       decimal.Decimal `json:"total_cost_eur"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Feeding is a meal joined with its donor for public display.
type Feeding struct {
	MealID    int64           `json:"id"`
	FeederID  string          `json:"feeder_id"`
	DonorName string          `json:"donor_name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"timestamp"`
}

type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositCredited DepositStatus = "credited"
	DepositFailed   DepositStatus = "failed"
	// DepositExpired marks an intent the processor never settled within the
	// reconcile window. A later client confirmation can still credit it.
	DepositExpired DepositStatus = "expired"
)

type DepositIntent struct {
	PaymentIntentID string        `json:"payment_intent_id"`
	UserAuthID      string        `json:"user_auth_id"`
	AmountMinor     int64         `json:"amount_minor"`
	Currency        string        `json:"currency"`
	Status          DepositStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

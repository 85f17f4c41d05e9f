package wallet

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// FeederRef accepts a feeder id sent either as a JSON string or a number.
type FeederRef string

func (f *FeederRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FeederRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("feederId must be a string or a number")
	}
	if _, err := n.Int64(); err != nil {
		return errors.New("feederId must be an integer")
	}
	*f = FeederRef(n.String())
	return nil
}

// FeedReq is the body of POST /api/feed
// swagger:model FeedReq
type FeedReq struct {
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	FeederID FeederRef       `json:"feederId"`
}

// ConfirmDepositReq is the body of POST /api/wallet/confirm-deposit
// swagger:model ConfirmDepositReq
type ConfirmDepositReq struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

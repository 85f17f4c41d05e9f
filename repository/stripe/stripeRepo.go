package striperepo

import (
	"context"
	"errors"

	"github.com/angata1/PawBit/util/httpx"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Currency     string
	Amount       int64
	Metadata     map[string]string
}

func (i *Intent) Succeeded() bool { return i.Status == string(stripe.PaymentIntentStatusSucceeded) }
func (i *Intent) Canceled() bool  { return i.Status == string(stripe.PaymentIntentStatusCanceled) }

type Repo interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

type apiRepo struct{ sc *client.API }

func New(secretKey string) Repo {
	b := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: httpx.Client(),
	})
	return NewWithBackend(secretKey, b)
}

// NewWithBackend lets tests point the client at a fake API server.
func NewWithBackend(secretKey string, b stripe.Backend) Repo {
	var backends *stripe.Backends
	if b != nil {
		backends = &stripe.Backends{API: b, Connect: b, Uploads: b}
	}
	return &apiRepo{sc: client.New(secretKey, backends)}
}

func (r *apiRepo) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := r.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	if pi.ClientSecret == "" {
		return nil, errors.New("stripe: empty client secret")
	}
	return toIntent(pi), nil
}

func (r *apiRepo) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := r.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Currency:     string(pi.Currency),
		Amount:       pi.Amount,
		Metadata:     pi.Metadata,
	}
}

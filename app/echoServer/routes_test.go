package echoServer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angata1/PawBit/app/echoServer/controller/auth"
	"github.com/angata1/PawBit/app/echoServer/controller/feeder"
	"github.com/angata1/PawBit/app/echoServer/controller/payment"
	"github.com/angata1/PawBit/app/echoServer/controller/profile"
	"github.com/angata1/PawBit/app/echoServer/controller/wallet"
	"github.com/angata1/PawBit/app/echoServer/validation"
	"github.com/angata1/PawBit/model"
	feederrepo "github.com/angata1/PawBit/repository/feeder"
	memrepo "github.com/angata1/PawBit/repository/memory"
	striperepo "github.com/angata1/PawBit/repository/stripe"
	supabaserepo "github.com/angata1/PawBit/repository/supabase"
	authsvc "github.com/angata1/PawBit/service/auth"
	feedersvc "github.com/angata1/PawBit/service/feeder"
	paymentsvc "github.com/angata1/PawBit/service/payment"
	usersvc "github.com/angata1/PawBit/service/user"
	walletsvc "github.com/angata1/PawBit/service/wallet"
	jwtutil "github.com/angata1/PawBit/util/jwt"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

type fakeStripe struct {
	intents map[string]*striperepo.Intent
}

func (f *fakeStripe) CreateIntent(_ context.Context, minor int64, currency string, _ map[string]string) (*striperepo.Intent, error) {
	id := "pi_new"
	in := &striperepo.Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method", Amount: minor, Currency: currency}
	f.intents[id] = in
	return in, nil
}

func (f *fakeStripe) GetIntent(_ context.Context, id string) (*striperepo.Intent, error) {
	in, ok := f.intents[id]
	if !ok {
		return nil, errors.New("No such payment_intent")
	}
	return in, nil
}

type fakeIDP struct{ supabaserepo.Repo }

type server struct {
	e      *echo.Echo
	store  *memrepo.Store
	stripe *fakeStripe
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memrepo.New("1", "2", "3")
	sr := &fakeStripe{intents: map[string]*striperepo.Intent{}}

	users := usersvc.New(store, store, log)
	feeders := feedersvc.New(feederrepo.NewMemory(feederrepo.DemoFeeders()), store, feederrepo.NewMemoryLive(), log)
	ledger := walletsvc.New(store, store, sr, users, feeders, log)
	as := authsvc.New(fakeIDP{}, users, log)
	v := validation.NewEngine()

	e := echo.New()
	e.Validator = validation.New()
	RegisterMiddlewares(e)
	Register(e, C{
		Auth:      &auth.Controller{Svc: as, V: v, Log: log, Cookie: SessionCookie},
		Wallet:    &wallet.Controller{Svc: ledger, Log: log},
		Payment:   &payment.Controller{Svc: paymentsvc.New(sr, store, "usd", log), Log: log},
		Feeder:    &feeder.Controller{Svc: feeders, Log: log},
		Profile:   &profile.Controller{Users: users, Auth: as, V: v, Log: log},
		Limiter:   NewRateLimiter(1000, 1000),
		JWTSecret: testSecret,
	})
	return &server{e: e, store: store, stripe: sr}
}

func token(t *testing.T, id model.Identity) string {
	t.Helper()
	tok, err := jwtutil.IssueSession(testSecret, id, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(method, path, body, tok string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

var ada = model.Identity{ID: "auth-ada", Email: "ada@example.com", Name: "Ada"}

func TestDepositThenFeed(t *testing.T) {
	s := newServer(t)
	tok := token(t, ada)
	s.stripe.intents["pi_1"] = &striperepo.Intent{ID: "pi_1", Status: "succeeded", Amount: 1000, Currency: "usd"}

	rec, out := s.do(http.MethodPost, "/api/wallet/confirm-deposit", `{"payment_intent_id":"pi_1"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, out["success"])
	require.Equal(t, 10.0, out["newBalance"])

	rec, out = s.do(http.MethodPost, "/api/wallet/confirm-deposit", `{"payment_intent_id":"pi_1"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Already processed", out["message"])
	require.Equal(t, 10.0, out["newBalance"])

	rec, out = s.do(http.MethodPost, "/api/feed", `{"amount":4,"feederId":2}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"success": true, "newBalance": 6.0}, out)

	require.Len(t, s.store.Meals(), 1)
	entries, err := s.store.ListLedger(context.Background(), ada.ID, 20)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "-4", entries[0].Amount.String())

	rec, out = s.do(http.MethodGet, "/api/feeders/2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "feeding", out["feeder"].(map[string]any)["status"])
	require.Len(t, out["feedings"], 1)
}

func TestFeed_Errors(t *testing.T) {
	s := newServer(t)
	tok := token(t, ada)

	rec, out := s.do(http.MethodPost, "/api/feed", `{"amount":4,"feederId":"1"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthorized", out["error"])

	rec, out = s.do(http.MethodPost, "/api/feed", `{"amount":4,"feederId":"1"}`, tok)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, "Insufficient funds", out["error"])

	rec, out = s.do(http.MethodPost, "/api/feed", `{"amount":0,"feederId":"1"}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid amount", out["error"])

	rec, out = s.do(http.MethodPost, "/api/feed", `{"amount":-2.5,"feederId":"1"}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid amount", out["error"])

	rec, out = s.do(http.MethodPost, "/api/feed", `{"amount":1,"feederId":"77"}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid feeder", out["error"])

	rec, _ = s.do(http.MethodPost, "/api/feed", `{"amount":1,"feederId":true}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmDeposit_Errors(t *testing.T) {
	s := newServer(t)
	tok := token(t, ada)
	s.stripe.intents["pi_open"] = &striperepo.Intent{ID: "pi_open", Status: "processing", Amount: 500}

	rec, out := s.do(http.MethodPost, "/api/wallet/confirm-deposit", `{}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing payment_intent_id", out["error"])

	rec, out = s.do(http.MethodPost, "/api/wallet/confirm-deposit", `{"payment_intent_id":"pi_open"}`, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Payment not successful", out["error"])

	rec, out = s.do(http.MethodPost, "/api/wallet/confirm-deposit", `{"payment_intent_id":"pi_gone"}`, tok)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, out["error"], "No such payment_intent")
}

func TestCreatePaymentIntent(t *testing.T) {
	s := newServer(t)

	rec, out := s.do(http.MethodPost, "/api/create-payment-intent", `{"amount":10}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pi_new_secret", out["clientSecret"])
	require.Equal(t, int64(1000), s.stripe.intents["pi_new"].Amount)

	rec, out = s.do(http.MethodPost, "/api/create-payment-intent", `{}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid amount", out["message"])

	rec, out = s.do(http.MethodPost, "/api/create-payment-intent", `{"amount":-10}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid amount", out["message"])

	rec, out = s.do(http.MethodPost, "/api/create-payment-intent", `{"amount":184467440737095516.17}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid amount", out["message"])

	rec, _ = s.do(http.MethodPost, "/api/create-payment-intent", `{"amount":7.5}`, token(t, ada))
	require.Equal(t, http.StatusOK, rec.Code)
	d, err := s.store.Get(context.Background(), "pi_new")
	require.NoError(t, err)
	require.Equal(t, ada.ID, d.UserAuthID)
	require.Equal(t, int64(750), d.AmountMinor)
}

func TestSessionCookieAccepted(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/wallet/balance", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, ada)})
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"balance":0}`, rec.Body.String())
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	s := newServer(t)
	forged, err := jwtutil.IssueSession("not-the-project-secret", ada, time.Hour)
	require.NoError(t, err)

	rec, out := s.do(http.MethodGet, "/api/wallet/balance", "", forged)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthorized", out["error"])

	// optional routes treat a bad token as anonymous
	rec, _ = s.do(http.MethodPost, "/api/create-payment-intent", `{"amount":3}`, forged)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = s.store.Get(context.Background(), "pi_new")
	require.Error(t, err)
}

func TestProfileAndLeaderboard(t *testing.T) {
	s := newServer(t)
	tok := token(t, ada)
	s.stripe.intents["pi_1"] = &striperepo.Intent{ID: "pi_1", Status: "succeeded", Amount: 2000}
	rec, _ := s.do(http.MethodPost, "/api/wallet/confirm-deposit", `{"payment_intent_id":"pi_1"}`, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := s.do(http.MethodGet, "/api/profile", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out["transactions"], 1)

	rec, out = s.do(http.MethodGet, "/api/leaderboard?limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := out["data"].([]any)
	require.Len(t, rows, 1)
	require.Equal(t, "Ada", rows[0].(map[string]any)["name"])
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	require.True(t, rl.allow("k"))
	require.False(t, rl.allow("k"))
	require.True(t, rl.allow("other"))

	rl.Prune(-time.Second)
	require.True(t, rl.allow("k"))
}

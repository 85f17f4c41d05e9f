package supabaserepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angata1/PawBit/model"
	"github.com/angata1/PawBit/util/httpx"
	"github.com/tidwall/gjson"
)

type Repo interface {
	SignUp(ctx context.Context, email, password, fullName string) (*model.Identity, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdateUser(ctx context.Context, accessToken string, upd UserUpdate) (*model.Identity, error)
	GetUser(ctx context.Context, accessToken string) (*model.Identity, error)
}

type httpRepo struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewHTTP(projectURL, anonKey string) Repo {
	return &httpRepo{
		baseURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey: anonKey,
		client:  httpx.Client(),
	}
}

func (r *httpRepo) SignUp(ctx context.Context, email, password, fullName string) (*model.Identity, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"full_name": fullName},
	}
	raw, err := r.do(ctx, http.MethodPost, "/signup", "", body)
	if err != nil {
		return nil, err
	}
	// with auto-confirm on the answer is a session, otherwise the bare user
	u := gjson.GetBytes(raw, "user")
	if !u.Exists() {
		u = gjson.ParseBytes(raw)
	}
	id := identityFrom(u)
	return &id, nil
}

func (r *httpRepo) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	raw, err := r.do(ctx, http.MethodPost, "/token?grant_type=password", "", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	res := gjson.ParseBytes(raw)
	s := &Session{
		AccessToken:  res.Get("access_token").String(),
		RefreshToken: res.Get("refresh_token").String(),
		ExpiresIn:    res.Get("expires_in").Int(),
		User:         identityFrom(res.Get("user")),
	}
	s.User.AccessToken = s.AccessToken
	return s, nil
}

func (r *httpRepo) SignOut(ctx context.Context, accessToken string) error {
	_, err := r.do(ctx, http.MethodPost, "/logout", accessToken, nil)
	return err
}

func (r *httpRepo) UpdateUser(ctx context.Context, accessToken string, upd UserUpdate) (*model.Identity, error) {
	body := map[string]any{}
	if upd.Password != nil {
		body["password"] = *upd.Password
	}
	data := map[string]any{}
	if upd.FullName != nil {
		data["full_name"] = *upd.FullName
	}
	if upd.IsAnonymous != nil {
		data["is_anonymous"] = *upd.IsAnonymous
	}
	if len(data) > 0 {
		body["data"] = data
	}
	raw, err := r.do(ctx, http.MethodPut, "/user", accessToken, body)
	if err != nil {
		return nil, err
	}
	id := identityFrom(gjson.ParseBytes(raw))
	return &id, nil
}

func (r *httpRepo) GetUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	raw, err := r.do(ctx, http.MethodGet, "/user", accessToken, nil)
	if err != nil {
		return nil, err
	}
	id := identityFrom(gjson.ParseBytes(raw))
	return &id, nil
}

func (r *httpRepo) do(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", r.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+r.anonKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

package authsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/angata1/PawBit/model"
	supabaserepo "github.com/angata1/PawBit/repository/supabase"
)

type ErrCode string

const (
	ErrBadInput         ErrCode = "BAD_INPUT"
	ErrPasswordMismatch ErrCode = "PASSWORD_MISMATCH"
	ErrInvalidCreds     ErrCode = "INVALID_CREDENTIALS"
	ErrNoSession        ErrCode = "NO_SESSION"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode) error          { return codedError{code: c} }
func wrap(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Profiles interface {
	Provision(ctx context.Context, id model.Identity) error
	SyncProfile(ctx context.Context, authID string, name *string, anonymous *bool) error
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.Identity, error)
	Login(ctx context.Context, req model.LoginReq) (*supabaserepo.Session, error)
	Logout(ctx context.Context, accessToken string) error
	UpdateProfile(ctx context.Context, caller model.Identity, req model.ProfileUpdateReq) (*model.Identity, error)
}

type service struct {
	idp      supabaserepo.Repo
	profiles Profiles
	log      *slog.Logger
}

func New(idp supabaserepo.Repo, profiles Profiles, log *slog.Logger) Service {
	return &service{idp: idp, profiles: profiles, log: log}
}

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.FullName)
	if email == "" || name == "" || len(req.Password) < 6 {
		return nil, makeErr(ErrBadInput)
	}
	if req.Password != req.ConfirmPassword {
		return nil, wrap(ErrPasswordMismatch, "Passwords do not match")
	}

	id, err := s.idp.SignUp(ctx, email, req.Password, name)
	if err != nil {
		return nil, rejected(err)
	}
	// with email confirmation enabled the id is only known after the first login
	if id.ID != "" {
		if id.Name == "" {
			id.Name = name
		}
		if err := s.profiles.Provision(ctx, *id); err != nil {
			s.log.Warn("provision after sign-up failed", "auth_id", id.ID, "err", err)
		}
	}
	return id, nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*supabaserepo.Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, makeErr(ErrBadInput)
	}
	sess, err := s.idp.SignIn(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, supabaserepo.ErrInvalidCredentials) {
			return nil, makeErr(ErrInvalidCreds)
		}
		return nil, err
	}
	if err := s.profiles.Provision(ctx, sess.User); err != nil {
		s.log.Warn("provision after login failed", "auth_id", sess.User.ID, "err", err)
	}
	return sess, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.idp.SignOut(ctx, accessToken)
}

func (s *service) UpdateProfile(ctx context.Context, caller model.Identity, req model.ProfileUpdateReq) (*model.Identity, error) {
	if caller.AccessToken == "" {
		return nil, makeErr(ErrNoSession)
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		if trimmed == "" {
			return nil, makeErr(ErrBadInput)
		}
		req.FullName = &trimmed
	}
	if req.Password != nil && len(*req.Password) < 6 {
		return nil, makeErr(ErrBadInput)
	}
	if req.FullName == nil && req.Password == nil && req.IsAnonymous == nil {
		return nil, makeErr(ErrBadInput)
	}

	id, err := s.idp.UpdateUser(ctx, caller.AccessToken, supabaserepo.UserUpdate{
		Password:    req.Password,
		FullName:    req.FullName,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		return nil, rejected(err)
	}
	if err := s.profiles.Provision(ctx, caller); err != nil {
		return nil, err
	}
	if err := s.profiles.SyncProfile(ctx, caller.ID, req.FullName, req.IsAnonymous); err != nil {
		return nil, fmt.Errorf("mirror profile: %w", err)
	}
	return id, nil
}

// rejected turns a client-side refusal of the identity provider into bad input.
func rejected(err error) error {
	var apiErr *supabaserepo.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
		return wrap(ErrBadInput, apiErr.Message)
	}
	return err
}

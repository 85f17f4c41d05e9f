package authsvc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/angata1/PawBit/model"
	supabaserepo "github.com/angata1/PawBit/repository/supabase"

	"github.com/stretchr/testify/require"
)

type mockIDP struct {
	signUpFn func(ctx context.Context, email, password, fullName string) (*model.Identity, error)
	signInFn func(ctx context.Context, email, password string) (*supabaserepo.Session, error)
	updateFn func(ctx context.Context, token string, upd supabaserepo.UserUpdate) (*model.Identity, error)
}

var _ supabaserepo.Repo = (*mockIDP)(nil)

func (m *mockIDP) SignUp(ctx context.Context, email, password, fullName string) (*model.Identity, error) {
	if m.signUpFn == nil {
		return &model.Identity{}, nil
	}
	return m.signUpFn(ctx, email, password, fullName)
}

func (m *mockIDP) SignIn(ctx context.Context, email, password string) (*supabaserepo.Session, error) {
	if m.signInFn == nil {
		return nil, supabaserepo.ErrInvalidCredentials
	}
	return m.signInFn(ctx, email, password)
}

func (m *mockIDP) SignOut(context.Context, string) error { return nil }

func (m *mockIDP) UpdateUser(ctx context.Context, token string, upd supabaserepo.UserUpdate) (*model.Identity, error) {
	if m.updateFn == nil {
		return &model.Identity{}, nil
	}
	return m.updateFn(ctx, token, upd)
}

func (m *mockIDP) GetUser(context.Context, string) (*model.Identity, error) {
	return nil, errors.New("not implemented")
}

type mockProfiles struct {
	provisioned []model.Identity
	synced      map[string]any
	syncErr     error
}

func (m *mockProfiles) Provision(_ context.Context, id model.Identity) error {
	m.provisioned = append(m.provisioned, id)
	return nil
}

func (m *mockProfiles) SyncProfile(_ context.Context, authID string, name *string, anonymous *bool) error {
	m.synced = map[string]any{"auth_id": authID, "name": name, "anonymous": anonymous}
	return m.syncErr
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- tests ---

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	idp := &mockIDP{signUpFn: func(_ context.Context, email, _ string, fullName string) (*model.Identity, error) {
		require.Equal(t, "user@example.com", email)
		require.Equal(t, "Halim Iskandar", fullName)
		return &model.Identity{ID: "u-42", Email: email}, nil
	}}
	p := &mockProfiles{}
	svc := New(idp, p, quiet)

	id, err := svc.Register(ctx, model.RegisterReq{
		FullName:        " Halim Iskandar ",
		Email:           "USER@Example.COM",
		Password:        "supersecret",
		ConfirmPassword: "supersecret",
	})
	require.NoError(t, err)
	require.Equal(t, "u-42", id.ID)
	require.Len(t, p.provisioned, 1)
	require.Equal(t, "Halim Iskandar", p.provisioned[0].Name)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	svc := New(&mockIDP{}, &mockProfiles{}, quiet)

	_, err := svc.Register(context.Background(), model.RegisterReq{
		FullName: "A", Email: "a@b.c", Password: "123456", ConfirmPassword: "654321",
	})
	require.Equal(t, ErrPasswordMismatch, Code(err))
	require.EqualError(t, err, "Passwords do not match")
}

func TestRegister_BadInput(t *testing.T) {
	svc := New(&mockIDP{}, &mockProfiles{}, quiet)

	_, err := svc.Register(context.Background(), model.RegisterReq{Email: " ", Password: "123"})
	require.Equal(t, ErrBadInput, Code(err))
}

func TestRegister_ProviderRejects(t *testing.T) {
	idp := &mockIDP{signUpFn: func(context.Context, string, string, string) (*model.Identity, error) {
		return nil, &supabaserepo.APIError{Status: 422, Message: "User already registered"}
	}}
	p := &mockProfiles{}
	_, err := New(idp, p, quiet).Register(context.Background(), model.RegisterReq{
		FullName: "A", Email: "a@b.c", Password: "123456", ConfirmPassword: "123456",
	})
	require.Equal(t, ErrBadInput, Code(err))
	require.EqualError(t, err, "User already registered")
	require.Empty(t, p.provisioned)
}

func TestLogin_Success(t *testing.T) {
	idp := &mockIDP{signInFn: func(_ context.Context, email, _ string) (*supabaserepo.Session, error) {
		return &supabaserepo.Session{AccessToken: "tok", User: model.Identity{ID: "u-7", Email: email}}, nil
	}}
	p := &mockProfiles{}

	sess, err := New(idp, p, quiet).Login(context.Background(), model.LoginReq{Email: "User@Example.com", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "tok", sess.AccessToken)
	require.Equal(t, "u-7", p.provisioned[0].ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	_, err := New(&mockIDP{}, &mockProfiles{}, quiet).Login(context.Background(), model.LoginReq{Email: "a@b.c", Password: "nope"})
	require.Equal(t, ErrInvalidCreds, Code(err))
}

func TestUpdateProfile_MirrorsIntoUsers(t *testing.T) {
	var got supabaserepo.UserUpdate
	idp := &mockIDP{updateFn: func(_ context.Context, token string, upd supabaserepo.UserUpdate) (*model.Identity, error) {
		require.Equal(t, "tok", token)
		got = upd
		return &model.Identity{ID: "u-1", IsAnonymous: true}, nil
	}}
	p := &mockProfiles{}
	anon := true

	id, err := New(idp, p, quiet).UpdateProfile(context.Background(),
		model.Identity{ID: "u-1", AccessToken: "tok"},
		model.ProfileUpdateReq{IsAnonymous: &anon})
	require.NoError(t, err)
	require.True(t, id.IsAnonymous)
	require.Nil(t, got.Password)
	require.Equal(t, "u-1", p.synced["auth_id"])
	require.Equal(t, &anon, p.synced["anonymous"])
}

func TestUpdateProfile_Rejections(t *testing.T) {
	svc := New(&mockIDP{}, &mockProfiles{}, quiet)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, model.Identity{ID: "u-1"}, model.ProfileUpdateReq{})
	require.Equal(t, ErrNoSession, Code(err))

	_, err = svc.UpdateProfile(ctx, model.Identity{ID: "u-1", AccessToken: "tok"}, model.ProfileUpdateReq{})
	require.Equal(t, ErrBadInput, Code(err))

	short := "123"
	_, err = svc.UpdateProfile(ctx, model.Identity{ID: "u-1", AccessToken: "tok"}, model.ProfileUpdateReq{Password: &short})
	require.Equal(t, ErrBadInput, Code(err))
}

func TestCodeExtractor(t *testing.T) {
	require.Equal(t, ErrInvalidCreds, Code(wrap(ErrInvalidCreds, "x")))
	require.Equal(t, ErrCode(""), Code(errors.New("plain")))
}

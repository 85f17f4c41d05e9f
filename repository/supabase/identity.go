package supabaserepo

import (
	"errors"
	"fmt"

	"github.com/angata1/PawBit/model"
	"github.com/tidwall/gjson"
)

var ErrInvalidCredentials = errors.New("invalid login credentials")

// APIError is a non-2xx answer from the auth API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("supabase auth: %d %s", e.Status, e.Message) }

type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	User         model.Identity `json:"user"`
}

type UserUpdate struct {
	Password    *string
	FullName    *string
	IsAnonymous *bool
}

func identityFrom(u gjson.Result) model.Identity {
	return model.Identity{
		ID:          u.Get("id").String(),
		Email:       u.Get("email").String(),
		Name:        u.Get("user_metadata.full_name").String(),
		IsAnonymous: u.Get("user_metadata.is_anonymous").Bool(),
	}
}

// errorMessage picks the first message field the auth API populated.
func errorMessage(body []byte) string {
	for _, p := range []string{"error_description", "msg", "message", "error"} {
		if v := gjson.GetBytes(body, p); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return string(body)
}

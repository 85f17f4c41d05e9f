package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	AuthID      string          `json:"auth_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Balance     decimal.Decimal `json:"balance"`
	IsAnonymous bool            `json:"is_anonymous"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Identity is the authenticated caller as described by the session token.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsAnonymous bool   `json:"is_anonymous"`
	AccessToken string `json:"-"`
}

// DisplayName falls back to "User" like the sign-up flow does.
func (i Identity) DisplayName() string {
	if i.Name == "" {
		return "User"
	}
	return i.Name
}

// RegisterReq represents user registration payload
// swagger:model RegisterReq
type RegisterReq struct {
	FullName        string `json:"fullName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginReq represents login payload
// swagger:model LoginReq
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdateReq carries the optional profile changes.
// swagger:model ProfileUpdateReq
type ProfileUpdateReq struct {
	FullName    *string `json:"fullName,omitempty" validate:"omitempty,min=1,max=120"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	IsAnonymous *bool   `json:"isAnonymous,omitempty"`
}

type LeaderRow struct {
	Rank         int             `json:"rank"`
	Name         string          `json:"name"`
	IsAnonymous  bool            `json:"is_anonymous"`
	TotalDonated decimal.Decimal `json:"total_donated"`
}

package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angata1/PawBit/model"
	"github.com/golang-jwt/jwt/v5"
)

type UserMetadata struct {
	FullName    string `json:"full_name,omitempty"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`
}

// SessionClaims is the payload of a Supabase access token.
type SessionClaims struct {
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) Identity() model.Identity {
	return model.Identity{
		ID:          c.Subject,
		Email:       c.Email,
		Name:        c.UserMetadata.FullName,
		IsAnonymous: c.UserMetadata.IsAnonymous,
	}
}

// IssueSession signs a token shaped like the ones Supabase hands out.
func IssueSession(secret string, id model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Email:        id.Email,
		Role:         "authenticated",
		UserMetadata: UserMetadata{FullName: id.Name, IsAnonymous: id.IsAnonymous},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSession verifies an HS256 session token and returns it with
// *SessionClaims as its claims. A leading "Bearer " is ignored.
func ParseSession(tokenStr, secret string) (*jwt.Token, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if strings.HasPrefix(strings.ToLower(tokenStr), "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	}
	if tokenStr == "" {
		return nil, errors.New("missing token")
	}

	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("sub missing in claims")
	}
	return tok, nil
}

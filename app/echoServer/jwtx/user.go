package jwtx

import (
	"errors"

	"github.com/angata1/PawBit/model"
	jwtutil "github.com/angata1/PawBit/util/jwt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKey is where the session middleware stores the parsed token.
const ContextKey = "user"

var ErrNoSession = errors.New("no session in context")

func IdentityFromContext(c echo.Context) (model.Identity, error) {
	tok, ok := c.Get(ContextKey).(*jwt.Token)
	if !ok || tok == nil {
		return model.Identity{}, ErrNoSession
	}
	claims, ok := tok.Claims.(*jwtutil.SessionClaims)
	if !ok {
		return model.Identity{}, errors.New("invalid jwt claims")
	}
	id := claims.Identity()
	if id.ID == "" {
		return model.Identity{}, errors.New("sub missing in claims")
	}
	id.AccessToken = tok.Raw
	return id, nil
}

// OptionalIdentity returns nil for anonymous callers.
func OptionalIdentity(c echo.Context) *model.Identity {
	id, err := IdentityFromContext(c)
	if err != nil {
		return nil
	}
	return &id
}

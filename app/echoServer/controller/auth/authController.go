package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angata1/PawBit/app/echoServer/reqlog"
	"github.com/angata1/PawBit/model"
	authsvc "github.com/angata1/PawBit/service/auth"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc authsvc.Service
	V   *validator.Validate
	Log *slog.Logger
	// Cookie is the session cookie name; SecureCookie marks it HTTPS-only.
	Cookie       string
	SecureCookie bool
}

// Register a new user
// @Summary      Register user
// @Description  Sign up with the identity provider and create the wallet profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  model.RegisterReq  true  "Register payload"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      500  {object}  map[string]any "internal server error"
// @Router       /api/auth/register [post]
func (ct *Controller) Register(c echo.Context) error {
	var req model.RegisterReq

	// Bind
	if err := c.Bind(&req); err != nil {
		ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	// Validate
	if err := ct.V.Struct(req); err != nil {
		ct.Log.Warn("validation failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation error"})
	}

	id, err := ct.Svc.Register(c.Request().Context(), req)
	if err != nil {
		switch authsvc.Code(err) {
		case authsvc.ErrPasswordMismatch, authsvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			ct.Log.Error("register failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": id})
}

// Login with email and password
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  model.LoginReq  true  "Credentials"
// @Success      200  {object}  map[string]any
// @Failure      400,401,500  {object}  map[string]any
// @Router       /api/auth/login [post]
func (ct *Controller) Login(c echo.Context) error {
	var req model.LoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation error"})
	}

	sess, err := ct.Svc.Login(c.Request().Context(), req)
	if err != nil {
		switch authsvc.Code(err) {
		case authsvc.ErrInvalidCreds:
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid login credentials"})
		case authsvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad input"})
		default:
			ct.Log.Error("login failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
	}

	c.SetCookie(ct.cookie(sess.AccessToken, time.Duration(sess.ExpiresIn)*time.Second))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"expires_in":    sess.ExpiresIn,
		"user":          sess.User,
	})
}

// Logout clears the session cookie
// @Summary      Logout
// @Tags         auth
// @Success      200  {object}  map[string]any
// @Router       /api/auth/logout [post]
func (ct *Controller) Logout(c echo.Context) error {
	token := ""
	if ck, err := c.Cookie(ct.Cookie); err == nil {
		token = ck.Value
	}
	if err := ct.Svc.Logout(c.Request().Context(), token); err != nil {
		ct.Log.Warn("remote sign-out failed", reqlog.Attrs(c, err)...)
	}
	c.SetCookie(ct.cookie("", -1))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (ct *Controller) cookie(value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     ct.Cookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   ct.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		ck.MaxAge = -1
	} else if ttl > 0 {
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

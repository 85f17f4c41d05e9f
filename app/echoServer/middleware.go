package echoServer

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angata1/PawBit/app/echoServer/jwtx"
	jwtutil "github.com/angata1/PawBit/util/jwt"
	"github.com/angata1/PawBit/util/metrics"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SessionCookie is the cookie the login endpoint sets and the API accepts
// in place of an Authorization header.
const SessionCookie = "sb-access-token"

func RegisterMiddlewares(e *echo.Echo) {

	e.Use(middleware.Recover())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(Slog())
	e.Use(metrics.Echo())
}

func Slog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the response so the status below is final
				c.Error(err)
			}

			status := c.Response().Status
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			slog.Log(c.Request().Context(), level, "http",
				"method", c.Request().Method,
				"path", c.Path(),
				"uri", c.Request().RequestURI,
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
				"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"ip", c.RealIP(),
				"ua", c.Request().UserAgent(),
			)
			return nil
		}
	}
}

// Session verifies the Supabase access token from the Authorization header
// or the session cookie. With optional set, requests without a valid token
// pass through anonymously.
func Session(secret string, optional bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  jwtx.ContextKey,
		TokenLookup: "header:Authorization:Bearer ,cookie:" + SessionCookie,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return jwtutil.ParseSession(auth, secret)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if optional {
				return nil
			}
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			slog.Warn("auth rejected", "err", err, "req_id", rid, "path", c.Path())
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
		},
		ContinueOnIgnoredError: optional,
	})
}

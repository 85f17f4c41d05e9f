package reqlog

import "github.com/labstack/echo/v4"

// Attrs are the slog attributes controllers attach to failure logs.
func Attrs(c echo.Context, err error) []any {
	return []any{
		"err", err,
		"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"path", c.Path(),
		"method", c.Request().Method,
	}
}

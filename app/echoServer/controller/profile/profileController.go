package profile

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/angata1/PawBit/app/echoServer/jwtx"
	"github.com/angata1/PawBit/app/echoServer/reqlog"
	"github.com/angata1/PawBit/model"
	authsvc "github.com/angata1/PawBit/service/auth"
	usersvc "github.com/angata1/PawBit/service/user"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Users usersvc.Service
	Auth  authsvc.Service
	V     *validator.Validate
	Log   *slog.Logger
}

// Get returns the caller's profile, balance and last transactions
// @Summary      Profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  usersvc.Profile
// @Failure      401,500  {object}  map[string]any
// @Security     BearerAuth
// @Router       /api/profile [get]
func (h *Controller) Get(c echo.Context) error {
	id, err := jwtx.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	p, err := h.Users.Profile(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("profile failed", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, p)
}

// Update changes name, password or anonymity
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        payload  body  model.ProfileUpdateReq  true  "changes"
// @Success      200  {object}  map[string]any
// @Failure      400,401,500  {object}  map[string]any
// @Security     BearerAuth
// @Router       /api/profile [put]
func (h *Controller) Update(c echo.Context) error {
	id, err := jwtx.IdentityFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
	}
	var req model.ProfileUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation error"})
	}

	updated, err := h.Auth.UpdateProfile(c.Request().Context(), id, req)
	if err != nil {
		switch authsvc.Code(err) {
		case authsvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case authsvc.ErrNoSession:
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
		default:
			h.Log.Error("profile update failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": updated})
}

// Leaderboard ranks donors by total deposited
// @Summary      Leaderboard
// @Tags         profile
// @Produce      json
// @Param        limit  query  int  false  "rows (default 10)"
// @Success      200  {object}  map[string]any
// @Router       /api/leaderboard [get]
func (h *Controller) Leaderboard(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := h.Users.Leaderboard(c.Request().Context(), limit)
	if err != nil {
		h.Log.Error("leaderboard failed", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

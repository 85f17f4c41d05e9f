package feeder

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/angata1/PawBit/app/echoServer/reqlog"
	feedersvc "github.com/angata1/PawBit/service/feeder"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc feedersvc.Service
	Log *slog.Logger
}

// GET /api/feeders
// @Summary List feeders with live status
// @Success 200 {object} map[string]any
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		h.Log.Error("list feeders", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /api/feeders/:id
// @Summary Feeder detail with its latest feedings ("all" for the whole network)
// @Success 200 {object} feedersvc.Detail
// @Failure 404,500
func (h *Controller) Detail(c echo.Context) error {
	d, err := h.Svc.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, feedersvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "feeder not found"})
		}
		h.Log.Error("feeder detail", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, d)
}

// GET /api/feedings?limit=
// @Summary Recent feedings across the network
// @Success 200 {object} map[string]any
func (h *Controller) Feedings(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := h.Svc.Feedings(c.Request().Context(), limit)
	if err != nil {
		h.Log.Error("feedings", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

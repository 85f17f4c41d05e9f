package payment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/angata1/PawBit/app/echoServer/jwtx"
	"github.com/angata1/PawBit/app/echoServer/reqlog"
	paymentsvc "github.com/angata1/PawBit/service/payment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *slog.Logger
}

// CreateIntentReq carries the amount in major currency units
// swagger:model CreateIntentReq
type CreateIntentReq struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

// CreateIntent opens a payment intent for a wallet deposit
// @Summary      Create payment intent
// @Tags         payment
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateIntentReq  true  "deposit amount"
// @Success      200  {object}  map[string]any
// @Failure      400,500  {object}  map[string]any
// @Router       /api/create-payment-intent [post]
func (h *Controller) CreateIntent(c echo.Context) error {
	var req CreateIntentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid amount"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid amount"})
	}

	secret, err := h.Svc.CreateIntent(c.Request().Context(), req.Amount, jwtx.OptionalIdentity(c))
	if err != nil {
		if errors.Is(err, paymentsvc.ErrInvalidAmount) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid amount"})
		}
		h.Log.Error("create payment intent failed", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"clientSecret": secret})
}

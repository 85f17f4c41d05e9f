package wallet

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/angata1/PawBit/app/echoServer/jwtx"
	"github.com/angata1/PawBit/app/echoServer/reqlog"
	walletsvc "github.com/angata1/PawBit/service/wallet"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc walletsvc.Service
	Log *slog.Logger
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
}

// Feed spends wallet balance on a meal at a feeder
// @Summary      Feed
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        payload  body  FeedReq  true  "amount and feeder"
// @Success      200  {object}  map[string]any
// @Failure      400,401,402,500  {object}  map[string]any
// @Security     BearerAuth
// @Router       /api/feed [post]
func (h *Controller) Feed(c echo.Context) error {
	id, err := jwtx.IdentityFromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	var req FeedReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid amount"})
	}

	res, err := h.Svc.Debit(c.Request().Context(), id, string(req.FeederID), req.Amount)
	if err != nil {
		switch walletsvc.Code(err) {
		case walletsvc.ErrInvalidAmount:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid amount"})
		case walletsvc.ErrInvalidFeeder:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid feeder"})
		case walletsvc.ErrInsufficientFunds:
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "Insufficient funds"})
		case walletsvc.ErrProfileMissing:
			h.Log.Error("feed failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user profile missing"})
		default:
			h.Log.Error("feed failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"newBalance": res.NewBalance.InexactFloat64(),
	})
}

// ConfirmDeposit credits a succeeded payment intent to the caller's wallet
// @Summary      Confirm deposit
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        payload  body  ConfirmDepositReq  true  "payment intent"
// @Success      200  {object}  map[string]any
// @Failure      400,401,500  {object}  map[string]any
// @Security     BearerAuth
// @Router       /api/wallet/confirm-deposit [post]
func (h *Controller) ConfirmDeposit(c echo.Context) error {
	id, err := jwtx.IdentityFromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	var req ConfirmDepositReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request"})
	}

	res, err := h.Svc.Credit(c.Request().Context(), id, strings.TrimSpace(req.PaymentIntentID))
	if err != nil {
		switch walletsvc.Code(err) {
		case walletsvc.ErrMissingIntent:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing payment_intent_id"})
		case walletsvc.ErrPaymentNotSucceeded:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Payment not successful"})
		case walletsvc.ErrIntentOwner:
			h.Log.Warn("deposit of foreign intent", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Payment belongs to another account"})
		case walletsvc.ErrInvalidAmount:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid amount"})
		case walletsvc.ErrProfileMissing:
			h.Log.Error("confirm deposit failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user profile missing"})
		default:
			h.Log.Error("confirm deposit failed", reqlog.Attrs(c, err)...)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}
	if res.AlreadyProcessed {
		return c.JSON(http.StatusOK, echo.Map{
			"success":    true,
			"newBalance": res.NewBalance.InexactFloat64(),
			"message":    "Already processed",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"newBalance": res.NewBalance.InexactFloat64(),
	})
}

// Balance returns the caller's wallet balance
// @Summary      Wallet balance
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /api/wallet/balance [get]
func (h *Controller) Balance(c echo.Context) error {
	id, err := jwtx.IdentityFromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	bal, err := h.Svc.Balance(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("balance failed", reqlog.Attrs(c, err)...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": bal.InexactFloat64()})
}

package echoServer

import (
	"github.com/angata1/PawBit/app/echoServer/controller/auth"
	"github.com/angata1/PawBit/app/echoServer/controller/feeder"
	"github.com/angata1/PawBit/app/echoServer/controller/payment"
	"github.com/angata1/PawBit/app/echoServer/controller/profile"
	"github.com/angata1/PawBit/app/echoServer/controller/wallet"

	"github.com/labstack/echo/v4"
)

type C struct {
	Auth      *auth.Controller
	Wallet    *wallet.Controller
	Payment   *payment.Controller
	Feeder    *feeder.Controller
	Profile   *profile.Controller
	Limiter   *RateLimiter
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/api")
	pub.POST("/auth/register", c.Auth.Register)
	pub.POST("/auth/login", c.Auth.Login)
	pub.POST("/auth/logout", c.Auth.Logout)

	pub.GET("/feeders", c.Feeder.List)
	pub.GET("/feeders/:id", c.Feeder.Detail)
	pub.GET("/feedings", c.Feeder.Feedings)
	pub.GET("/leaderboard", c.Profile.Leaderboard)

	// payment intents may be opened before signing in
	opt := e.Group("/api", Session(c.JWTSecret, true), c.Limiter.Middleware())
	opt.POST("/create-payment-intent", c.Payment.CreateIntent)

	// Auth
	auth := e.Group("/api", Session(c.JWTSecret, false))
	auth.POST("/feed", c.Wallet.Feed, c.Limiter.Middleware())
	auth.POST("/wallet/confirm-deposit", c.Wallet.ConfirmDeposit, c.Limiter.Middleware())
	auth.GET("/wallet/balance", c.Wallet.Balance)

	auth.GET("/profile", c.Profile.Get)
	auth.PUT("/profile", c.Profile.Update)
}

// Package main PawBit API.
//
// @title           PawBit API
// @version         1.0
// @description     Wallet, feeding and payment API behind the PawBit feeder network.
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <Supabase access token>
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angata1/PawBit/app/echoServer"
	authctrl "github.com/angata1/PawBit/app/echoServer/controller/auth"
	feederctrl "github.com/angata1/PawBit/app/echoServer/controller/feeder"
	paymentctrl "github.com/angata1/PawBit/app/echoServer/controller/payment"
	profilectrl "github.com/angata1/PawBit/app/echoServer/controller/profile"
	walletctrl "github.com/angata1/PawBit/app/echoServer/controller/wallet"
	"github.com/angata1/PawBit/app/echoServer/validation"
	"github.com/angata1/PawBit/config"
	"github.com/angata1/PawBit/migrations"
	depositrepo "github.com/angata1/PawBit/repository/deposit"
	feederrepo "github.com/angata1/PawBit/repository/feeder"
	mealrepo "github.com/angata1/PawBit/repository/meal"
	striperepo "github.com/angata1/PawBit/repository/stripe"
	supabaserepo "github.com/angata1/PawBit/repository/supabase"
	userrepo "github.com/angata1/PawBit/repository/user"
	walletrepo "github.com/angata1/PawBit/repository/wallet"
	authsvc "github.com/angata1/PawBit/service/auth"
	feedersvc "github.com/angata1/PawBit/service/feeder"
	paymentsvc "github.com/angata1/PawBit/service/payment"
	usersvc "github.com/angata1/PawBit/service/user"
	walletsvc "github.com/angata1/PawBit/service/wallet"
	"github.com/angata1/PawBit/util/database"
	"github.com/angata1/PawBit/util/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// clients read money as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// DB: pgx pool + *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(ctx, db.SQL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	// repos
	ur := userrepo.New(db.SQL)
	wr := walletrepo.New(db.SQL)
	mr := mealrepo.New(db.SQL)
	dr := depositrepo.New(db.SQL)
	sr := striperepo.New(cfg.StripeSecretKey)
	idp := supabaserepo.NewHTTP(cfg.SupabaseURL, cfg.SupabaseAnonKey)

	var fr feederrepo.Repo
	if cfg.FeederBackend == config.FeedersMemory {
		fr = feederrepo.NewMemory(feederrepo.DemoFeeders())
	} else {
		fr = feederrepo.NewPostgres(db.SQL)
	}

	live := feederrepo.NewMemoryLive()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("bad REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, live state may lag", "err", err)
		}
		live = feederrepo.NewRedisLive(rdb)
	}

	// services
	us := usersvc.New(ur, wr, log)
	fs := feedersvc.New(fr, mr, live, log)
	ws := walletsvc.New(wr, dr, sr, us, fs, log)
	ps := paymentsvc.New(sr, dr, cfg.StripeCurrency, log)
	as := authsvc.New(idp, us, log)

	rec := paymentsvc.NewReconciler(dr, sr, ws, log)
	cr, err := paymentsvc.Schedule(cfg.ReconcileSchedule, rec, log)
	if err != nil {
		log.Error("bad RECONCILE_SCHEDULE", "err", err)
		os.Exit(1)
	}
	defer cr.Stop()

	limiter := echoServer.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Prune(30 * time.Minute)
			}
		}
	}()

	// controllers
	v := validation.NewEngine()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log, Cookie: echoServer.SessionCookie, SecureCookie: !cfg.IsDev()}
	walletC := &walletctrl.Controller{Svc: ws, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}
	feederC := &feederctrl.Controller{Svc: fs, Log: log}
	profileC := &profilectrl.Controller{Users: us, Auth: as, V: v, Log: log}

	// echo
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		pctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Pool.Ping(pctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":  "degraded",
				"message": "database unreachable",
			})
		}
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:    authC,
		Wallet:  walletC,
		Payment: paymentC,
		Feeder:  feederC,
		Profile: profileC,
		Limiter: limiter,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		slog.Info("starting server", "PORT_env", os.Getenv("PORT"), "chosen_port", port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
	slog.Info("server stopped")
}

package config

type App struct {
	Port              string  `env:"APP_PORT,default=8080"`
	Env               string  `env:"APP_ENV,default=dev"`
	DatabaseURL       string  `env:"DATABASE_URL,required"`
	SupabaseURL       string  `env:"SUPABASE_URL"`
	SupabaseAnonKey   string  `env:"SUPABASE_ANON_KEY"`
	JWTSecret         string  `env:"SUPABASE_JWT_SECRET,required"`
	StripeSecretKey   string  `env:"STRIPE_SECRET_KEY,required"`
	StripeCurrency    string  `env:"STRIPE_CURRENCY,default=usd"`
	RedisURL          string  `env:"REDIS_URL"`
	FeederBackend     string  `env:"FEEDER_BACKEND,default=postgres"`
	AutoMigrate       bool    `env:"AUTO_MIGRATE,default=true"`
	ReconcileSchedule string  `env:"RECONCILE_SCHEDULE,default=@every 5m"`
	RateLimitRPS      float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst    int     `env:"RATE_LIMIT_BURST,default=10"`
}

func (a App) IsDev() bool { return a.Env == "dev" }

package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io/fs"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"examhub/internal/auth"
	"examhub/internal/db"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/storage"
	"examhub/internal/enrollment"
	"examhub/internal/mailer"
	"examhub/internal/payments"
	"examhub/internal/ratelimiter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 20
	defaultEnabled := true

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil && parsedVal > 0 {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            time.Minute,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)

	return zap.New(core).Sugar(), nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %d\n", key, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %t\n", key, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		fmt.Printf("Invalid %s, defaulting to %s\n", key, fallback)
		return fallback
	}
	return d
}

func loadConfig() config {
	return config{
		addr:        getString("ADDR", ":8080"),
		env:         getString("ENV", "development"),
		apiURL:      getString("EXTERNAL_URL", "http://localhost:8080"),
		frontendURL: getString("FRONTEND_URL", "http://localhost:3000"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    getInt("DB_MAX_CONNS", 30),
			maxIdleTime: getString("DB_MAX_IDLE_TIME", "15m"),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				iss:    getString("AUTH_TOKEN_ISS", "examhub"),
			},
		},
		chapa: chapaConfig{
			secretKey: os.Getenv("CHAPA_SECRET_KEY"),
			baseURL:   getString("CHAPA_BASE_URL", payments.DefaultChapaBaseURL),
		},
		payment: paymentConfig{
			currency:          getString("PAYMENT_CURRENCY", enrollment.DefaultCurrency),
			intentTTL:         getDuration("PAYMENT_INTENT_TTL", enrollment.DefaultIntentTTL),
			trustGETCallbacks: getBool("PAYMENT_TRUST_GET_CALLBACKS", true),
			receiptSalt:       getString("RECEIPT_SALT", "examhub-receipts"),
		},
		mail: mailConfig{
			host:      os.Getenv("SMTP_HOST"),
			port:      getInt("SMTP_PORT", 587),
			username:  os.Getenv("SMTP_USERNAME"),
			password:  os.Getenv("SMTP_PASSWORD"),
			fromEmail: getString("MAIL_FROM", "no-reply@examhub.local"),
		},
		rateLimiter: LoadRateLimiterConfig(),
	}
}

var version = "0.4.0"

//	@title			ExamHub Payments API
//	@description	Course and exam purchases through Chapa, with webhook reconciliation.

//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || os.Getenv("ENV") == "production" {
			log.Fatalf("Error loading .env file: %v", err)
		}
	}

	cfg := loadConfig()

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	if cfg.isProduction() && cfg.chapa.secretKey == "" {
		logger.Fatal("CHAPA_SECRET_KEY is required in production")
	}
	if cfg.auth.token.secret == "" {
		logger.Fatal("AUTH_TOKEN_SECRET is required")
	}

	// Storage
	var store enrollment.Store
	var pool *pgxpool.Pool
	if cfg.db.addr != "" {
		pool, err = db.New(cfg.db.addr, int32(cfg.db.maxConns), cfg.db.maxIdleTime)
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(ctx, pool)
		cancel()
		if err != nil {
			logger.Fatalw("schema migration failed", "err", err)
		}
		store = storage.NewContainer(pool)
	} else {
		if cfg.isProduction() {
			logger.Fatal("DB_ADDR is required in production")
		}
		logger.Warn("DB_ADDR not set, using the in-memory store")
		store = storage.NewMemory()
	}

	// Gateway
	chapa := payments.NewChapaClient(cfg.chapa.secretKey, cfg.chapa.baseURL)
	verifier := payments.NewVerifier(cfg.isProduction(), cfg.payment.trustGETCallbacks, chapa, logger)
	if !cfg.isProduction() {
		logger.Warnw("callbacks are trusted without gateway verification", "env", cfg.env)
	} else if cfg.payment.trustGETCallbacks {
		logger.Warn("GET callbacks are trusted without gateway verification, set PAYMENT_TRUST_GET_CALLBACKS=false to verify them")
	}

	receipts, err := paymentintents.NewReceiptNumberer(cfg.payment.receiptSalt)
	if err != nil {
		logger.Fatal(err)
	}

	// Mail is optional
	var mail mailer.Client
	if cfg.mail.host != "" {
		mail = mailer.NewSMTPMailer(cfg.mail.host, cfg.mail.port, cfg.mail.username, cfg.mail.password, cfg.mail.fromEmail)
	} else {
		logger.Warn("SMTP_HOST not set, payment receipts will not be emailed")
	}

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	service := enrollment.NewService(enrollment.Config{
		Builder: enrollment.BuilderConfig{
			Currency:    cfg.payment.currency,
			APIURL:      cfg.apiURL,
			FrontendURL: cfg.frontendURL,
		},
		IntentTTL: cfg.payment.intentTTL,
	}, enrollment.Deps{
		Store:    store,
		Gateway:  chapa,
		Verifier: verifier,
		Receipts: receipts,
		Mailer:   mail,
		Logger:   logger,
	})

	app := &application{
		config:        cfg,
		store:         store,
		payments:      service,
		logger:        logger,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
	}

	// Metrics collected http://localhost:8080/api/v1/debug/vars
	expvar.NewString("version").Set(version)
	if pool != nil {
		expvar.Publish("database", expvar.Func(func() any {
			s := pool.Stat()
			return map[string]any{
				"total_conns":    s.TotalConns(),
				"idle_conns":     s.IdleConns(),
				"acquired_conns": s.AcquiredConns(),
				"max_conns":      s.MaxConns(),
			}
		}))
	}
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Fatal(err)
	}
}

package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examhub/docs" // registers the swagger spec
	"examhub/internal/auth"
	"examhub/internal/domain/users"
	"examhub/internal/enrollment"
	"examhub/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         enrollment.Store
	payments      *enrollment.Service
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
}

type config struct {
	addr        string
	env         string
	apiURL      string
	frontendURL string
	db          dbConfig
	auth        authConfig
	chapa       chapaConfig
	payment     paymentConfig
	mail        mailConfig
	rateLimiter ratelimiter.Config
}

func (c config) isProduction() bool {
	return c.env == "production"
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type chapaConfig struct {
	secretKey string
	baseURL   string
}

type paymentConfig struct {
	currency          string
	intentTTL         time.Duration
	trustGETCallbacks bool
	receiptSalt       string
}

type mailConfig struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.config.frontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/api/v1/swagger/doc.json")))

		r.Route("/payments", func(r chi.Router) {
			// Called by the gateway and by the browser on return; no auth.
			r.Post("/webhook", app.paymentWebhookHandler)
			r.Get("/webhook", app.paymentWebhookHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Use(app.RateLimiterMiddleware)

				r.With(app.RequireRole(users.RoleStudent)).Post("/course", app.initiateCoursePaymentHandler)
				r.With(app.RequireRole(users.RoleStudent)).Post("/exam", app.initiateExamPaymentHandler)
				r.Get("/intents/{txRef}", app.getPaymentIntentHandler)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireRole(users.RoleAdmin))
			r.Get("/payments", app.adminListPaymentsHandler)
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/api/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	app.expirePaymentIntentsEvery30Mins(bgCtx)

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())
		stopBackground()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	// receipts still in flight
	app.payments.Wait()

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}

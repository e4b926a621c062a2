package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bookline/pkg/auth"
	"bookline/pkg/config"
	"bookline/pkg/contracts"
	"bookline/pkg/middleware"
)

const RealtimePath = "/ws"

type Options struct {
	Authenticator auth.Authenticator
	// Realtime serves the WebSocket endpoint. It authenticates on its own.
	Realtime     http.Handler
	HealthChecks map[string]Pinger
	Handlers     []contracts.Handler
}

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      middleware.RateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	realtimeHandler  http.Handler
	hooks            []shutdownHook
}

func NewApplication() *Application {
	return &Application{}
}

func (a *Application) SetApp(cfg *config.Config, opts Options) {
	a.cfg = cfg
	a.setHealthHandler(opts.HealthChecks)
	a.setRealtimeHandler(opts.Realtime)
	a.setAppHandler(opts.Authenticator, opts.Handlers)
	a.setAppServer()
}

// OnShutdown registers fn to run, in registration order, after the HTTP
// server has stopped accepting requests.
func (a *Application) OnShutdown(name string, fn func(ctx context.Context) error) {
	a.hooks = append(a.hooks, shutdownHook{name: name, fn: fn})
}

func (a *Application) setHealthHandler(checks map[string]Pinger) {
	var healthHTTPHandler http.Handler = contracts.NewRouter(NewHealthHandler(checks, a.cfg.Log))
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setRealtimeHandler(realtime http.Handler) {
	if realtime == nil {
		return
	}
	a.realtimeHandler = middleware.Recovery(a.cfg.Log)(realtime)
	a.cfg.Log.Info("Realtime endpoint configured", "path", RealtimePath)
}

func (a *Application) setAppHandler(authenticator auth.Authenticator, handlers []contracts.Handler) {
	appRouter := contracts.NewRouter(handlers...)

	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL, a.cfg.Log)
		a.rateLimiter = middleware.NewRedisRateLimiter(a.cfg.Client.Redis, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, "")
		a.cfg.Log.Info("Rate limiting and idempotency backed by Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
		a.rateLimiter = middleware.NewSlidingWindowRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
	}

	var appHTTPHandler http.Handler = appRouter
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore)(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.RateLimit(a.rateLimiter, a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Authenticate(authenticator, a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.appHTTPHandler = appHTTPHandler
	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler is the complete routing tree, exposed for in-process tests.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	if a.realtimeHandler != nil {
		mux.Handle(RealtimePath, a.realtimeHandler)
	}
	mux.Handle("/", a.appHTTPHandler)
	return mux
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			a.cfg.Log.Fatal("HTTP server failed", "error", err)
		}

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.stopBackgroundWorkers(ctx)
	a.cfg.Log.Info("Server stopped gracefully")
}

func (a *Application) stopBackgroundWorkers(ctx context.Context) {
	a.cfg.Log.Info("Stopping background workers...")
	for _, hook := range a.hooks {
		if err := hook.fn(ctx); err != nil {
			a.cfg.Log.Error("Shutdown hook failed", "hook", hook.name, "error", err)
		}
	}
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	a.cfg.Log.Info("Background workers stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/foyer/internal/auth"
	"github.com/mmynk/foyer/internal/config"
	"github.com/mmynk/foyer/internal/events"
	"github.com/mmynk/foyer/internal/metrics"
	"github.com/mmynk/foyer/internal/middleware"
	"github.com/mmynk/foyer/internal/notify"
	"github.com/mmynk/foyer/internal/service"
	"github.com/mmynk/foyer/internal/state"
	"github.com/mmynk/foyer/internal/storage"
	"github.com/mmynk/foyer/internal/storage/memory"
	"github.com/mmynk/foyer/internal/storage/redis"
	"github.com/mmynk/foyer/internal/storage/sqlite"
	"github.com/mmynk/foyer/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	// Environment-driven logger until the configuration is read.
	logging.Setup()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", cfg.Storage.Backend)

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		slog.Info("Change events enabled", "exchange", cfg.AMQP.Exchange)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorder := &notify.Recorder{}
	st := state.New(state.Options{
		Store:     store,
		Notifier:  notify.Multi{notify.NewLogger(slog.Default()), recorder},
		Publisher: publisher,
		Metrics:   metrics.New(registry),
	})
	if err := st.Load(ctx); err != nil {
		slog.Warn("Some stored values could not be read and were reset", "error", err)
	}
	household := service.NewHousehold(st, recorder)

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled() {
		jwtManager = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	interceptors := rpcInterceptors(jwtManager)

	mux := http.NewServeMux()
	mux.Handle(service.NewBudgetServiceHandler(service.NewBudgetService(household), interceptors))
	mux.Handle(service.NewProjectServiceHandler(service.NewProjectService(household), interceptors))
	mux.Handle(service.NewHistoryServiceHandler(service.NewHistoryService(household), interceptors))
	mux.Handle(service.NewBackupServiceHandler(service.NewBackupService(household), interceptors))
	if cfg.AuthEnabled() {
		authenticator, err := auth.NewPassphraseAuthenticator(cfg.Auth.PassphraseHash)
		if err != nil {
			return err
		}
		mux.Handle(service.NewAuthServiceHandler(service.NewAuthService(authenticator, jwtManager), interceptors))
	}
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// h2c serves HTTP/2 without TLS, which Connect clients may use.
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlite.New(cfg.SQLitePath, cfg.Quota)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		store, err := redis.Open(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memory.New(cfg.Quota), nil
	}
}

// rpcInterceptors authenticates every RPC but Login when jwtManager is set, then logs it.
func rpcInterceptors(jwtManager *auth.JWTManager) connect.HandlerOption {
	if jwtManager == nil {
		return connect.WithInterceptors(middleware.LoggingInterceptor())
	}
	return connect.WithInterceptors(
		middleware.RequireAuth(jwtManager, service.LoginProcedure),
		middleware.LoggingInterceptor(),
	)
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

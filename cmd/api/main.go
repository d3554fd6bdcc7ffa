// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Opsdash HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and run migrations.
//  4. Connect to Redis and the object store.
//  5. Wire stores, services and screens.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/opsdash/internal/access/module"
	"github.com/taibuivan/opsdash/internal/activity"
	"github.com/taibuivan/opsdash/internal/admin"
	"github.com/taibuivan/opsdash/internal/api"
	"github.com/taibuivan/opsdash/internal/commerce/woo"
	"github.com/taibuivan/opsdash/internal/features/catalog"
	"github.com/taibuivan/opsdash/internal/features/mrp"
	"github.com/taibuivan/opsdash/internal/features/orders"
	"github.com/taibuivan/opsdash/internal/features/shipping"
	"github.com/taibuivan/opsdash/internal/features/stock"
	"github.com/taibuivan/opsdash/internal/features/zoho"
	"github.com/taibuivan/opsdash/internal/platform/config"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/metrics"
	"github.com/taibuivan/opsdash/internal/platform/migration"
	"github.com/taibuivan/opsdash/internal/platform/objstore"
	pgstore "github.com/taibuivan/opsdash/internal/platform/postgres"
	redisstore "github.com/taibuivan/opsdash/internal/platform/redis"
	"github.com/taibuivan/opsdash/internal/platform/sec"
	"github.com/taibuivan/opsdash/internal/users/account"
	"github.com/taibuivan/opsdash/internal/users/auth"
)

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("session_backend", cfg.SessionBackend),
		slog.String("limiter_backend", cfg.LoginLimiterBackend),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. Redis & Object Store ───────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	objects, err := objstore.NewClient(objstore.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
	must(log, err, "create object store client")
	must(log, objects.EnsureBucket(startupCtx, log), "ensure object store bucket")

	// ── 5. Platform Services ──────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	registry := metrics.New()

	store, err := woo.New(woo.Config{
		BaseURL:        cfg.WooAPIURL,
		ConsumerKey:    cfg.WooConsumerKey,
		ConsumerSecret: cfg.WooConsumerSecret,
		Metrics:        registry,
	})
	must(log, err, "create woocommerce client")

	recorder := activity.NewLogger(activity.NewRepository(pool))

	// ── 6. Sessions & Authorization ───────────────────────────────────────
	var sessions auth.SessionStore = auth.NewMemorySessionStore(constants.AccessTokenTTL)
	if cfg.SessionBackend == config.BackendRedis {
		sessions = auth.NewRedisSessionStore(rdb, constants.AccessTokenTTL)
	}

	var limiter auth.Limiter = auth.NewMemoryLimiter(auth.DefaultPolicy())
	if cfg.LoginLimiterBackend == config.BackendRedis {
		limiter = auth.NewRedisLimiter(rdb, auth.DefaultPolicy())
	}

	accounts := account.NewService(account.NewRepository(pool))
	modules := module.NewService(module.NewCatalogRepository(pool), module.NewGrantRepository(pool))

	manager := auth.NewManager(auth.Deps{
		Credentials: auth.NewCredentialStore(pool, auth.NewResetTokenRepository(rdb)),
		Profiles:    accounts,
		Modules:     modules,
		Sessions:    sessions,
		Limiter:     limiter,
		Activity:    recorder,
		Tokens:      tokens,
		Notifier:    auth.NewLogNotifier(log),
		Metrics:     registry,
	})

	// ── 7. Feature Screens ────────────────────────────────────────────────
	products := catalog.NewRepository(pool)
	orderService := orders.NewService(store, orders.NewCache(pool), recorder)
	console := admin.NewConsole(accounts, modules, recorder, manager)

	screens := []api.Screen{
		orders.NewScreen(orderService),
		stock.NewScreen(stock.NewService(products, stock.NewSettings(pool), stock.NewHistory(pool), store, recorder)),
		catalog.NewScreen(catalog.NewService(products, store, recorder)),
		shipping.NewScreen(shipping.NewService(recorder)),
		mrp.NewScreen(mrp.NewService(mrp.NewLibrary(objects), recorder)),
		zoho.NewScreen(zoho.NewService(store, objects, recorder)),
		console.Users(),
		console.Permissions(),
		console.Modules(),
		console.Logs(),
	}

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(log,
		api.Check{Name: "postgres", Ping: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
		api.Check{Name: "redis", Ping: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
		api.Check{Name: "objstore", Ping: objects.Ping},
	)

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server, err := api.NewServer(serverCtx, cfg, log, tokens, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   registry,
		Sessions:  sessions,
		Auth:      auth.NewHandler(manager),
		Account:   account.NewHandler(accounts, manager),
		Dashboard: api.NewDashboardHandler(orderService),
		Screens:   screens,
	})
	must(log, err, "build http server")

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

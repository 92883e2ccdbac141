// Точка входа auth-сервиса: конфигурация, логгер, миграции, хранилище,
// опциональный Redis-кэш, бизнес-логика и два HTTP-сервера (публичный API
// и служебный с livez/healthz/metrics) с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matchpoint-app/auth-service/internal/cache"
	"github.com/matchpoint-app/auth-service/internal/config"
	"github.com/matchpoint-app/auth-service/internal/migrations"
	"github.com/matchpoint-app/auth-service/internal/notify"
	"github.com/matchpoint-app/auth-service/internal/service"
	"github.com/matchpoint-app/auth-service/internal/storage/postgres"
	api "github.com/matchpoint-app/auth-service/internal/transport/http"
	"github.com/matchpoint-app/auth-service/internal/transport/http/middleware"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "путь к конфигурационному файлу")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	lg := setupLogger(cfg.Env)
	slog.SetDefault(lg)

	lg.Info("starting auth-service",
		slog.String("env", cfg.Env),
		slog.String("http_addr", cfg.HTTP.Addr()),
		slog.String("ops_addr", cfg.Ops.Addr()),
	)

	if err := run(cfg, lg); err != nil {
		lg.Error("service terminated", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Миграции накатываются на старте; процесс не поднимается на старой схеме.
	if err := runMigrations(ctx, cfg.DB.DatabaseURL); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	lg.Info("migrations applied")

	store, err := postgres.New(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer store.Close()

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Mail.SMTPHost != "" {
		notifier = notify.NewSMTPMailer(cfg.Mail)
		lg.Info("smtp mailer enabled", slog.String("host", cfg.Mail.SMTPHost))
	} else {
		lg.Warn("smtp not configured, mail delivery disabled")
	}

	auth := service.New(store, cfg.Auth, notifier)

	if cfg.Redis.RedisURL != "" {
		rcache, err := cache.NewRedisCache(cfg.Redis.RedisURL, "")
		if err != nil {
			return fmt.Errorf("redis cache: %w", err)
		}
		defer func() { _ = rcache.Close() }()

		auth.SetRefreshCache(rcache)
		lg.Info("refresh token cache enabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewHTTPMetrics(reg)

	handler := api.NewRouter(api.NewHandlers(auth), api.RouterOptions{
		Logger:  lg,
		Metrics: metrics,
		Timeout: cfg.Timeouts.Service,
	})

	apiSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ready переключается в 1 после успешного старта API-сервера;
	// /healthz до этого отвечает 503.
	var ready atomic.Int32
	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux(reg, &ready),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		lg.Info("ops server listening", slog.String("addr", opsSrv.Addr))
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	go func() {
		lg.Info("api server listening", slog.String("addr", apiSrv.Addr))
		ready.Store(1)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	ready.Store(0)

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiSrv.Shutdown(shCtx); err != nil {
		lg.Error("api server shutdown failed", slog.String("err", err.Error()))
	}
	if err := opsSrv.Shutdown(shCtx); err != nil {
		lg.Error("ops server shutdown failed", slog.String("err", err.Error()))
	}

	lg.Info("auth-service stopped")

	return nil
}

// runMigrations применяет встроенные goose-миграции через database/sql
// (pgx в режиме stdlib).
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// opsMux — служебные маршруты: liveness, readiness и метрики.
func opsMux(reg *prometheus.Registry, ready *atomic.Int32) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ready.Load() == 1 {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

// setupLogger настраивает slog по окружению:
// local — текст/Debug, dev — JSON/Debug, prod — JSON/Info.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

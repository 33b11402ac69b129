package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-auth-service/internal/cache"
	"github.com/pribylovaa/go-auth-service/internal/config"
	"github.com/pribylovaa/go-auth-service/internal/metrics"
	"github.com/pribylovaa/go-auth-service/internal/notify"
	"github.com/pribylovaa/go-auth-service/internal/ratelimit"
	"github.com/pribylovaa/go-auth-service/internal/service"
	"github.com/pribylovaa/go-auth-service/internal/storage"
	"github.com/pribylovaa/go-auth-service/internal/storage/postgres"
	"github.com/pribylovaa/go-auth-service/internal/token"
	transporthttp "github.com/pribylovaa/go-auth-service/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Подключение к БД и миграции c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	if err != nil {
		dbCancel()
		return err
	}
	defer str.Close()

	err = str.Migrate(dbCtx)
	dbCancel()
	if err != nil {
		return err
	}
	log.Info("postgres_connected")

	rdbCtx, rdbCancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := cache.NewClient(rdbCtx, cfg.Redis.RedisURL)
	rdbCancel()
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("redis_connected")

	codec, err := token.New(cfg.Auth)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Сервис.
	srvc := service.New(str,
		cache.NewCodeStore(rdb, cfg.Redis.Prefix, cfg.Auth.OneTimeCodeTTL),
		cache.NewSessionStore(rdb, cfg.Redis.Prefix),
		codec,
	)

	closeSender, err := setupCodeSender(cfg, log, m, srvc)
	if err != nil {
		return err
	}
	defer closeSender()
	log.Info("service_initialized")

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", readiness(&ready, str, rdb))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", transporthttp.NewRouter(srvc, transporthttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Metrics: m,
		Limiter: ratelimit.New(rdb, cfg.RateLimit.LoginLimit, cfg.RateLimit.Window, cfg.Redis.Prefix),
	}))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Фоновая очистка неподтверждённых аккаунтов.
	startPendingJanitor(ctx, str, m, log, cfg.Janitor)

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
	}

	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}

	return serveErr
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// errNoCodeDelivery — вне local коды некуда доставлять: лог их маскирует.
var errNoCodeDelivery = errors.New("kafka brokers are required outside local env")

// setupCodeSender выбирает доставку кодов: Kafka, если заданы брокеры,
// иначе лог (только в local, где код выводится как есть).
func setupCodeSender(cfg *config.Config, log *slog.Logger, m *metrics.Metrics, srvc *service.Service) (func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		if cfg.Env != envLocal {
			return nil, errNoCodeDelivery
		}

		srvc.SetCodeSender(notify.NewLogSender(log, true))
		log.Warn("kafka_disabled", slog.String("fallback", "log"))
		return func() {}, nil
	}

	sender, err := notify.NewKafkaSender(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Auth.OneTimeCodeTTL)
	if err != nil {
		return nil, err
	}
	sender.SetObserver(m.CodeDelivery)
	srvc.SetCodeSender(sender)
	log.Info("kafka_producer_ready", slog.String("topic", cfg.Kafka.Topic))

	return func() {
		if err := sender.Close(); err != nil {
			log.Warn("kafka_close_failed", slog.String("err", err.Error()))
		}
	}, nil
}

// readiness отвечает 200, только когда сервер запущен и Postgres/Redis доступны.
func readiness(ready *atomic.Bool, db storage.Storage, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// startPendingJanitor запускает фоновую задачу, которая периодически удаляет
// аккаунты, не подтверждённые за cfg.PendingAccountTTL.
func startPendingJanitor(ctx context.Context, accounts storage.AccountStorage, m *metrics.Metrics, log *slog.Logger, cfg config.JanitorConfig) {
	if cfg.Period <= 0 || cfg.PendingAccountTTL <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(cfg.Period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				sweepPending(ctx, accounts, m, log, cfg.PendingAccountTTL, time.Now().UTC())
			}
		}
	}()
}

// sweepPending выполняет один проход очистки.
func sweepPending(ctx context.Context, accounts storage.AccountStorage, m *metrics.Metrics, log *slog.Logger, ttl time.Duration, now time.Time) {
	n, err := accounts.DeletePendingAccounts(ctx, now.Add(-ttl))
	if err != nil {
		log.Error("pending_janitor_failed", slog.String("err", err.Error()))
		return
	}

	m.PendingDeleted(n)
	if n > 0 {
		log.Info("pending_accounts_deleted", slog.Int64("count", n))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitpass/internal/auth"
	"github.com/mmynk/splitpass/internal/config"
	"github.com/mmynk/splitpass/internal/grouping"
	"github.com/mmynk/splitpass/internal/lock"
	"github.com/mmynk/splitpass/internal/lock/natslock"
	"github.com/mmynk/splitpass/internal/lock/redislock"
	"github.com/mmynk/splitpass/internal/metrics"
	"github.com/mmynk/splitpass/internal/scheduler"
	"github.com/mmynk/splitpass/internal/service"
	"github.com/mmynk/splitpass/internal/storage/sqlite"
	"github.com/mmynk/splitpass/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	holder := instanceID()
	locker, closeLocker, err := newLocker(ctx, cfg, store, holder)
	if err != nil {
		return err
	}
	defer closeLocker()
	logger.Info("Batch lock ready", "backend", cfg.LockBackend, "holder", holder, "lease", cfg.LockTimeout())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	coordinator := grouping.NewCoordinator(store, cfg.Limits(), logger).WithObserver(m)

	sched, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.SchedulerEnabled,
		Schedule: cfg.SchedulerSchedule,
		Window:   cfg.Window(),
		JobName:  cfg.JobName,
		Limits:   cfg.Limits(),
	}, store, coordinator, locker, m, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH is empty; admin login is disabled")
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	mux := http.NewServeMux()
	mux.Handle(service.NewGroupingServiceHandler(
		service.NewGroupingService(store, coordinator, sched, cfg.PassPriceCents, logger),
		jwtManager, logger,
	))
	mux.Handle(service.NewAuthServiceHandler(
		service.NewAuthService(auth.NewAdminAuthenticator(cfg.AdminUsername, cfg.AdminPasswordHash), jwtManager, logger),
		jwtManager, logger,
	))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	handler := h2c.NewHandler(loggingMiddleware(logger, corsMiddleware(mux)), &http2.Server{})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Connect server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// instanceID names this process as a lock holder.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}

// newLocker builds the configured batch lock backend. The returned func
// closes any connection it opened.
func newLocker(ctx context.Context, cfg *config.Config, store *sqlite.SQLiteStore, holder string) (lock.Locker, func(), error) {
	switch cfg.LockBackend {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return redislock.New(client, holder, cfg.LockTimeout()), func() { client.Close() }, nil

	case config.LockNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("splitpass-"+holder))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.NATSURL, err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("failed to open jetstream: %w", err)
		}
		l, err := natslock.Open(ctx, js, cfg.NATSLockBucket, holder, cfg.LockTimeout())
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return l, nc.Close, nil

	default:
		return store.NewLeaseLock(holder, cfg.LockTimeout()), func() {}, nil
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Request completed",
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

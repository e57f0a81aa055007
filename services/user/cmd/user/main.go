package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/user_service/pkg/db"
	"github.com/Skotchmaster/user_service/pkg/events"
	"github.com/Skotchmaster/user_service/pkg/hash"
	"github.com/Skotchmaster/user_service/pkg/kv"
	"github.com/Skotchmaster/user_service/pkg/logging"
	"github.com/Skotchmaster/user_service/pkg/metrics"
	loggingmw "github.com/Skotchmaster/user_service/pkg/middleware/logging"
	"github.com/Skotchmaster/user_service/pkg/tokens"
	"github.com/Skotchmaster/user_service/services/user/internal/cache"
	"github.com/Skotchmaster/user_service/services/user/internal/config"
	"github.com/Skotchmaster/user_service/services/user/internal/httpserver"
	"github.com/Skotchmaster/user_service/services/user/internal/repo"
	"github.com/Skotchmaster/user_service/services/user/internal/revocation"
	"github.com/Skotchmaster/user_service/services/user/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}
	users := repo.New(gdb)
	if err := users.Migrate(initCtx); err != nil {
		cancel()
		log.Fatalf("db migrate error: %v", err)
	}

	cacheStore, revokedStore, err := openStores(initCtx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("redis init error: %v", err)
	}
	if cfg.RedisURL == "" {
		logger.Warn("redis_not_configured", "fallback", "in-process store")
	}
	cancel()

	codec, err := tokens.NewCodec(cfg.SecretKey, cfg.JWTAlgorithm)
	if err != nil {
		log.Fatalf("token codec error: %v", err)
	}

	m := metrics.New("user_service")

	var sessionCache *cache.SessionCache
	if !cfg.CacheDisabled {
		sessionCache = cache.New(cacheStore, cache.Options{TTL: cfg.CacheTTL, Timeout: cfg.CacheTimeout, Metrics: m})
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
	}

	svc := service.New(service.Deps{
		Users:       users,
		Hasher:      hash.New(cfg.Argon2, cfg.HashWorkers),
		Codec:       codec,
		Revocations: revocation.New(revokedStore, codec, cfg.CacheTimeout),
		Cache:       sessionCache,
		Events:      publisher,
		Metrics:     m,
	}, service.Options{
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		StrictRevocation: cfg.StrictRevocation,
	})

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger, "/health/live", "/health/ready", "/metrics"))

	httpserver.Register(e, &httpserver.Deps{
		UserHandler: &httpserver.UserHTTP{Svc: svc, ServiceName: cfg.ServiceName},
		Metrics:     m,
	})

	go func() {
		logger.Info("server_starting", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("publisher_close_failed", "error", err)
	}
	if err := cacheStore.Close(); err != nil {
		logger.Error("kv_close_failed", "error", err)
	}
	if revokedStore != cacheStore {
		if err := revokedStore.Close(); err != nil {
			logger.Error("kv_close_failed", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	logger.Info("server_stopped")
}

// openStores returns the stores backing the session cache and the
// revocation list. With Redis both share one client. In process they are
// kept apart: a revocation must outlive any amount of cache churn until its
// token expires.
func openStores(ctx context.Context, cfg config.Config) (cacheStore, revokedStore kv.Store, err error) {
	if cfg.RedisURL != "" {
		store, err := kv.NewRedisStore(ctx, kv.RedisOptions{
			URL:      cfg.RedisURL,
			PoolSize: cfg.RedisPoolSize,
			Timeout:  cfg.CacheTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	return kv.NewMemoryStore(0, 0), kv.NewMemoryStore(kv.Unbounded, cfg.RefreshTTL), nil
}

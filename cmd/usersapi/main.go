package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/usersapi/internal/application/lifecycle"
	"github.com/aescanero/usersapi/internal/application/poolmonitor"
	"github.com/aescanero/usersapi/internal/application/users"
	"github.com/aescanero/usersapi/internal/config"
	"github.com/aescanero/usersapi/pkg/adapters/database/postgres"
	"github.com/aescanero/usersapi/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/usersapi/pkg/adapters/storage/memory"
	pgstorage "github.com/aescanero/usersapi/pkg/adapters/storage/postgres"
	redisstorage "github.com/aescanero/usersapi/pkg/adapters/storage/redis"
	"github.com/aescanero/usersapi/pkg/api/http"
	"github.com/aescanero/usersapi/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "1.0.0"
	BuildTime = "unknown"
)

var processStart = time.Now()

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting users API",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("storage_driver", cfg.StorageDriver))

	metricsCollector := prometheus.NewCollector()

	var (
		repo      ports.UserRepository
		health    ports.HealthChecker
		resources []lifecycle.Resource
		monitor   *poolmonitor.Monitor
	)

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(context.Background(), postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Name:            cfg.Database.Name,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        cfg.Database.MaxConns,
			IdleTimeout:     cfg.Database.IdleTimeout,
			AcquireTimeout:  cfg.Database.AcquireTimeout,
			AcquireObserver: metricsCollector.RecordAcquire,
		}, logger)
		if err != nil {
			logger.Fatal("failed to create database pool", zap.Error(err))
		}

		repo = pgstorage.NewUserRepository(pool, logger)
		health = pool
		monitor = poolmonitor.New(pool, metricsCollector, cfg.Database.MonitorInterval, logger)
		resources = append(resources,
			lifecycle.Resource{Name: "pool monitor", Close: monitor.Stop},
			lifecycle.Resource{Name: "database pool", Close: pool.Close},
		)
	case config.DriverMemory:
		memRepo := memory.NewInMemoryUserRepository()
		repo = memRepo
		health = memRepo
	}

	var cache ports.UserCache
	if cfg.CacheEnabled() {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		cache = redisstorage.NewUserCache(redisClient, cfg.Cache.TTL, logger)
		resources = append(resources, lifecycle.Resource{
			Name: "redis client",
			Close: func() {
				if err := redisClient.Close(); err != nil {
					logger.Error("Redis close error", zap.Error(err))
				}
			},
		})
		logger.Info("users list cache enabled", zap.String("addr", cfg.Cache.Addr))
	}

	usersService := users.NewService(repo, cache, metricsCollector, logger)

	httpServer := http.NewServer(&http.Config{
		Port:              cfg.Port,
		Version:           Version,
		StartedAt:         processStart,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
		QueryTimeout:      cfg.Database.QueryTimeout,
		Users:             usersService,
		Health:            health,
		Metrics:           metricsCollector,
		Logger:            logger,
	})

	controller := lifecycle.NewController(&lifecycle.Config{
		Addr:            cfg.GetHTTPAddr(),
		Server:          httpServer,
		Resources:       resources,
		ShutdownTimeout: cfg.Timeouts.Shutdown,
		Logger:          logger,
	})

	if monitor != nil {
		monitor.Start()
	}

	// Drain on interrupt or termination signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-controller.Listening()
		logger.Info("users API started",
			zap.Int("port", cfg.Port),
			zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Port)),
			zap.String("metrics", fmt.Sprintf("http://localhost:%d/metrics", cfg.Port)))
	}()

	if err := controller.Run(ctx); err != nil {
		logger.Fatal("users API failed", zap.Error(err))
	}

	logger.Info("users API shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}

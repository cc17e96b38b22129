package main

import (
	"context"
	"os"
	"time"

	"TruthMeterService/config"
	"TruthMeterService/internal/database/seed"
	"TruthMeterService/internal/delivery/grpc"
	"TruthMeterService/internal/ratelimit"
	"TruthMeterService/internal/repository/postgres"
	"TruthMeterService/internal/repository/redis"
	"TruthMeterService/internal/service"
	"TruthMeterService/pkg/database"
	"TruthMeterService/pkg/logger"
	"TruthMeterService/pkg/resilience"
	"TruthMeterService/pkg/server"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Версия сервиса
const (
	ServiceVersion = "1.0.0"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info", false).Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.IsDevelopment())
	defer func() { _ = log.Sync() }()
	log.Info("Starting truth meter service",
		zap.String("version", ServiceVersion),
		zap.String("env", cfg.App.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gracefulShutdown := server.NewGracefulShutdown(log, 30*time.Second)

	// Подключение к хранилищу с повторными попытками: база может подниматься дольше сервиса
	var db *gorm.DB
	err = resilience.WithRetry(ctx, log, "connect_store", cfg.Resilience.StartupRetryOptions(), func(context.Context) error {
		var openErr error
		db, openErr = database.NewDB(cfg.Database, cfg.Postgres, log)
		return openErr
	})
	if err != nil {
		log.Fatal("Failed to connect to store", zap.Error(err))
	}
	log.Info("Store connection established")

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get SQL DB instance", zap.Error(err))
	}
	gracefulShutdown.AddShutdownFunc("store", func(context.Context) error {
		return sqlDB.Close()
	})

	// Redis необязателен: без него профили читаются из хранилища
	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis, cfg.Resilience.Redis.CommandTimeout)
		if err != nil {
			log.Warn("Redis unavailable, profile cache disabled", zap.Error(err), zap.String("addr", cfg.Redis.Addr))
			redisClient = nil
		} else {
			log.Info("Redis connection established")
			gracefulShutdown.AddShutdownFunc("redis", func(context.Context) error {
				return redisClient.Close()
			})
		}
	}

	healthChecker := database.NewDatabaseHealthChecker(db, redisClient, log, cfg.Resilience)
	healthChecker.OnStateChange(server.RecordCircuitBreakerStateChange)

	// Отказоустойчивые репозитории
	secretRepo := postgres.NewResilientSecretRepository(postgres.NewSecretRepository(db), healthChecker, log)
	voteLedger := postgres.NewResilientVoteLedger(postgres.NewVoteLedger(db), healthChecker, log)
	userRepo := postgres.NewResilientUserRepository(postgres.NewUserRepository(db), healthChecker, log)
	cacheRepo := redis.NewResilientCacheRepository(redisClient, healthChecker, log)

	limiter := ratelimit.New(cfg.RateLimit.Window, nil, log)
	go limiter.Run(ctx, cfg.RateLimit.SweepInterval)

	// Сервисы
	feed := service.NewFeedQuery(secretRepo, cfg.Feed)
	secretService := service.NewSecretService(secretRepo, voteLedger, limiter, feed, log)
	userService := service.NewUserService(userRepo, cacheRepo, log)
	adminService := service.NewAdminService(secretRepo, userService, cacheRepo, feed, log)

	if err := seed.NewDevEnvironmentSeeder(secretRepo, userService, log).SeedAllDevData(ctx, cfg.App.IsDevelopment()); err != nil {
		log.Warn("Dev seed failed", zap.Error(err))
	}

	// HTTP сервер для /health и /metrics
	healthCheck := server.NewHealthCheck(healthChecker, log, ServiceVersion, cfg.HTTP.CheckInterval)
	healthCheck.StartServer(cfg.HTTP.Port)
	gracefulShutdown.AddShutdownFunc("health", healthCheck.Stop)

	// gRPC сервер
	handler := grpc.NewTruthMeterHandler(secretService, userService, adminService, log)
	grpcServer := grpc.NewServer(handler, healthChecker, log, cfg.GRPC.Port)
	go grpcServer.MonitorHealth(ctx, cfg.HTTP.CheckInterval)
	go func() {
		if err := grpcServer.Run(); err != nil {
			log.Error("gRPC server stopped", zap.Error(err))
			gracefulShutdown.Shutdown()
		}
	}()
	gracefulShutdown.AddShutdownFunc("grpc", grpcServer.Stop)

	hostname, _ := os.Hostname()
	log.Info("Service started",
		zap.Int("grpc_port", cfg.GRPC.Port),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("redis_enabled", healthChecker.RedisEnabled()),
		zap.String("version", ServiceVersion),
		zap.Int("pid", os.Getpid()),
		zap.String("hostname", hostname))

	// Ожидаем сигнала остановки
	gracefulShutdown.Wait(ctx)
	log.Info("Service stopped")
}

package database

import (
	"context"
	"errors"
	"time"

	"TruthMeterService/config"
	"TruthMeterService/pkg/apperrors"
	"TruthMeterService/pkg/resilience"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthChecker проверяет хранилище и кэш и пропускает обращения к ним
// через circuit breaker. redisClient может быть nil, если кэш отключен.
type HealthChecker struct {
	db           *gorm.DB
	redisClient  *redis.Client
	logger       *zap.Logger
	pgCircuit    *resilience.CircuitBreaker
	redisCircuit *resilience.CircuitBreaker
	dbTimeout    time.Duration
	redisTimeout time.Duration
}

// NewDatabaseHealthChecker создает проверку состояния хранилища и кэша
func NewDatabaseHealthChecker(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger, cfg config.ResilienceConfig) *HealthChecker {
	failureThreshold, resetTimeout := cfg.BreakerOptions()

	return &HealthChecker{
		db:           db,
		redisClient:  redisClient,
		logger:       logger,
		pgCircuit:    resilience.NewCircuitBreaker("store", failureThreshold, resetTimeout, logger, apperrors.IgnoredErrors...),
		redisCircuit: resilience.NewCircuitBreaker("cache", failureThreshold, resetTimeout, logger, apperrors.IgnoredErrors...),
		dbTimeout:    cfg.Database.CommandTimeout,
		redisTimeout: cfg.Redis.CommandTimeout,
	}
}

// OnStateChange передает смены состояний обоих circuit breaker в fn
func (c *HealthChecker) OnStateChange(fn resilience.StateChangeFunc) {
	c.pgCircuit.OnStateChange(fn)
	c.redisCircuit.OnStateChange(fn)
}

// RedisEnabled сообщает, подключен ли кэш
func (c *HealthChecker) RedisEnabled() bool {
	return c.redisClient != nil
}

// IsDatabaseHealthy проверяет доступность хранилища
func (c *HealthChecker) IsDatabaseHealthy(ctx context.Context) bool {
	if c.db == nil {
		return false
	}

	var result int
	err := c.pgCircuit.Execute(ctx, "store_health_check", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	})

	return err == nil && result == 1
}

// IsRedisHealthy проверяет доступность Redis. Отключенный кэш считается нездоровым.
func (c *HealthChecker) IsRedisHealthy(ctx context.Context) bool {
	if c.redisClient == nil {
		return false
	}

	err := c.redisCircuit.Execute(ctx, "redis_health_check", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		return c.redisClient.Ping(ctx).Err()
	})

	return err == nil
}

// WithDatabaseResilience выполняет операцию хранилища через circuit breaker
// с таймаутом на одну операцию. Повторов нет: ошибка уходит вызывающему.
func (c *HealthChecker) WithDatabaseResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if c.dbTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dbTimeout)
		defer cancel()
	}

	err := c.pgCircuit.Execute(ctx, operation, fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.Storage(operation, err)
	}
	return err
}

// WithRedisResilience выполняет операцию с кэшем через circuit breaker
func (c *HealthChecker) WithRedisResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if c.redisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.redisTimeout)
		defer cancel()
	}

	err := c.redisCircuit.Execute(ctx, operation, fn)
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss, not a circuit breaker failure",
			zap.String("operation", operation))
	}
	return err
}

// SafeDBOperation выполняет операцию хранилища, логирует сбои и приводит
// их к ошибке вида Storage. Доменные ошибки проходят без изменений.
func SafeDBOperation(ctx context.Context, logger *zap.Logger, operation string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}

	if kind := apperrors.KindOf(err); kind != apperrors.KindStorage && kind != apperrors.KindUnknown {
		return err
	}

	logger.Error("Database operation failed",
		zap.String("operation", operation),
		zap.Error(err))

	if errors.Is(err, gorm.ErrInvalidTransaction) {
		logger.Error("Database transaction failed due to invalid transaction",
			zap.String("operation", operation))
	}

	return apperrors.Storage(operation, err)
}

// SafeRedisOperation выполняет операцию в Redis и логирует сбои
func SafeRedisOperation(ctx context.Context, client *redis.Client, logger *zap.Logger, operation string, fn func(ctx context.Context, client *redis.Client) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}

	err := fn(ctx, client)
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}

	logger.Error("Redis operation failed",
		zap.String("operation", operation),
		zap.Error(err))

	if errors.Is(err, context.DeadlineExceeded) {
		logger.Error("Redis operation timed out", zap.String("operation", operation))
	} else if errors.Is(err, redis.ErrClosed) {
		logger.Error("Redis connection closed", zap.String("operation", operation))
	}

	return err
}

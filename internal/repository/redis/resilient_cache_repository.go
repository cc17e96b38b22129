package redis

import (
	"context"
	"errors"
	"time"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"
	"TruthMeterService/pkg/database"
	"TruthMeterService/pkg/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Guard пропускает операцию кэша через circuit breaker (database.HealthChecker)
type Guard interface {
	WithRedisResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error
}

// ResilientCacheRepository добавляет механизмы отказоустойчивости к кэшу профилей.
// Ошибки записи и удаления только логируются: сервис работает и без кэша.
// Без клиента (Redis отключен) каждое чтение дает промах.
type ResilientCacheRepository struct {
	client *redis.Client
	repo   *CacheRepository
	guard  Guard
	logger *zap.Logger
}

// NewResilientCacheRepository создает новый экземпляр отказоустойчивого кэша профилей
func NewResilientCacheRepository(client *redis.Client, guard Guard, logger *zap.Logger) *ResilientCacheRepository {
	var repo *CacheRepository
	if client != nil {
		repo = NewCacheRepository(client)
	}
	return &ResilientCacheRepository{
		client: client,
		repo:   repo,
		guard:  guard,
		logger: logger,
	}
}

func (r *ResilientCacheRepository) enabled() bool {
	return r.repo != nil
}

// SetUser кэширует профиль пользователя
func (r *ResilientCacheRepository) SetUser(ctx context.Context, user *models.User) {
	if !r.enabled() {
		return
	}
	startTime := time.Now()

	err := r.guard.WithRedisResilience(ctx, "set_user_cache", func(ctx context.Context) error {
		return database.SafeRedisOperation(ctx, r.client, r.logger, "set_user_cache", func(ctx context.Context, _ *redis.Client) error {
			return r.repo.SetUser(ctx, user)
		})
	})

	if err != nil {
		server.RecordCacheOperation("set_user", time.Since(startTime), "error")
		r.logger.Warn("Failed to cache user, continuing without caching",
			zap.Error(err),
			zap.String("user_id", user.ID))
		return
	}
	server.RecordCacheOperation("set_user", time.Since(startTime), "success")
}

// GetUser получает профиль из кэша. Промах и сбой Redis возвращают
// apperrors.ErrCacheMiss: вызывающий идет в хранилище.
func (r *ResilientCacheRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !r.enabled() {
		return nil, apperrors.ErrCacheMiss
	}
	startTime := time.Now()

	var user *models.User
	err := r.guard.WithRedisResilience(ctx, "get_user_cache", func(ctx context.Context) error {
		return database.SafeRedisOperation(ctx, r.client, r.logger, "get_user_cache", func(ctx context.Context, _ *redis.Client) error {
			var opErr error
			user, opErr = r.repo.GetUser(ctx, id)
			return opErr
		})
	})

	switch {
	case err == nil:
		server.RecordCacheOperation("get_user", time.Since(startTime), "hit")
		return user, nil
	case errors.Is(err, redis.Nil):
		server.RecordCacheOperation("get_user", time.Since(startTime), "miss")
	default:
		server.RecordCacheOperation("get_user", time.Since(startTime), "error")
		r.logger.Warn("Cache read failed, falling back to store",
			zap.Error(err),
			zap.String("user_id", id))
	}
	return nil, apperrors.ErrCacheMiss
}

// DeleteUser удаляет профиль из кэша
func (r *ResilientCacheRepository) DeleteUser(ctx context.Context, id string) {
	if !r.enabled() {
		return
	}
	startTime := time.Now()

	err := r.guard.WithRedisResilience(ctx, "delete_user_cache", func(ctx context.Context) error {
		return database.SafeRedisOperation(ctx, r.client, r.logger, "delete_user_cache", func(ctx context.Context, _ *redis.Client) error {
			return r.repo.DeleteUser(ctx, id)
		})
	})

	if err != nil {
		server.RecordCacheOperation("delete_user", time.Since(startTime), "error")
		r.logger.Warn("Failed to delete user from cache",
			zap.Error(err),
			zap.String("user_id", id))
		return
	}
	server.RecordCacheOperation("delete_user", time.Since(startTime), "success")
}

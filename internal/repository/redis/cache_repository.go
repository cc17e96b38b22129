package redis

import (
	"context"
	"fmt"
	"time"

	"TruthMeterService/internal/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// userProfileTTL время жизни профиля в кэше
const userProfileTTL = 30 * time.Minute

// CacheRepository представляет репозиторий для работы с кэшем профилей в Redis
type CacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheRepository создает новый экземпляр CacheRepository
func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{
		client: client,
		ttl:    userProfileTTL,
	}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s:profile", id)
}

// SetUser кэширует профиль пользователя
func (r *CacheRepository) SetUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user.ToCached())
	if err != nil {
		return err
	}
	return r.client.Set(ctx, userKey(user.ID), data, r.ttl).Err()
}

// GetUser получает профиль из кэша. Отсутствие ключа дает redis.Nil.
func (r *CacheRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	data, err := r.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var cached models.CachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.ToUser(), nil
}

// DeleteUser удаляет профиль из кэша
func (r *CacheRepository) DeleteUser(ctx context.Context, id string) error {
	return r.client.Del(ctx, userKey(id)).Err()
}

package service

import (
	"context"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"go.uber.org/zap"
)

// AdminStoreInterface операции хранилища, доступные администратору
type AdminStoreInterface interface {
	ListUsersWithStats(ctx context.Context) ([]models.UserStats, error)
	Delete(ctx context.Context, secretID uint) (bool, error)
	DeleteUserCascade(ctx context.Context, userID string) (bool, error)
}

// AdminService административные операции над пользователями и секретами
type AdminService struct {
	store  AdminStoreInterface
	users  *UserService
	cache  CacheRepositoryInterface
	feed   *FeedQuery
	logger *zap.Logger
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(store AdminStoreInterface, users *UserService, cache CacheRepositoryInterface, feed *FeedQuery, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:  store,
		users:  users,
		cache:  cache,
		feed:   feed,
		logger: logger,
	}
}

// ListUsersWithStats возвращает пользователей с числом секретов, по нику без учета регистра
func (s *AdminService) ListUsersWithStats(ctx context.Context) ([]models.UserStats, error) {
	return s.store.ListUsersWithStats(ctx)
}

// DeleteUser удаляет пользователя вместе с его секретами. Удалить себя нельзя.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID string) (bool, error) {
	const op = "delete_user"

	if userID == "" {
		return false, apperrors.Validation(op, "user id is required")
	}
	if actorID == userID {
		return false, apperrors.Validation(op, "admins cannot delete their own account")
	}

	deleted, err := s.store.DeleteUserCascade(ctx, userID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.cache.DeleteUser(ctx, userID)
		s.logger.Info("User deleted",
			zap.String("user_id", userID),
			zap.String("actor_id", actorID))
	}
	return deleted, nil
}

// DeleteSecret удаляет секрет вместе с его голосами
func (s *AdminService) DeleteSecret(ctx context.Context, secretID uint) (bool, error) {
	deleted, err := s.store.Delete(ctx, secretID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("Secret deleted", zap.Uint("secret_id", secretID))
	}
	return deleted, nil
}

// ListAllSecrets возвращает ленту администратора, limit <= 0 означает значение по умолчанию
func (s *AdminService) ListAllSecrets(ctx context.Context, limit int) ([]models.SecretView, error) {
	return s.feed.Admin(ctx, limit)
}

// SetUserAdmin меняет роль пользователя. Снять роль с себя нельзя.
func (s *AdminService) SetUserAdmin(ctx context.Context, actorID, userID string, isAdmin bool) (bool, error) {
	if actorID == userID && !isAdmin {
		return false, apperrors.Validation("set_user_admin", "admins cannot revoke their own role")
	}
	return s.users.SetAdmin(ctx, userID, isAdmin)
}

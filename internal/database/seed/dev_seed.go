package seed

import (
	"context"
	"fmt"

	"TruthMeterService/internal/catalog"
	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"go.uber.org/zap"
)

const (
	// DevAdminNickname никнейм администратора среды разработки
	DevAdminNickname = "admin"
	// devAdminPasswordHash заглушка: хэши проверяет внешний слой аутентификации
	devAdminPasswordHash = "dev-admin-password-hash"
)

// SecretStore хранилище, которое заполняет сидер
type SecretStore interface {
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, authorID, category, content string) (uint, error)
}

// UserDirectory каталог пользователей
type UserDirectory interface {
	Register(ctx context.Context, nickname, passwordHash string, gender models.Gender, isAdmin bool) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
}

var devSecrets = map[string]string{
	catalog.Desire: "I still want to learn to play the cello",
	catalog.Family: "I never told my brother I broke his bike",
	catalog.Work:   "I deployed to production on a Friday evening",
	catalog.Health: "I skip leg day every single week",
	catalog.Other:  "I have never finished a crossword puzzle",
}

// DevEnvironmentSeeder обрабатывает заполнение тестовыми данными среды разработки
type DevEnvironmentSeeder struct {
	store  SecretStore
	users  UserDirectory
	logger *zap.Logger
}

// NewDevEnvironmentSeeder создает новый объект для заполнения тестовыми данными
func NewDevEnvironmentSeeder(store SecretStore, users UserDirectory, logger *zap.Logger) *DevEnvironmentSeeder {
	return &DevEnvironmentSeeder{
		store:  store,
		users:  users,
		logger: logger,
	}
}

// seedAdmin возвращает администратора, создавая его при отсутствии
func (s *DevEnvironmentSeeder) seedAdmin(ctx context.Context) (*models.User, error) {
	existing, err := s.users.GetByNickname(ctx, DevAdminNickname)
	if err == nil {
		s.logger.Info("Dev admin already exists", zap.String("user_id", existing.ID))
		return existing, nil
	}
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		return nil, err
	}

	admin, err := s.users.Register(ctx, DevAdminNickname, devAdminPasswordHash, models.GenderOther, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create dev admin: %w", err)
	}
	return admin, nil
}

// SeedAllDevData заполняет пустое хранилище: администратор и по секрету на категорию.
// Вне режима разработки ничего не делает.
func (s *DevEnvironmentSeeder) SeedAllDevData(ctx context.Context, development bool) error {
	if !development {
		s.logger.Debug("Not in development mode, skipping seed")
		return nil
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		s.logger.Info("Store is not empty, skipping seed", zap.Int64("secrets", count))
		return nil
	}

	admin, err := s.seedAdmin(ctx)
	if err != nil {
		s.logger.Error("Failed to seed dev admin", zap.Error(err))
		return err
	}

	for _, category := range catalog.All() {
		if _, err := s.store.Insert(ctx, admin.ID, category, devSecrets[category]); err != nil {
			s.logger.Error("Failed to seed secret", zap.Error(err), zap.String("category", category))
			return fmt.Errorf("failed to seed %s secret: %w", category, err)
		}
	}

	s.logger.Info("Dev data seeded",
		zap.String("admin_id", admin.ID),
		zap.Int("secrets", len(catalog.All())))
	return nil
}

package postgres

import (
	"context"
	"errors"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"gorm.io/gorm"
)

// UserRepository представляет репозиторий для работы с пользователями
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create сохраняет пользователя. Занятый нормализованный никнейм дает Conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const op = "create_user"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("nickname = ?", user.Nickname).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.Conflict(op, "nickname already taken")
		}
		return tx.Create(user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Параллельная регистрация с тем же никнеймом
		return apperrors.Conflict(op, "nickname already taken")
	}
	return apperrors.Storage(op, err)
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, apperrors.Storage("get_user_by_id", err)
	}
	return &user, nil
}

// GetByNickname ищет пользователя по нормализованному никнейму
func (r *UserRepository) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("nickname = ?", models.NormalizeNickname(nickname)).
		Take(&user).Error
	if err != nil {
		return nil, apperrors.Storage("get_user_by_nickname", err)
	}
	return &user, nil
}

// SetAdmin меняет флаг администратора. false, если пользователя нет.
func (r *UserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if res.Error != nil {
		return false, apperrors.Storage("set_user_admin", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdatePassword заменяет хэш пароля. false, если пользователя нет.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if res.Error != nil {
		return false, apperrors.Storage("update_password", res.Error)
	}
	return res.RowsAffected > 0, nil
}

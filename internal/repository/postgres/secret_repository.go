package postgres

import (
	"context"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"TruthMeterService/internal/catalog"
	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// secretViewColumns проекция секрета вместе с ником и полом автора
const secretViewColumns = `secrets.id, secrets.category, secrets.content, ` +
	`secrets."truthVotes", secrets."lieVotes", secrets.created_at, ` +
	`users.nickname_raw AS nickname, users.gender`

// SecretRepository хранилище секретов
type SecretRepository struct {
	db *gorm.DB
	// randN возвращает равномерное число из [0, n)
	randN func(n int64) int64
}

// NewSecretRepository создает новый экземпляр SecretRepository
func NewSecretRepository(db *gorm.DB) *SecretRepository {
	return &SecretRepository{
		db:    db,
		randN: rand.Int64N,
	}
}

// ValidateSecret проверяет категорию и длину уже обрезанного текста
func ValidateSecret(op, category, content string) error {
	if !catalog.IsMember(category) {
		return apperrors.Validation(op, "unknown category "+category)
	}
	n := utf8.RuneCountInString(content)
	if n < models.ContentMinLen || n > models.ContentMaxLen {
		return apperrors.Validation(op, "content must be 2-2000 characters")
	}
	return nil
}

// Insert сохраняет обрезанный текст секрета с нулевыми счетчиками и возвращает его id
func (r *SecretRepository) Insert(ctx context.Context, authorID, category, content string) (uint, error) {
	const op = "insert_secret"

	content = strings.TrimSpace(content)
	if err := ValidateSecret(op, category, content); err != nil {
		return 0, err
	}

	secret := models.Secret{
		UserID:   authorID,
		Category: category,
		Content:  content,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&secret).Error; err != nil {
		return 0, apperrors.Storage(op, err)
	}
	return secret.ID, nil
}

func (r *SecretRepository) viewQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("secrets").
		Select(secretViewColumns).
		Joins("JOIN users ON users.id = secrets.user_id")
}

// List возвращает до limit секретов, новые первыми. Пустая категория означает все.
func (r *SecretRepository) List(ctx context.Context, category string, limit int) ([]models.SecretView, error) {
	q := r.viewQuery(r.db.WithContext(ctx))
	if category != "" {
		q = q.Where("secrets.category = ?", category)
	}

	views := make([]models.SecretView, 0)
	err := q.Order("secrets.created_at DESC").
		Order("secrets.id DESC").
		Limit(limit).
		Scan(&views).Error
	if err != nil {
		return nil, apperrors.Storage("list_secrets", err)
	}
	return views, nil
}

// Random выбирает секрет равновероятно: count и случайное смещение в одной транзакции.
// На больших таблицах OFFSET линеен по k. При READ COMMITTED строка по смещению
// может исчезнуть между запросами, тогда берется первый секрет.
func (r *SecretRepository) Random(ctx context.Context) (*models.SecretView, error) {
	const op = "random_secret"

	var view models.SecretView
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total int64
		if err := tx.Model(&models.Secret{}).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 {
			return apperrors.NotFound(op, "no secrets yet")
		}

		pick := func(offset int) (int64, error) {
			res := r.viewQuery(tx).
				Order("secrets.id").
				Offset(offset).
				Limit(1).
				Scan(&view)
			return res.RowsAffected, res.Error
		}

		found, err := pick(int(r.randN(total)))
		if err != nil {
			return err
		}
		if found == 0 {
			if found, err = pick(0); err != nil {
				return err
			}
		}
		if found == 0 {
			return apperrors.NotFound(op, "no secrets yet")
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage(op, err)
	}
	return &view, nil
}

// Count число секретов
func (r *SecretRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Secret{}).Count(&total).Error; err != nil {
		return 0, apperrors.Storage("count_secrets", err)
	}
	return total, nil
}

// Delete удаляет секрет вместе с его голосами. false, если секрета не было.
func (r *SecretRepository) Delete(ctx context.Context, secretID uint) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("secret_id = ?", secretID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", secretID).Delete(&models.Secret{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, apperrors.Storage("delete_secret", err)
	}
	return deleted, nil
}

// DeleteUserCascade удаляет голоса за секреты пользователя, его секреты и его
// самого одной транзакцией. Голоса, которые пользователь отдал за чужие секреты, остаются.
func (r *SecretRepository) DeleteUserCascade(ctx context.Context, userID string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Secret{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("secret_id IN (?)", owned).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Secret{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", userID).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, apperrors.Storage("delete_user", err)
	}
	return deleted, nil
}

// ListUsersWithStats возвращает пользователей с числом их секретов,
// упорядоченных по отображаемому нику без учета регистра
func (r *SecretRepository) ListUsersWithStats(ctx context.Context) ([]models.UserStats, error) {
	stats := make([]models.UserStats, 0)
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.nickname_raw AS nickname, users.gender, users.is_admin, COUNT(secrets.id) AS secret_count").
		Joins("LEFT JOIN secrets ON secrets.user_id = users.id").
		Group("users.id, users.nickname_raw, users.gender, users.is_admin").
		Order("LOWER(users.nickname_raw)").
		Order("users.id").
		Scan(&stats).Error
	if err != nil {
		return nil, apperrors.Storage("list_users_with_stats", err)
	}
	return stats, nil
}

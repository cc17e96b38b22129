package service

import (
	"context"

	"TruthMeterService/config"
	"TruthMeterService/internal/catalog"
	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"
)

// SecretLister чтение ленты из хранилища секретов
type SecretLister interface {
	List(ctx context.Context, category string, limit int) ([]models.SecretView, error)
}

// FeedQuery лента секретов: проверка категории и ограничение размера выдачи
type FeedQuery struct {
	store         SecretLister
	publicLimit   int
	adminLimit    int
	adminMaxLimit int
}

// NewFeedQuery создает ленту с ограничениями из конфигурации
func NewFeedQuery(store SecretLister, cfg config.FeedConfig) *FeedQuery {
	return &FeedQuery{
		store:         store,
		publicLimit:   cfg.PublicLimit,
		adminLimit:    cfg.AdminLimit,
		adminMaxLimit: cfg.AdminMaxLimit,
	}
}

// Public возвращает публичную ленту, новые первыми. Пустая категория означает все.
func (f *FeedQuery) Public(ctx context.Context, category string) ([]models.SecretView, error) {
	if category != "" && !catalog.IsMember(category) {
		return nil, apperrors.Validation("list_secrets", "unknown category "+category)
	}
	return f.store.List(ctx, category, f.publicLimit)
}

// Admin возвращает ленту для администратора. limit <= 0 берет значение по
// умолчанию, большее значение ограничивается максимумом.
func (f *FeedQuery) Admin(ctx context.Context, limit int) ([]models.SecretView, error) {
	return f.store.List(ctx, "", f.AdminLimit(limit))
}

// AdminLimit приводит запрошенный размер выдачи к [1, adminMaxLimit]
func (f *FeedQuery) AdminLimit(limit int) int {
	switch {
	case limit <= 0:
		return f.adminLimit
	case limit > f.adminMaxLimit:
		return f.adminMaxLimit
	default:
		return limit
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"TruthMeterService/internal/catalog"
	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"
	"TruthMeterService/pkg/server"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SecretStoreInterface описывает хранилище секретов
type SecretStoreInterface interface {
	SecretLister
	Insert(ctx context.Context, authorID, category, content string) (uint, error)
	Random(ctx context.Context) (*models.SecretView, error)
}

// VoteLedgerInterface описывает журнал голосов
type VoteLedgerInterface interface {
	RecordVote(ctx context.Context, secretID uint, userID string, voteType models.VoteType) (models.Tally, bool, error)
	VoteFor(ctx context.Context, secretID uint, userID string) (models.VoteType, bool, error)
}

// PostLimiter ограничитель частоты публикаций
type PostLimiter interface {
	Allow(userID string, now time.Time) bool
	Window() time.Duration
}

// SecretService публикация, чтение и голосование за секреты
type SecretService struct {
	store    SecretStoreInterface
	ledger   VoteLedgerInterface
	limiter  PostLimiter
	feed     *FeedQuery
	validate *validator.Validate
	clock    func() time.Time
	logger   *zap.Logger
}

// NewSecretService создает новый экземпляр SecretService
func NewSecretService(store SecretStoreInterface, ledger VoteLedgerInterface, limiter PostLimiter, feed *FeedQuery, logger *zap.Logger) *SecretService {
	return &SecretService{
		store:    store,
		ledger:   ledger,
		limiter:  limiter,
		feed:     feed,
		validate: newValidator(),
		clock:    time.Now,
		logger:   logger,
	}
}

type createSecretInput struct {
	UserID   string `validate:"required"`
	Category string `validate:"category"`
	Content  string `validate:"content"`
}

// CreateSecret публикует секрет. Некорректный ввод отклоняется до проверки
// ограничителя и не расходует окно публикации. Окно отмечается до записи,
// поэтому ошибка хранилища после Allow окно расходует: повтор возможен через Window.
func (s *SecretService) CreateSecret(ctx context.Context, userID, category, content string) (uint, error) {
	const op = "create_secret"

	input := createSecretInput{UserID: userID, Category: category, Content: content}
	if err := validate(s.validate, op, input); err != nil {
		return 0, err
	}

	if !s.limiter.Allow(userID, s.clock()) {
		server.RecordPostThrottled()
		s.logger.Info("Post throttled", zap.String("user_id", userID))
		return 0, apperrors.RateLimited(op, "wait "+s.limiter.Window().String()+" between posts")
	}

	id, err := s.store.Insert(ctx, userID, category, content)
	if err != nil {
		s.logger.Error("Failed to create secret", zap.Error(err), zap.String("user_id", userID))
		return 0, err
	}

	server.RecordSecretCreated(category)
	s.logger.Info("Secret created",
		zap.Uint("secret_id", id),
		zap.String("category", category))
	return id, nil
}

// ListSecrets возвращает публичную ленту
func (s *SecretService) ListSecrets(ctx context.Context, category string) ([]models.SecretView, error) {
	return s.feed.Public(ctx, category)
}

// GetRandomSecret возвращает случайный секрет или NotFound на пустом хранилище
func (s *SecretService) GetRandomSecret(ctx context.Context) (*models.SecretView, error) {
	return s.store.Random(ctx)
}

type recordVoteInput struct {
	UserID   string `validate:"required"`
	VoteType string `validate:"votetype"`
}

// RecordVote голосует за секрет и возвращает счетчики. Повторный голос
// пользователя не ошибка: счетчики возвращаются без изменений.
func (s *SecretService) RecordVote(ctx context.Context, secretID uint, userID string, voteType models.VoteType) (models.Tally, error) {
	const op = "record_vote"

	input := recordVoteInput{UserID: userID, VoteType: string(voteType)}
	if err := validate(s.validate, op, input); err != nil {
		return models.Tally{}, err
	}
	if secretID == 0 {
		return models.Tally{}, apperrors.NotFound(op, "secret not found")
	}

	tally, recorded, err := s.ledger.RecordVote(ctx, secretID, userID, voteType)
	switch {
	case err == nil && recorded:
		server.RecordVote(string(voteType), "recorded")
	case err == nil:
		server.RecordVote(string(voteType), "duplicate")
		s.logger.Debug("Duplicate vote ignored",
			zap.Uint("secret_id", secretID),
			zap.String("user_id", userID))
	case errors.Is(err, apperrors.ErrNotFound):
		server.RecordVote(string(voteType), "not_found")
		return models.Tally{}, err
	default:
		server.RecordVote(string(voteType), "error")
		s.logger.Error("Failed to record vote", zap.Error(err), zap.Uint("secret_id", secretID))
		return models.Tally{}, err
	}
	return tally, nil
}

// VoteFor возвращает голос пользователя за секрет, если он есть
func (s *SecretService) VoteFor(ctx context.Context, secretID uint, userID string) (models.VoteType, bool, error) {
	return s.ledger.VoteFor(ctx, secretID, userID)
}

// ListCategories возвращает каталог категорий в фиксированном порядке
func (s *SecretService) ListCategories() []string {
	return catalog.All()
}

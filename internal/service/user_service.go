package service

import (
	"context"
	"strings"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRepositoryInterface описывает интерфейс для работы с репозиторием пользователей
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error)
}

// CacheRepositoryInterface описывает кэш профилей. Ошибки записи кэш
// поглощает сам, промах возвращается как apperrors.ErrCacheMiss.
type CacheRepositoryInterface interface {
	SetUser(ctx context.Context, user *models.User)
	GetUser(ctx context.Context, id string) (*models.User, error)
	DeleteUser(ctx context.Context, id string)
}

// UserService представляет сервис для работы с пользователями
type UserService struct {
	userRepo  UserRepositoryInterface
	cacheRepo CacheRepositoryInterface
	validate  *validator.Validate
	newID     func() string
	logger    *zap.Logger
}

// NewUserService создает новый экземпляр UserService
func NewUserService(userRepo UserRepositoryInterface, cacheRepo CacheRepositoryInterface, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo:  userRepo,
		cacheRepo: cacheRepo,
		validate:  newValidator(),
		newID:     uuid.NewString,
		logger:    logger,
	}
}

type registerInput struct {
	Nickname     string `validate:"nickname"`
	PasswordHash string `validate:"required"`
	Gender       string `validate:"gender"`
}

// Register создает пользователя. Хэш пароля вычисляет внешний слой.
func (s *UserService) Register(ctx context.Context, nickname, passwordHash string, gender models.Gender, isAdmin bool) (*models.User, error) {
	const op = "register_user"

	input := registerInput{Nickname: nickname, PasswordHash: passwordHash, Gender: string(gender)}
	if err := validate(s.validate, op, input); err != nil {
		return nil, err
	}

	display := strings.TrimSpace(nickname)
	user := &models.User{
		ID:           s.newID(),
		Nickname:     models.NormalizeNickname(display),
		NicknameRaw:  display,
		PasswordHash: passwordHash,
		Gender:       gender,
		IsAdmin:      isAdmin,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if apperrors.KindOf(err) != apperrors.KindConflict {
			s.logger.Error("Failed to create user", zap.Error(err), zap.String("nickname", display))
		}
		return nil, err
	}

	s.cacheRepo.SetUser(ctx, user)

	s.logger.Info("User created", zap.String("user_id", user.ID), zap.Bool("is_admin", isAdmin))
	return user, nil
}

// GetByID получает пользователя по ID, сначала из кэша
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.cacheRepo.GetUser(ctx, id)
	if err == nil {
		s.logger.Debug("User retrieved from cache", zap.String("user_id", id))
		return user, nil
	}

	user, err = s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheRepo.SetUser(ctx, user)
	return user, nil
}

// GetByNickname ищет пользователя по никнейму без учета регистра и пробелов по краям
func (s *UserService) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	if strings.TrimSpace(nickname) == "" {
		return nil, apperrors.Validation("get_user_by_nickname", "nickname is required")
	}
	return s.userRepo.GetByNickname(ctx, nickname)
}

// SetAdmin меняет роль пользователя и сбрасывает его профиль в кэше
func (s *UserService) SetAdmin(ctx context.Context, id string, isAdmin bool) (bool, error) {
	ok, err := s.userRepo.SetAdmin(ctx, id, isAdmin)
	if err != nil {
		return false, err
	}
	if ok {
		s.cacheRepo.DeleteUser(ctx, id)
		s.logger.Info("User role changed", zap.String("user_id", id), zap.Bool("is_admin", isAdmin))
	}
	return ok, nil
}

// UpdatePassword заменяет хэш пароля и сбрасывает профиль в кэше
func (s *UserService) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	if passwordHash == "" {
		return false, apperrors.Validation("update_password", "password hash is required")
	}
	ok, err := s.userRepo.UpdatePassword(ctx, id, passwordHash)
	if err != nil {
		return false, err
	}
	if ok {
		s.cacheRepo.DeleteUser(ctx, id)
	}
	return ok, nil
}

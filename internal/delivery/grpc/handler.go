package grpc

import (
	"context"
	"errors"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"
	"TruthMeterService/pkg/resilience"
	"TruthMeterService/pkg/server"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SecretServiceInterface операции с секретами, доступные транспорту
type SecretServiceInterface interface {
	CreateSecret(ctx context.Context, userID, category, content string) (uint, error)
	ListSecrets(ctx context.Context, category string) ([]models.SecretView, error)
	GetRandomSecret(ctx context.Context) (*models.SecretView, error)
	RecordVote(ctx context.Context, secretID uint, userID string, voteType models.VoteType) (models.Tally, error)
	ListCategories() []string
}

// UserServiceInterface операции с пользователями
type UserServiceInterface interface {
	Register(ctx context.Context, nickname, passwordHash string, gender models.Gender, isAdmin bool) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByNickname(ctx context.Context, nickname string) (*models.User, error)
}

// AdminServiceInterface административные операции
type AdminServiceInterface interface {
	ListUsersWithStats(ctx context.Context) ([]models.UserStats, error)
	DeleteUser(ctx context.Context, actorID, userID string) (bool, error)
	DeleteSecret(ctx context.Context, secretID uint) (bool, error)
	ListAllSecrets(ctx context.Context, limit int) ([]models.SecretView, error)
	SetUserAdmin(ctx context.Context, actorID, userID string, isAdmin bool) (bool, error)
}

// TruthMeterHandler представляет обработчик gRPC запросов
type TruthMeterHandler struct {
	secrets SecretServiceInterface
	users   UserServiceInterface
	admin   AdminServiceInterface
	logger  *zap.Logger
}

// NewTruthMeterHandler создает новый экземпляр TruthMeterHandler
func NewTruthMeterHandler(secrets SecretServiceInterface, users UserServiceInterface, admin AdminServiceInterface, logger *zap.Logger) *TruthMeterHandler {
	return &TruthMeterHandler{
		secrets: secrets,
		users:   users,
		admin:   admin,
		logger:  logger,
	}
}

// toStatus переводит ошибку ядра в gRPC статус. Детали ошибок хранилища
// наружу не отдаются.
func toStatus(err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperrors.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperrors.KindRateLimited:
		return status.Error(codes.ResourceExhausted, err.Error())
	case apperrors.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return status.Error(codes.Unavailable, "store temporarily unavailable")
	}
	return status.Error(codes.Internal, "internal error")
}

func (h *TruthMeterHandler) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	if code := status.Code(st); code == codes.Internal || code == codes.Unavailable {
		server.WithRequestID(ctx, h.logger).Error("Request failed",
			zap.String("method", method),
			zap.Error(err))
	}
	return st
}

// requireAdmin проверяет, что actorID принадлежит администратору
func (h *TruthMeterHandler) requireAdmin(ctx context.Context, method, actorID string) error {
	if actorID == "" {
		return status.Error(codes.Unauthenticated, "actor id is required")
	}
	actor, err := h.users.GetByID(ctx, actorID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return status.Error(codes.PermissionDenied, "admin role required")
		}
		return h.fail(ctx, method, err)
	}
	if !actor.IsAdmin {
		return status.Error(codes.PermissionDenied, "admin role required")
	}
	return nil
}

// CreateSecret публикует секрет
func (h *TruthMeterHandler) CreateSecret(ctx context.Context, req *CreateSecretRequest) (*CreateSecretResponse, error) {
	id, err := h.secrets.CreateSecret(ctx, req.UserID, req.Category, req.Content)
	if err != nil {
		return nil, h.fail(ctx, "CreateSecret", err)
	}
	return &CreateSecretResponse{ID: id}, nil
}

// ListSecrets возвращает публичную ленту
func (h *TruthMeterHandler) ListSecrets(ctx context.Context, req *ListSecretsRequest) (*SecretsResponse, error) {
	views, err := h.secrets.ListSecrets(ctx, req.Category)
	if err != nil {
		return nil, h.fail(ctx, "ListSecrets", err)
	}
	return &SecretsResponse{Secrets: views}, nil
}

// GetRandomSecret возвращает случайный секрет
func (h *TruthMeterHandler) GetRandomSecret(ctx context.Context, _ *GetRandomSecretRequest) (*SecretResponse, error) {
	view, err := h.secrets.GetRandomSecret(ctx)
	if err != nil {
		return nil, h.fail(ctx, "GetRandomSecret", err)
	}
	return &SecretResponse{Secret: *view}, nil
}

// RecordVote голосует за секрет
func (h *TruthMeterHandler) RecordVote(ctx context.Context, req *RecordVoteRequest) (*TallyResponse, error) {
	tally, err := h.secrets.RecordVote(ctx, req.SecretID, req.UserID, models.VoteType(req.VoteType))
	if err != nil {
		return nil, h.fail(ctx, "RecordVote", err)
	}
	return &TallyResponse{TruthVotes: tally.TruthVotes, LieVotes: tally.LieVotes}, nil
}

// ListCategories возвращает каталог категорий
func (h *TruthMeterHandler) ListCategories(_ context.Context, _ *ListCategoriesRequest) (*CategoriesResponse, error) {
	return &CategoriesResponse{Categories: h.secrets.ListCategories()}, nil
}

// RegisterUser регистрирует пользователя
func (h *TruthMeterHandler) RegisterUser(ctx context.Context, req *RegisterUserRequest) (*UserResponse, error) {
	user, err := h.users.Register(ctx, req.Nickname, req.PasswordHash, models.Gender(req.Gender), req.IsAdmin)
	if err != nil {
		return nil, h.fail(ctx, "RegisterUser", err)
	}
	return toUserResponse(user, false), nil
}

// GetUserByNickname ищет пользователя для внешнего входа
func (h *TruthMeterHandler) GetUserByNickname(ctx context.Context, req *GetUserByNicknameRequest) (*UserResponse, error) {
	user, err := h.users.GetByNickname(ctx, req.Nickname)
	if err != nil {
		return nil, h.fail(ctx, "GetUserByNickname", err)
	}
	return toUserResponse(user, true), nil
}

// ListUsersWithStats возвращает пользователей с числом секретов
func (h *TruthMeterHandler) ListUsersWithStats(ctx context.Context, req *ListUsersWithStatsRequest) (*UsersResponse, error) {
	if err := h.requireAdmin(ctx, "ListUsersWithStats", req.ActorID); err != nil {
		return nil, err
	}
	stats, err := h.admin.ListUsersWithStats(ctx)
	if err != nil {
		return nil, h.fail(ctx, "ListUsersWithStats", err)
	}
	return &UsersResponse{Users: stats}, nil
}

// SetUserAdmin меняет роль пользователя
func (h *TruthMeterHandler) SetUserAdmin(ctx context.Context, req *SetUserAdminRequest) (*SimpleResponse, error) {
	if err := h.requireAdmin(ctx, "SetUserAdmin", req.ActorID); err != nil {
		return nil, err
	}
	ok, err := h.admin.SetUserAdmin(ctx, req.ActorID, req.UserID, req.IsAdmin)
	if err != nil {
		return nil, h.fail(ctx, "SetUserAdmin", err)
	}
	if !ok {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return &SimpleResponse{Success: true}, nil
}

// DeleteUser удаляет пользователя и его секреты
func (h *TruthMeterHandler) DeleteUser(ctx context.Context, req *DeleteUserRequest) (*SimpleResponse, error) {
	if err := h.requireAdmin(ctx, "DeleteUser", req.ActorID); err != nil {
		return nil, err
	}
	deleted, err := h.admin.DeleteUser(ctx, req.ActorID, req.UserID)
	if err != nil {
		return nil, h.fail(ctx, "DeleteUser", err)
	}
	if !deleted {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return &SimpleResponse{Success: true}, nil
}

// DeleteSecret удаляет секрет
func (h *TruthMeterHandler) DeleteSecret(ctx context.Context, req *DeleteSecretRequest) (*SimpleResponse, error) {
	if err := h.requireAdmin(ctx, "DeleteSecret", req.ActorID); err != nil {
		return nil, err
	}
	deleted, err := h.admin.DeleteSecret(ctx, req.SecretID)
	if err != nil {
		return nil, h.fail(ctx, "DeleteSecret", err)
	}
	if !deleted {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &SimpleResponse{Success: true}, nil
}

// ListAllSecrets возвращает ленту администратора
func (h *TruthMeterHandler) ListAllSecrets(ctx context.Context, req *ListAllSecretsRequest) (*SecretsResponse, error) {
	if err := h.requireAdmin(ctx, "ListAllSecrets", req.ActorID); err != nil {
		return nil, err
	}
	views, err := h.admin.ListAllSecrets(ctx, req.Limit)
	if err != nil {
		return nil, h.fail(ctx, "ListAllSecrets", err)
	}
	return &SecretsResponse{Secrets: views}, nil
}

func toUserResponse(user *models.User, withHash bool) *UserResponse {
	resp := &UserResponse{
		ID:       user.ID,
		Nickname: user.NicknameRaw,
		Gender:   string(user.Gender),
		IsAdmin:  user.IsAdmin,
	}
	if withHash {
		resp.PasswordHash = user.PasswordHash
	}
	return resp
}

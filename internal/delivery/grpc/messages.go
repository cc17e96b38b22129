package grpc

import "TruthMeterService/internal/models"

type CreateSecretRequest struct {
	UserID   string `json:"userId"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

type CreateSecretResponse struct {
	ID uint `json:"id"`
}

type ListSecretsRequest struct {
	Category string `json:"category,omitempty"`
}

type SecretsResponse struct {
	Secrets []models.SecretView `json:"secrets"`
}

type GetRandomSecretRequest struct{}

type SecretResponse struct {
	Secret models.SecretView `json:"secret"`
}

type RecordVoteRequest struct {
	SecretID uint   `json:"secretId"`
	UserID   string `json:"userId"`
	VoteType string `json:"voteType"`
}

type TallyResponse struct {
	TruthVotes int64 `json:"truthVotes"`
	LieVotes   int64 `json:"lieVotes"`
}

type ListCategoriesRequest struct{}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type RegisterUserRequest struct {
	Nickname     string `json:"nickname"`
	PasswordHash string `json:"passwordHash"`
	Gender       string `json:"gender"`
	IsAdmin      bool   `json:"isAdmin"`
}

type GetUserByNicknameRequest struct {
	Nickname string `json:"nickname"`
}

// UserResponse профиль пользователя. Хэш пароля отдается внешнему слою
// аутентификации для проверки входа.
type UserResponse struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	Gender       string `json:"gender"`
	IsAdmin      bool   `json:"isAdmin"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

type ListUsersWithStatsRequest struct {
	ActorID string `json:"actorId"`
}

type UsersResponse struct {
	Users []models.UserStats `json:"users"`
}

type SetUserAdminRequest struct {
	ActorID string `json:"actorId"`
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

type DeleteUserRequest struct {
	ActorID string `json:"actorId"`
	UserID  string `json:"userId"`
}

type DeleteSecretRequest struct {
	ActorID  string `json:"actorId"`
	SecretID uint   `json:"secretId"`
}

type ListAllSecretsRequest struct {
	ActorID string `json:"actorId"`
	Limit   int    `json:"limit,omitempty"`
}

// SimpleResponse ответ на изменяющие административные вызовы
type SimpleResponse struct {
	Success bool `json:"success"`
}

package postgres

import (
	"context"
	"time"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"
	"TruthMeterService/pkg/database"
	"TruthMeterService/pkg/server"

	"go.uber.org/zap"
)

// Guard пропускает операцию хранилища через circuit breaker (database.HealthChecker)
type Guard interface {
	WithDatabaseResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error
}

// guarded выполняет операцию через Guard, логирует сбои и пишет метрику
func guarded(ctx context.Context, guard Guard, logger *zap.Logger, operation string, fn func(ctx context.Context) error) error {
	startTime := time.Now()

	err := guard.WithDatabaseResilience(ctx, operation, func(ctx context.Context) error {
		return database.SafeDBOperation(ctx, logger, operation, fn)
	})

	var metricErr error
	if apperrors.KindOf(err) == apperrors.KindStorage || apperrors.KindOf(err) == apperrors.KindUnknown {
		metricErr = err
	}
	server.RecordDBOperation(operation, time.Since(startTime), metricErr)

	return err
}

// ResilientSecretRepository SecretRepository с circuit breaker и метриками
type ResilientSecretRepository struct {
	repo   *SecretRepository
	guard  Guard
	logger *zap.Logger
}

// NewResilientSecretRepository создает отказоустойчивое хранилище секретов
func NewResilientSecretRepository(repo *SecretRepository, guard Guard, logger *zap.Logger) *ResilientSecretRepository {
	return &ResilientSecretRepository{repo: repo, guard: guard, logger: logger}
}

func (r *ResilientSecretRepository) Insert(ctx context.Context, authorID, category, content string) (uint, error) {
	var id uint
	err := guarded(ctx, r.guard, r.logger, "insert_secret", func(ctx context.Context) error {
		var err error
		id, err = r.repo.Insert(ctx, authorID, category, content)
		return err
	})
	return id, err
}

func (r *ResilientSecretRepository) List(ctx context.Context, category string, limit int) ([]models.SecretView, error) {
	var views []models.SecretView
	err := guarded(ctx, r.guard, r.logger, "list_secrets", func(ctx context.Context) error {
		var err error
		views, err = r.repo.List(ctx, category, limit)
		return err
	})
	return views, err
}

func (r *ResilientSecretRepository) Random(ctx context.Context) (*models.SecretView, error) {
	var view *models.SecretView
	err := guarded(ctx, r.guard, r.logger, "random_secret", func(ctx context.Context) error {
		var err error
		view, err = r.repo.Random(ctx)
		return err
	})
	return view, err
}

func (r *ResilientSecretRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := guarded(ctx, r.guard, r.logger, "count_secrets", func(ctx context.Context) error {
		var err error
		total, err = r.repo.Count(ctx)
		return err
	})
	return total, err
}

func (r *ResilientSecretRepository) Delete(ctx context.Context, secretID uint) (bool, error) {
	var deleted bool
	err := guarded(ctx, r.guard, r.logger, "delete_secret", func(ctx context.Context) error {
		var err error
		deleted, err = r.repo.Delete(ctx, secretID)
		return err
	})
	return deleted, err
}

func (r *ResilientSecretRepository) DeleteUserCascade(ctx context.Context, userID string) (bool, error) {
	var deleted bool
	err := guarded(ctx, r.guard, r.logger, "delete_user", func(ctx context.Context) error {
		var err error
		deleted, err = r.repo.DeleteUserCascade(ctx, userID)
		return err
	})
	return deleted, err
}

func (r *ResilientSecretRepository) ListUsersWithStats(ctx context.Context) ([]models.UserStats, error) {
	var stats []models.UserStats
	err := guarded(ctx, r.guard, r.logger, "list_users_with_stats", func(ctx context.Context) error {
		var err error
		stats, err = r.repo.ListUsersWithStats(ctx)
		return err
	})
	return stats, err
}

// ResilientVoteLedger VoteLedger с circuit breaker и метриками. Голос не повторяется
// автоматически: после сбоя вызывающий сам решает, голосовать ли снова.
type ResilientVoteLedger struct {
	ledger *VoteLedger
	guard  Guard
	logger *zap.Logger
}

// NewResilientVoteLedger создает отказоустойчивый журнал голосов
func NewResilientVoteLedger(ledger *VoteLedger, guard Guard, logger *zap.Logger) *ResilientVoteLedger {
	return &ResilientVoteLedger{ledger: ledger, guard: guard, logger: logger}
}

func (r *ResilientVoteLedger) RecordVote(ctx context.Context, secretID uint, userID string, voteType models.VoteType) (models.Tally, bool, error) {
	var (
		tally    models.Tally
		recorded bool
	)
	err := guarded(ctx, r.guard, r.logger, "record_vote", func(ctx context.Context) error {
		var err error
		tally, recorded, err = r.ledger.RecordVote(ctx, secretID, userID, voteType)
		return err
	})
	return tally, recorded, err
}

func (r *ResilientVoteLedger) VoteFor(ctx context.Context, secretID uint, userID string) (models.VoteType, bool, error) {
	var (
		voteType models.VoteType
		found    bool
	)
	err := guarded(ctx, r.guard, r.logger, "vote_for", func(ctx context.Context) error {
		var err error
		voteType, found, err = r.ledger.VoteFor(ctx, secretID, userID)
		return err
	})
	return voteType, found, err
}

// ResilientUserRepository UserRepository с circuit breaker и метриками
type ResilientUserRepository struct {
	repo   *UserRepository
	guard  Guard
	logger *zap.Logger
}

// NewResilientUserRepository создает отказоустойчивый репозиторий пользователей
func NewResilientUserRepository(repo *UserRepository, guard Guard, logger *zap.Logger) *ResilientUserRepository {
	return &ResilientUserRepository{repo: repo, guard: guard, logger: logger}
}

func (r *ResilientUserRepository) Create(ctx context.Context, user *models.User) error {
	return guarded(ctx, r.guard, r.logger, "create_user", func(ctx context.Context) error {
		return r.repo.Create(ctx, user)
	})
}

func (r *ResilientUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := guarded(ctx, r.guard, r.logger, "get_user_by_id", func(ctx context.Context) error {
		var err error
		user, err = r.repo.GetByID(ctx, id)
		return err
	})
	return user, err
}

func (r *ResilientUserRepository) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	var user *models.User
	err := guarded(ctx, r.guard, r.logger, "get_user_by_nickname", func(ctx context.Context) error {
		var err error
		user, err = r.repo.GetByNickname(ctx, nickname)
		return err
	})
	return user, err
}

func (r *ResilientUserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) (bool, error) {
	var ok bool
	err := guarded(ctx, r.guard, r.logger, "set_user_admin", func(ctx context.Context) error {
		var err error
		ok, err = r.repo.SetAdmin(ctx, id, isAdmin)
		return err
	})
	return ok, err
}

func (r *ResilientUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	var ok bool
	err := guarded(ctx, r.guard, r.logger, "update_password", func(ctx context.Context) error {
		var err error
		ok, err = r.repo.UpdatePassword(ctx, id, passwordHash)
		return err
	})
	return ok, err
}

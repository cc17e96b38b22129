package postgres

import (
	"context"
	"errors"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	insertVoteSQL = `INSERT INTO truth_meter_votes (secret_id, user_id, vote_type) VALUES (?, ?, ?) ` +
		`ON CONFLICT (secret_id, user_id) DO NOTHING`
	incrementTruthSQL = `UPDATE secrets SET "truthVotes" = "truthVotes" + 1 WHERE id = ?`
	incrementLieSQL   = `UPDATE secrets SET "lieVotes" = "lieVotes" + 1 WHERE id = ?`
	selectTallySQL    = `SELECT "truthVotes", "lieVotes" FROM secrets WHERE id = ?`
)

// VoteLedger журнал голосов «правда или ложь». Первичный ключ
// (secret_id, user_id) пропускает только первый голос пользователя,
// счетчик увеличивается относительно текущего значения в той же транзакции.
type VoteLedger struct {
	db *gorm.DB
}

// NewVoteLedger создает новый экземпляр VoteLedger
func NewVoteLedger(db *gorm.DB) *VoteLedger {
	return &VoteLedger{db: db}
}

// RecordVote записывает голос и возвращает счетчики после него. Повторный
// голос ничего не меняет и возвращает текущие счетчики с recorded=false.
func (l *VoteLedger) RecordVote(ctx context.Context, secretID uint, userID string, voteType models.VoteType) (tally models.Tally, recorded bool, err error) {
	const op = "record_vote"

	if !voteType.Valid() {
		return models.Tally{}, false, apperrors.Validation(op, "vote type must be truth or lie")
	}

	increment := incrementTruthSQL
	if voteType == models.VoteLie {
		increment = incrementLieSQL
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(insertVoteSQL, secretID, userID, string(voteType))
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 1 {
			upd := tx.Exec(increment, secretID)
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				// Строка журнала откатывается вместе с транзакцией
				return apperrors.NotFound(op, "secret not found")
			}
			recorded = true
		}

		sel := tx.Raw(selectTallySQL, secretID).Scan(&tally)
		if sel.Error != nil {
			return sel.Error
		}
		if sel.RowsAffected == 0 {
			return apperrors.NotFound(op, "secret not found")
		}
		return nil
	})
	if err != nil {
		return models.Tally{}, false, apperrors.Storage(op, err)
	}
	return tally, recorded, nil
}

// VoteFor возвращает голос пользователя за секрет, если он есть
func (l *VoteLedger) VoteFor(ctx context.Context, secretID uint, userID string) (models.VoteType, bool, error) {
	var vote models.Vote
	err := l.db.WithContext(ctx).
		Where("secret_id = ? AND user_id = ?", secretID, userID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Storage("vote_for", err)
	}
	return vote.VoteType, true, nil
}

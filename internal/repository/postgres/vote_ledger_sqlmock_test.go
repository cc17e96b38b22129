package postgres

import (
	"context"
	"errors"
	"log"
	"os"
	"regexp"
	"testing"
	"time"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB создает gorm поверх sqlmock с диалектом PostgreSQL
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 mockDB,
		PreferSimpleProtocol: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger})
	if err != nil {
		t.Fatalf("Failed to open gorm: %v", err)
	}
	return db, mock
}

var (
	insertVotePattern  = regexp.QuoteMeta(`INSERT INTO truth_meter_votes (secret_id, user_id, vote_type) VALUES ($1, $2, $3) ON CONFLICT (secret_id, user_id) DO NOTHING`)
	incrementTruthPat  = regexp.QuoteMeta(`UPDATE secrets SET "truthVotes" = "truthVotes" + 1 WHERE id = $1`)
	incrementLiePat    = regexp.QuoteMeta(`UPDATE secrets SET "lieVotes" = "lieVotes" + 1 WHERE id = $1`)
	selectTallyPattern = regexp.QuoteMeta(`SELECT "truthVotes", "lieVotes" FROM secrets WHERE id = $1`)
)

func tallyRows(truth, lie int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"truthVotes", "lieVotes"}).AddRow(truth, lie)
}

func TestVoteLedger_RecordVote_SQL(t *testing.T) {
	ctx := context.Background()

	t.Run("NewTruthVote", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertVotePattern).WithArgs(7, "u1", "truth").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(incrementTruthPat).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(selectTallyPattern).WithArgs(7).WillReturnRows(tallyRows(1, 0))
		mock.ExpectCommit()

		tally, recorded, err := ledger.RecordVote(ctx, 7, "u1", models.VoteTruth)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !recorded || tally != (models.Tally{TruthVotes: 1, LieVotes: 0}) {
			t.Errorf("Unexpected result: %+v recorded=%v", tally, recorded)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("NewLieVoteTouchesLieColumn", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertVotePattern).WithArgs(7, "u2", "lie").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(incrementLiePat).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(selectTallyPattern).WithArgs(7).WillReturnRows(tallyRows(1, 1))
		mock.ExpectCommit()

		tally, _, err := ledger.RecordVote(ctx, 7, "u2", models.VoteLie)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if tally != (models.Tally{TruthVotes: 1, LieVotes: 1}) {
			t.Errorf("Unexpected tally: %+v", tally)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("DuplicateSkipsIncrement", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertVotePattern).WithArgs(7, "u1", "lie").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectTallyPattern).WithArgs(7).WillReturnRows(tallyRows(1, 0))
		mock.ExpectCommit()

		tally, recorded, err := ledger.RecordVote(ctx, 7, "u1", models.VoteLie)
		if err != nil {
			t.Fatalf("Duplicate vote must not be an error, got %v", err)
		}
		if recorded {
			t.Error("Duplicate vote must not be recorded")
		}
		if tally != (models.Tally{TruthVotes: 1, LieVotes: 0}) {
			t.Errorf("Expected unchanged tally, got %+v", tally)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("MissingSecretRollsBack", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertVotePattern).WithArgs(99, "u1", "truth").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(incrementTruthPat).WithArgs(99).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, _, err := ledger.RecordVote(ctx, 99, "u1", models.VoteTruth)
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("Expected NotFound, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("MissingSecretOnDuplicatePath", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertVotePattern).WithArgs(99, "u1", "truth").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectTallyPattern).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"truthVotes", "lieVotes"}))
		mock.ExpectRollback()

		_, _, err := ledger.RecordVote(ctx, 99, "u1", models.VoteTruth)
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("Expected NotFound, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("StorageErrorRollsBack", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		mock.ExpectBegin()
		mock.ExpectExec(insertVotePattern).WithArgs(7, "u1", "truth").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(incrementTruthPat).WithArgs(7).WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		_, _, err := ledger.RecordVote(ctx, 7, "u1", models.VoteTruth)
		if !errors.Is(err, apperrors.ErrStorage) {
			t.Fatalf("Expected storage error, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("InvalidVoteTypeTouchesNothing", func(t *testing.T) {
		db, mock := setupTestDB(t)
		ledger := NewVoteLedger(db)

		_, _, err := ledger.RecordVote(ctx, 7, "u1", models.VoteType("maybe"))
		if !errors.Is(err, apperrors.ErrValidation) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Expected no SQL, got: %v", err)
		}
	})
}

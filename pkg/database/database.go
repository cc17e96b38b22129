package database

import (
	"fmt"
	"strings"
	"time"

	"TruthMeterService/config"
	"TruthMeterService/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// NewDB открывает хранилище по настройкам и выполняет миграции.
// URL с префиксом sqlite:// открывает локальный файл SQLite,
// postgres:// или пустой URL ведут в PostgreSQL.
func NewDB(dbCfg config.DatabaseConfig, pgCfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, isSQLite, err := dialectorFor(dbCfg.URL, pgCfg)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if isSQLite {
		// SQLite допускает одного писателя: транзакции выполняются по очереди
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Migrate создает таблицы users, secrets и truth_meter_votes с индексами
// idx_secrets_created_at и idx_secrets_category
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Secret{},
		&models.Vote{},
	)
}

func dialectorFor(url string, pgCfg config.PostgresConfig) (gorm.Dialector, bool, error) {
	switch {
	case url == "":
		return postgres.Open(pgCfg.DSN()), false, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), false, nil
	case strings.HasPrefix(url, sqlitePrefix):
		return sqlite.Open(sqliteDSN(strings.TrimPrefix(url, sqlitePrefix))), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported database url %q: must start with postgres:// or sqlite://", url)
	}
}

// sqliteDSN добавляет pragma для ожидания блокировки и внешних ключей
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

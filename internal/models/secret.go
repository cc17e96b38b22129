package models

import (
	"time"
)

// VoteType вариант голоса «правда или ложь»
type VoteType string

const (
	VoteTruth VoteType = "truth"
	VoteLie   VoteType = "lie"
)

// Valid сообщает, допустим ли тип голоса
func (v VoteType) Valid() bool {
	return v == VoteTruth || v == VoteLie
}

// Column возвращает колонку счетчика в таблице secrets
func (v VoteType) Column() string {
	if v == VoteLie {
		return "lieVotes"
	}
	return "truthVotes"
}

// Secret анонимная запись пользователя. Счетчики меняет только журнал голосов.
type Secret struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	UserID     string    `gorm:"type:varchar(36);not null"`
	Author     *User     `gorm:"foreignKey:UserID;references:ID"`
	Category   string    `gorm:"not null;index:idx_secrets_category"`
	Content    string    `gorm:"type:text;not null"`
	TruthVotes int64     `gorm:"column:truthVotes;not null;default:0"`
	LieVotes   int64     `gorm:"column:lieVotes;not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_secrets_created_at,sort:desc"`
}

// Vote строка журнала голосов: не более одной на пару (секрет, пользователь)
type Vote struct {
	SecretID uint     `gorm:"primaryKey;autoIncrement:false"`
	UserID   string   `gorm:"primaryKey;type:varchar(36)"`
	VoteType VoteType `gorm:"type:varchar(8);not null;check:chk_truth_meter_votes_type,vote_type IN ('truth','lie')"`
}

// TableName фиксирует имя таблицы журнала
func (Vote) TableName() string {
	return "truth_meter_votes"
}

// Tally счетчики голосов секрета
type Tally struct {
	TruthVotes int64 `json:"truthVotes" gorm:"column:truthVotes"`
	LieVotes   int64 `json:"lieVotes" gorm:"column:lieVotes"`
}

// SecretView секрет вместе с отображаемым ником и полом автора
type SecretView struct {
	ID         uint      `json:"id"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	TruthVotes int64     `json:"truthVotes" gorm:"column:truthVotes"`
	LieVotes   int64     `json:"lieVotes" gorm:"column:lieVotes"`
	CreatedAt  time.Time `json:"created_at"`
	Nickname   string    `json:"nickname"`
	Gender     string    `json:"gender"`
}

const (
	// ContentMinLen и ContentMaxLen границы длины текста секрета в символах после trim
	ContentMinLen = 2
	ContentMaxLen = 2000
)

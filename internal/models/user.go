package models

import "strings"

// Gender допустимые значения пола
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid сообщает, допустимо ли значение пола
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User зарегистрированный автор секретов. Nickname хранится нормализованным
// (без пробелов по краям, в нижнем регистре), NicknameRaw для отображения.
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Nickname     string `gorm:"uniqueIndex;not null" json:"-"`
	NicknameRaw  string `gorm:"not null" json:"nickname"`
	PasswordHash string `gorm:"not null" json:"-"`
	Gender       Gender `gorm:"type:varchar(8);not null;check:chk_users_gender,gender IN ('male','female','other')" json:"gender"`
	IsAdmin      bool   `gorm:"not null;default:false" json:"isAdmin"`
}

// UserStats строка административного списка пользователей
type UserStats struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	Gender      string `json:"gender"`
	IsAdmin     bool   `json:"isAdmin"`
	SecretCount int64  `json:"secretCount"`
}

// CachedUser профиль пользователя в кэше. Хэш пароля нужен внешнему
// слою аутентификации, поэтому сериализуется явно.
type CachedUser struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	NicknameRaw  string `json:"nickname_raw"`
	PasswordHash string `json:"password_hash"`
	Gender       Gender `json:"gender"`
	IsAdmin      bool   `json:"is_admin"`
}

// ToCached переводит пользователя в форму для кэша
func (u *User) ToCached() *CachedUser {
	return &CachedUser{
		ID:           u.ID,
		Nickname:     u.Nickname,
		NicknameRaw:  u.NicknameRaw,
		PasswordHash: u.PasswordHash,
		Gender:       u.Gender,
		IsAdmin:      u.IsAdmin,
	}
}

// ToUser восстанавливает пользователя из кэша
func (c *CachedUser) ToUser() *User {
	return &User{
		ID:           c.ID,
		Nickname:     c.Nickname,
		NicknameRaw:  c.NicknameRaw,
		PasswordHash: c.PasswordHash,
		Gender:       c.Gender,
		IsAdmin:      c.IsAdmin,
	}
}

// NormalizeNickname приводит никнейм к ключу уникальности
func NormalizeNickname(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

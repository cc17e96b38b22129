package apperrors

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Kind классифицирует ошибку ядра
type Kind int

const (
	// KindUnknown ошибка без классификации
	KindUnknown Kind = iota
	// KindValidation некорректные входные данные, изменений не было
	KindValidation
	// KindNotFound запись (секрет, пользователь) не найдена
	KindNotFound
	// KindRateLimited пользователь публикует слишком часто
	KindRateLimited
	// KindConflict нарушение уникальности (например, занятый никнейм)
	KindConflict
	// KindStorage непредвиденная ошибка хранилища
	KindStorage
)

// String возвращает строковое представление вида ошибки
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Список базовых ошибок, с которыми сравниваются типизированные ошибки через errors.Is
var (
	// ErrNotFound возвращается, когда запись не найдена (обобщенная ошибка)
	ErrNotFound = errors.New("запись не найдена")

	// ErrValidation возвращается при некорректных входных данных
	ErrValidation = errors.New("некорректные данные")

	// ErrRateLimited возвращается, если окно ограничения публикаций еще не истекло
	ErrRateLimited = errors.New("слишком частые публикации")

	// ErrConflict возвращается при нарушении уникальности
	ErrConflict = errors.New("конфликт данных")

	// ErrStorage возвращается при непредвиденной ошибке хранилища
	ErrStorage = errors.New("ошибка хранилища")

	// ErrCacheMiss возвращается, когда запись не найдена в кэше
	ErrCacheMiss = redis.Nil

	// ErrRecordNotFound возвращается, когда запись не найдена в базе данных
	ErrRecordNotFound = gorm.ErrRecordNotFound

	// IgnoredErrors содержит список ошибок, которые не считаются отказом для circuit breaker
	IgnoredErrors = []error{
		ErrNotFound,
		ErrCacheMiss,
		ErrRecordNotFound,
		ErrValidation,
		ErrRateLimited,
		ErrConflict,
	}
)

// Error типизированная ошибка ядра
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap возвращает исходную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с базовой ошибкой ее вида
func (e *Error) Is(target error) bool {
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindConflict:
		return ErrConflict
	case KindStorage:
		return ErrStorage
	default:
		return nil
	}
}

// Validation создает ошибку валидации
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// NotFound создает ошибку "запись не найдена"
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// RateLimited создает ошибку ограничения частоты публикаций
func RateLimited(op, message string) *Error {
	return &Error{Kind: KindRateLimited, Op: op, Message: message}
}

// Conflict создает ошибку нарушения уникальности
func Conflict(op, message string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message}
}

// Storage оборачивает ошибку хранилища. Уже типизированные ошибки возвращаются как есть.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	}
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// KindOf возвращает вид ошибки
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if IsNotFound(err) {
		return KindNotFound
	}
	return KindUnknown
}

// IsNotFound проверяет, является ли ошибка ошибкой "запись не найдена"
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCacheMiss) ||
		errors.Is(err, ErrRecordNotFound)
}

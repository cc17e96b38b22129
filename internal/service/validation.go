package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"TruthMeterService/internal/catalog"
	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"

	"github.com/go-playground/validator/v10"
)

const (
	nicknameMinLen = 2
	nicknameMaxLen = 32
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// newValidator регистрирует доменные теги: category, content, votetype, gender, nickname
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return catalog.IsMember(fl.Field().String())
	})
	mustRegister(v, "content", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
		return n >= models.ContentMinLen && n <= models.ContentMaxLen
	})
	mustRegister(v, "votetype", func(fl validator.FieldLevel) bool {
		return models.VoteType(fl.Field().String()).Valid()
	})
	mustRegister(v, "gender", func(fl validator.FieldLevel) bool {
		return models.Gender(fl.Field().String()).Valid()
	})
	mustRegister(v, "nickname", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		n := utf8.RuneCountInString(s)
		return n >= nicknameMinLen && n <= nicknameMaxLen && nicknamePattern.MatchString(s)
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

var fieldMessages = map[string]string{
	"category": "unknown category",
	"content":  "content must be 2-2000 characters",
	"votetype": "vote type must be truth or lie",
	"gender":   "gender must be male, female or other",
	"nickname": "nickname must be 2-32 characters: letters, digits, space, _ or -",
	"required": "is required",
}

// validate проверяет структуру и переводит первую ошибку в apperrors.Validation
func validate(v *validator.Validate, op string, input interface{}) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "failed " + fe.Tag()
		}
		return apperrors.Validation(op, strings.ToLower(fe.Field())+": "+msg)
	}
	return apperrors.Validation(op, err.Error())
}

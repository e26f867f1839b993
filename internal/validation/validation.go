// Package validation normalises and checks the forms submitted to the diary.
//
// Every form goes through a single normalisation step (trimming, defaults,
// checkbox and tag parsing) before the struct is validated, and failures are
// reported as a list of human readable messages.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"personal-diary/internal/domain"
)

// Error carries every message produced while validating a form.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, ", ")
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("password", strongPassword)
		_ = validate.RegisterValidation("notfuture", notFuture)
		_ = validate.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
			return domain.Mood(fl.Field().String()).Valid()
		})
	})
	return validate
}

// strongPassword requires at least one lowercase letter, one uppercase letter and one digit.
func strongPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func notFuture(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	return !t.After(time.Now())
}

func check(s any, messages map[string]string) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate form: %w", err)
	}

	out := &Error{}
	seen := make(map[string]struct{})
	for _, fe := range fieldErrs {
		// slice elements report as Field[i]
		field, _, _ := strings.Cut(fe.StructField(), "[")
		key := field + "." + fe.Tag()
		msg, ok := messages[key]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", field)
		}
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out.Messages = append(out.Messages, msg)
	}
	return out
}

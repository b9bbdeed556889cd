package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
			t, ok := fl.Field().Interface().(time.Time)
			return ok && !t.After(time.Now())
		})
	})
	return validate
}

// ValidateSubject checks the subject's struct constraints.
func ValidateSubject(s Subject) error {
	if err := validatorInstance().Struct(s); err != nil {
		return errors.New(FormatValidationError(err))
	}
	return nil
}

// ValidateLocation checks the location's struct constraints.
func ValidateLocation(l Location) error {
	if err := validatorInstance().Struct(l); err != nil {
		return errors.New(FormatValidationError(err))
	}
	return nil
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required", "required_without":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "notfuture":
			msgs = append(msgs, fmt.Sprintf("%s must not be in the future", e.Field()))
		case "iso3166_1_alpha2":
			msgs = append(msgs, fmt.Sprintf("%s must be an ISO 3166-1 alpha-2 code", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

package model

import (
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the record-specific tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			return Date(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, _, err := ParseClock(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("assignee", func(fl validator.FieldLevel) bool {
			raw := strings.TrimSpace(fl.Field().String())
			if strings.EqualFold(raw, AllMembers) {
				return true
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			return err == nil && id > 0
		})
		validate = v
	})
	return validate
}

// Validate checks a record against its struct tags.
func Validate(record any) error {
	return Validator().Struct(record)
}

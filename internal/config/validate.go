package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/lay-engine/internal/models"
)

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration against its struct tags plus the
// engine-specific enumerations.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.RegisterValidation("environment", func(fl validator.FieldLevel) bool {
		return validEnvironments[fl.Field().String()]
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return validLogLevels[fl.Field().String()]
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("countries", func(fl validator.FieldLevel) bool {
		codes, ok := fl.Field().Interface().([]string)
		if !ok || len(codes) == 0 {
			return false
		}
		for _, c := range codes {
			if !models.ValidCountry(c) {
				return false
			}
		}
		return true
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("pointvalue", func(fl validator.FieldLevel) bool {
		return models.ValidPointValue(int(fl.Field().Int()))
	}); err != nil {
		return err
	}

	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

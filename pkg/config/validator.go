package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration comprehensively with clear error
// messages. Grounded on pkg/config/validator.go's Validator, generalized to
// lean on struct-tag validation (go-playground/validator) for the numeric
// bounds spec §3/§6 call out, with hand-written cross-field checks where
// tags can't express the rule.
type Validator struct {
	cfg *Config
	v   *validator.Validate
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg, v: validator.New()}
}

// ValidateAll performs comprehensive validation, fail-fast on the first
// error, in dependency order: executor → queue → reviewer → feedback →
// circuits → tenant tiers → defaults.
func (val *Validator) ValidateAll() error {
	if err := val.validateStruct("executor", val.cfg.Executor); err != nil {
		return err
	}
	if err := val.validateStruct("queue", val.cfg.Queue); err != nil {
		return err
	}
	if err := val.validateQueueSLA(); err != nil {
		return err
	}
	if err := val.validateStruct("reviewer", val.cfg.Reviewer); err != nil {
		return err
	}
	if err := val.validateStruct("feedback", val.cfg.Feedback); err != nil {
		return err
	}
	if err := val.validateCircuits(); err != nil {
		return err
	}
	if err := val.validateTenantTiers(); err != nil {
		return err
	}
	if err := val.validateStruct("defaults", val.cfg.Defaults); err != nil {
		return err
	}
	return nil
}

func (val *Validator) validateStruct(component string, s any) error {
	if err := val.v.Struct(s); err != nil {
		return NewValidationError(component, "", "", err)
	}
	return nil
}

func (val *Validator) validateQueueSLA() error {
	for priority, d := range val.cfg.Queue.SLA {
		if d <= 0 {
			return NewValidationError("queue.sla", priority, "", fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, d))
		}
	}
	return nil
}

func (val *Validator) validateCircuits() error {
	for name, c := range val.cfg.Circuits {
		if err := val.v.Struct(c); err != nil {
			return NewValidationError("circuit", name, "", err)
		}
	}
	return nil
}

func (val *Validator) validateTenantTiers() error {
	for name, t := range val.cfg.TenantTiers {
		if err := val.v.Struct(t); err != nil {
			return NewValidationError("tenant_tier", name, "", err)
		}
	}
	return nil
}

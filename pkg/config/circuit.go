package config

import "time"

// CircuitConfig controls one named circuit breaker (spec §4.9, §6:
// circuit.<name>.{failure_threshold, success_threshold, timeout_seconds,
// half_open_max_calls}).
type CircuitConfig struct {
	FailureThreshold  int           `yaml:"failure_threshold" validate:"min=1"`
	SuccessThreshold  int           `yaml:"success_threshold" validate:"min=1"`
	TimeoutSeconds    int           `yaml:"timeout_seconds" validate:"min=1"`
	HalfOpenMaxCalls  int           `yaml:"half_open_max_calls" validate:"min=1"`
}

// Timeout returns TimeoutSeconds as a time.Duration.
func (c CircuitConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultCircuitConfig returns the built-in defaults applied to any circuit
// breaker name not explicitly configured.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		TimeoutSeconds:   30,
		HalfOpenMaxCalls: 3,
	}
}

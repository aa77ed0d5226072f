package config

import "time"

// QueueConfig controls HITL queue SLA overrides (spec §4.3, §6).
// Grounded on the teacher's QueueConfig shape (worker-pool sizing knobs),
// repurposed here for queue.sla.<priority> overrides plus the sweep
// intervals for expiration/SLA-breach checks.
type QueueConfig struct {
	// SLA is queue.sla.<priority> — overrides the default SLA duration per
	// priority band. Keys are "critical", "high", "medium", "low".
	SLA map[string]time.Duration `yaml:"sla"`

	// ExpirationCheckInterval is how often CheckExpirations runs.
	ExpirationCheckInterval time.Duration `yaml:"expiration_check_interval"`

	// SLACheckInterval is how often CheckSLABreaches runs.
	SLACheckInterval time.Duration `yaml:"sla_check_interval"`
}

// DefaultSLA holds the spec §4.3 default SLA durations, keyed by priority.
var DefaultSLA = map[string]time.Duration{
	"critical": 5 * time.Minute,
	"high":     15 * time.Minute,
	"medium":   1 * time.Hour,
	"low":      4 * time.Hour,
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	sla := make(map[string]time.Duration, len(DefaultSLA))
	for k, v := range DefaultSLA {
		sla[k] = v
	}
	return &QueueConfig{
		SLA:                     sla,
		ExpirationCheckInterval: 30 * time.Second,
		SLACheckInterval:        30 * time.Second,
	}
}

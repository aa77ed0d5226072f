package config

// Defaults contains system-wide default AgentConfig values, applied when a
// per-instance override is not supplied (spec §3 AgentConfig).
type Defaults struct {
	// MaxIterations default (1..100 per spec §3).
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1,max=100"`

	// TimeoutSeconds default (1..3600 per spec §3).
	TimeoutSeconds *int `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=3600"`

	// ConfidenceThreshold default (0..1 per spec §3).
	ConfidenceThreshold *float64 `yaml:"confidence_threshold,omitempty" validate:"omitempty,min=0,max=1"`

	// RequireHumanApproval default.
	RequireHumanApproval *bool `yaml:"require_human_approval,omitempty"`
}

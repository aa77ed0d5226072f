package config

// Config is the umbrella configuration object aggregating the flat
// namespace described in spec §6: executor.*, queue.*, reviewer.*,
// feedback.*, circuit.<name>.*, tenant.tiers.<tier>.*.
//
// Grounded on pkg/config/config.go's Config struct; the teacher's
// agent/chain/MCP/LLM-provider registries are replaced by the sections this
// domain actually needs, but the "one aggregate passed by the caller,
// convenience getters on top" idiom is kept (spec §9: "explicit
// SystemContext over global singletons" — this Config is handed explicitly
// to the constructors that need it rather than held in a global).
type Config struct {
	configDir string

	Defaults  *Defaults
	Executor  *ExecutorConfig
	Queue     *QueueConfig
	Reviewer  *ReviewerConfig
	Feedback  *FeedbackConfig
	Retention *RetentionConfig

	// Circuits maps a circuit breaker name to its configuration. Lookups for
	// an unconfigured name fall back to DefaultCircuitConfig.
	Circuits map[string]CircuitConfig

	// TenantTiers maps a tier name to its static limits.
	TenantTiers map[string]TenantTierConfig
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string { return c.configDir }

// Circuit returns the configuration for a named circuit breaker, falling
// back to the built-in default when the name is not explicitly configured.
func (c *Config) Circuit(name string) CircuitConfig {
	if cfg, ok := c.Circuits[name]; ok {
		return cfg
	}
	return DefaultCircuitConfig()
}

// TenantTier returns the limits for a tier, or ErrTierNotFound.
func (c *Config) TenantTier(tier string) (TenantTierConfig, error) {
	cfg, ok := c.TenantTiers[tier]
	if !ok {
		return TenantTierConfig{}, NewValidationError("tenant_tier", tier, "", ErrTierNotFound)
	}
	return cfg, nil
}

// Stats summarizes the loaded configuration, mirroring the teacher's
// ConfigStats used for health-check reporting.
type Stats struct {
	TenantTiers int
	Circuits    int
}

func (c *Config) Stats() Stats {
	return Stats{
		TenantTiers: len(c.TenantTiers),
		Circuits:    len(c.Circuits),
	}
}

package config

// TenantTierConfig holds the static limits for one tenant tier (spec §3
// Tenant, §6: tenant.tiers.<tier>.*).
type TenantTierConfig struct {
	MaxAgents               int `yaml:"max_agents" validate:"min=0"`
	MaxConcurrentExecutions int `yaml:"max_concurrent_executions" validate:"min=1"`
	RateLimitPerMinute      int `yaml:"rate_limit_per_minute" validate:"min=1"`
	DailyTokenLimit         int `yaml:"daily_token_limit" validate:"min=0"`
}

// DefaultTenantTiers returns the built-in per-tier limits for the four
// tiers named in spec §3: free|starter|professional|enterprise.
func DefaultTenantTiers() map[string]TenantTierConfig {
	return map[string]TenantTierConfig{
		"free": {
			MaxAgents: 2, MaxConcurrentExecutions: 1,
			RateLimitPerMinute: 10, DailyTokenLimit: 50_000,
		},
		"starter": {
			MaxAgents: 10, MaxConcurrentExecutions: 3,
			RateLimitPerMinute: 60, DailyTokenLimit: 500_000,
		},
		"professional": {
			MaxAgents: 50, MaxConcurrentExecutions: 10,
			RateLimitPerMinute: 300, DailyTokenLimit: 5_000_000,
		},
		"enterprise": {
			MaxAgents: 0, MaxConcurrentExecutions: 50, // 0 == unlimited
			RateLimitPerMinute: 2000, DailyTokenLimit: 0, // 0 == unlimited
		},
	}
}

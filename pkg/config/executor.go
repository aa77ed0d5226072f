package config

import "time"

// ExecutorConfig controls the Agent Executor scheduler (spec §4.1, §6).
// Grounded on pkg/config/queue.go's QueueConfig — the teacher's worker-pool
// sizing knobs generalize directly onto the executor's concurrency caps.
type ExecutorConfig struct {
	// MaxConcurrent is executor.max_concurrent — the hard cap on parallel
	// Execute() calls across the process.
	MaxConcurrent int `yaml:"max_concurrent" validate:"min=1"`

	// DefaultTimeoutSeconds is executor.default_timeout_seconds — applied
	// when an AgentConfig does not specify its own timeout_seconds.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds" validate:"min=1,max=3600"`

	// CancelGracePeriod is how long a cooperative cancellation/timeout waits
	// for the in-flight step to unwind before the run is forced to failed.
	CancelGracePeriod time.Duration `yaml:"cancel_grace_period"`
}

// DefaultExecutorConfig returns the built-in executor defaults.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxConcurrent:         20,
		DefaultTimeoutSeconds: 300,
		CancelGracePeriod:     2 * time.Second,
	}
}

// ReviewerConfig controls HITL reviewer auto-assignment.
type ReviewerConfig struct {
	// MaxWorkload is reviewer.max_workload — the per-reviewer concurrent
	// request cap used by auto-assignment (spec §4.5).
	MaxWorkload int `yaml:"max_workload" validate:"min=1"`
}

// DefaultReviewerConfig returns the built-in reviewer defaults.
func DefaultReviewerConfig() *ReviewerConfig {
	return &ReviewerConfig{MaxWorkload: 5}
}

// FeedbackConfig holds the golden-path retention and search thresholds
// (spec §4.7, §6). The loader merges and validates these values, but
// pkg/feedback.Collector does not read them: it applies its own fixed
// thresholds (0.3 for vector-store removal, 0.5 as the search default), so
// changing these keys, including setting the retain threshold to zero, does
// not change the collector's behavior.
type FeedbackConfig struct {
	// MinSuccessRateRetain is feedback.min_success_rate_retain, the
	// success-rate threshold for vector-store removal (default 0.3).
	MinSuccessRateRetain float64 `yaml:"min_success_rate_retain" validate:"min=0,max=1"`

	// SearchMinSuccessRateDefault is feedback.search_min_success_rate_default,
	// the search-time success-rate filter (default 0.5).
	SearchMinSuccessRateDefault float64 `yaml:"search_min_success_rate_default" validate:"min=0,max=1"`
}

// DefaultFeedbackConfig returns the built-in feedback defaults.
func DefaultFeedbackConfig() *FeedbackConfig {
	return &FeedbackConfig{
		MinSuccessRateRetain:        0.3,
		SearchMinSuccessRateDefault: 0.5,
	}
}

// RetentionConfig controls the background purge of terminal agent state
// (model.StatusCompleted and model.StatusFailed, the latter also covering
// cancelled and timed-out runs), keeping the
// durable store from growing unbounded across long-lived deployments.
type RetentionConfig struct {
	// AgentStateRetention is how long a terminal AgentState is kept after
	// CompletedAt before the next sweep deletes it.
	AgentStateRetention time.Duration `yaml:"agent_state_retention"`

	// SweepInterval is how often the purge loop runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		AgentStateRetention: 30 * 24 * time.Hour,
		SweepInterval:       time.Hour,
	}
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// OrchestratorYAMLConfig represents the complete orchestrator.yaml file
// structure. Grounded on pkg/config/loader.go's TarsyYAMLConfig, repointed
// at this domain's flat namespace (spec §6).
type OrchestratorYAMLConfig struct {
	Defaults    *Defaults                   `yaml:"defaults"`
	Executor    *ExecutorConfig             `yaml:"executor"`
	Queue       *QueueConfig                `yaml:"queue"`
	Reviewer    *ReviewerConfig             `yaml:"reviewer"`
	Feedback    *FeedbackConfig             `yaml:"feedback"`
	Retention   *RetentionConfig           `yaml:"retention"`
	Circuits    map[string]CircuitConfig    `yaml:"circuits"`
	TenantTiers map[string]TenantTierConfig `yaml:"tenant_tiers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point, mirroring pkg/config/loader.go's Initialize:
//  1. Load orchestrator.yaml (missing file tolerated — built-in defaults apply)
//  2. Expand environment variables
//  3. Merge user config over built-in defaults
//  4. Validate
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized", "tenant_tiers", stats.TenantTiers, "circuits", stats.Circuits)
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	userCfg, err := loadYAML(configDir, "orchestrator.yaml")
	if err != nil {
		return nil, err
	}

	executor := DefaultExecutorConfig()
	if userCfg.Executor != nil {
		if err := mergo.Merge(executor, userCfg.Executor, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge executor config: %w", err)
		}
	}

	queue := DefaultQueueConfig()
	if userCfg.Queue != nil {
		if err := mergo.Merge(queue, userCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	reviewer := DefaultReviewerConfig()
	if userCfg.Reviewer != nil {
		if err := mergo.Merge(reviewer, userCfg.Reviewer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge reviewer config: %w", err)
		}
	}

	feedback := DefaultFeedbackConfig()
	if userCfg.Feedback != nil {
		if err := mergo.Merge(feedback, userCfg.Feedback, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge feedback config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if userCfg.Retention != nil {
		if err := mergo.Merge(retention, userCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	circuits := mergeCircuits(userCfg.Circuits)
	tiers := mergeTenantTiers(userCfg.TenantTiers)

	defaults := userCfg.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}

	return &Config{
		configDir:   configDir,
		Defaults:    defaults,
		Executor:    executor,
		Queue:       queue,
		Reviewer:    reviewer,
		Feedback:    feedback,
		Retention:   retention,
		Circuits:    circuits,
		TenantTiers: tiers,
	}, nil
}

// loadYAML reads and parses a single YAML file, tolerating a missing file
// (the whole configuration system runs on built-in defaults in that case —
// unlike the teacher, which treats a missing tarsy.yaml as fatal, this
// runtime has no required user-authored agent/chain catalog to miss).
func loadYAML(configDir, filename string) (*OrchestratorYAMLConfig, error) {
	cfg := &OrchestratorYAMLConfig{
		Circuits:    map[string]CircuitConfig{},
		TenantTiers: map[string]TenantTierConfig{},
	}

	path := filepath.Join(configDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("configuration file not found, using built-in defaults", "path", path)
			return cfg, nil
		}
		return nil, NewLoadError(filename, err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewLoadError(filename, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return cfg, nil
}

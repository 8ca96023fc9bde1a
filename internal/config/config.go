package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"brickyard/internal/errors"
)

// Config defines pipeline settings. It is threaded explicitly into every
// component entry point; there is no ambient global configuration.
type Config struct {
	// PlansDir is where plan artifacts are persisted
	PlansDir string `yaml:"plans_dir"`

	// ModuleRoot is where brick contract/spec documents live
	ModuleRoot string `yaml:"module_root"`

	// OutputRoot is the root for generated brick files
	OutputRoot string `yaml:"output_root"`

	// Completion timeout. Generous by default: model generation can
	// legitimately take minutes, and a short timeout is a correctness bug.
	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	// SmokeTimeout bounds a single smoke-run subprocess
	SmokeTimeout time.Duration `yaml:"smoke_timeout"`

	// Retry settings
	PlanMaxAttempts  int           `yaml:"plan_max_attempts"`
	BrickMaxAttempts int           `yaml:"brick_max_attempts"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	RetryMultiplier  float64       `yaml:"retry_multiplier"`

	// MaxDepth bounds nested module generation
	MaxDepth int `yaml:"max_depth"`

	// Parallelism bounds concurrent execution of independent bricks.
	// Values <= 1 mean strictly sequential execution.
	Parallelism int `yaml:"parallelism"`

	// Behavior flags
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		PlansDir:          ".brickyard/plans",
		ModuleRoot:        ".brickyard/modules",
		OutputRoot:        "generated",
		CompletionTimeout: 5 * time.Minute,
		SmokeTimeout:      30 * time.Second,
		PlanMaxAttempts:   3,
		BrickMaxAttempts:  3,
		RetryDelay:        2 * time.Second,
		RetryMultiplier:   2.0,
		MaxDepth:          3,
		Parallelism:       1,
	}
}

// DefaultPath is the config file consulted when none is named explicitly
const DefaultPath = ".brickyard/config.yaml"

// Load reads configuration from a YAML file, then applies environment
// overrides on top. An empty path means the implicit DefaultPath, whose
// absence is fine; a path the user named explicitly must exist.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("parse config file: %s", path), err).
				WithSuggestion("Check the YAML syntax of the config file")
		}
	case os.IsNotExist(err):
		if explicit {
			return cfg, errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("config file not found: %s", path)).
				WithSuggestion("Check the --config path")
		}
	default:
		return cfg, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read config file: %s", path), err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration invariants
func (c Config) Validate() error {
	if c.PlanMaxAttempts < 1 {
		return errors.New(errors.ErrCodeConfigInvalid, "plan_max_attempts must be at least 1")
	}
	if c.BrickMaxAttempts < 1 {
		return errors.New(errors.ErrCodeConfigInvalid, "brick_max_attempts must be at least 1")
	}
	if c.CompletionTimeout <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "completion_timeout must be positive")
	}
	if c.SmokeTimeout <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "smoke_timeout must be positive")
	}
	if c.RetryMultiplier < 1.0 {
		return errors.New(errors.ErrCodeConfigInvalid, "retry_multiplier must be at least 1.0")
	}
	if c.MaxDepth < 1 {
		return errors.New(errors.ErrCodeConfigInvalid, "max_depth must be at least 1")
	}
	return nil
}

// applyEnv overrides config fields from BRICKYARD_* environment variables
func applyEnv(cfg *Config) {
	if v := os.Getenv("BRICKYARD_PLANS_DIR"); v != "" {
		cfg.PlansDir = v
	}
	if v := os.Getenv("BRICKYARD_MODULE_ROOT"); v != "" {
		cfg.ModuleRoot = v
	}
	if v := os.Getenv("BRICKYARD_OUTPUT_ROOT"); v != "" {
		cfg.OutputRoot = v
	}
	if d, ok := envDuration("BRICKYARD_COMPLETION_TIMEOUT"); ok {
		cfg.CompletionTimeout = d
	}
	if d, ok := envDuration("BRICKYARD_SMOKE_TIMEOUT"); ok {
		cfg.SmokeTimeout = d
	}
	if n, ok := envInt("BRICKYARD_PLAN_MAX_ATTEMPTS"); ok {
		cfg.PlanMaxAttempts = n
	}
	if n, ok := envInt("BRICKYARD_BRICK_MAX_ATTEMPTS"); ok {
		cfg.BrickMaxAttempts = n
	}
	if n, ok := envInt("BRICKYARD_PARALLELISM"); ok {
		cfg.Parallelism = n
	}
	if n, ok := envInt("BRICKYARD_MAX_DEPTH"); ok {
		cfg.MaxDepth = n
	}
}

func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Package config loads the optional launch configuration for validatorctl.
// Every field falls back to a compiled-in default. Of the loaded values,
// only the launch timeout is read outside this package (by the
// supervisor's Launch); the strictness level, log flush interval,
// shutdown grace and worker binary path are parsed and validated here,
// but the supervisor and worker use the compiled-in defaults for those
// and always relaunch os.Args[0].
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultStrictnessLevel is applied when a validation request carries no
// explicit strictness level.
const DefaultStrictnessLevel = 5

const (
	DefaultLaunchTimeout    = 5 * time.Second
	DefaultLogFlushInterval = 200 * time.Millisecond
	DefaultShutdownGrace    = 2 * time.Second
)

// RunConfig controls a validatorctl supervisor invocation.
type RunConfig struct {
	StrictnessLevel  int    `toml:"strictness_level"`
	LaunchTimeoutMS  int    `toml:"launch_timeout_ms"`
	LogFlushMS       int    `toml:"log_flush_interval_ms"`
	ShutdownGraceMS  int    `toml:"shutdown_grace_ms"`
	WorkerBinaryPath string `toml:"worker_binary_path"`
}

// DefaultRunConfig returns the baseline configuration used when no TOML
// file is present or a field is left unset.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		StrictnessLevel: DefaultStrictnessLevel,
		LaunchTimeoutMS: int(DefaultLaunchTimeout / time.Millisecond),
		LogFlushMS:      int(DefaultLogFlushInterval / time.Millisecond),
		ShutdownGraceMS: int(DefaultShutdownGrace / time.Millisecond),
	}
}

// Load reads path as TOML, filling unset fields from DefaultRunConfig.
func Load(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if err := loadToml(path, &cfg); err != nil {
		return RunConfig{}, err
	}
	if cfg.StrictnessLevel <= 0 {
		cfg.StrictnessLevel = DefaultStrictnessLevel
	}
	if cfg.LaunchTimeoutMS <= 0 {
		cfg.LaunchTimeoutMS = int(DefaultLaunchTimeout / time.Millisecond)
	}
	if cfg.LogFlushMS <= 0 {
		cfg.LogFlushMS = int(DefaultLogFlushInterval / time.Millisecond)
	}
	if cfg.ShutdownGraceMS <= 0 {
		cfg.ShutdownGraceMS = int(DefaultShutdownGrace / time.Millisecond)
	}
	if err := Validate(cfg); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads path if non-empty and present, otherwise returns
// DefaultRunConfig. A missing optional file is not an error.
func LoadOrDefault(path string) (RunConfig, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRunConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultRunConfig(), nil
		}
		return RunConfig{}, fmt.Errorf("config stat failed (%s): %w", path, err)
	}
	return Load(path)
}

func loadToml(path string, out *RunConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func (c RunConfig) LaunchTimeout() time.Duration {
	return time.Duration(c.LaunchTimeoutMS) * time.Millisecond
}

func (c RunConfig) LogFlushInterval() time.Duration {
	return time.Duration(c.LogFlushMS) * time.Millisecond
}

func (c RunConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMS) * time.Millisecond
}

func Validate(cfg RunConfig) error {
	if cfg.StrictnessLevel < 0 || cfg.StrictnessLevel > 10 {
		return fmt.Errorf("strictness_level out of range [0,10]: %d", cfg.StrictnessLevel)
	}
	if cfg.LaunchTimeoutMS <= 0 {
		return fmt.Errorf("launch_timeout_ms must be positive")
	}
	if cfg.LogFlushMS <= 0 {
		return fmt.Errorf("log_flush_interval_ms must be positive")
	}
	if cfg.ShutdownGraceMS <= 0 {
		return fmt.Errorf("shutdown_grace_ms must be positive")
	}
	return nil
}

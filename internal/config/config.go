package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Generation contains configuration for the metadata generation providers.
// Exactly one mode is active per process; the remaining provider settings
// are ignored unless their mode is selected.
type Generation struct {
	Mode string `toml:"mode"` // mistral, huggingface, local, or basic

	MistralAPIURL string `toml:"mistral_api_url"`
	MistralAPIKey string `toml:"mistral_api_key"`
	MistralModel  string `toml:"mistral_model"`

	HuggingFaceAPIURL string `toml:"huggingface_api_url"`
	HuggingFaceAPIKey string `toml:"huggingface_api_key"`

	LocalURL   string `toml:"local_url"`
	LocalModel string `toml:"local_model"`

	TimeoutSeconds int `toml:"timeout_seconds"`

	// FallbackToBasic makes a failed remote generation fall through to the
	// deterministic basic generator instead of counting as an error.
	FallbackToBasic bool `toml:"fallback_to_basic"`
}

// Pipeline contains configuration for per-site media processing.
type Pipeline struct {
	PageSize              int `toml:"page_size"`
	MaxCandidates         int `toml:"max_candidates"` // 0 means unlimited
	PacingMilliseconds    int `toml:"pacing_ms"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Schedule contains configuration for the periodic full re-run.
type Schedule struct {
	Enabled       bool `toml:"enabled"`
	IntervalHours int  `toml:"interval_hours"`
}

// Registry contains configuration for the persisted client document.
type Registry struct {
	Path string `toml:"path"` // defaults to <data_dir>/registry.json
}

// RunLog contains configuration for the run history database.
type RunLog struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Runs           bool   `toml:"runs"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the agent.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Generation: provider mode and per-provider endpoints/keys
//   - Pipeline: pagination, candidate cap, pacing, per-call timeout
//   - Schedule: periodic re-run interval
//   - Registry: persisted client document path
//   - RunLog: run history database toggle
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Generation    Generation    `toml:"generation"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Schedule      Schedule      `toml:"schedule"`
	Registry      Registry      `toml:"registry"`
	RunLog        RunLog        `toml:"run_log"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/imageseo/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file. The
// returned config has all path fields expanded and environment overrides
// applied. The boolean reports whether a config file was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("imageseo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// RegistryPath returns the resolved path of the persisted client document.
func (c *Config) RegistryPath() string {
	if strings.TrimSpace(c.Registry.Path) != "" {
		return c.Registry.Path
	}
	return filepath.Join(c.Paths.DataDir, "registry.json")
}

// RunLogPath returns the resolved path of the run history database.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.DataDir, "runs.db")
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the annotated sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}

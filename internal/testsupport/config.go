package testsupport

import (
	"path/filepath"
	"testing"

	"imageseo/internal/config"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory. Generation runs in basic mode with pacing disabled so tests
// never touch the network or sleep.
func NewConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Generation.Mode = "basic"
	cfg.Pipeline.PacingMilliseconds = 0
	cfg.Schedule.Enabled = false
	cfg.Registry.Path = filepath.Join(base, "data", "registry.json")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return cfg
}

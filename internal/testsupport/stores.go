package testsupport

import (
	"testing"

	"imageseo/internal/config"
	"imageseo/internal/registry"
	"imageseo/internal/runlog"
)

// MustOpenRegistry opens the registry for the test configuration.
func MustOpenRegistry(t *testing.T, cfg *config.Config) *registry.Registry {
	t.Helper()
	reg, err := registry.Open(cfg.RegistryPath())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	return reg
}

// MustOpenRunLog opens the run history store for the test configuration.
func MustOpenRunLog(t *testing.T, cfg *config.Config) *runlog.Store {
	t.Helper()
	store, err := runlog.Open(cfg.RunLogPath())
	if err != nil {
		t.Fatalf("open runlog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

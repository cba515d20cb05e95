package testsupport

import (
	"path/filepath"
	"testing"

	"greenlight/internal/config"
)

// NewConfig returns a validated config rooted in a per-test temp directory.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return &cfg
}

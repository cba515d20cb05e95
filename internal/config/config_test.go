package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"greenlight/internal/config"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")
	cfg, path, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if path != missing {
		t.Fatalf("expected resolved path %q, got %q", missing, path)
	}
	if cfg.Workflow.WorkerCount != 1 {
		t.Fatalf("expected default worker count 1, got %d", cfg.Workflow.WorkerCount)
	}
	if !cfg.Pipeline.Enabled || !cfg.Pipeline.GatesBlocking {
		t.Fatal("expected pipeline enabled and gates blocking by default")
	}
	if cfg.Render.Engine != "primary" {
		t.Fatalf("expected primary engine, got %q", cfg.Render.Engine)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[workflow]",
		"worker_count = 3",
		"[pipeline]",
		"gates_blocking = false",
		"[render]",
		`binary = "renderctl"`,
		`engine = "canary"`,
		`canary_binary = "renderctl-next"`,
		"canary_daily_quota = 25",
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Workflow.WorkerCount != 3 {
		t.Fatalf("expected worker count 3, got %d", cfg.Workflow.WorkerCount)
	}
	if cfg.Pipeline.GatesBlocking {
		t.Fatal("expected gates_blocking disabled")
	}
	if cfg.Render.Engine != "canary" || cfg.Render.CanaryDailyQuota != 25 {
		t.Fatalf("unexpected render config: %+v", cfg.Render)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json logging, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsCanaryWithoutBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Engine = "canary"
	cfg.Render.CanaryBinary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for canary engine without binary")
	}
}

func TestValidateRejectsNonPositiveIntervals(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.QueuePollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero poll interval")
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(raw), "[pipeline]") {
		t.Fatal("expected sample to document the pipeline section")
	}
}

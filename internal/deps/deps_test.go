package deps

import (
	"os"
	"path/filepath"
	"testing"

	"greenlight/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
	if Satisfied(results) {
		t.Fatal("expected unsatisfied result with a missing required binary")
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Empty"}})
	if results[0].Available {
		t.Fatal("expected unconfigured requirement to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestRequirementsIncludesCanaryWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Binary = "renderctl"

	reqs := Requirements(&cfg)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement without canary, got %d", len(reqs))
	}

	cfg.Render.CanaryBinary = "renderctl-canary"
	reqs = Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements with canary, got %d", len(reqs))
	}
	if !reqs[1].Optional {
		t.Fatal("expected canary requirement to be optional")
	}
}

func TestSatisfiedIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "Required", Available: true},
		{Name: "Optional", Optional: true, Available: false},
	}
	if !Satisfied(statuses) {
		t.Fatal("expected optional misses to be tolerated")
	}
}

package executor

import (
	"os"
	"strconv"

	"greenlight/internal/config"
)

// RunConfig is the feature-flag snapshot for one execution attempt. It is
// resolved once at job-run time from config plus environment overrides and
// written verbatim into the execution log, so every attempt records the
// exact flags it ran under.
type RunConfig struct {
	PipelineEnabled  bool
	GatesBlocking    bool
	RenderEngine     string
	CanaryDailyQuota int
	CanaryTimeoutSec int
}

// Environment overrides, read each run.
const (
	EnvPipelineEnabled = "GREENLIGHT_PIPELINE_ENABLED"
	EnvGatesBlocking   = "GREENLIGHT_GATES_BLOCKING"
	EnvRenderEngine    = "GREENLIGHT_RENDER_ENGINE"
)

// ResolveRunConfig builds the flag snapshot from config and environment.
func ResolveRunConfig(cfg *config.Config) RunConfig {
	rc := RunConfig{
		PipelineEnabled:  cfg.Pipeline.Enabled,
		GatesBlocking:    cfg.Pipeline.GatesBlocking,
		RenderEngine:     cfg.Render.Engine,
		CanaryDailyQuota: cfg.Render.CanaryDailyQuota,
		CanaryTimeoutSec: cfg.Render.CanaryTimeout,
	}
	if value, ok := envBool(EnvPipelineEnabled); ok {
		rc.PipelineEnabled = value
	}
	if value, ok := envBool(EnvGatesBlocking); ok {
		rc.GatesBlocking = value
	}
	if value := os.Getenv(EnvRenderEngine); value != "" {
		rc.RenderEngine = value
	}
	return rc
}

// Snapshot renders the flags as the string map stored on the execution log.
func (rc RunConfig) Snapshot() map[string]string {
	return map[string]string{
		"pipeline_enabled":   strconv.FormatBool(rc.PipelineEnabled),
		"gates_blocking":     strconv.FormatBool(rc.GatesBlocking),
		"render_engine":      rc.RenderEngine,
		"canary_daily_quota": strconv.Itoa(rc.CanaryDailyQuota),
		"canary_timeout":     strconv.Itoa(rc.CanaryTimeoutSec),
	}
}

func envBool(name string) (bool, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}

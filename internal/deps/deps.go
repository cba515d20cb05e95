// Package deps reports availability of the external binaries the pipeline
// shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"greenlight/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the requirement list for the given configuration.
// The canary engine only appears when a canary binary is configured.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "Render engine",
			Command:     cfg.Render.Binary,
			Description: "Primary render CLI used for video composition",
		},
	}
	if cfg.Render.CanaryBinary != "" {
		reqs = append(reqs, Requirement{
			Name:        "Canary render engine",
			Command:     cfg.Render.CanaryBinary,
			Description: "Canary render CLI receiving a daily traffic quota",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Satisfied reports whether every non-optional requirement is available.
func Satisfied(statuses []Status) bool {
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			return false
		}
	}
	return true
}

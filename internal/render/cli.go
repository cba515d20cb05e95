package render

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

var commandContext = exec.CommandContext

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithName overrides the engine name reported in results.
func WithName(name string) Option {
	return func(c *CLI) {
		if name != "" {
			c.name = name
		}
	}
}

// CLI wraps the render engine command-line binary.
type CLI struct {
	binary string
	name   string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "renderctl", name: "primary"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Name returns the engine name this client renders with.
func (c *CLI) Name() string {
	return c.name
}

// Render launches the engine, writes the request to stdin, and consumes the
// JSON event stream until the result event arrives. Non-JSON lines and
// unknown event types are skipped; the engine logs freely on the same pipe.
func (c *CLI) Render(ctx context.Context, req Request, progress func(ProgressUpdate)) (*Response, error) {
	if req.BriefID == "" {
		return nil, errors.New("brief id required")
	}
	if req.ResolvedCompositionID == "" {
		return nil, errors.New("composition id required")
	}
	if req.OutputDir == "" {
		return nil, errors.New("output directory required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	args := []string{"render", "--request-stdin", "--events-json"}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(payload)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start render engine: %w", err)
	}

	var result *Response
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		var event struct {
			Type    string  `json:"type"`
			Percent float64 `json:"percent"`
			Stage   string  `json:"stage"`
			Message string  `json:"message"`
			Response
		}
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		switch event.Type {
		case "progress":
			if progress != nil {
				progress(ProgressUpdate{Percent: event.Percent, Stage: event.Stage, Message: event.Message})
			}
		case "result":
			resp := event.Response
			result = &resp
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read render output: %w", err)
	}

	waitErr := cmd.Wait()
	if result == nil {
		if waitErr != nil {
			return nil, fmt.Errorf("render engine failed: %w", waitErr)
		}
		return nil, errors.New("render engine emitted no result")
	}
	if result.EngineName == "" {
		result.EngineName = c.name
	}
	return result, nil
}

var _ Client = (*CLI)(nil)

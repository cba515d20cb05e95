package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greenlight/internal/config"
)

const userAgent = "Greenlight-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyExecutionCompleted(ctx context.Context, briefID string, canPublish *bool, qualityScore *int) error
	NotifyExecutionFailed(ctx context.Context, briefID, reason string) error
	NotifyDerivativesCreated(ctx context.Context, masterBriefID string, created, skipped int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		executions:  cfg.Notifications.Executions,
		derivatives: cfg.Notifications.Derivatives,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	executions  bool
	derivatives bool
	errors      bool
}

func (n *ntfyService) NotifyExecutionCompleted(ctx context.Context, briefID string, canPublish *bool, qualityScore *int) error {
	if !n.executions {
		return nil
	}
	decision := "decision deferred"
	priority := ""
	switch {
	case canPublish != nil && *canPublish:
		decision = "ready to publish"
	case canPublish != nil:
		decision = "blocked by gates"
		priority = "high"
	}
	message := fmt.Sprintf("Execution complete: %s (%s)", strings.TrimSpace(briefID), decision)
	if qualityScore != nil {
		message = fmt.Sprintf("%s, score %d", message, *qualityScore)
	}
	return n.send(ctx, payload{
		title:    "Greenlight - Execution Complete",
		message:  message,
		tags:     []string{"greenlight", "execution", "completed"},
		priority: priority,
	})
}

func (n *ntfyService) NotifyExecutionFailed(ctx context.Context, briefID, reason string) error {
	if !n.executions {
		return nil
	}
	message := fmt.Sprintf("Execution failed: %s", strings.TrimSpace(briefID))
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	return n.send(ctx, payload{
		title:    "Greenlight - Execution Failed",
		message:  message,
		tags:     []string{"greenlight", "execution", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyDerivativesCreated(ctx context.Context, masterBriefID string, created, skipped int) error {
	if !n.derivatives {
		return nil
	}
	message := fmt.Sprintf("Derivative batch for %s: %d created", strings.TrimSpace(masterBriefID), created)
	if skipped > 0 {
		message = fmt.Sprintf("%s, %d skipped", message, skipped)
	}
	return n.send(ctx, payload{
		title:   "Greenlight - Derivatives Created",
		message: message,
		tags:    []string{"greenlight", "derivatives", "completed"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "Greenlight - Error",
		message:  builder.String(),
		tags:     []string{"greenlight", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Greenlight - Test",
		message:  "Notification system test",
		tags:     []string{"greenlight", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyExecutionCompleted(context.Context, string, *bool, *int) error { return nil }
func (noopService) NotifyExecutionFailed(context.Context, string, string) error         { return nil }
func (noopService) NotifyDerivativesCreated(context.Context, string, int, int) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }

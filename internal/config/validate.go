package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.worker_count":         c.Workflow.WorkerCount,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if strings.TrimSpace(c.Render.Binary) == "" {
		return errors.New("render.binary must be set")
	}
	switch c.Render.Engine {
	case "primary", "canary":
	default:
		return fmt.Errorf("render.engine must be %q or %q", "primary", "canary")
	}
	if c.Render.Engine == "canary" && strings.TrimSpace(c.Render.CanaryBinary) == "" {
		return errors.New("render.canary_binary must be set when render.engine is canary")
	}
	if c.Render.Timeout <= 0 {
		return errors.New("render.timeout must be positive (seconds)")
	}
	if c.Render.CanaryTimeout <= 0 {
		return errors.New("render.canary_timeout must be positive (seconds)")
	}
	if c.Render.CanaryDailyQuota < 0 {
		return errors.New("render.canary_daily_quota must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package main

import (
	"log/slog"
	"strings"
	"sync"

	"greenlight/internal/config"
	"greenlight/internal/logging"
	"greenlight/internal/production"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *production.Store
	storeErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureStore() (*production.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		store, err := production.Open(cfg)
		if err != nil {
			c.storeErr = err
			return
		}
		c.store = store
	})
	return c.store, c.storeErr
}

// consoleLogger builds a logger for interactive commands: console format to
// stdout at the configured level.
func (c *commandContext) consoleLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: "console",
	})
}

// serviceLogger builds the long-running worker logger: configured format,
// writing to both stdout and the log file.
func (c *commandContext) serviceLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
}

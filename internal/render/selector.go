package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"greenlight/internal/config"
	"greenlight/internal/logging"
)

// Result pairs an engine response with the routing decision that produced it.
type Result struct {
	Response       *Response
	IsCanary       bool
	CanaryFallback bool
	CanaryError    string
}

// Selector routes render requests between the primary engine and an optional
// canary engine. The canary receives at most dailyQuota requests per calendar
// day and runs under its own timeout; any canary error or failed response
// falls back to the primary so a broken canary never blocks production.
type Selector struct {
	primary       Client
	canary        Client
	dailyQuota    int
	canaryTimeout time.Duration
	timeout       time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu   sync.Mutex
	day  string
	used int
}

// NewSelector builds a selector from configuration. A canary client is only
// wired when the config names a canary binary.
func NewSelector(cfg *config.Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	selector := &Selector{
		primary:       NewCLI(WithBinary(cfg.Render.Binary), WithName(cfg.Render.Engine)),
		dailyQuota:    cfg.Render.CanaryDailyQuota,
		canaryTimeout: time.Duration(cfg.Render.CanaryTimeout) * time.Second,
		timeout:       time.Duration(cfg.Render.Timeout) * time.Second,
		logger:        logger,
		now:           time.Now,
	}
	if cfg.Render.CanaryBinary != "" {
		selector.canary = NewCLI(WithBinary(cfg.Render.CanaryBinary), WithName("canary"))
	}
	return selector
}

// NewSelectorWithClients builds a selector around explicit clients.
func NewSelectorWithClients(primary, canary Client, dailyQuota int, canaryTimeout, timeout time.Duration, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Selector{
		primary:       primary,
		canary:        canary,
		dailyQuota:    dailyQuota,
		canaryTimeout: canaryTimeout,
		timeout:       timeout,
		logger:        logger,
		now:           time.Now,
	}
}

// Render routes the request. The returned Result always carries the response
// that should be persisted; an error is returned only when the primary engine
// itself could not produce a result.
func (s *Selector) Render(ctx context.Context, req Request, progress func(ProgressUpdate)) (*Result, error) {
	if s.canary != nil && s.takeCanarySlot() {
		resp, err := s.renderWith(ctx, s.canary, s.canaryTimeout, req, progress)
		if err == nil && resp.Succeeded() {
			return &Result{Response: resp, IsCanary: true}, nil
		}
		canaryErr := "canary returned failed response"
		if err != nil {
			canaryErr = err.Error()
		} else if resp.ErrorMessage != "" {
			canaryErr = resp.ErrorMessage
		}
		s.logger.Warn("canary render failed, falling back to primary",
			logging.String(logging.FieldBriefID, req.BriefID),
			logging.String("canary_error", canaryErr),
		)
		resp, err = s.renderWith(ctx, s.primary, s.timeout, req, progress)
		if err != nil {
			return nil, err
		}
		return &Result{Response: resp, CanaryFallback: true, CanaryError: canaryErr}, nil
	}

	resp, err := s.renderWith(ctx, s.primary, s.timeout, req, progress)
	if err != nil {
		return nil, err
	}
	return &Result{Response: resp}, nil
}

func (s *Selector) renderWith(ctx context.Context, client Client, timeout time.Duration, req Request, progress func(ProgressUpdate)) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.Render(ctx, req, progress)
}

// takeCanarySlot consumes one unit of today's canary quota. The counter
// resets when the calendar day changes.
func (s *Selector) takeCanarySlot() bool {
	if s.dailyQuota <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.now().Format("2006-01-02")
	if s.day != today {
		s.day = today
		s.used = 0
	}
	if s.used >= s.dailyQuota {
		return false
	}
	s.used++
	return true
}

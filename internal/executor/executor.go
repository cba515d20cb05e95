// Package executor drives one execution attempt for a production to a
// terminal outcome. Attempts are safely retryable: a completed log is a
// no-op, the finalize sequence persists in two phases, and retryable render
// failures propagate to the queue with their partial state already written.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"greenlight/internal/config"
	"greenlight/internal/gates"
	"greenlight/internal/logging"
	"greenlight/internal/production"
	"greenlight/internal/render"
	"greenlight/internal/services"
	"greenlight/internal/templates"
)

// Renderer is the render boundary the executor calls. The selector in the
// render package is the production implementation.
type Renderer interface {
	Render(ctx context.Context, req render.Request, progress func(render.ProgressUpdate)) (*render.Result, error)
}

// Outcome is what callers observe after one attempt.
type Outcome struct {
	Status       production.ExecutionStatus
	CanPublish   *bool
	QualityScore *int
	QualityFlags []string
	ErrorMessage string
	DurationMs   int64
}

// Executor processes execution log entries.
type Executor struct {
	store    *production.Store
	renderer Renderer
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time

	// resolveFlags is read at the start of every attempt so environment
	// overrides take effect without a restart.
	resolveFlags func() RunConfig

	// updateExecution defaults to the store method; tests substitute it to
	// exercise persistence-failure paths.
	updateExecution func(ctx context.Context, log *production.ExecutionLog) error

	// claimHintLimit caps the verified-claim excerpt sent to the engine.
	claimHintLimit int
}

// New constructs an Executor.
func New(store *production.Store, renderer Renderer, cfg *config.Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		store:           store,
		renderer:        renderer,
		cfg:             cfg,
		logger:          logger.With(logging.String(logging.FieldComponent, "executor")),
		now:             time.Now,
		resolveFlags:    func() RunConfig { return ResolveRunConfig(cfg) },
		updateExecution: store.UpdateExecution,
		claimHintLimit:  5,
	}
}

// persistedError marks errors whose execution-log state is already written.
// The top-level failure handler must not overwrite that state.
type persistedError struct {
	cause error
}

func (e *persistedError) Error() string { return e.cause.Error() }
func (e *persistedError) Unwrap() error { return e.cause }

func markPersisted(err error) error {
	return &persistedError{cause: err}
}

func isPersisted(err error) bool {
	var marker *persistedError
	return errors.As(err, &marker)
}

// Process runs one attempt for the given execution log id.
func (e *Executor) Process(ctx context.Context, executionID int64) (*Outcome, error) {
	log, err := e.store.GetExecution(ctx, executionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "executor", "load execution", "failed to load execution log", err)
	}
	if log == nil {
		return nil, services.Wrap(services.ErrNotFound, "executor", "load execution", fmt.Sprintf("execution %d not found", executionID), nil)
	}

	// Idempotency guard: a redelivered completed job does no work at all.
	if log.Status == production.ExecutionCompleted {
		return &Outcome{Status: production.ExecutionCompleted, CanPublish: log.CanPublish, QualityScore: log.QualityScore, QualityFlags: log.QualityFlags, DurationMs: 0}, nil
	}

	ctx = services.WithBriefID(ctx, log.BriefID)
	ctx = services.WithExecutionID(ctx, log.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, e.logger)

	flags := e.resolveFlags()
	snapshot := flags.Snapshot()

	if !flags.PipelineEnabled {
		log.Status = production.ExecutionCompleted
		log.ErrorMessage = "pipeline disabled, execution skipped"
		log.FeatureFlags = snapshot
		completed := e.now()
		log.CompletedAt = &completed
		if err := e.updateExecution(ctx, log); err != nil {
			return nil, services.Wrap(services.ErrTransient, "executor", "persist skip", "failed to persist disabled-pipeline completion", err)
		}
		logger.Info("pipeline disabled, execution skipped")
		return &Outcome{Status: production.ExecutionCompleted, ErrorMessage: log.ErrorMessage}, nil
	}

	start := e.now()
	log.Status = production.ExecutionProcessing
	log.StartedAt = &start
	log.FeatureFlags = snapshot
	if err := e.updateExecution(ctx, log); err != nil {
		return nil, services.Wrap(services.ErrTransient, "executor", "mark processing", "failed to mark execution processing", err)
	}

	outcome, err := e.run(ctx, logger, log, flags, start)
	if err == nil {
		return outcome, nil
	}
	if isPersisted(err) {
		return nil, err
	}

	// Uncaught failure: persist a terminal failed state once. If that write
	// also fails the log's true state is unknown, so the error propagates
	// and the queue retries.
	logger.Error("execution failed", logging.Error(err))
	log.Status = production.ExecutionFailed
	log.ErrorMessage = err.Error()
	log.DurationMs = e.sinceMs(start)
	completed := e.now()
	log.CompletedAt = &completed
	if uerr := e.updateExecution(ctx, log); uerr != nil {
		return nil, services.Wrap(services.ErrTransient, "executor", "persist failure",
			"failed to persist terminal failure state", errors.Join(err, uerr))
	}
	return &Outcome{Status: production.ExecutionFailed, ErrorMessage: log.ErrorMessage, DurationMs: log.DurationMs}, nil
}

func (e *Executor) run(ctx context.Context, logger *slog.Logger, log *production.ExecutionLog, flags RunConfig, start time.Time) (*Outcome, error) {
	p, err := e.store.GetProduction(ctx, log.BriefID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "executor", "load production", "failed to load production", err)
	}
	if p == nil {
		return e.failTerminal(ctx, logger, log, start, fmt.Sprintf("production %s not found", log.BriefID))
	}

	input := gates.BuildInput(p)

	check := gates.CheckArtefacts(input)
	log.ArtefactCheck = &check
	if !check.CanProceed {
		blocked := false
		log.CanPublish = &blocked
		return e.failTerminal(ctx, logger, log, start,
			fmt.Sprintf("missing artefacts: %s", strings.Join(check.Missing, ", ")))
	}

	evaluated := gates.EvaluateAll(input)
	score := gates.QualityScore(evaluated.Flags)

	var canPublish *bool
	if flags.GatesBlocking {
		decision := evaluated.CanPublish
		canPublish = &decision
	} else if !evaluated.CanPublish {
		logger.Warn("observe-only mode: gates would have blocked publish",
			logging.Any("flags", evaluated.Flags))
	}

	template, fellBack := templates.Resolve(p.TemplateID, p.VideoType)
	if fellBack {
		logger.Warn("unknown template, using type default",
			logging.String("template_id", p.TemplateID),
			logging.String("resolved", template.ID))
	}

	req := render.Request{
		BriefID:               p.BriefID,
		ExecutionLogID:        log.ID,
		VideoType:             p.VideoType,
		Vertical:              p.Vertical,
		TemplateID:            template.ID,
		ResolvedCompositionID: template.CompositionID,
		CompositionProps:      e.compositionProps(template, p),
		OutputDir:             filepath.Join(e.cfg.Paths.DataDir, "renders", p.BriefID),
		GateResults:           evaluated.Gates,
		QualityScore:          &score,
		CanPublish:            canPublish,
		GovernanceSnapshot:    governanceSnapshot(flags),
	}

	logger.Info("invoking render engine",
		logging.String("composition", template.CompositionID),
		logging.String("engine", flags.RenderEngine))
	result, err := e.renderer.Render(ctx, req, func(update render.ProgressUpdate) {
		logger.Debug("render progress",
			logging.Float64("percent", update.Percent),
			logging.String("stage", update.Stage))
	})
	if err != nil {
		// The engine produced no result at all; infrastructure trouble.
		// Persist what we know and let the queue retry.
		log.RenderStatus = render.StatusFailed
		log.Retryable = true
		log.ErrorMessage = err.Error()
		if uerr := e.updateExecution(ctx, log); uerr != nil {
			return nil, services.Wrap(services.ErrTransient, "executor", "persist render failure",
				"failed to persist render failure state", errors.Join(err, uerr))
		}
		return nil, markPersisted(services.Wrap(services.ErrExternalTool, "executor", "render",
			"render engine did not produce a result", err))
	}

	resp := result.Response
	applyRenderResult(log, resp, result)

	if !resp.Succeeded() {
		message := resp.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("render failed with code %s", resp.ErrorCode)
		}
		if resp.Retryable {
			log.ErrorMessage = message
			if uerr := e.updateExecution(ctx, log); uerr != nil {
				return nil, services.Wrap(services.ErrTransient, "executor", "persist render failure",
					"failed to persist retryable render state", uerr)
			}
			return nil, markPersisted(services.Wrap(services.ErrExternalTool, "executor", "render", message, nil))
		}
		return e.failTerminal(ctx, logger, log, start, message)
	}

	// Phase 1: persist render result, gate results, and decision fields.
	// This write is replayable; a retried attempt overwrites it identically.
	log.GateResults = evaluated.Gates
	log.CanPublish = canPublish
	log.QualityScore = &score
	log.QualityFlags = evaluated.Flags
	if err := e.updateExecution(ctx, log); err != nil {
		return nil, services.Wrap(services.ErrTransient, "executor", "finalize phase 1",
			"failed to persist render and gate results", err)
	}

	// Write governance outputs back onto the production so downstream
	// consumers never need to read the execution log. This happens before the
	// completed flip: once the log is completed the idempotency guard stops
	// redelivered attempts, so the write-back must already be durable by then.
	p.GateResults = evaluated.Gates
	p.QualityScore = &score
	p.QualityFlags = evaluated.Flags
	p.ActualDurationSec = pickDuration(p.ActualDurationSec, resp.DurationSec)
	p.Status = productionStatusFor(canPublish)
	if err := e.store.UpdateProduction(ctx, p); err != nil {
		return nil, markPersisted(services.Wrap(services.ErrTransient, "executor", "production write-back",
			"failed to write governance outputs to production", err))
	}

	// Phase 2: flip to completed. A failure here must reach the queue so the
	// attempt is retried; the log stays processing with phase 1 intact.
	log.Status = production.ExecutionCompleted
	completed := e.now()
	log.CompletedAt = &completed
	log.DurationMs = e.sinceMs(start)
	if err := e.updateExecution(ctx, log); err != nil {
		return nil, markPersisted(services.Wrap(services.ErrTransient, "executor", "finalize phase 2",
			"failed to mark execution completed", err))
	}

	logger.Info("execution completed",
		logging.Int("quality_score", score),
		logging.Any("can_publish", canPublish),
		logging.Int64("duration_ms", log.DurationMs))

	return &Outcome{
		Status:       production.ExecutionCompleted,
		CanPublish:   canPublish,
		QualityScore: &score,
		QualityFlags: evaluated.Flags,
		DurationMs:   log.DurationMs,
	}, nil
}

// failTerminal persists a non-retryable failed state and returns the outcome
// without an error; the queue must not redeliver this job.
func (e *Executor) failTerminal(ctx context.Context, logger *slog.Logger, log *production.ExecutionLog, start time.Time, message string) (*Outcome, error) {
	logger.Error("execution failed terminally", logging.String("reason", message))
	log.Status = production.ExecutionFailed
	log.ErrorMessage = message
	log.Retryable = false
	log.DurationMs = e.sinceMs(start)
	completed := e.now()
	log.CompletedAt = &completed
	if err := e.updateExecution(ctx, log); err != nil {
		return nil, services.Wrap(services.ErrTransient, "executor", "persist terminal failure",
			"failed to persist terminal failure state", err)
	}
	return &Outcome{
		Status:       production.ExecutionFailed,
		CanPublish:   log.CanPublish,
		ErrorMessage: message,
		DurationMs:   log.DurationMs,
	}, nil
}

func (e *Executor) compositionProps(template templates.Template, p *production.VideoProduction) map[string]any {
	props := template.Props(p)
	hints := make([]string, 0, e.claimHintLimit)
	for _, claim := range p.VerifiedClaims() {
		if len(hints) >= e.claimHintLimit {
			break
		}
		hints = append(hints, claim.RawText)
	}
	if len(hints) > 0 {
		props["claimHints"] = hints
	}
	return props
}

func (e *Executor) sinceMs(start time.Time) int64 {
	return e.now().Sub(start).Milliseconds()
}

func governanceSnapshot(flags RunConfig) map[string]any {
	snapshot := make(map[string]any, 5)
	for key, value := range flags.Snapshot() {
		snapshot[key] = value
	}
	return snapshot
}

func applyRenderResult(log *production.ExecutionLog, resp *render.Response, result *render.Result) {
	log.RenderStatus = resp.Status
	log.RenderOutputPath = resp.OutputPath
	log.RenderDurationMs = resp.DurationMs
	log.RenderErrorCode = resp.ErrorCode
	log.EngineName = resp.EngineName
	log.EngineVersion = resp.EngineVersion
	log.EngineResolution = resp.EngineResolution
	log.Retryable = resp.Retryable
	log.IsCanary = result.IsCanary
	log.CanaryFallback = result.CanaryFallback

	metadata := resp.Metadata
	if metadata == nil {
		metadata = make(map[string]any, 3)
	}
	metadata["canary"] = result.IsCanary
	metadata["fallback"] = result.CanaryFallback
	if result.CanaryError != "" {
		metadata["canaryError"] = result.CanaryError
	}
	log.RenderMetadata = metadata
}

func pickDuration(existing, measured *float64) *float64 {
	if measured != nil {
		return measured
	}
	return existing
}

func productionStatusFor(canPublish *bool) production.Status {
	switch {
	case canPublish == nil:
		return production.StatusQA
	case *canPublish:
		return production.StatusReadyForPublish
	default:
		return production.StatusQAFailed
	}
}

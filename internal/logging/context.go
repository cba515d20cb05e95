package logging

import (
	"context"
	"log/slog"

	"greenlight/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBriefID is the standardized structured logging key for production brief identifiers.
	FieldBriefID = "brief_id"
	// FieldExecutionID is the standardized structured logging key for execution log identifiers.
	FieldExecutionID = "execution_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldGate is the standardized structured logging key for gate names.
	FieldGate = "gate"
	// FieldVerdict is the standardized structured logging key for gate verdicts.
	FieldVerdict = "verdict"
	// FieldEventType tags log records for downstream filtering.
	FieldEventType = "event_type"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if briefID, ok := services.BriefIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBriefID, briefID))
	}
	if id, ok := services.ExecutionIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldExecutionID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (noopHandler) WithAttrs([]slog.Attr) slog.Handler { return noopHandler{} }

func (noopHandler) WithGroup(string) slog.Handler { return noopHandler{} }

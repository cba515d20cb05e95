package services

import "context"

type contextKey string

const (
	briefIDKey     contextKey = "brief_id"
	executionIDKey contextKey = "execution_id"
	stageKey       contextKey = "stage"
	requestIDKey   contextKey = "request_id"
)

// WithBriefID annotates context with the production brief identifier.
func WithBriefID(ctx context.Context, briefID string) context.Context {
	if briefID == "" {
		return ctx
	}
	return context.WithValue(ctx, briefIDKey, briefID)
}

// BriefIDFromContext extracts the production brief identifier if present.
func BriefIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(briefIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithExecutionID annotates context with the execution log identifier.
func WithExecutionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, executionIDKey, id)
}

// ExecutionIDFromContext extracts the execution log identifier if present.
func ExecutionIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(executionIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

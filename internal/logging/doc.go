// Package logging centralizes slog construction and the structured field
// conventions used across the pipeline. Loggers carry a component attribute,
// and per-execution fields (brief_id, execution_id, stage, correlation_id)
// are derived from context via WithContext.
package logging

// Package services defines shared utilities consumed by the execution
// pipeline and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp brief IDs, execution log IDs, stage names,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into retryable and terminal outcomes for the job worker.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services

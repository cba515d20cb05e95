package render

import (
	"context"

	"greenlight/internal/production"
)

// Request is the full payload handed to the render engine. The governance
// snapshot travels with the request so the engine can burn disclaimers and
// compliance overlays into the output without a callback.
type Request struct {
	BriefID        string               `json:"briefId"`
	ExecutionLogID int64                `json:"executionLogId"`
	VideoType      production.VideoType `json:"videoType"`
	Vertical       string               `json:"vertical"`
	TemplateID     string               `json:"templateId"`

	ResolvedCompositionID string         `json:"resolvedCompositionId"`
	CompositionProps      map[string]any `json:"compositionProps,omitempty"`
	OutputDir             string         `json:"outputDir"`

	GateResults        []production.GateResult `json:"gateResults,omitempty"`
	QualityScore       *int                    `json:"qualityScore,omitempty"`
	CanPublish         *bool                   `json:"canPublish,omitempty"`
	GovernanceSnapshot map[string]any          `json:"governanceSnapshot,omitempty"`
}

// Render statuses reported by the engine.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Response is the engine's final result event.
type Response struct {
	Status           string         `json:"status"`
	OutputPath       string         `json:"outputPath,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	DurationMs       int64          `json:"durationMs"`
	DurationSec      *float64       `json:"durationSec,omitempty"`
	ErrorCode        string         `json:"errorCode,omitempty"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	Retryable        bool           `json:"retryable"`
	EngineName       string         `json:"engineName,omitempty"`
	EngineVersion    string         `json:"engineVersion,omitempty"`
	EngineResolution string         `json:"engineResolution,omitempty"`
}

// Succeeded reports whether the engine produced an output.
func (r *Response) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// ProgressUpdate captures engine progress events.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
}

// Client defines render engine behaviour.
type Client interface {
	Render(ctx context.Context, req Request, progress func(ProgressUpdate)) (*Response, error)
	Name() string
}

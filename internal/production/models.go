package production

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a video production.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingReview   Status = "pending_review"
	StatusScriptApproved  Status = "script_approved"
	StatusStoryboard      Status = "storyboard"
	StatusRendering       Status = "rendering"
	StatusQA              Status = "qa"
	StatusQAFailed        Status = "qa_failed"
	StatusReadyForPublish Status = "ready_for_publish"
	StatusPublished       Status = "published"
	StatusArchived        Status = "archived"
)

var allStatuses = []Status{
	StatusDraft,
	StatusPendingReview,
	StatusScriptApproved,
	StatusStoryboard,
	StatusRendering,
	StatusQA,
	StatusQAFailed,
	StatusReadyForPublish,
	StatusPublished,
	StatusArchived,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// VideoType identifies the production format.
type VideoType string

const (
	TypeFilmSocle VideoType = "film_socle"
	TypeFilmGamme VideoType = "film_gamme"
	TypeShort     VideoType = "short"
)

// ParseVideoType converts a string into a known VideoType.
func ParseVideoType(value string) (VideoType, bool) {
	normalized := VideoType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case TypeFilmSocle, TypeFilmGamme, TypeShort:
		return normalized, true
	default:
		return "", false
	}
}

// ContentRole distinguishes verified long-form masters from mechanically
// generated short derivatives.
type ContentRole string

const (
	RoleMasterTruth ContentRole = "master_truth"
	RoleDerivative  ContentRole = "derivative"
)

// ClaimKind categorizes a factual assertion.
type ClaimKind string

const (
	ClaimMileage    ClaimKind = "mileage"
	ClaimDimension  ClaimKind = "dimension"
	ClaimPercentage ClaimKind = "percentage"
	ClaimNorm       ClaimKind = "norm"
	ClaimProcedure  ClaimKind = "procedure"
	ClaimSafety     ClaimKind = "safety"
)

// ClaimStatus tracks verification state of a claim.
type ClaimStatus string

const (
	ClaimVerified   ClaimStatus = "verified"
	ClaimUnverified ClaimStatus = "unverified"
	ClaimBlocked    ClaimStatus = "blocked"
)

// ClaimEntry is one factual assertion extracted from a script. Claims are
// created by script generation and consumed read-only by the gate evaluator
// and derivative generator.
type ClaimEntry struct {
	ID                      string      `json:"id"`
	Kind                    ClaimKind   `json:"kind"`
	RawText                 string      `json:"rawText"`
	Value                   string      `json:"value"`
	Unit                    string      `json:"unit,omitempty"`
	SectionKey              string      `json:"sectionKey"`
	SourceRef               string      `json:"sourceRef,omitempty"`
	EvidenceID              string      `json:"evidenceId,omitempty"`
	Status                  ClaimStatus `json:"status"`
	RequiresHumanValidation bool        `json:"requiresHumanValidation"`
	ValidatedBy             string      `json:"validatedBy,omitempty"`
	ValidatedAt             *time.Time  `json:"validatedAt,omitempty"`
}

// IsSensitive reports whether a claim kind requires human validation scrutiny.
func (c ClaimEntry) IsSensitive() bool {
	return c.Kind == ClaimProcedure || c.Kind == ClaimSafety
}

// EvidenceEntry is a grounding excerpt backing one or more claims.
type EvidenceEntry struct {
	DocID      string  `json:"docId"`
	Heading    string  `json:"heading"`
	CharRange  [2]int  `json:"charRange"`
	RawExcerpt string  `json:"rawExcerpt"`
	Confidence float64 `json:"confidence"`
	SourceHash string  `json:"sourceHash,omitempty"`
}

// DisclaimerPosition places a disclaimer within the video.
type DisclaimerPosition string

const (
	DisclaimerIntro           DisclaimerPosition = "intro"
	DisclaimerBeforeProcedure DisclaimerPosition = "before_procedure"
	DisclaimerOverlay         DisclaimerPosition = "overlay"
	DisclaimerOutro           DisclaimerPosition = "outro"
)

// DisclaimerEntry is one planned disclaimer.
type DisclaimerEntry struct {
	Type     string             `json:"type"`
	Text     string             `json:"text"`
	Position DisclaimerPosition `json:"position"`
}

// DisclaimerPlan is the ordered list of disclaimers for a production.
type DisclaimerPlan struct {
	Entries []DisclaimerEntry `json:"entries"`
}

// ApprovalStage identifies a human sign-off checkpoint.
type ApprovalStage string

const (
	ApprovalScriptText    ApprovalStage = "script_text"
	ApprovalStoryboard    ApprovalStage = "storyboard"
	ApprovalRenderPreview ApprovalStage = "render_preview"
	ApprovalFinalPublish  ApprovalStage = "final_publish"
)

// ApprovalStatus tracks one stage's sign-off state.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalEntry is one stage of the approval record.
type ApprovalEntry struct {
	Stage      ApprovalStage  `json:"stage"`
	Status     ApprovalStatus `json:"status"`
	ApprovedBy string         `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time     `json:"approvedAt,omitempty"`
}

// ApprovalRecord holds all sign-off stages for a production.
type ApprovalRecord struct {
	BriefID string          `json:"briefId"`
	Stages  []ApprovalEntry `json:"stages"`
}

// StageStatus returns the status of the named approval stage, or pending
// when the stage is absent.
func (r ApprovalRecord) StageStatus(stage ApprovalStage) ApprovalStatus {
	for _, entry := range r.Stages {
		if entry.Stage == stage {
			return entry.Status
		}
	}
	return ApprovalPending
}

// KnowledgeContract pins the documentation scope a script was generated from.
type KnowledgeContract struct {
	Version    string   `json:"version"`
	Vertical   string   `json:"vertical"`
	SourceDocs []string `json:"sourceDocs,omitempty"`
}

// VisualAssetUsage distinguishes assets shown as proof from illustration.
type VisualAssetUsage string

const (
	VisualProof        VisualAssetUsage = "proof"
	VisualIllustration VisualAssetUsage = "illustration"
)

// VisualAsset is one visual element placed in the storyboard.
type VisualAsset struct {
	AssetID       string           `json:"assetId"`
	Path          string           `json:"path,omitempty"`
	Usage         VisualAssetUsage `json:"usage"`
	RoleValidated bool             `json:"roleValidated"`
}

// Verdict is the outcome of a single gate.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// TriggerItem pinpoints one offending element inside a gate result.
type TriggerItem struct {
	Location    string `json:"location"`
	Issue       string `json:"issue"`
	EvidenceRef string `json:"evidenceRef,omitempty"`
}

// GateResult is the immutable output of one gate evaluation. A fresh run
// overwrites the stored set, never appends.
type GateResult struct {
	Gate          string        `json:"gate"`
	Verdict       Verdict       `json:"verdict"`
	Measured      float64       `json:"measured"`
	WarnThreshold float64       `json:"warnThreshold"`
	FailThreshold float64       `json:"failThreshold"`
	Details       []string      `json:"details,omitempty"`
	TriggerItems  []TriggerItem `json:"triggerItems,omitempty"`
}

// ArtefactCheck reports which governance artefacts a production is missing.
type ArtefactCheck struct {
	CanProceed bool     `json:"canProceed"`
	Missing    []string `json:"missing,omitempty"`
}

// DerivativePolicy controls derivative generation from a master production.
// A nil field means "inherit" during policy resolution.
type DerivativePolicy struct {
	MaxDerivatives int         `json:"maxDerivatives,omitempty"`
	VideoType      VideoType   `json:"videoType,omitempty"`
	ClaimKinds     []ClaimKind `json:"claimKinds,omitempty"`
	TemplateID     string      `json:"templateId,omitempty"`
}

// VideoProduction is one video's lifecycle record.
type VideoProduction struct {
	BriefID    string
	Title      string
	VideoType  VideoType
	Vertical   string
	GammeAlias string
	PgID       string
	Status     Status
	TemplateID string
	ScriptText string

	// Governance artefacts, nil until produced upstream.
	KnowledgeContract *KnowledgeContract
	ClaimTable        []ClaimEntry
	EvidencePack      []EvidenceEntry
	DisclaimerPlan    *DisclaimerPlan
	ApprovalRecord    *ApprovalRecord
	VisualAssets      []VisualAsset

	// Measurements supplied by rendering and the reuse-risk scorer.
	ActualDurationSec *float64
	SimilarityScore   *float64

	// Governance outputs, written back by the executor.
	QualityScore *int
	QualityFlags []string
	GateResults  []GateResult

	// Lineage. A derivative always has a non-empty ParentBriefID referring
	// to a master_truth production.
	ContentRole      ContentRole
	ParentBriefID    string
	DerivativeIndex  *int
	DerivativePolicy *DerivativePolicy

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsMaster reports whether this production is a verified master.
func (p *VideoProduction) IsMaster() bool {
	return p.ContentRole == RoleMasterTruth
}

// VerifiedClaims returns the claims with verified status, in table order.
func (p *VideoProduction) VerifiedClaims() []ClaimEntry {
	var verified []ClaimEntry
	for _, claim := range p.ClaimTable {
		if claim.Status == ClaimVerified {
			verified = append(verified, claim)
		}
	}
	return verified
}

// ExecutionStatus represents the lifecycle of one execution attempt.
type ExecutionStatus string

const (
	ExecutionQueued     ExecutionStatus = "queued"
	ExecutionProcessing ExecutionStatus = "processing"
	ExecutionCompleted  ExecutionStatus = "completed"
	ExecutionFailed     ExecutionStatus = "failed"
)

// ExecutionLog records one pipeline attempt for a production. Rows are
// created at enqueue time, mutated only by the executor, and never deleted.
type ExecutionLog struct {
	ID      int64
	BriefID string
	Status  ExecutionStatus

	ArtefactCheck *ArtefactCheck
	GateResults   []GateResult

	RenderStatus     string
	RenderOutputPath string
	RenderMetadata   map[string]any
	RenderDurationMs int64
	RenderErrorCode  string
	EngineName       string
	EngineVersion    string
	EngineResolution string
	Retryable        bool
	IsCanary         bool
	CanaryFallback   bool

	CanPublish   *bool
	QualityScore *int
	QualityFlags []string
	ErrorMessage string
	DurationMs   int64
	FeatureFlags map[string]string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// ParseExecutionStatus converts a string into a known ExecutionStatus.
func ParseExecutionStatus(value string) (ExecutionStatus, bool) {
	normalized := ExecutionStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case ExecutionQueued, ExecutionProcessing, ExecutionCompleted, ExecutionFailed:
		return normalized, true
	default:
		return "", false
	}
}

// IsTerminal reports whether an execution has reached a final state.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

package gates

import "greenlight/internal/production"

// Artefact names reported by the precondition check, in check order.
const (
	ArtefactBrief          = "brief"
	ArtefactClaimTable     = "claim_table"
	ArtefactEvidencePack   = "evidence_pack"
	ArtefactDisclaimerPlan = "disclaimer_plan"
	ArtefactApprovalRecord = "approval_record"
)

// CheckArtefacts verifies that every governance artefact required before
// rendering is present. Presence only; content validity belongs to the gates.
func CheckArtefacts(input Input) production.ArtefactCheck {
	var missing []string
	if input.BriefID == "" {
		missing = append(missing, ArtefactBrief)
	}
	if len(input.ClaimTable) == 0 {
		missing = append(missing, ArtefactClaimTable)
	}
	if len(input.EvidencePack) == 0 {
		missing = append(missing, ArtefactEvidencePack)
	}
	if input.DisclaimerPlan == nil {
		missing = append(missing, ArtefactDisclaimerPlan)
	}
	if input.ApprovalRecord == nil {
		missing = append(missing, ArtefactApprovalRecord)
	}
	return production.ArtefactCheck{
		CanProceed: len(missing) == 0,
		Missing:    missing,
	}
}

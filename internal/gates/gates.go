package gates

import (
	"fmt"
	"sort"
	"strings"

	"greenlight/internal/production"
)

// Input carries the artefacts and measurements one evaluation run consumes.
// It is a read-only snapshot; evaluation never mutates the production.
type Input struct {
	BriefID        string
	VideoType      production.VideoType
	ScriptText     string
	ClaimTable     []production.ClaimEntry
	EvidencePack   []production.EvidenceEntry
	DisclaimerPlan *production.DisclaimerPlan
	ApprovalRecord *production.ApprovalRecord
	VisualAssets   []production.VisualAsset

	ActualDurationSec *float64
	SimilarityScore   *float64
}

// BuildInput snapshots a production into an evaluation input.
func BuildInput(p *production.VideoProduction) Input {
	return Input{
		BriefID:           p.BriefID,
		VideoType:         p.VideoType,
		ScriptText:        p.ScriptText,
		ClaimTable:        p.ClaimTable,
		EvidencePack:      p.EvidencePack,
		DisclaimerPlan:    p.DisclaimerPlan,
		ApprovalRecord:    p.ApprovalRecord,
		VisualAssets:      p.VisualAssets,
		ActualDurationSec: p.ActualDurationSec,
		SimilarityScore:   p.SimilarityScore,
	}
}

// Outcome is the aggregate of one full evaluation run.
type Outcome struct {
	CanPublish bool
	Gates      []production.GateResult
	Flags      []string
}

// HasFailure reports whether any gate failed.
func (o Outcome) HasFailure() bool {
	return !o.CanPublish
}

// EvaluateAll runs every gate in order and aggregates the publish decision.
// A production can publish exactly when no gate fails; warnings never block.
func EvaluateAll(input Input) Outcome {
	results := make([]production.GateResult, 0, GateCount)
	var flags []string

	for _, gate := range allGates {
		var result production.GateResult
		var gateFlags []string
		switch gate {
		case GateTruth:
			result, gateFlags = evaluateTruth(input)
		case GateSafety:
			result, gateFlags = evaluateSafety(input)
		case GateBrand:
			result, gateFlags = evaluateBrand(input)
		case GatePlatform:
			result, gateFlags = evaluatePlatform(input)
		case GateReuse:
			result, gateFlags = evaluateReuse(input)
		case GateVisual:
			result, gateFlags = evaluateVisual(input)
		case GateFinalQA:
			result, gateFlags = evaluateFinalQA(input)
		}
		results = append(results, result)
		switch result.Verdict {
		case production.VerdictFail:
			flags = append(flags, flagGateFailPrefix+result.Gate)
		case production.VerdictWarn:
			flags = append(flags, flagGateWarnPrefix+result.Gate)
		}
		flags = append(flags, gateFlags...)
	}

	canPublish := true
	for _, result := range results {
		if result.Verdict == production.VerdictFail {
			canPublish = false
			break
		}
	}

	return Outcome{
		CanPublish: canPublish,
		Gates:      results,
		Flags:      dedupeFlags(flags),
	}
}

// thresholdVerdict maps a measurement to a verdict. FAIL wins at the fail
// threshold, WARN at the warn threshold, PASS below both. With warn=0 a
// measurement of 0 still lands on WARN.
func thresholdVerdict(measured, warn, fail float64) production.Verdict {
	switch {
	case measured >= fail:
		return production.VerdictFail
	case measured >= warn:
		return production.VerdictWarn
	default:
		return production.VerdictPass
	}
}

func thresholdResult(gate Gate, measured float64) production.GateResult {
	pair := gateThresholds[gate]
	return production.GateResult{
		Gate:          gate.Name(),
		Verdict:       thresholdVerdict(measured, pair.warn, pair.fail),
		Measured:      measured,
		WarnThreshold: pair.warn,
		FailThreshold: pair.fail,
	}
}

// evaluateTruth measures the share of unverified claims. Blocked claims are
// already resolved and do not count. Procedure and safety claims are excluded
// from the numerator so the safety gate stays the single owner of that signal,
// but the denominator is the full table.
func evaluateTruth(input Input) (production.GateResult, []string) {
	total := len(input.ClaimTable)
	if total == 0 {
		result := thresholdResult(GateTruth, 0)
		result.Verdict = production.VerdictPass
		result.Details = []string{"no claims extracted"}
		return result, nil
	}

	unverified := 0
	var triggers []production.TriggerItem
	for _, claim := range input.ClaimTable {
		if claim.Status != production.ClaimUnverified || claim.IsSensitive() {
			continue
		}
		unverified++
		triggers = append(triggers, production.TriggerItem{
			Location:    claim.SectionKey,
			Issue:       fmt.Sprintf("claim %s (%s) is %s", claim.ID, claim.Kind, claim.Status),
			EvidenceRef: claim.EvidenceID,
		})
	}

	result := thresholdResult(GateTruth, float64(unverified)/float64(total))
	result.Details = []string{fmt.Sprintf("%d of %d claims unverified", unverified, total)}
	result.TriggerItems = triggers

	var flags []string
	if result.Verdict != production.VerdictPass {
		flags = append(flags, FlagUnsourcedClaims)
	}
	return result, flags
}

// evaluateSafety counts sensitive claims that lack completed human validation.
func evaluateSafety(input Input) (production.GateResult, []string) {
	unvalidated := 0
	var triggers []production.TriggerItem
	for _, claim := range input.ClaimTable {
		if !claim.IsSensitive() {
			continue
		}
		if claim.RequiresHumanValidation && claim.ValidatedBy == "" {
			unvalidated++
			triggers = append(triggers, production.TriggerItem{
				Location: claim.SectionKey,
				Issue:    fmt.Sprintf("%s claim %s awaits human validation", claim.Kind, claim.ID),
			})
		}
	}

	result := thresholdResult(GateSafety, float64(unvalidated))
	result.Details = []string{fmt.Sprintf("%d sensitive claims unvalidated", unvalidated)}
	result.TriggerItems = triggers

	var flags []string
	if unvalidated > 0 {
		flags = append(flags, FlagUnvalidatedSafety)
	}
	return result, flags
}

// evaluateBrand scans the script line by line for forbidden marketing phrases.
// Shorts use the extended phrase set; long-form modes additionally count
// call-to-action keywords as violations.
func evaluateBrand(input Input) (production.GateResult, []string) {
	mode := brandModeFor(input.VideoType)
	phrases := forbiddenPhrasesFor(mode)

	violations := 0
	ctaHits := 0
	var triggers []production.TriggerItem
	for lineNo, line := range strings.Split(input.ScriptText, "\n") {
		for _, phrase := range phrases {
			if match := phrase.FindString(line); match != "" {
				violations++
				triggers = append(triggers, production.TriggerItem{
					Location: fmt.Sprintf("line %d", lineNo+1),
					Issue:    fmt.Sprintf("forbidden phrase %q", match),
				})
			}
		}
		if mode == brandModeSocle {
			for _, keyword := range ctaKeywords {
				if match := keyword.FindString(line); match != "" {
					violations++
					ctaHits++
					triggers = append(triggers, production.TriggerItem{
						Location: fmt.Sprintf("line %d", lineNo+1),
						Issue:    fmt.Sprintf("call to action %q", match),
					})
				}
			}
		}
	}

	result := thresholdResult(GateBrand, float64(violations))
	result.Details = []string{fmt.Sprintf("%d brand violations", violations)}
	result.TriggerItems = triggers

	var flags []string
	if violations > ctaHits {
		flags = append(flags, FlagForbiddenPhrase)
	}
	if ctaHits > 0 {
		flags = append(flags, FlagCTAInSocle)
	}
	return result, flags
}

// evaluatePlatform checks the rendered duration against the allowed range for
// the production type, widened by the tolerance. The gate is boolean. When no
// duration has been measured yet the gate passes; rendering has not happened.
func evaluatePlatform(input Input) (production.GateResult, []string) {
	bounds, ok := durationRanges[input.VideoType]
	result := production.GateResult{Gate: GatePlatform.Name(), Verdict: production.VerdictPass}
	if !ok {
		result.Details = []string{fmt.Sprintf("no duration constraints for type %s", input.VideoType)}
		return result, nil
	}

	minAllowed := bounds.minSec * (1 - durationTolerance)
	maxAllowed := bounds.maxSec * (1 + durationTolerance)
	result.WarnThreshold = minAllowed
	result.FailThreshold = maxAllowed

	if input.ActualDurationSec == nil {
		result.Details = []string{"no measured duration, check skipped"}
		return result, nil
	}

	duration := *input.ActualDurationSec
	result.Measured = duration
	if duration < minAllowed || duration > maxAllowed {
		result.Verdict = production.VerdictFail
		result.Details = []string{fmt.Sprintf("duration %.1fs outside [%.1fs, %.1fs]", duration, minAllowed, maxAllowed)}
		return result, []string{FlagDurationOutOfRange}
	}
	result.Details = []string{fmt.Sprintf("duration %.1fs within [%.1fs, %.1fs]", duration, minAllowed, maxAllowed)}
	return result, nil
}

// evaluateReuse grades the caller-supplied similarity score against existing
// published content. A missing score means the scorer has not run; pass.
func evaluateReuse(input Input) (production.GateResult, []string) {
	if input.SimilarityScore == nil {
		result := thresholdResult(GateReuse, 0)
		result.Verdict = production.VerdictPass
		result.Details = []string{"no similarity score available"}
		return result, nil
	}

	result := thresholdResult(GateReuse, *input.SimilarityScore)
	result.Details = []string{fmt.Sprintf("similarity %.2f against published corpus", *input.SimilarityScore)}

	var flags []string
	if result.Verdict == production.VerdictFail {
		flags = append(flags, FlagHighReuseRisk)
	}
	return result, flags
}

// evaluateVisual counts storyboard assets used as proof whose role has not
// been validated. Illustration assets are exempt.
func evaluateVisual(input Input) (production.GateResult, []string) {
	unvalidated := 0
	var triggers []production.TriggerItem
	for _, asset := range input.VisualAssets {
		if asset.Usage != production.VisualProof || asset.RoleValidated {
			continue
		}
		unvalidated++
		triggers = append(triggers, production.TriggerItem{
			Location: asset.AssetID,
			Issue:    "proof asset without role validation",
		})
	}

	result := thresholdResult(GateVisual, float64(unvalidated))
	result.Details = []string{fmt.Sprintf("%d proof assets unvalidated", unvalidated)}
	result.TriggerItems = triggers

	var flags []string
	if unvalidated > 0 {
		flags = append(flags, FlagUnvalidatedVisual)
	}
	return result, flags
}

// evaluateFinalQA re-checks artefact completeness and requires an approved
// script_text sign-off. Either condition unmet fails the gate.
func evaluateFinalQA(input Input) (production.GateResult, []string) {
	check := CheckArtefacts(input)

	unmet := 0
	var details []string
	if !check.CanProceed {
		unmet++
		details = append(details, fmt.Sprintf("missing artefacts: %s", strings.Join(check.Missing, ", ")))
	}
	approved := input.ApprovalRecord != nil &&
		input.ApprovalRecord.StageStatus(production.ApprovalScriptText) == production.ApprovalApproved
	if !approved {
		unmet++
		details = append(details, "script_text approval not granted")
	}

	result := production.GateResult{
		Gate:          GateFinalQA.Name(),
		Verdict:       production.VerdictPass,
		Measured:      float64(unmet),
		FailThreshold: 1,
		Details:       details,
	}
	if unmet > 0 {
		result.Verdict = production.VerdictFail
	}

	var flags []string
	if input.DisclaimerPlan != nil && len(input.DisclaimerPlan.Entries) == 0 {
		flags = append(flags, FlagMissingDisclaimer)
		result.Details = append(result.Details, "disclaimer plan has no entries")
	}
	return result, flags
}

// dedupeFlags removes duplicates while keeping first-occurrence order.
func dedupeFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(flags))
	unique := flags[:0]
	for _, flag := range flags {
		if _, ok := seen[flag]; ok {
			continue
		}
		seen[flag] = struct{}{}
		unique = append(unique, flag)
	}
	return unique
}

// SortedFlagNames returns the known penalty flags, for diagnostics output.
func SortedFlagNames() []string {
	names := make([]string, 0, len(flagPenalties))
	for name := range flagPenalties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

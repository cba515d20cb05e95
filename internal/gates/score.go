package gates

import "strings"

// Penalty points per quality flag. Flags outside this table fall back to the
// gate prefix defaults; fully unknown flags cost nothing.
var flagPenalties = map[string]int{
	FlagUnsourcedClaims:    25,
	FlagUnvalidatedSafety:  40,
	FlagForbiddenPhrase:    10,
	FlagCTAInSocle:         30,
	FlagMissingDisclaimer:  15,
	FlagDurationOutOfRange: 20,
	FlagHighReuseRisk:      20,
	FlagUnvalidatedVisual:  20,
}

const (
	gateFailPenalty = 20
	gateWarnPenalty = 5
)

// QualityScore computes the 0..100 publishability score from quality flags.
// Each unique flag is charged once; duplicates are ignored.
func QualityScore(flags []string) int {
	score := 100
	seen := make(map[string]struct{}, len(flags))
	for _, flag := range flags {
		if _, ok := seen[flag]; ok {
			continue
		}
		seen[flag] = struct{}{}
		score -= penaltyFor(flag)
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func penaltyFor(flag string) int {
	if penalty, ok := flagPenalties[flag]; ok {
		return penalty
	}
	if strings.HasPrefix(flag, flagGateFailPrefix) {
		return gateFailPenalty
	}
	if strings.HasPrefix(flag, flagGateWarnPrefix) {
		return gateWarnPenalty
	}
	return 0
}

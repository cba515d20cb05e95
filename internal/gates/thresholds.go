package gates

import (
	"regexp"

	"greenlight/internal/production"
)

// Gate identifies one compliance check. The set is closed; EvaluateAll walks
// allGates so adding a gate without an evaluator fails at compile time.
type Gate int

const (
	GateTruth Gate = iota
	GateSafety
	GateBrand
	GatePlatform
	GateReuse
	GateVisual
	GateFinalQA
)

var allGates = [...]Gate{
	GateTruth,
	GateSafety,
	GateBrand,
	GatePlatform,
	GateReuse,
	GateVisual,
	GateFinalQA,
}

// GateCount is the number of gates evaluated per run.
const GateCount = len(allGates)

// Name returns the stable identifier used in results and flags.
func (g Gate) Name() string {
	switch g {
	case GateTruth:
		return "truth"
	case GateSafety:
		return "safety"
	case GateBrand:
		return "brand"
	case GatePlatform:
		return "platform"
	case GateReuse:
		return "reuse"
	case GateVisual:
		return "visual"
	case GateFinalQA:
		return "final_qa"
	default:
		return "unknown"
	}
}

type thresholdPair struct {
	warn float64
	fail float64
}

// Gate thresholds. Safety and visual use warn=0 on purpose: a measured value
// of exactly 0 still yields WARN, never PASS. Preserved as observed behavior
// pending product sign-off; do not "fix" silently.
var gateThresholds = [GateCount]thresholdPair{
	GateTruth:  {warn: 0.15, fail: 0.30},
	GateSafety: {warn: 0, fail: 1},
	GateBrand:  {warn: 1, fail: 3},
	GateReuse:  {warn: 0.5, fail: 0.7},
	GateVisual: {warn: 0, fail: 1},
}

type durationRange struct {
	minSec float64
	maxSec float64
}

// Allowed duration per production type, before tolerance.
var durationRanges = map[production.VideoType]durationRange{
	production.TypeFilmSocle: {minSec: 120, maxSec: 420},
	production.TypeFilmGamme: {minSec: 60, maxSec: 240},
	production.TypeShort:     {minSec: 15, maxSec: 60},
}

// durationTolerance expands the allowed range by ±10%.
const durationTolerance = 0.10

// brandMode selects the forbidden-phrase set. Long-form modes disallow CTAs.
type brandMode int

const (
	brandModeSocle brandMode = iota
	brandModeShort
)

func brandModeFor(videoType production.VideoType) brandMode {
	if videoType == production.TypeShort {
		return brandModeShort
	}
	return brandModeSocle
}

var socleForbiddenPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmeilleur prix\b`),
	regexp.MustCompile(`(?i)\bpromo(?:tion)?s? exceptionnelle?s?\b`),
	regexp.MustCompile(`(?i)\boffre limitée\b`),
	regexp.MustCompile(`(?i)\bgaranti[e]? à vie\b`),
	regexp.MustCompile(`(?i)\b100 ?% (?:sûr|garanti|efficace)\b`),
	regexp.MustCompile(`(?i)\bnuméro 1 du marché\b`),
}

// The short-mode set is a superset of the socle set.
var shortExtraForbiddenPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bvu à la télé\b`),
	regexp.MustCompile(`(?i)\bsans aucun risque\b`),
	regexp.MustCompile(`(?i)\brésultats? immédiats?\b`),
}

var ctaKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bachetez\b`),
	regexp.MustCompile(`(?i)\bcommandez\b`),
	regexp.MustCompile(`(?i)\bcliquez\b`),
	regexp.MustCompile(`(?i)\babonnez-vous\b`),
	regexp.MustCompile(`(?i)\bajoutez au panier\b`),
}

func forbiddenPhrasesFor(mode brandMode) []*regexp.Regexp {
	if mode == brandModeSocle {
		return socleForbiddenPhrases
	}
	phrases := make([]*regexp.Regexp, 0, len(socleForbiddenPhrases)+len(shortExtraForbiddenPhrases))
	phrases = append(phrases, socleForbiddenPhrases...)
	phrases = append(phrases, shortExtraForbiddenPhrases...)
	return phrases
}

// Quality flags emitted by gates and consumed by the score computation.
const (
	FlagUnsourcedClaims       = "UNSOURCED_CLAIMS"
	FlagUnvalidatedSafety     = "UNVALIDATED_SAFETY"
	FlagForbiddenPhrase       = "FORBIDDEN_PHRASE"
	FlagCTAInSocle            = "CTA_IN_SOCLE"
	FlagMissingDisclaimer     = "MISSING_DISCLAIMER"
	FlagDurationOutOfRange    = "DURATION_OUT_OF_RANGE"
	FlagHighReuseRisk         = "HIGH_REUSE_RISK"
	FlagUnvalidatedVisual     = "UNVALIDATED_VISUAL_PROOF"
	flagGateFailPrefix        = "GATE_FAIL:"
	flagGateWarnPrefix        = "GATE_WARN:"
)

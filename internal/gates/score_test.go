package gates_test

import (
	"testing"

	"greenlight/internal/gates"
)

func TestQualityScoreKnownFlags(t *testing.T) {
	cases := []struct {
		name  string
		flags []string
		want  int
	}{
		{"no flags", nil, 100},
		{"clean run warns", []string{"GATE_WARN:safety", "GATE_WARN:visual"}, 90},
		{"unsourced claims", []string{"UNSOURCED_CLAIMS", "GATE_WARN:truth"}, 70},
		{"unvalidated safety", []string{"UNVALIDATED_SAFETY", "GATE_FAIL:safety"}, 40},
		{"unknown gate fail falls back", []string{"GATE_FAIL:future_gate"}, 80},
		{"unknown gate warn falls back", []string{"GATE_WARN:future_gate"}, 95},
		{"unknown flag costs nothing", []string{"SOMETHING_ELSE"}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gates.QualityScore(tc.flags); got != tc.want {
				t.Fatalf("QualityScore(%v) = %d, want %d", tc.flags, got, tc.want)
			}
		})
	}
}

func TestQualityScoreClampsAtZero(t *testing.T) {
	flags := []string{
		"UNVALIDATED_SAFETY",
		"UNSOURCED_CLAIMS",
		"CTA_IN_SOCLE",
		"GATE_FAIL:safety",
		"GATE_FAIL:truth",
		"GATE_FAIL:brand",
	}
	if got := gates.QualityScore(flags); got != 0 {
		t.Fatalf("expected clamped score 0, got %d", got)
	}
}

func TestQualityScoreIgnoresDuplicateFlags(t *testing.T) {
	flags := []string{"UNSOURCED_CLAIMS", "UNSOURCED_CLAIMS", "UNSOURCED_CLAIMS"}
	if got := gates.QualityScore(flags); got != 75 {
		t.Fatalf("duplicates must be charged once, got %d", got)
	}
}

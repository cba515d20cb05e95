package testsupport

import (
	"context"
	"testing"

	"greenlight/internal/config"
	"greenlight/internal/production"
)

// MustOpenStore opens a production.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *production.Store {
	t.Helper()

	store, err := production.Open(cfg)
	if err != nil {
		t.Fatalf("production.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewMaster creates and persists a master production with a complete set of
// governance artefacts. Tests mutate the returned record as needed.
func NewMaster(t testing.TB, store *production.Store, briefID string) *production.VideoProduction {
	t.Helper()

	master := MasterFixture(briefID)
	if err := store.CreateProduction(context.Background(), master); err != nil {
		t.Fatalf("store.CreateProduction: %v", err)
	}
	return master
}

// MasterFixture builds an unsaved master production with every governance
// artefact present and a small verified claim table.
func MasterFixture(briefID string) *production.VideoProduction {
	return &production.VideoProduction{
		BriefID:     briefID,
		Title:       "Brake pad replacement basics",
		VideoType:   production.TypeFilmSocle,
		Vertical:    "auto",
		Status:      production.StatusScriptApproved,
		ScriptText:  "Brake pads wear out after 40000 km.\nAlways secure the vehicle before lifting.",
		ContentRole: production.RoleMasterTruth,
		KnowledgeContract: &production.KnowledgeContract{
			Version:  "1",
			Vertical: "auto",
		},
		ClaimTable: []production.ClaimEntry{
			{
				ID:         "c1",
				Kind:       production.ClaimMileage,
				RawText:    "Brake pads wear out after 40000 km",
				Value:      "40000",
				Unit:       "km",
				SectionKey: "intro",
				SourceRef:  "doc-1",
				Status:     production.ClaimVerified,
			},
			{
				ID:                      "c2",
				Kind:                    production.ClaimSafety,
				RawText:                 "Always secure the vehicle before lifting",
				SectionKey:              "procedure",
				Status:                  production.ClaimVerified,
				RequiresHumanValidation: true,
				ValidatedBy:             "reviewer-1",
			},
		},
		EvidencePack: []production.EvidenceEntry{
			{DocID: "doc-1", Heading: "Wear intervals", CharRange: [2]int{10, 80}, RawExcerpt: "pads wear after 40000 km", Confidence: 0.9},
		},
		DisclaimerPlan: &production.DisclaimerPlan{
			Entries: []production.DisclaimerEntry{
				{Type: "generic", Text: "Consult a professional.", Position: production.DisclaimerIntro},
			},
		},
		ApprovalRecord: &production.ApprovalRecord{
			BriefID: briefID,
			Stages: []production.ApprovalEntry{
				{Stage: production.ApprovalScriptText, Status: production.ApprovalApproved, ApprovedBy: "editor-1"},
			},
		},
	}
}

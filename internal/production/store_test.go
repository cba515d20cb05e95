package production_test

import (
	"context"
	"fmt"
	"testing"

	"greenlight/internal/production"
	"greenlight/internal/testsupport"
)

func TestCreateAndGetProductionRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	master := testsupport.NewMaster(t, store, "BRF-100")

	fetched, err := store.GetProduction(ctx, master.BriefID)
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected production to exist")
	}
	if fetched.VideoType != production.TypeFilmSocle {
		t.Fatalf("unexpected video type: %s", fetched.VideoType)
	}
	if len(fetched.ClaimTable) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(fetched.ClaimTable))
	}
	if fetched.DisclaimerPlan == nil || len(fetched.DisclaimerPlan.Entries) != 1 {
		t.Fatalf("expected disclaimer plan to round-trip, got %#v", fetched.DisclaimerPlan)
	}
	if fetched.ApprovalRecord.StageStatus(production.ApprovalScriptText) != production.ApprovalApproved {
		t.Fatal("expected script_text approval to survive round-trip")
	}
	if fetched.QualityScore != nil || fetched.GateResults != nil {
		t.Fatal("expected governance outputs to start null")
	}
}

func TestGetProductionMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	fetched, err := store.GetProduction(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil for missing brief, got %#v", fetched)
	}
}

func TestUpdateProductionPersistsGovernanceOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	master := testsupport.NewMaster(t, store, "BRF-101")

	score := 75
	master.QualityScore = &score
	master.QualityFlags = []string{"GATE_WARN:truth"}
	master.GateResults = []production.GateResult{
		{Gate: "truth", Verdict: production.VerdictWarn, Measured: 0.2, WarnThreshold: 0.15, FailThreshold: 0.30},
	}
	master.Status = production.StatusQA
	if err := store.UpdateProduction(ctx, master); err != nil {
		t.Fatalf("UpdateProduction: %v", err)
	}

	fetched, err := store.GetProduction(ctx, master.BriefID)
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if fetched.QualityScore == nil || *fetched.QualityScore != 75 {
		t.Fatalf("expected quality score 75, got %v", fetched.QualityScore)
	}
	if len(fetched.GateResults) != 1 || fetched.GateResults[0].Verdict != production.VerdictWarn {
		t.Fatalf("unexpected gate results: %#v", fetched.GateResults)
	}
	if fetched.Status != production.StatusQA {
		t.Fatalf("expected qa status, got %s", fetched.Status)
	}
}

func TestDerivativeIndexes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	master := testsupport.NewMaster(t, store, "BRF-102")

	for _, index := range []int{1, 3} {
		idx := index
		derivative := &production.VideoProduction{
			BriefID:         fmt.Sprintf("%s-d%02d", master.BriefID, index),
			VideoType:       production.TypeShort,
			Status:          production.StatusDraft,
			ContentRole:     production.RoleDerivative,
			ParentBriefID:   master.BriefID,
			DerivativeIndex: &idx,
		}
		if err := store.CreateProduction(ctx, derivative); err != nil {
			t.Fatalf("CreateProduction derivative: %v", err)
		}
	}

	indexes, err := store.DerivativeIndexes(ctx, master.BriefID)
	if err != nil {
		t.Fatalf("DerivativeIndexes: %v", err)
	}
	if len(indexes) != 2 {
		t.Fatalf("expected 2 indexes, got %d", len(indexes))
	}
	for _, want := range []int{1, 3} {
		if _, ok := indexes[want]; !ok {
			t.Fatalf("expected index %d present", want)
		}
	}

	derivatives, err := store.DerivativesOf(ctx, master.BriefID)
	if err != nil {
		t.Fatalf("DerivativesOf: %v", err)
	}
	if len(derivatives) != 2 || *derivatives[0].DerivativeIndex != 1 {
		t.Fatalf("unexpected derivative ordering: %#v", derivatives)
	}
}

func TestListProductionsFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewMaster(t, store, "BRF-103")
	second := testsupport.NewMaster(t, store, "BRF-104")
	second.Status = production.StatusReadyForPublish
	if err := store.UpdateProduction(ctx, second); err != nil {
		t.Fatalf("UpdateProduction: %v", err)
	}

	ready, err := store.ListProductions(ctx, production.StatusReadyForPublish)
	if err != nil {
		t.Fatalf("ListProductions: %v", err)
	}
	if len(ready) != 1 || ready[0].BriefID != "BRF-104" {
		t.Fatalf("unexpected filter result: %#v", ready)
	}

	all, err := store.ListProductions(ctx)
	if err != nil {
		t.Fatalf("ListProductions all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 productions, got %d", len(all))
	}
}

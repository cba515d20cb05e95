package derivatives_test

import (
	"context"
	"testing"

	"greenlight/internal/derivatives"
	"greenlight/internal/production"
	"greenlight/internal/testsupport"
)

func TestGenerateCreatesOneDerivativePerVerifiedClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-600")
	generator := derivatives.NewGenerator(store, nil)

	result, err := generator.Generate(ctx, master.BriefID, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.DerivativesCreated != 2 {
		t.Fatalf("expected 2 derivatives, got %d", result.DerivativesCreated)
	}
	if result.Derivatives[0].BriefID != "BRF-600-d01" || result.Derivatives[1].BriefID != "BRF-600-d02" {
		t.Fatalf("unexpected derivative ids: %#v", result.Derivatives)
	}

	derivative, err := store.GetProduction(ctx, "BRF-600-d01")
	if err != nil || derivative == nil {
		t.Fatalf("expected derivative to be persisted, err=%v", err)
	}
	if derivative.ContentRole != production.RoleDerivative || derivative.ParentBriefID != master.BriefID {
		t.Fatalf("bad lineage: %#v", derivative)
	}
	if derivative.VideoType != production.TypeShort {
		t.Fatalf("expected short derivative, got %s", derivative.VideoType)
	}
	if len(derivative.ClaimTable) != 1 || derivative.ClaimTable[0].ID != master.ClaimTable[0].ID {
		t.Fatalf("derivative claim table must be the singleton source claim: %#v", derivative.ClaimTable)
	}
	if derivative.ScriptText != master.ClaimTable[0].RawText {
		t.Fatalf("derivative script must be the claim text, got %q", derivative.ScriptText)
	}
	if len(derivative.EvidencePack) != len(master.EvidencePack) {
		t.Fatal("evidence pack must be copied from master")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-601")
	generator := derivatives.NewGenerator(store, nil)

	first, err := generator.Generate(ctx, master.BriefID, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := generator.Generate(ctx, master.BriefID, nil)
	if err != nil {
		t.Fatalf("Generate rerun: %v", err)
	}
	if second.DerivativesCreated != 0 {
		t.Fatalf("rerun must create nothing, got %d", second.DerivativesCreated)
	}

	all, err := store.DerivativesOf(ctx, master.BriefID)
	if err != nil {
		t.Fatalf("DerivativesOf: %v", err)
	}
	if len(all) != first.DerivativesCreated {
		t.Fatalf("expected %d derivatives total, got %d", first.DerivativesCreated, len(all))
	}
}

func TestGenerateIndicesStableAcrossPartialRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-602")
	master.ClaimTable = []production.ClaimEntry{
		{ID: "c1", Kind: production.ClaimMileage, RawText: "first", Status: production.ClaimVerified},
		{ID: "c2", Kind: production.ClaimDimension, RawText: "second", Status: production.ClaimVerified},
		{ID: "c3", Kind: production.ClaimPercentage, RawText: "third", Status: production.ClaimVerified},
	}
	if err := store.UpdateProduction(ctx, master); err != nil {
		t.Fatalf("UpdateProduction: %v", err)
	}

	generator := derivatives.NewGenerator(store, nil)

	// First run capped at 2 creates indices 1 and 2.
	capped := &production.DerivativePolicy{MaxDerivatives: 2}
	first, err := generator.Generate(ctx, master.BriefID, capped)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.DerivativesCreated != 2 {
		t.Fatalf("expected 2 created, got %d", first.DerivativesCreated)
	}

	// Second run with a higher cap resumes at index 3, not 1.
	full := &production.DerivativePolicy{MaxDerivatives: 10}
	second, err := generator.Generate(ctx, master.BriefID, full)
	if err != nil {
		t.Fatalf("Generate resume: %v", err)
	}
	if second.DerivativesCreated != 1 {
		t.Fatalf("expected 1 created on resume, got %d", second.DerivativesCreated)
	}
	if second.Derivatives[0].DerivativeIndex != 3 || second.Derivatives[0].ClaimID != "c3" {
		t.Fatalf("expected index 3 for claim c3, got %#v", second.Derivatives[0])
	}
}

func TestGenerateFiltersByClaimKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-603")
	override := &production.DerivativePolicy{ClaimKinds: []production.ClaimKind{production.ClaimMileage}}

	generator := derivatives.NewGenerator(store, nil)
	result, err := generator.Generate(ctx, master.BriefID, override)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.DerivativesCreated != 1 {
		t.Fatalf("expected only the mileage claim, got %d", result.DerivativesCreated)
	}
	if result.Derivatives[0].ClaimID != "c1" {
		t.Fatalf("expected claim c1, got %s", result.Derivatives[0].ClaimID)
	}
}

func TestGenerateWritesResolvedPolicyToMaster(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-604")
	master.DerivativePolicy = &production.DerivativePolicy{MaxDerivatives: 4}
	if err := store.UpdateProduction(ctx, master); err != nil {
		t.Fatalf("UpdateProduction: %v", err)
	}

	override := &production.DerivativePolicy{TemplateID: "short-vertical"}
	generator := derivatives.NewGenerator(store, nil)
	result, err := generator.Generate(ctx, master.BriefID, override)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Policy.MaxDerivatives != 4 || result.Policy.TemplateID != "short-vertical" {
		t.Fatalf("bad policy merge: %#v", result.Policy)
	}
	if result.Policy.VideoType != production.TypeShort {
		t.Fatalf("expected default video type, got %s", result.Policy.VideoType)
	}

	fetched, err := store.GetProduction(ctx, master.BriefID)
	if err != nil {
		t.Fatalf("GetProduction: %v", err)
	}
	if fetched.DerivativePolicy == nil || fetched.DerivativePolicy.MaxDerivatives != 4 {
		t.Fatalf("resolved policy must be written back, got %#v", fetched.DerivativePolicy)
	}
}

func TestGenerateRejectsNonMaster(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	master := testsupport.NewMaster(t, store, "BRF-605")
	generator := derivatives.NewGenerator(store, nil)
	if _, err := generator.Generate(ctx, master.BriefID, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := generator.Generate(ctx, "BRF-605-d01", nil); err == nil {
		t.Fatal("expected error generating from a derivative")
	}
	if _, err := generator.Generate(ctx, "missing", nil); err == nil {
		t.Fatal("expected error for missing master")
	}
}

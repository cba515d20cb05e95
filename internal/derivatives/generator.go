// Package derivatives splits a verified master production into short
// derivative productions, one per eligible claim. Generation is idempotent:
// indices are assigned per claim examined, so a re-run recreates nothing and
// a partial run resumes exactly where it stopped.
package derivatives

import (
	"context"
	"fmt"
	"log/slog"

	"greenlight/internal/logging"
	"greenlight/internal/production"
	"greenlight/internal/services"
)

// Built-in policy defaults, overridden by the master's stored policy, which
// is in turn overridden by the caller-supplied policy.
const (
	defaultMaxDerivatives = 10
)

var defaultVideoType = production.TypeShort

// CreatedDerivative describes one derivative produced in this call.
type CreatedDerivative struct {
	BriefID         string `json:"briefId"`
	DerivativeIndex int    `json:"derivativeIndex"`
	ClaimID         string `json:"claimId"`
	ClaimText       string `json:"claimText"`
}

// Result summarizes one generation batch.
type Result struct {
	MasterBriefID      string                      `json:"masterBriefId"`
	DerivativesCreated int                         `json:"derivativesCreated"`
	Derivatives        []CreatedDerivative         `json:"derivatives"`
	Skipped            int                         `json:"skipped"`
	Policy             production.DerivativePolicy `json:"policy"`
}

// Generator creates derivative productions from masters.
type Generator struct {
	store  *production.Store
	logger *slog.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(store *production.Store, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{store: store, logger: logger.With(logging.String(logging.FieldComponent, "derivatives"))}
}

// Generate produces derivatives for the given master. The override policy
// wins over the master's stored policy, which wins over built-in defaults.
// The resolved policy is written back to the master after the batch.
func (g *Generator) Generate(ctx context.Context, masterBriefID string, override *production.DerivativePolicy) (*Result, error) {
	master, err := g.store.GetProduction(ctx, masterBriefID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "derivatives", "load master", "failed to load master production", err)
	}
	if master == nil {
		return nil, services.Wrap(services.ErrNotFound, "derivatives", "load master", fmt.Sprintf("production %s not found", masterBriefID), nil)
	}
	if !master.IsMaster() {
		return nil, services.Wrap(services.ErrValidation, "derivatives", "load master", fmt.Sprintf("production %s is not a master", masterBriefID), nil)
	}

	policy := resolvePolicy(master.DerivativePolicy, override)
	if policy.TemplateID == "" {
		policy.TemplateID = master.TemplateID
	}

	existing, err := g.store.DerivativeIndexes(ctx, master.BriefID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "derivatives", "list derivatives", "failed to list existing derivative indexes", err)
	}

	logger := g.logger.With(logging.String(logging.FieldBriefID, master.BriefID))
	result := &Result{MasterBriefID: master.BriefID, Policy: policy}

	kinds := claimKindSet(policy.ClaimKinds)
	index := 0
	for _, claim := range master.ClaimTable {
		if claim.Status != production.ClaimVerified {
			continue
		}
		if kinds != nil {
			if _, ok := kinds[claim.Kind]; !ok {
				continue
			}
		}
		// Indices count claims examined, not claims created, so they stay
		// stable across partial runs.
		index++
		if result.DerivativesCreated >= policy.MaxDerivatives {
			break
		}
		if _, ok := existing[index]; ok {
			continue
		}

		derivative := buildDerivative(master, claim, index, policy)
		if err := g.store.CreateProduction(ctx, derivative); err != nil {
			result.Skipped++
			logger.Warn("failed to create derivative, continuing batch",
				logging.String("derivative_brief_id", derivative.BriefID),
				logging.Error(err),
			)
			continue
		}
		result.DerivativesCreated++
		result.Derivatives = append(result.Derivatives, CreatedDerivative{
			BriefID:         derivative.BriefID,
			DerivativeIndex: index,
			ClaimID:         claim.ID,
			ClaimText:       claim.RawText,
		})
	}

	master.DerivativePolicy = &policy
	if err := g.store.UpdateProduction(ctx, master); err != nil {
		return nil, services.Wrap(services.ErrTransient, "derivatives", "persist policy", "failed to write resolved policy back to master", err)
	}

	logger.Info("derivative batch complete",
		logging.Int("created", result.DerivativesCreated),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

// DerivativeBriefID builds the deterministic id for a derivative index.
func DerivativeBriefID(masterBriefID string, index int) string {
	return fmt.Sprintf("%s-d%02d", masterBriefID, index)
}

func resolvePolicy(stored, override *production.DerivativePolicy) production.DerivativePolicy {
	resolved := production.DerivativePolicy{
		MaxDerivatives: defaultMaxDerivatives,
		VideoType:      defaultVideoType,
	}
	for _, layer := range []*production.DerivativePolicy{stored, override} {
		if layer == nil {
			continue
		}
		if layer.MaxDerivatives > 0 {
			resolved.MaxDerivatives = layer.MaxDerivatives
		}
		if layer.VideoType != "" {
			resolved.VideoType = layer.VideoType
		}
		if len(layer.ClaimKinds) > 0 {
			resolved.ClaimKinds = layer.ClaimKinds
		}
		if layer.TemplateID != "" {
			resolved.TemplateID = layer.TemplateID
		}
	}
	return resolved
}

func claimKindSet(kinds []production.ClaimKind) map[production.ClaimKind]struct{} {
	if len(kinds) == 0 {
		return nil
	}
	set := make(map[production.ClaimKind]struct{}, len(kinds))
	for _, kind := range kinds {
		set[kind] = struct{}{}
	}
	return set
}

func buildDerivative(master *production.VideoProduction, claim production.ClaimEntry, index int, policy production.DerivativePolicy) *production.VideoProduction {
	idx := index
	return &production.VideoProduction{
		BriefID:           DerivativeBriefID(master.BriefID, index),
		Title:             claim.RawText,
		VideoType:         policy.VideoType,
		Vertical:          master.Vertical,
		GammeAlias:        master.GammeAlias,
		PgID:              master.PgID,
		Status:            production.StatusDraft,
		TemplateID:        policy.TemplateID,
		ScriptText:        claim.RawText,
		KnowledgeContract: master.KnowledgeContract,
		ClaimTable:        []production.ClaimEntry{claim},
		EvidencePack:      master.EvidencePack,
		DisclaimerPlan:    master.DisclaimerPlan,
		ContentRole:       production.RoleDerivative,
		ParentBriefID:     master.BriefID,
		DerivativeIndex:   &idx,
	}
}

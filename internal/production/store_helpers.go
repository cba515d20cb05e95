package production

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const productionColumns = "brief_id, title, video_type, vertical, gamme_alias, pg_id, status, template_id, script_text, knowledge_contract_json, claim_table_json, evidence_pack_json, disclaimer_plan_json, approval_record_json, visual_assets_json, actual_duration_sec, similarity_score, quality_score, quality_flags_json, gate_results_json, content_role, parent_brief_id, derivative_index, derivative_policy_json, created_at, updated_at"

type productionJSON struct {
	knowledgeContract any
	claimTable        any
	evidencePack      any
	disclaimerPlan    any
	approvalRecord    any
	visualAssets      any
	qualityFlags      any
	gateResults       any
	derivativePolicy  any
}

func marshalProductionJSON(p *VideoProduction) (productionJSON, error) {
	var out productionJSON
	var err error
	if out.knowledgeContract, err = marshalNullable(p.KnowledgeContract, p.KnowledgeContract == nil); err != nil {
		return out, fmt.Errorf("marshal knowledge contract: %w", err)
	}
	if out.claimTable, err = marshalNullable(p.ClaimTable, p.ClaimTable == nil); err != nil {
		return out, fmt.Errorf("marshal claim table: %w", err)
	}
	if out.evidencePack, err = marshalNullable(p.EvidencePack, p.EvidencePack == nil); err != nil {
		return out, fmt.Errorf("marshal evidence pack: %w", err)
	}
	if out.disclaimerPlan, err = marshalNullable(p.DisclaimerPlan, p.DisclaimerPlan == nil); err != nil {
		return out, fmt.Errorf("marshal disclaimer plan: %w", err)
	}
	if out.approvalRecord, err = marshalNullable(p.ApprovalRecord, p.ApprovalRecord == nil); err != nil {
		return out, fmt.Errorf("marshal approval record: %w", err)
	}
	if out.visualAssets, err = marshalNullable(p.VisualAssets, p.VisualAssets == nil); err != nil {
		return out, fmt.Errorf("marshal visual assets: %w", err)
	}
	if out.qualityFlags, err = marshalNullable(p.QualityFlags, p.QualityFlags == nil); err != nil {
		return out, fmt.Errorf("marshal quality flags: %w", err)
	}
	if out.gateResults, err = marshalNullable(p.GateResults, p.GateResults == nil); err != nil {
		return out, fmt.Errorf("marshal gate results: %w", err)
	}
	if out.derivativePolicy, err = marshalNullable(p.DerivativePolicy, p.DerivativePolicy == nil); err != nil {
		return out, fmt.Errorf("marshal derivative policy: %w", err)
	}
	return out, nil
}

func marshalNullable(value any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func scanProduction(scanner interface{ Scan(dest ...any) error }) (*VideoProduction, error) {
	var (
		briefID           string
		title             sql.NullString
		videoType         string
		vertical          sql.NullString
		gammeAlias        sql.NullString
		pgID              sql.NullString
		statusStr         string
		templateID        sql.NullString
		scriptText        sql.NullString
		knowledgeContract sql.NullString
		claimTable        sql.NullString
		evidencePack      sql.NullString
		disclaimerPlan    sql.NullString
		approvalRecord    sql.NullString
		visualAssets      sql.NullString
		actualDuration    sql.NullFloat64
		similarityScore   sql.NullFloat64
		qualityScore      sql.NullInt64
		qualityFlags      sql.NullString
		gateResults       sql.NullString
		contentRole       string
		parentBriefID     sql.NullString
		derivativeIndex   sql.NullInt64
		derivativePolicy  sql.NullString
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
	)

	if err := scanner.Scan(
		&briefID,
		&title,
		&videoType,
		&vertical,
		&gammeAlias,
		&pgID,
		&statusStr,
		&templateID,
		&scriptText,
		&knowledgeContract,
		&claimTable,
		&evidencePack,
		&disclaimerPlan,
		&approvalRecord,
		&visualAssets,
		&actualDuration,
		&similarityScore,
		&qualityScore,
		&qualityFlags,
		&gateResults,
		&contentRole,
		&parentBriefID,
		&derivativeIndex,
		&derivativePolicy,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	p := &VideoProduction{
		BriefID:       briefID,
		Title:         title.String,
		VideoType:     VideoType(videoType),
		Vertical:      vertical.String,
		GammeAlias:    gammeAlias.String,
		PgID:          pgID.String,
		Status:        Status(statusStr),
		TemplateID:    templateID.String,
		ScriptText:    scriptText.String,
		ContentRole:   ContentRole(contentRole),
		ParentBriefID: parentBriefID.String,
	}

	if actualDuration.Valid {
		v := actualDuration.Float64
		p.ActualDurationSec = &v
	}
	if similarityScore.Valid {
		v := similarityScore.Float64
		p.SimilarityScore = &v
	}
	if qualityScore.Valid {
		v := int(qualityScore.Int64)
		p.QualityScore = &v
	}
	if derivativeIndex.Valid {
		v := int(derivativeIndex.Int64)
		p.DerivativeIndex = &v
	}

	if err := unmarshalNullable(knowledgeContract, &p.KnowledgeContract); err != nil {
		return nil, fmt.Errorf("decode knowledge contract: %w", err)
	}
	if err := unmarshalNullable(claimTable, &p.ClaimTable); err != nil {
		return nil, fmt.Errorf("decode claim table: %w", err)
	}
	if err := unmarshalNullable(evidencePack, &p.EvidencePack); err != nil {
		return nil, fmt.Errorf("decode evidence pack: %w", err)
	}
	if err := unmarshalNullable(disclaimerPlan, &p.DisclaimerPlan); err != nil {
		return nil, fmt.Errorf("decode disclaimer plan: %w", err)
	}
	if err := unmarshalNullable(approvalRecord, &p.ApprovalRecord); err != nil {
		return nil, fmt.Errorf("decode approval record: %w", err)
	}
	if err := unmarshalNullable(visualAssets, &p.VisualAssets); err != nil {
		return nil, fmt.Errorf("decode visual assets: %w", err)
	}
	if err := unmarshalNullable(qualityFlags, &p.QualityFlags); err != nil {
		return nil, fmt.Errorf("decode quality flags: %w", err)
	}
	if err := unmarshalNullable(gateResults, &p.GateResults); err != nil {
		return nil, fmt.Errorf("decode gate results: %w", err)
	}
	if err := unmarshalNullable(derivativePolicy, &p.DerivativePolicy); err != nil {
		return nil, fmt.Errorf("decode derivative policy: %w", err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		p.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		p.UpdatedAt = updated
	}
	return p, nil
}

func unmarshalNullable(raw sql.NullString, target any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), target)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableBool(value *bool) any {
	if value == nil {
		return nil
	}
	return boolToInt(*value)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

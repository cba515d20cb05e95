package production

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"greenlight/internal/config"
)

// Store manages production and execution-log persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateProduction inserts a new production record.
func (s *Store) CreateProduction(ctx context.Context, p *VideoProduction) error {
	if p == nil {
		return errors.New("production is nil")
	}
	if p.BriefID == "" {
		return errors.New("brief id is required")
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.ContentRole == "" {
		p.ContentRole = RoleMasterTruth
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	artefacts, err := marshalProductionJSON(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO productions (
            brief_id, title, video_type, vertical, gamme_alias, pg_id, status,
            template_id, script_text, knowledge_contract_json, claim_table_json,
            evidence_pack_json, disclaimer_plan_json, approval_record_json,
            visual_assets_json, actual_duration_sec, similarity_score,
            quality_score, quality_flags_json, gate_results_json, content_role,
            parent_brief_id, derivative_index, derivative_policy_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.BriefID,
		nullableString(p.Title),
		string(p.VideoType),
		nullableString(p.Vertical),
		nullableString(p.GammeAlias),
		nullableString(p.PgID),
		string(p.Status),
		nullableString(p.TemplateID),
		nullableString(p.ScriptText),
		artefacts.knowledgeContract,
		artefacts.claimTable,
		artefacts.evidencePack,
		artefacts.disclaimerPlan,
		artefacts.approvalRecord,
		artefacts.visualAssets,
		nullableFloat(p.ActualDurationSec),
		nullableFloat(p.SimilarityScore),
		nullableInt(p.QualityScore),
		artefacts.qualityFlags,
		artefacts.gateResults,
		string(p.ContentRole),
		nullableString(p.ParentBriefID),
		nullableInt(p.DerivativeIndex),
		artefacts.derivativePolicy,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert production: %w", err)
	}
	return nil
}

// GetProduction fetches a production by brief identifier. Returns nil when
// no production exists.
func (s *Store) GetProduction(ctx context.Context, briefID string) (*VideoProduction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productionColumns+` FROM productions WHERE brief_id = ?`, briefID)
	p, err := scanProduction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get production: %w", err)
	}
	return p, nil
}

// UpdateProduction persists changes to an existing production record.
func (s *Store) UpdateProduction(ctx context.Context, p *VideoProduction) error {
	if p == nil {
		return errors.New("production is nil")
	}
	p.UpdatedAt = time.Now().UTC()

	artefacts, err := marshalProductionJSON(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE productions
         SET title = ?, video_type = ?, vertical = ?, gamme_alias = ?, pg_id = ?,
             status = ?, template_id = ?, script_text = ?,
             knowledge_contract_json = ?, claim_table_json = ?,
             evidence_pack_json = ?, disclaimer_plan_json = ?,
             approval_record_json = ?, visual_assets_json = ?,
             actual_duration_sec = ?, similarity_score = ?, quality_score = ?,
             quality_flags_json = ?, gate_results_json = ?, content_role = ?,
             parent_brief_id = ?, derivative_index = ?,
             derivative_policy_json = ?, updated_at = ?
         WHERE brief_id = ?`,
		nullableString(p.Title),
		string(p.VideoType),
		nullableString(p.Vertical),
		nullableString(p.GammeAlias),
		nullableString(p.PgID),
		string(p.Status),
		nullableString(p.TemplateID),
		nullableString(p.ScriptText),
		artefacts.knowledgeContract,
		artefacts.claimTable,
		artefacts.evidencePack,
		artefacts.disclaimerPlan,
		artefacts.approvalRecord,
		artefacts.visualAssets,
		nullableFloat(p.ActualDurationSec),
		nullableFloat(p.SimilarityScore),
		nullableInt(p.QualityScore),
		artefacts.qualityFlags,
		artefacts.gateResults,
		string(p.ContentRole),
		nullableString(p.ParentBriefID),
		nullableInt(p.DerivativeIndex),
		artefacts.derivativePolicy,
		p.UpdatedAt.Format(time.RFC3339Nano),
		p.BriefID,
	)
	if err != nil {
		return fmt.Errorf("update production: %w", err)
	}
	return nil
}

// ListProductions returns productions filtered by status set (or all when no
// status is provided), ordered by creation time.
func (s *Store) ListProductions(ctx context.Context, statuses ...Status) ([]*VideoProduction, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + productionColumns + ` FROM productions`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = string(status)
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list productions: %w", err)
	}
	defer rows.Close()

	var items []*VideoProduction
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// DerivativesOf returns the derivative productions of a master ordered by
// derivative index.
func (s *Store) DerivativesOf(ctx context.Context, masterBriefID string) ([]*VideoProduction, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+productionColumns+` FROM productions WHERE parent_brief_id = ? ORDER BY derivative_index`,
		masterBriefID,
	)
	if err != nil {
		return nil, fmt.Errorf("list derivatives: %w", err)
	}
	defer rows.Close()

	var items []*VideoProduction
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// DerivativeIndexes returns the set of derivative indices already created for
// a master production.
func (s *Store) DerivativeIndexes(ctx context.Context, masterBriefID string) (map[int]struct{}, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT derivative_index FROM productions WHERE parent_brief_id = ? AND derivative_index IS NOT NULL`,
		masterBriefID,
	)
	if err != nil {
		return nil, fmt.Errorf("query derivative indexes: %w", err)
	}
	defer rows.Close()

	indexes := make(map[int]struct{})
	for rows.Next() {
		var index int
		if err := rows.Scan(&index); err != nil {
			return nil, err
		}
		indexes[index] = struct{}{}
	}
	return indexes, rows.Err()
}

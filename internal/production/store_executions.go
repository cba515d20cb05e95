package production

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const executionColumns = "id, brief_id, status, artefact_check_json, gate_results_json, render_status, render_output_path, render_metadata_json, render_duration_ms, render_error_code, engine_name, engine_version, engine_resolution, retryable, is_canary, canary_fallback, can_publish, quality_score, quality_flags_json, error_message, duration_ms, feature_flags_json, created_at, updated_at, started_at, completed_at"

// EnqueueExecution creates a queued execution-log row for a production.
func (s *Store) EnqueueExecution(ctx context.Context, briefID string) (*ExecutionLog, error) {
	if briefID == "" {
		return nil, errors.New("brief id is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO execution_logs (brief_id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		briefID,
		ExecutionQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert execution log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetExecution(ctx, id)
}

// GetExecution fetches an execution log by identifier. Returns nil when no
// row exists.
func (s *Store) GetExecution(ctx context.Context, id int64) (*ExecutionLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM execution_logs WHERE id = ?`, id)
	log, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get execution log: %w", err)
	}
	return log, nil
}

// UpdateExecution persists changes to an existing execution log.
func (s *Store) UpdateExecution(ctx context.Context, log *ExecutionLog) error {
	if log == nil {
		return errors.New("execution log is nil")
	}
	log.UpdatedAt = time.Now().UTC()

	artefactCheck, err := marshalNullable(log.ArtefactCheck, log.ArtefactCheck == nil)
	if err != nil {
		return fmt.Errorf("marshal artefact check: %w", err)
	}
	gateResults, err := marshalNullable(log.GateResults, log.GateResults == nil)
	if err != nil {
		return fmt.Errorf("marshal gate results: %w", err)
	}
	renderMetadata, err := marshalNullable(log.RenderMetadata, log.RenderMetadata == nil)
	if err != nil {
		return fmt.Errorf("marshal render metadata: %w", err)
	}
	qualityFlags, err := marshalNullable(log.QualityFlags, log.QualityFlags == nil)
	if err != nil {
		return fmt.Errorf("marshal quality flags: %w", err)
	}
	featureFlags, err := marshalNullable(log.FeatureFlags, log.FeatureFlags == nil)
	if err != nil {
		return fmt.Errorf("marshal feature flags: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE execution_logs
         SET status = ?, artefact_check_json = ?, gate_results_json = ?,
             render_status = ?, render_output_path = ?, render_metadata_json = ?,
             render_duration_ms = ?, render_error_code = ?, engine_name = ?,
             engine_version = ?, engine_resolution = ?, retryable = ?,
             is_canary = ?, canary_fallback = ?, can_publish = ?,
             quality_score = ?, quality_flags_json = ?, error_message = ?,
             duration_ms = ?, feature_flags_json = ?, updated_at = ?,
             started_at = ?, completed_at = ?
         WHERE id = ?`,
		string(log.Status),
		artefactCheck,
		gateResults,
		nullableString(log.RenderStatus),
		nullableString(log.RenderOutputPath),
		renderMetadata,
		log.RenderDurationMs,
		nullableString(log.RenderErrorCode),
		nullableString(log.EngineName),
		nullableString(log.EngineVersion),
		nullableString(log.EngineResolution),
		boolToInt(log.Retryable),
		boolToInt(log.IsCanary),
		boolToInt(log.CanaryFallback),
		nullableBool(log.CanPublish),
		nullableInt(log.QualityScore),
		qualityFlags,
		nullableString(log.ErrorMessage),
		log.DurationMs,
		featureFlags,
		log.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(log.StartedAt),
		nullableTime(log.CompletedAt),
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("update execution log: %w", err)
	}
	return nil
}

// NextQueuedExecution returns the oldest queued execution log, or nil when
// the queue is empty.
func (s *Store) NextQueuedExecution(ctx context.Context) (*ExecutionLog, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+executionColumns+` FROM execution_logs WHERE status = ? ORDER BY created_at LIMIT 1`,
		ExecutionQueued,
	)
	log, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

// ExecutionsByBrief returns all execution logs for a production ordered by
// creation time.
func (s *Store) ExecutionsByBrief(ctx context.Context, briefID string) ([]*ExecutionLog, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+executionColumns+` FROM execution_logs WHERE brief_id = ? ORDER BY created_at`,
		briefID,
	)
	if err != nil {
		return nil, fmt.Errorf("query executions by brief: %w", err)
	}
	defer rows.Close()

	var logs []*ExecutionLog
	for rows.Next() {
		log, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// RequeueExecution moves an execution back to queued for another attempt.
// Used by the worker after a retryable failure.
func (s *Store) RequeueExecution(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE execution_logs SET status = ?, updated_at = ? WHERE id = ? AND status != ?`,
		ExecutionQueued,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		ExecutionCompleted,
	)
	if err != nil {
		return fmt.Errorf("requeue execution: %w", err)
	}
	return nil
}

// ResetStuckExecutions returns processing rows to queued. Safe on worker
// start because the executor's phase-one writes are replayable.
func (s *Store) ResetStuckExecutions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE execution_logs SET status = ?, updated_at = ? WHERE status = ?`,
		ExecutionQueued,
		time.Now().UTC().Format(time.RFC3339Nano),
		ExecutionProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck executions: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailedExecutions moves failed execution logs back to queued. With no
// ids every failed row is retried.
func (s *Store) RetryFailedExecutions(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE execution_logs SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`,
			ExecutionQueued,
			time.Now().UTC().Format(time.RFC3339Nano),
			ExecutionFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed executions: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, ExecutionQueued, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE execution_logs SET status = ?, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(ExecutionFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected executions: %w", err)
	}
	return res.RowsAffected()
}

// ExecutionStats returns a count of execution logs grouped by status.
func (s *Store) ExecutionStats(ctx context.Context) (map[ExecutionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM execution_logs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("execution stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[ExecutionStatus]int)
	for rows.Next() {
		var status ExecutionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanExecution(scanner interface{ Scan(dest ...any) error }) (*ExecutionLog, error) {
	var (
		id               int64
		briefID          string
		statusStr        string
		artefactCheck    sql.NullString
		gateResults      sql.NullString
		renderStatus     sql.NullString
		renderOutputPath sql.NullString
		renderMetadata   sql.NullString
		renderDurationMs sql.NullInt64
		renderErrorCode  sql.NullString
		engineName       sql.NullString
		engineVersion    sql.NullString
		engineResolution sql.NullString
		retryable        sql.NullInt64
		isCanary         sql.NullInt64
		canaryFallback   sql.NullInt64
		canPublish       sql.NullInt64
		qualityScore     sql.NullInt64
		qualityFlags     sql.NullString
		errorMessage     sql.NullString
		durationMs       sql.NullInt64
		featureFlags     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		startedRaw       sql.NullString
		completedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&briefID,
		&statusStr,
		&artefactCheck,
		&gateResults,
		&renderStatus,
		&renderOutputPath,
		&renderMetadata,
		&renderDurationMs,
		&renderErrorCode,
		&engineName,
		&engineVersion,
		&engineResolution,
		&retryable,
		&isCanary,
		&canaryFallback,
		&canPublish,
		&qualityScore,
		&qualityFlags,
		&errorMessage,
		&durationMs,
		&featureFlags,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	log := &ExecutionLog{
		ID:               id,
		BriefID:          briefID,
		Status:           ExecutionStatus(statusStr),
		RenderStatus:     renderStatus.String,
		RenderOutputPath: renderOutputPath.String,
		RenderDurationMs: renderDurationMs.Int64,
		RenderErrorCode:  renderErrorCode.String,
		EngineName:       engineName.String,
		EngineVersion:    engineVersion.String,
		EngineResolution: engineResolution.String,
		Retryable:        retryable.Int64 != 0,
		IsCanary:         isCanary.Int64 != 0,
		CanaryFallback:   canaryFallback.Int64 != 0,
		ErrorMessage:     errorMessage.String,
		DurationMs:       durationMs.Int64,
	}

	if canPublish.Valid {
		v := canPublish.Int64 != 0
		log.CanPublish = &v
	}
	if qualityScore.Valid {
		v := int(qualityScore.Int64)
		log.QualityScore = &v
	}

	if artefactCheck.Valid && artefactCheck.String != "" {
		var check ArtefactCheck
		if err := json.Unmarshal([]byte(artefactCheck.String), &check); err != nil {
			return nil, fmt.Errorf("decode artefact check: %w", err)
		}
		log.ArtefactCheck = &check
	}
	if err := unmarshalNullable(gateResults, &log.GateResults); err != nil {
		return nil, fmt.Errorf("decode gate results: %w", err)
	}
	if err := unmarshalNullable(renderMetadata, &log.RenderMetadata); err != nil {
		return nil, fmt.Errorf("decode render metadata: %w", err)
	}
	if err := unmarshalNullable(qualityFlags, &log.QualityFlags); err != nil {
		return nil, fmt.Errorf("decode quality flags: %w", err)
	}
	if err := unmarshalNullable(featureFlags, &log.FeatureFlags); err != nil {
		return nil, fmt.Errorf("decode feature flags: %w", err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		log.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		log.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			log.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			log.CompletedAt = &completed
		}
	}
	return log, nil
}

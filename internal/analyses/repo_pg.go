package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"statement-backend/internal/llm"
	"statement-backend/internal/statement"
)

// PGRepo implements Repo using Postgres. Transition guards run inside the
// UPDATE predicates so the single-writer-per-id contract holds without
// client-side locking.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, analysis_type, status, file_key, source_path, file_name, text_length,
       metrics, ratios, insight, error_code, error_message,
       created_at, updated_at, started_at, completed_at`

// Create inserts a new analysis record.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, analysis_type, status, file_key, source_path, file_name, text_length,
	metrics, ratios, insight, error_code, error_message, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	metricsPayload, err := marshalJSONB(analysis.Metrics)
	if err != nil {
		return err
	}
	ratiosPayload, err := marshalJSONB(analysis.Ratios)
	if err != nil {
		return err
	}
	insightPayload, err := marshalJSONB(analysis.Insight)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.AnalysisType,
		analysis.Status,
		nullString(analysis.FileKey),
		nullString(analysis.SourcePath),
		nullString(analysis.FileName),
		analysis.TextLength,
		metricsPayload,
		ratiosPayload,
		insightPayload,
		analysis.ErrorCode,
		analysis.ErrorMessage,
		analysis.CreatedAt,
		analysis.UpdatedAt,
	)
	return err
}

// GetByID returns an analysis record by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1 LIMIT 1`
	analysis, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return analysis, err
}

// SetProcessing moves the record from queued to processing.
func (r *PGRepo) SetProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $2, started_at = $3, updated_at = $4
WHERE id = $1 AND status = $5`
	return r.guardedUpdate(ctx, analysisID, query, analysisID, StatusProcessing, startedAt, time.Now().UTC(), StatusQueued)
}

// SetMetrics records the extraction stage output.
func (r *PGRepo) SetMetrics(ctx context.Context, analysisID string, textLength int, metrics statement.Metrics) error {
	payload, err := marshalJSONB(metrics)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET text_length = $2, metrics = $3, updated_at = $4
WHERE id = $1 AND status NOT IN ($5, $6)`
	return r.guardedUpdate(ctx, analysisID, query, analysisID, textLength, payload, time.Now().UTC(), StatusCompleted, StatusFailed)
}

// SetRatios records the ratio stage output.
func (r *PGRepo) SetRatios(ctx context.Context, analysisID string, ratios statement.Ratios) error {
	payload, err := marshalJSONB(ratios)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET ratios = $2, updated_at = $3
WHERE id = $1 AND status NOT IN ($4, $5)`
	return r.guardedUpdate(ctx, analysisID, query, analysisID, payload, time.Now().UTC(), StatusCompleted, StatusFailed)
}

// SetInsight records the AI stage output.
func (r *PGRepo) SetInsight(ctx context.Context, analysisID string, insight llm.Insight) error {
	payload, err := marshalJSONB(insight)
	if err != nil {
		return err
	}
	const query = `
UPDATE analyses
SET insight = $2, updated_at = $3
WHERE id = $1 AND status NOT IN ($4, $5)`
	return r.guardedUpdate(ctx, analysisID, query, analysisID, payload, time.Now().UTC(), StatusCompleted, StatusFailed)
}

// Complete moves the record from processing to completed.
func (r *PGRepo) Complete(ctx context.Context, analysisID string, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $2, completed_at = $3, updated_at = $4
WHERE id = $1 AND status = $5`
	return r.guardedUpdate(ctx, analysisID, query, analysisID, StatusCompleted, completedAt, time.Now().UTC(), StatusProcessing)
}

// Fail moves the record to failed and records the error detail.
func (r *PGRepo) Fail(ctx context.Context, analysisID, code, message string, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $2, error_code = $3, error_message = $4, completed_at = $5, updated_at = $6
WHERE id = $1 AND status NOT IN ($7, $8)`
	return r.guardedUpdate(ctx, analysisID, query, analysisID, StatusFailed, code, message, completedAt, time.Now().UTC(), StatusCompleted, StatusFailed)
}

// Delete removes the record and returns it for staged-file release.
func (r *PGRepo) Delete(ctx context.Context, analysisID string) (Analysis, bool, error) {
	query := `DELETE FROM analyses WHERE id = $1 RETURNING ` + analysisColumns
	analysis, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, false, nil
	}
	if err != nil {
		return Analysis{}, false, err
	}
	return analysis, true, nil
}

// DeleteAll removes every record and returns the removed set.
func (r *PGRepo) DeleteAll(ctx context.Context) ([]Analysis, error) {
	query := `DELETE FROM analyses RETURNING ` + analysisColumns
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// ListActive returns non-terminal records, newest first.
func (r *PGRepo) ListActive(ctx context.Context) ([]Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM analyses
WHERE status NOT IN ($1, $2)
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, StatusCompleted, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// CountByStatus returns record counts keyed by lifecycle state.
func (r *PGRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	const query = `SELECT status, COUNT(*) FROM analyses GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int, 4)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// guardedUpdate runs an UPDATE whose WHERE clause encodes the transition
// guard, then distinguishes a missing record from a rejected transition.
func (r *PGRepo) guardedUpdate(ctx context.Context, analysisID, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM analyses WHERE id = $1)`, analysisID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var fileKey, sourcePath, fileName sql.NullString
	var metricsRaw, ratiosRaw, insightRaw []byte
	var errorCode, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.AnalysisType,
		&a.Status,
		&fileKey,
		&sourcePath,
		&fileName,
		&a.TextLength,
		&metricsRaw,
		&ratiosRaw,
		&insightRaw,
		&errorCode,
		&errorMessage,
		&a.CreatedAt,
		&a.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return Analysis{}, err
	}

	a.FileKey = fileKey.String
	a.SourcePath = sourcePath.String
	a.FileName = fileName.String
	if errorCode.Valid {
		a.ErrorCode = &errorCode.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		a.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}

	if len(metricsRaw) > 0 {
		if err := json.Unmarshal(metricsRaw, &a.Metrics); err != nil {
			return Analysis{}, fmt.Errorf("decode metrics: %w", err)
		}
	}
	if len(ratiosRaw) > 0 {
		if err := json.Unmarshal(ratiosRaw, &a.Ratios); err != nil {
			return Analysis{}, fmt.Errorf("decode ratios: %w", err)
		}
	}
	if len(insightRaw) > 0 {
		var insight llm.Insight
		if err := json.Unmarshal(insightRaw, &insight); err != nil {
			return Analysis{}, fmt.Errorf("decode insight: %w", err)
		}
		a.Insight = &insight
	}

	return a, nil
}

func collectAnalyses(rows *sql.Rows) ([]Analysis, error) {
	out := make([]Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func marshalJSONB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typed := v.(type) {
	case statement.Metrics:
		if typed == nil {
			return nil, nil
		}
	case statement.Ratios:
		if typed == nil {
			return nil, nil
		}
	case *llm.Insight:
		if typed == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

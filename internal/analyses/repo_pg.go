package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ats-backend/internal/scoring"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, job_id, candidate_id, resume_file_name, resume_text, status, overall_score,
       model_version, result, error_message, created_at, completed_at`

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, job_id, candidate_id, resume_file_name, resume_text, status, overall_score,
	model_version, result, error_message, created_at, completed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	resultPayload, err := marshalResult(analysis.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.JobID,
		analysis.CandidateID,
		analysis.ResumeFileName,
		analysis.ResumeText,
		analysis.Status,
		nullInt(analysis.OverallScore),
		nullString(analysis.ModelVersion),
		resultPayload,
		nullString(analysis.ErrorMessage),
		analysis.CreatedAt,
		nullTime(analysis.CompletedAt),
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id = $1
LIMIT 1`
	analysis, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return analysis, err
}

// MarkProcessing moves a queued analysis to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string) error {
	const query = `UPDATE analyses SET status = $2 WHERE id = $1 AND status IN ($3, $2)`
	res, err := r.DB.ExecContext(ctx, query, analysisID, StatusProcessing, StatusQueued)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Complete stores the scoring result.
func (r *PGRepo) Complete(ctx context.Context, analysisID string, result scoring.Result, completedAt time.Time) error {
	const query = `
UPDATE analyses
SET status = $2, overall_score = $3, model_version = $4, result = $5, error_message = NULL, completed_at = $6
WHERE id = $1`
	payload, err := marshalResult(&result)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		analysisID,
		StatusCompleted,
		result.OverallScore,
		result.ModelVersion,
		payload,
		completedAt,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Fail records a failure message.
func (r *PGRepo) Fail(ctx context.Context, analysisID, message string, completedAt time.Time) error {
	const query = `UPDATE analyses SET status = $2, error_message = $3, completed_at = $4 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, analysisID, StatusFailed, message, completedAt)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ListByCandidate returns a candidate's analyses newest first.
func (r *PGRepo) ListByCandidate(ctx context.Context, candidateID string, limit, offset int) ([]Analysis, error) {
	limit = clampListLimit(limit)
	offset = max(offset, 0)

	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE candidate_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`
	return r.query(ctx, query, candidateID, limit, offset)
}

// ListByJob returns a job's analyses in ranking order.
func (r *PGRepo) ListByJob(ctx context.Context, jobID string) ([]Analysis, error) {
	query := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE job_id = $1
ORDER BY overall_score DESC NULLS LAST, created_at ASC, id`
	return r.query(ctx, query, jobID)
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Analysis, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, analysis)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a            Analysis
		score        sql.NullInt64
		modelVersion sql.NullString
		result       []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.CandidateID,
		&a.ResumeFileName,
		&a.ResumeText,
		&a.Status,
		&score,
		&modelVersion,
		&result,
		&errorMessage,
		&a.CreatedAt,
		&completedAt,
	); err != nil {
		return Analysis{}, err
	}
	if score.Valid {
		v := int(score.Int64)
		a.OverallScore = &v
	}
	a.ModelVersion = modelVersion.String
	a.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	if len(result) > 0 {
		var parsed scoring.Result
		if err := json.Unmarshal(result, &parsed); err != nil {
			return Analysis{}, fmt.Errorf("analysis %s result: %w", a.ID, err)
		}
		a.Result = &parsed
	}
	return a, nil
}

func marshalResult(result *scoring.Result) (any, error) {
	if result == nil {
		return nil, nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

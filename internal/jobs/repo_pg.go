package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ats-backend/internal/scoring"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, recruiter_id, title, company, description, required_skills, preferred_skills,
       experience_level, qualifications, status, created_at, updated_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (
	id, recruiter_id, title, company, description, required_skills, preferred_skills,
	experience_level, qualifications, status, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	required, preferred, quals, err := marshalLists(job)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.RecruiterID,
		job.Title,
		job.Company,
		job.Description,
		required,
		preferred,
		string(job.ExperienceLevel),
		quals,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE id = $1
LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// List returns jobs newest first.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := max(filter.Offset, 0)

	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE ($1 = '' OR recruiter_id = $1) AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`
	rows, err := r.DB.QueryContext(ctx, query, filter.RecruiterID, filter.Status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Update replaces the writable fields of an existing job.
func (r *PGRepo) Update(ctx context.Context, job Job) error {
	const query = `
UPDATE jobs
SET title = $2, company = $3, description = $4, required_skills = $5, preferred_skills = $6,
    experience_level = $7, qualifications = $8, status = $9, updated_at = $10
WHERE id = $1`
	required, preferred, quals, err := marshalLists(job)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.Title,
		job.Company,
		job.Description,
		required,
		preferred,
		string(job.ExperienceLevel),
		quals,
		job.Status,
		job.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Close marks the job closed.
func (r *PGRepo) Close(ctx context.Context, jobID string, at time.Time) error {
	const query = `UPDATE jobs SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, jobID, StatusClosed, at)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job       Job
		level     string
		required  []byte
		preferred []byte
		quals     []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.RecruiterID,
		&job.Title,
		&job.Company,
		&job.Description,
		&required,
		&preferred,
		&level,
		&quals,
		&job.Status,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	job.ExperienceLevel = scoring.ExperienceLevel(level)
	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{
		{raw: required, dst: &job.RequiredSkills},
		{raw: preferred, dst: &job.PreferredSkills},
		{raw: quals, dst: &job.Qualifications},
	} {
		if err := unmarshalList(f.raw, f.dst); err != nil {
			return Job{}, fmt.Errorf("job %s: %w", job.ID, err)
		}
	}
	return job, nil
}

func marshalLists(job Job) (required, preferred, quals []byte, err error) {
	if required, err = marshalList(job.RequiredSkills); err != nil {
		return nil, nil, nil, err
	}
	if preferred, err = marshalList(job.PreferredSkills); err != nil {
		return nil, nil, nil, err
	}
	if quals, err = marshalList(job.Qualifications); err != nil {
		return nil, nil, nil, err
	}
	return required, preferred, quals, nil
}

func marshalList(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func unmarshalList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
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

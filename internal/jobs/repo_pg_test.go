package jobs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ats-backend/internal/scoring"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateEncodesLists(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	job := Job{
		ID:              "job-1",
		RecruiterID:     "rec-1",
		Title:           "Backend Engineer",
		Company:         "Acme",
		Description:     "Build APIs",
		RequiredSkills:  []string{"go", "postgres"},
		ExperienceLevel: scoring.LevelSenior,
		Status:          StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			job.ID,
			job.RecruiterID,
			job.Title,
			job.Company,
			job.Description,
			[]byte(`["go","postgres"]`),
			[]byte(`[]`), // preferred_skills
			"senior",
			[]byte(`[]`), // qualifications
			StatusOpen,
			now,
			now,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "recruiter_id", "title", "company", "description", "required_skills", "preferred_skills",
		"experience_level", "qualifications", "status", "created_at", "updated_at",
	}).AddRow("job-1", "rec-1", "Engineer", "Acme", "desc", []byte(`["go"]`), nil, "mid", []byte(`["BS"]`), StatusOpen, now, now)

	mock.ExpectQuery("SELECT (.+) FROM jobs").WithArgs("job-1").WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.ExperienceLevel != scoring.LevelMid {
		t.Fatalf("unexpected level %q", job.ExperienceLevel)
	}
	if len(job.RequiredSkills) != 1 || job.RequiredSkills[0] != "go" {
		t.Fatalf("unexpected required skills %v", job.RequiredSkills)
	}
	if job.PreferredSkills == nil || len(job.PreferredSkills) != 0 {
		t.Fatalf("expected empty preferred skills, got %v", job.PreferredSkills)
	}
	if len(job.Qualifications) != 1 {
		t.Fatalf("unexpected qualifications %v", job.Qualifications)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM jobs").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListClampsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs("rec-1", StatusOpen, maxListLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	jobs, err := repo.List(context.Background(), ListFilter{RecruiterID: "rec-1", Status: StatusOpen, Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if jobs == nil || len(jobs) != 0 {
		t.Fatalf("expected empty list, got %v", jobs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCloseMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("missing", StatusClosed, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Close(context.Background(), "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

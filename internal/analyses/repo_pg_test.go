package analyses

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

var analysisRowColumns = []string{
	"id", "job_id", "candidate_id", "resume_file_name", "resume_text", "status", "overall_score",
	"model_version", "result", "error_message", "created_at", "completed_at",
}

func TestPGRepoCreateQueuedAnalysis(t *testing.T) {
	repo, mock := newMockRepo(t)
	analysis := Analysis{
		ID:             "analysis-1",
		JobID:          "job-1",
		CandidateID:    "cand-1",
		ResumeFileName: "cv.pdf",
		ResumeText:     "resume",
		Status:         StatusQueued,
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			analysis.ID,
			analysis.JobID,
			analysis.CandidateID,
			analysis.ResumeFileName,
			analysis.ResumeText,
			StatusQueued,
			nil, // overall_score
			nil, // model_version
			nil, // result
			nil, // error_message
			analysis.CreatedAt,
			nil, // completed_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteWritesScoreAndResult(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()
	result := scoring.Result{OverallScore: 77, ModelVersion: scoring.ModelVersion}

	mock.ExpectExec("UPDATE analyses").
		WithArgs("analysis-1", StatusCompleted, 77, scoring.ModelVersion, sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Complete(context.Background(), "analysis-1", result, at); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkProcessingMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE analyses SET status").
		WithArgs("gone", StatusProcessing, StatusQueued).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkProcessing(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDDecodesResult(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Now().UTC()
	completed := created.Add(time.Second)
	rows := sqlmock.NewRows(analysisRowColumns).AddRow(
		"analysis-1", "job-1", "cand-1", "", "resume", StatusCompleted, int64(64),
		"1.0", []byte(`{"overallScore":64,"modelVersion":"1.0"}`), nil, created, completed,
	)
	mock.ExpectQuery("SELECT (.+) FROM analyses").WithArgs("analysis-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "analysis-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.OverallScore == nil || *got.OverallScore != 64 {
		t.Fatalf("unexpected score %v", got.OverallScore)
	}
	if got.Result == nil || got.Result.OverallScore != 64 {
		t.Fatalf("unexpected result %+v", got.Result)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Fatalf("unexpected completedAt %v", got.CompletedAt)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM analyses").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListByJobQueuedRowHasNoScore(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows(analysisRowColumns).AddRow(
		"analysis-2", "job-1", "cand-2", "", "resume", StatusQueued, nil,
		nil, nil, nil, time.Now().UTC(), nil,
	)
	mock.ExpectQuery("ORDER BY overall_score DESC NULLS LAST").WithArgs("job-1").WillReturnRows(rows)

	list, err := repo.ListByJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if len(list) != 1 || list[0].OverallScore != nil || list[0].Result != nil {
		t.Fatalf("unexpected list %+v", list)
	}
}

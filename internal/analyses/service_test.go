package analyses

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"ats-backend/internal/jobs"
	"ats-backend/internal/queue"
	"ats-backend/internal/scoring"
	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/telemetry"
)

var (
	recruiter = auth.Principal{ID: "rec-1", Role: auth.RoleRecruiter}
	otherRec  = auth.Principal{ID: "rec-2", Role: auth.RoleRecruiter}
	admin     = auth.Principal{ID: "adm-1", Role: auth.RoleAdmin}
	candidate = auth.Principal{ID: "cand-1", Role: auth.RoleCandidate}
	stranger  = auth.Principal{ID: "cand-2", Role: auth.RoleCandidate}
)

type stubScorer struct {
	mu     sync.Mutex
	scores map[string]int
	model  string
	panic  bool
	calls  int
}

func (s *stubScorer) Analyze(ctx context.Context, resumeText string, job *scoring.JobRequirements) scoring.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panic {
		panic("scorer exploded")
	}
	model := s.model
	if model == "" {
		model = scoring.ModelVersion
	}
	return scoring.Result{
		OverallScore: s.scores[resumeText],
		SkillsMatch:  scoring.SkillsMatch{Score: s.scores[resumeText], MatchedSkills: []string{"go"}},
		Insights:     scoring.Insights{Summary: "summary for " + resumeText},
		ModelVersion: model,
	}
}

type captureQueue struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *captureQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *MemoryRepo
	jobs   *jobs.Service
	scorer *stubScorer
	queue  *captureQueue
	job    jobs.Job
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	jobSvc := jobs.NewService(jobs.NewMemoryRepo())
	job, err := jobSvc.Create(context.Background(), recruiter, jobs.Input{
		Title:           "Backend Engineer",
		Description:     "Go services",
		RequiredSkills:  []string{"go"},
		ExperienceLevel: "mid",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{
		repo:   NewMemoryRepo(),
		jobs:   jobSvc,
		scorer: &stubScorer{scores: map[string]int{"alice": 80, "bob": 60, "carol": 80}},
		queue:  &captureQueue{},
		job:    job,
	}
	f.svc = &Service{
		Repo:   f.repo,
		Jobs:   jobSvc,
		Scorer: f.scorer,
		Queue:  f.queue,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
	return f
}

func TestSubmitSyncStoresCompletedAnalysis(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Submit(context.Background(), f.job.ID, candidate.ID, "alice", "alice.pdf", false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if a.Status != StatusCompleted || a.OverallScore == nil || *a.OverallScore != 80 {
		t.Fatalf("unexpected analysis %+v", a)
	}
	if a.CompletedAt == nil || a.Result == nil || a.ModelVersion != scoring.ModelVersion {
		t.Fatalf("completion fields missing: %+v", a)
	}

	stored, err := f.repo.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.Status != StatusCompleted || stored.ResumeFileName != "alice.pdf" {
		t.Fatalf("unexpected stored analysis %+v", stored)
	}
	if len(f.queue.messages) != 0 {
		t.Fatalf("sync submit should not enqueue")
	}
}

func TestSubmitAsyncQueuesMessage(t *testing.T) {
	f := newFixture(t)
	ctx := WithRequestID(context.Background(), "req-1")

	a, err := f.svc.Submit(ctx, f.job.ID, candidate.ID, "alice", "", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if a.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", a.Status)
	}
	if len(f.queue.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(f.queue.messages))
	}
	msg := f.queue.messages[0]
	if msg.AnalysisID != a.ID || msg.RequestID != "req-1" || msg.Version != queue.MessageVersion {
		t.Fatalf("unexpected message %+v", msg)
	}
	if f.scorer.calls != 0 {
		t.Fatalf("async submit should not score inline")
	}
}

func TestSubmitAsyncEnqueueFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errors.New("broker down")

	if _, err := f.svc.Submit(context.Background(), f.job.ID, candidate.ID, "alice", "", true); err == nil {
		t.Fatalf("expected enqueue error")
	}
	list, _ := f.repo.ListByCandidate(context.Background(), candidate.ID, 10, 0)
	if len(list) != 1 || list[0].Status != StatusFailed || list[0].ErrorMessage == "" {
		t.Fatalf("expected one failed analysis, got %+v", list)
	}
}

func TestSubmitWithoutQueueCompletesInProcess(t *testing.T) {
	f := newFixture(t)
	f.svc.Queue = nil

	a, err := f.svc.Submit(context.Background(), f.job.ID, candidate.ID, "bob", "", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := f.repo.GetByID(context.Background(), a.ID)
		if got.Status == StatusCompleted {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("analysis did not complete in process")
}

type completeFailsRepo struct {
	*MemoryRepo
}

func (r completeFailsRepo) Complete(ctx context.Context, analysisID string, result scoring.Result, completedAt time.Time) error {
	return errors.New("db down")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSubmitWithoutQueueLogsProcessFailure(t *testing.T) {
	var logs lockedBuffer
	telemetry.SetOutput(&logs)
	defer telemetry.SetOutput(os.Stdout)

	f := newFixture(t)
	f.svc.Queue = nil
	f.svc.Repo = completeFailsRepo{MemoryRepo: f.repo}

	a, err := f.svc.Submit(context.Background(), f.job.ID, candidate.ID, "bob", "", true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out := logs.String()
		if strings.Contains(out, `"msg":"analysis.process_failed"`) {
			if !strings.Contains(out, a.ID) || !strings.Contains(out, "db down") {
				t.Fatalf("failure line missing fields: %s", out)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected analysis.process_failed log, got %s", logs.String())
}

func TestSubmitLogsFallbackOnce(t *testing.T) {
	var logs lockedBuffer
	telemetry.SetOutput(&logs)
	defer telemetry.SetOutput(os.Stdout)

	f := newFixture(t)
	f.scorer.model = scoring.FallbackModelVersion

	a, err := f.svc.Submit(context.Background(), f.job.ID, candidate.ID, "alice", "", false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	out := logs.String()
	if n := strings.Count(out, `"msg":"analysis.fallback"`); n != 1 {
		t.Fatalf("expected one fallback line, got %d: %s", n, out)
	}
	if !strings.Contains(out, a.ID) {
		t.Fatalf("fallback line missing analysis id: %s", out)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, f.job.ID, candidate.ID, "   ", "", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty resume, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, "missing", candidate.ID, "alice", "", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing job, got %v", err)
	}
	if _, err := f.jobs.Close(ctx, recruiter, f.job.ID); err != nil {
		t.Fatalf("close job: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.job.ID, candidate.ID, "alice", "", false); !errors.Is(err, ErrJobClosed) {
		t.Fatalf("expected ErrJobClosed, got %v", err)
	}
}

func TestProcessAnalysisCompletesQueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Submit(ctx, f.job.ID, candidate.ID, "bob", "", true)

	if err := f.svc.ProcessAnalysis(ctx, a.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, _ := f.repo.GetByID(ctx, a.ID)
	if got.Status != StatusCompleted || *got.OverallScore != 60 || got.Result == nil {
		t.Fatalf("unexpected analysis after processing %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.After(got.CreatedAt) {
		t.Fatalf("completedAt not set after createdAt: %+v", got)
	}

	if err := f.svc.ProcessAnalysis(ctx, a.ID); err != nil {
		t.Fatalf("reprocessing a completed analysis should be a no-op: %v", err)
	}
	if f.scorer.calls != 1 {
		t.Fatalf("expected a single scoring call, got %d", f.scorer.calls)
	}
}

func TestProcessAnalysisPanicMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Submit(ctx, f.job.ID, candidate.ID, "bob", "", true)
	f.scorer.panic = true

	if err := f.svc.ProcessAnalysis(ctx, a.ID); err != nil {
		t.Fatalf("process should record the failure, got %v", err)
	}
	got, _ := f.repo.GetByID(ctx, a.ID)
	if got.Status != StatusFailed || got.ErrorMessage != "panic: scorer exploded" {
		t.Fatalf("unexpected analysis %+v", got)
	}
}

func TestProcessAnalysisMissing(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.ProcessAnalysis(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Submit(ctx, f.job.ID, candidate.ID, "alice", "", false)

	for _, actor := range []auth.Principal{candidate, recruiter, admin} {
		if _, err := f.svc.Get(ctx, actor, a.ID); err != nil {
			t.Fatalf("%s should see analysis: %v", actor.ID, err)
		}
	}
	for _, actor := range []auth.Principal{stranger, otherRec} {
		if _, err := f.svc.Get(ctx, actor, a.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s should be forbidden, got %v", actor.ID, err)
		}
	}
	if _, err := f.svc.Get(ctx, admin, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListForJobRanksByScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob, _ := f.svc.Submit(ctx, f.job.ID, "c-bob", "bob", "", false)
	alice, _ := f.svc.Submit(ctx, f.job.ID, "c-alice", "alice", "", false)
	carol, _ := f.svc.Submit(ctx, f.job.ID, "c-carol", "carol", "", false)
	queued, _ := f.svc.Submit(ctx, f.job.ID, "c-dave", "dave", "", true)

	list, job, err := f.svc.ListForJob(ctx, recruiter, f.job.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if job.ID != f.job.ID {
		t.Fatalf("unexpected job %s", job.ID)
	}
	want := []string{alice.ID, carol.ID, bob.ID, queued.ID}
	if len(list) != len(want) {
		t.Fatalf("expected %d analyses, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("rank %d: got %s want %s", i+1, list[i].ID, id)
		}
	}

	if _, _, err := f.svc.ListForJob(ctx, otherRec, f.job.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Submit(ctx, f.job.ID, candidate.ID, "alice", "", false)
	_, _ = f.svc.Submit(ctx, f.job.ID, stranger.ID, "bob", "", false)

	list, err := f.svc.ListMine(ctx, candidate, 10, 0)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(list) != 1 || list[0].CandidateID != candidate.ID {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, err := f.svc.ListMine(ctx, auth.Principal{}, 10, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden without identity, got %v", err)
	}
}

func TestScoreCountsFallback(t *testing.T) {
	f := newFixture(t)
	f.scorer.model = scoring.FallbackModelVersion
	result := f.svc.Score(context.Background(), "alice", nil)
	if !result.IsFallback() {
		t.Fatalf("expected fallback result")
	}
}

package workerproc

import (
	"context"
	"errors"
	"testing"

	"ats-backend/internal/queue"
)

type fakeProcessor struct {
	err   error
	gotID string
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	f.gotID = analysisID
	return f.err
}

func TestParseMessageErrors(t *testing.T) {
	if _, _, err := ParseMessage([]byte("  ")); !errors.As(err, new(ErrEmptyBody)) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}

	_, meta, err := ParseMessage([]byte("{bad"))
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != 4 || len(meta.BodySHA) != 64 {
		t.Fatalf("unexpected meta %+v", meta)
	}

	body, _ := queue.EncodeMessage(queue.Message{RequestID: "req-1"})
	_, _, err = ParseMessage(body)
	var missing ErrMissingAnalysisID
	if !errors.As(err, &missing) || missing.RequestID != "req-1" {
		t.Fatalf("expected ErrMissingAnalysisID with request id, got %v", err)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("db down")}
	err := HandleMessage(context.Background(), proc, queue.Message{AnalysisID: "a1", RequestID: "r1"})

	var procErr ErrProcess
	if !errors.As(err, &procErr) || procErr.AnalysisID != "a1" || procErr.RequestID != "r1" {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if proc.gotID != "a1" {
		t.Fatalf("processor got %q", proc.gotID)
	}
}

func TestHandleMessageSuccess(t *testing.T) {
	proc := &fakeProcessor{}
	if err := HandleMessage(context.Background(), proc, queue.Message{AnalysisID: "a1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := HandleMessage(context.Background(), nil, queue.Message{AnalysisID: "a1"}); err == nil {
		t.Fatalf("expected error for nil processor")
	}
}

func TestDecide(t *testing.T) {
	procErr := ErrProcess{AnalysisID: "a1", Err: errors.New("x")}
	cases := []struct {
		err         error
		redelivered bool
		want        Action
	}{
		{nil, false, Ack},
		{ErrDecode{}, false, Discard},
		{ErrEmptyBody{}, true, Discard},
		{procErr, false, Requeue},
		{procErr, true, DeadLetter},
	}
	for _, tc := range cases {
		if got := Decide(tc.err, tc.redelivered); got != tc.want {
			t.Fatalf("Decide(%v,%v)=%s want %s", tc.err, tc.redelivered, got, tc.want)
		}
	}
}

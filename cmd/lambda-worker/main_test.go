package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"ats-backend/internal/queue"
)

type fakeProcessor struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	f.calls = append(f.calls, analysisID)
	if f.fail[analysisID] {
		return errors.New("db unavailable")
	}
	return nil
}

func record(t *testing.T, id string, msg *queue.Message, raw string) events.SQSMessage {
	t.Helper()
	body := raw
	if msg != nil {
		encoded, err := queue.EncodeMessage(*msg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		body = string(encoded)
	}
	return events.SQSMessage{MessageId: id, Body: body}
}

func TestHandleEventReportsOnlyProcessingFailures(t *testing.T) {
	proc := &fakeProcessor{fail: map[string]bool{"analysis-2": true}}
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "m1", &queue.Message{AnalysisID: "analysis-1", RequestID: "req-1"}, ""),
		record(t, "m2", &queue.Message{AnalysisID: "analysis-2"}, ""),
		record(t, "m3", nil, "{not json"),
		record(t, "m4", &queue.Message{RequestID: "req-4"}, ""),
	}}

	resp := handleEvent(context.Background(), proc, event)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("expected only m2 to fail, got %+v", resp.BatchItemFailures)
	}
	if len(proc.calls) != 2 {
		t.Fatalf("expected two processed analyses, got %v", proc.calls)
	}
}

func TestHandleEventEmptyBatch(t *testing.T) {
	resp := handleEvent(context.Background(), &fakeProcessor{}, events.SQSEvent{})
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("expected no failures, got %+v", resp.BatchItemFailures)
	}
}

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/streadway/amqp"

	"ats-backend/internal/queue"
	"ats-backend/internal/workerproc"
)

type fakeAcker struct {
	acked    []uint64
	nacked   []uint64
	requeued []bool
	err      error
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = append(f.acked, tag)
	return f.err
}

func (f *fakeAcker) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeued = append(f.requeued, requeue)
	return f.err
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type fakeProcessor struct {
	err   error
	calls []string
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	f.calls = append(f.calls, analysisID)
	return f.err
}

func delivery(t *testing.T, acker *fakeAcker, tag uint64, body []byte, redelivered bool) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{
		Acknowledger: acker,
		DeliveryTag:  tag,
		MessageId:    "m",
		Body:         body,
		Redelivered:  redelivered,
	}
}

func encoded(t *testing.T, msg queue.Message) []byte {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return body
}

func TestWorkerAcksOnSuccess(t *testing.T) {
	acker := &fakeAcker{}
	proc := &fakeProcessor{}
	d := delivery(t, acker, 1, encoded(t, queue.Message{AnalysisID: "analysis-1", RequestID: "req-1"}), false)

	action := handleDelivery(context.Background(), proc, d)

	if action != workerproc.Ack {
		t.Fatalf("expected ack, got %s", action)
	}
	if len(acker.acked) != 1 || len(acker.nacked) != 0 {
		t.Fatalf("expected one ack, got acked=%v nacked=%v", acker.acked, acker.nacked)
	}
	if len(proc.calls) != 1 || proc.calls[0] != "analysis-1" {
		t.Fatalf("unexpected processor calls %v", proc.calls)
	}
}

func TestWorkerRequeuesFirstFailure(t *testing.T) {
	acker := &fakeAcker{}
	proc := &fakeProcessor{err: errors.New("db down")}
	d := delivery(t, acker, 2, encoded(t, queue.Message{AnalysisID: "analysis-2"}), false)

	action := handleDelivery(context.Background(), proc, d)

	if action != workerproc.Requeue {
		t.Fatalf("expected requeue, got %s", action)
	}
	if len(acker.nacked) != 1 || !acker.requeued[0] {
		t.Fatalf("expected nack with requeue, got %v %v", acker.nacked, acker.requeued)
	}
}

func TestWorkerDeadLettersRedeliveredFailure(t *testing.T) {
	acker := &fakeAcker{}
	proc := &fakeProcessor{err: errors.New("db down")}
	d := delivery(t, acker, 3, encoded(t, queue.Message{AnalysisID: "analysis-3"}), true)

	action := handleDelivery(context.Background(), proc, d)

	if action != workerproc.DeadLetter {
		t.Fatalf("expected dead letter, got %s", action)
	}
	if len(acker.nacked) != 1 || acker.requeued[0] {
		t.Fatalf("expected nack without requeue, got %v %v", acker.nacked, acker.requeued)
	}
}

func TestWorkerDiscardsMalformedMessages(t *testing.T) {
	cases := map[string][]byte{
		"invalid json": []byte("{bad-json"),
		"empty body":   nil,
		"missing id":   []byte(`{"requestId":"req-9"}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			acker := &fakeAcker{}
			proc := &fakeProcessor{}

			action := handleDelivery(context.Background(), proc, delivery(t, acker, 4, body, false))

			if action != workerproc.Discard {
				t.Fatalf("expected discard, got %s", action)
			}
			if len(acker.acked) != 1 {
				t.Fatalf("expected ack to drop message, got %v", acker.acked)
			}
			if len(proc.calls) != 0 {
				t.Fatalf("processor should not run, got %v", proc.calls)
			}
		})
	}
}

func TestSettleReportsAckErrors(t *testing.T) {
	acker := &fakeAcker{err: errors.New("channel closed")}
	d := delivery(t, acker, 5, nil, false)

	if action := settle(d, workerproc.Requeue, map[string]any{}); action != workerproc.Requeue {
		t.Fatalf("expected requeue action, got %s", action)
	}
	if len(acker.nacked) != 1 {
		t.Fatalf("expected nack attempt, got %v", acker.nacked)
	}
}

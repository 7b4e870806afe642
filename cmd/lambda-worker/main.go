package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"ats-backend/internal/bootstrap"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp(ctx context.Context) {
	cfg := config.Load()
	built, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		DBOptions: db.DefaultWorkerOptions(1),
		SkipQueue: true,
	})
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(func() { initApp(context.WithoutCancel(ctx)) })
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleEvent(ctx, app.AnalysisProcessor, event), nil
}

// handleEvent processes each record and reports the ones SQS should
// redeliver. Malformed records are dropped; the queue's redrive policy
// dead-letters records that keep failing.
func handleEvent(ctx context.Context, processor workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncWorkerReceived()
		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"receive_count":  record.Attributes["ApproximateReceiveCount"],
		}

		msg, meta, err := workerproc.ParseMessage([]byte(record.Body))
		if err != nil {
			fields["body_len"] = meta.BodyLen
			fields["error"] = err.Error()
			telemetry.Error("worker.analysis.decode_failed", fields)
			metrics.IncWorkerDiscarded()
			continue
		}
		fields["analysis_id"] = msg.AnalysisID
		if msg.RequestID != "" {
			fields["request_id"] = msg.RequestID
		}

		if err := workerproc.HandleMessage(ctx, processor, msg); err != nil {
			fields["error"] = err.Error()
			telemetry.Error("worker.analysis.failed", fields)
			var procErr workerproc.ErrProcess
			if errors.As(err, &procErr) {
				metrics.IncWorkerRequeued()
				failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			} else {
				metrics.IncWorkerDiscarded()
			}
			continue
		}
		telemetry.Info("worker.analysis.completed", fields)
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}

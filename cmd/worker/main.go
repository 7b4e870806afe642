package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/streadway/amqp"

	"ats-backend/internal/bootstrap"
	"ats-backend/internal/queue"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/workerproc"
)

func main() {
	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	concurrency := max(1, cfg.WorkerConcurrency)
	shutdownTimeout := cfg.WorkerShutdownTimeout

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		DBOptions: db.DefaultWorkerOptions(concurrency),
		SkipQueue: true,
	})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	consumer, err := queue.DialAMQP(cfg.AMQPURL, cfg.AnalysisQueue)
	if err != nil {
		log.Fatalf("connect queue: %v", err)
	}
	defer consumer.Close()

	deliveries, err := consumer.Consume(concurrency)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	log.Printf("worker started queue=%s concurrency=%d", cfg.AnalysisQueue, concurrency)

	// In-flight analyses finish on their own context so a shutdown signal
	// does not leave records stuck in processing.
	workCtx := context.WithoutCancel(ctx)

consumeLoop:
	for {
		select {
		case <-ctx.Done():
			break consumeLoop
		case d, ok := <-deliveries:
			if !ok {
				log.Printf("delivery channel closed")
				break consumeLoop
			}
			select {
			case <-ctx.Done():
				// Unacked deliveries return to the queue when the channel closes.
				break consumeLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handleDelivery(workCtx, app.AnalysisProcessor, d)
			}(d)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
}

// handleDelivery processes one delivery and settles it with the broker.
func handleDelivery(ctx context.Context, processor workerproc.Processor, d amqp.Delivery) workerproc.Action {
	metrics.IncWorkerReceived()

	msg, meta, err := workerproc.ParseMessage(d.Body)
	if err != nil {
		fields := baseFields(d, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		var missing workerproc.ErrMissingAnalysisID
		switch {
		case errors.As(err, &missing):
			if missing.RequestID != "" {
				fields["request_id"] = missing.RequestID
			}
			telemetry.Error("worker.analysis.missing_id", fields)
		case errors.As(err, new(workerproc.ErrEmptyBody)):
			telemetry.Error("worker.analysis.empty_body", fields)
		default:
			fields["error"] = err.Error()
			telemetry.Error("worker.analysis.decode_failed", fields)
		}
		return settle(d, workerproc.Decide(err, d.Redelivered), fields)
	}

	fields := baseFields(d, msg.AnalysisID, msg.RequestID)
	telemetry.Info("worker.analysis.received", fields)

	err = workerproc.HandleMessage(ctx, processor, msg)
	if err != nil {
		failed := baseFields(d, msg.AnalysisID, msg.RequestID)
		failed["error"] = err.Error()
		telemetry.Error("worker.analysis.failed", failed)
	}
	action := settle(d, workerproc.Decide(err, d.Redelivered), fields)
	if action == workerproc.Ack {
		telemetry.Info("worker.analysis.completed", fields)
	}
	return action
}

func settle(d amqp.Delivery, action workerproc.Action, fields map[string]any) workerproc.Action {
	var err error
	switch action {
	case workerproc.Ack:
		err = d.Ack(false)
	case workerproc.Discard:
		metrics.IncWorkerDiscarded()
		err = d.Ack(false)
	case workerproc.Requeue:
		metrics.IncWorkerRequeued()
		err = d.Nack(false, true)
	case workerproc.DeadLetter:
		metrics.IncWorkerDeadLettered()
		err = d.Nack(false, false)
	}
	if err != nil {
		failed := make(map[string]any, len(fields)+2)
		for k, v := range fields {
			failed[k] = v
		}
		failed["action"] = action.String()
		failed["error"] = err.Error()
		telemetry.Error("worker.analysis.settle_failed", failed)
	}
	return action
}

func baseFields(d amqp.Delivery, analysisID, requestID string) map[string]any {
	fields := map[string]any{
		"analysis_id":     analysisID,
		"amqp_message_id": d.MessageId,
		"delivery_tag":    d.DeliveryTag,
		"redelivered":     d.Redelivered,
	}
	if strings.TrimSpace(requestID) == "" {
		requestID = d.CorrelationId
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "SIMILARITY_TIMEOUT_SECONDS", "SIMILARITY_MAX_RETRIES",
		"ANALYSIS_QUEUE", "WORKER_CONCURRENCY", "WORKER_SHUTDOWN_TIMEOUT_SECONDS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "MAX_UPLOAD_BYTES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" || cfg.Env != "dev" {
		t.Fatalf("unexpected port/env: %q %q", cfg.Port, cfg.Env)
	}
	if cfg.SimilarityTimeout != 30*time.Second || cfg.SimilarityMaxRetries != 3 {
		t.Fatalf("unexpected similarity defaults: %v %d", cfg.SimilarityTimeout, cfg.SimilarityMaxRetries)
	}
	if cfg.AnalysisQueue != "analyses" || cfg.WorkerConcurrency != 4 {
		t.Fatalf("unexpected queue defaults: %q %d", cfg.AnalysisQueue, cfg.WorkerConcurrency)
	}
	if cfg.WorkerShutdownTimeout != 30*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", cfg.WorkerShutdownTimeout)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 10 {
		t.Fatalf("unexpected rate limit defaults: %v %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
	if cfg.QueueBackend != "amqp" || cfg.ObjectStoreType != "none" || cfg.LocalStoreDir != "data/objects" {
		t.Fatalf("unexpected backend defaults: %q %q %q", cfg.QueueBackend, cfg.ObjectStoreType, cfg.LocalStoreDir)
	}
	if cfg.AWSRegion != "us-east-1" {
		t.Fatalf("unexpected region %q", cfg.AWSRegion)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("SIMILARITY_TIMEOUT_SECONDS", "5")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("WORKER_SHUTDOWN_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()

	if !cfg.IsProduction() {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.SimilarityTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.SimilarityTimeout)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Fatalf("expected fallback concurrency, got %d", cfg.WorkerConcurrency)
	}
	if cfg.WorkerShutdownTimeout != 5*time.Second {
		t.Fatalf("expected 5s shutdown timeout, got %v", cfg.WorkerShutdownTimeout)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
}

func TestValidateProductionRequirements(t *testing.T) {
	cfg := Config{Env: "production", WorkerConcurrency: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing database and secret")
	}
	cfg.DatabaseURL = "postgres://x"
	cfg.JWTSecret = "s"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBackends(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{WorkerConcurrency: 1}},
		{name: "sqs without url", cfg: Config{WorkerConcurrency: 1, QueueBackend: "sqs"}, wantErr: true},
		{name: "sqs with url", cfg: Config{WorkerConcurrency: 1, QueueBackend: "sqs", SQSQueueURL: "https://sqs/q"}},
		{name: "unknown queue", cfg: Config{WorkerConcurrency: 1, QueueBackend: "kafka"}, wantErr: true},
		{name: "s3 without bucket", cfg: Config{WorkerConcurrency: 1, ObjectStoreType: "s3"}, wantErr: true},
		{name: "s3 with bucket", cfg: Config{WorkerConcurrency: 1, ObjectStoreType: "s3", S3Bucket: "b"}},
		{name: "unknown store", cfg: Config{WorkerConcurrency: 1, ObjectStoreType: "gcs"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes = 5 << 20

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	CORSAllowOrigin []string
	JWTSecret       string

	SimilarityURL        string
	SimilarityAPIKey     string
	SimilarityTimeout    time.Duration
	SimilarityMaxRetries int

	QueueBackend      string
	AMQPURL           string
	AnalysisQueue     string
	SQSQueueURL       string
	WorkerConcurrency int

	WorkerShutdownTimeout time.Duration

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. Existing
	// environment variables win.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		DatabaseURL:     dbURL,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),

		SimilarityURL:        strings.TrimSpace(os.Getenv("SIMILARITY_API_URL")),
		SimilarityAPIKey:     strings.TrimSpace(os.Getenv("SIMILARITY_API_KEY")),
		SimilarityTimeout:    time.Duration(getInt("SIMILARITY_TIMEOUT_SECONDS", 30)) * time.Second,
		SimilarityMaxRetries: getInt("SIMILARITY_MAX_RETRIES", 3),

		QueueBackend:      strings.ToLower(getEnv("QUEUE_BACKEND", "amqp")),
		AMQPURL:           strings.TrimSpace(os.Getenv("AMQP_URL")),
		AnalysisQueue:     getEnv("ANALYSIS_QUEUE", "analyses"),
		SQSQueueURL:       strings.TrimSpace(os.Getenv("SQS_QUEUE_URL")),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 4),

		WorkerShutdownTimeout: time.Duration(getInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,

		ObjectStoreType: strings.ToLower(getEnv("OBJECT_STORE", "none")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "data/objects"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:        strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Prefix:        strings.TrimSpace(os.Getenv("S3_PREFIX")),
		SSEKMSKeyID:     strings.TrimSpace(os.Getenv("S3_SSE_KMS_KEY_ID")),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
	}
}

// Validate reports settings that make the process unusable in its environment.
func (c Config) Validate() error {
	var errs []error
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
	}
	if c.WorkerConcurrency < 1 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be at least 1"))
	}
	switch c.QueueBackend {
	case "", "amqp":
	case "sqs":
		if c.SQSQueueURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL is required when QUEUE_BACKEND=sqs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend))
	}
	switch c.ObjectStoreType {
	case "", "none", "local":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when OBJECT_STORE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown OBJECT_STORE %q", c.ObjectStoreType))
	}
	if c.SimilarityMaxRetries < 0 {
		errs = append(errs, errors.New("SIMILARITY_MAX_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using %g", key, raw, def)
		return def
	}
	return f
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

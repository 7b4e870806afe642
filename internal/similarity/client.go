package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"ats-backend/internal/scoring"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/retry"
	"ats-backend/internal/shared/telemetry"
)

// UnavailableSentinel is the score reported when the similarity service
// could not produce a value.
const UnavailableSentinel = 0

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	retryStep         = time.Second
	maxResponseBytes  = 1 << 20
)

// ErrNotConfigured is returned when the endpoint URL or API key is missing.
var ErrNotConfigured = errors.New("similarity api not configured")

// ServiceError describes a failed call to the similarity API.
type ServiceError struct {
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("similarity api status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("similarity api: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Config configures a Client.
type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	// Sleep overrides the wait between attempts.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client calls an external sentence-similarity API.
type Client struct {
	url        string
	configured bool
	timeout    time.Duration
	policy     retry.Policy
	httpClient *http.Client
}

type requestBody struct {
	Inputs requestInputs `json:"inputs"`
}

type requestInputs struct {
	SourceSentence string   `json:"source_sentence"`
	Sentences      []string `json:"sentences"`
}

// NewClient builds a Client. An incomplete Config still yields a usable
// client whose calls fail with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = defaultMaxRetries
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	url := strings.TrimSpace(cfg.URL)
	key := strings.TrimSpace(cfg.APIKey)
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"}),
			Base:   base.Transport,
		},
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}

	c := &Client{
		url:        url,
		configured: url != "" && key != "",
		timeout:    timeout,
		httpClient: httpClient,
	}
	c.policy = retry.Policy{
		MaxAttempts: retries + 1,
		Backoff:     retry.LinearBackoff(retryStep),
		Sleep:       cfg.Sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			telemetry.Warn("similarity.retry", map[string]any{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
		},
	}
	return c
}

// Configured reports whether both URL and API key are set.
func (c *Client) Configured() bool {
	return c.configured
}

// Compare returns the similarity between resume and job description as a
// percentage. Errors are *ServiceError or wrap ErrNotConfigured.
func (c *Client) Compare(ctx context.Context, resumeText, jobDescription string) (int, error) {
	source := Truncate(SanitizeResume(resumeText), MaxInputRunes)
	target := Truncate(jobDescription, MaxInputRunes)

	return retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) (int, error) {
		metrics.IncSimilarityAttempt()
		return c.compareOnce(ctx, source, target)
	})
}

// Similarity implements scoring.SimilarityScorer. Failures are reported as
// UnavailableSentinel with Available unset and never as an error.
func (c *Client) Similarity(ctx context.Context, resumeText, jobDescription string) (scoring.SimilarityScore, error) {
	score, err := c.Compare(ctx, resumeText, jobDescription)
	if err != nil {
		metrics.IncSimilarityUnavailable()
		telemetry.Warn("similarity.unavailable", map[string]any{
			"error": err.Error(),
		})
		return scoring.SimilarityScore{Score: UnavailableSentinel, Available: false}, nil
	}
	return scoring.SimilarityScore{Score: score, Available: true}, nil
}

func (c *Client) compareOnce(ctx context.Context, source, target string) (int, error) {
	if !c.configured {
		return 0, &ServiceError{Err: ErrNotConfigured}
	}

	payload, err := json.Marshal(requestBody{Inputs: requestInputs{SourceSentence: source, Sentences: []string{target}}})
	if err != nil {
		return 0, &ServiceError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, &ServiceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, &ServiceError{Err: fmt.Errorf("request timeout: %w", err)}
		}
		return 0, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, &ServiceError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &ServiceError{StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}

	raw, err := parseScore(body)
	if err != nil {
		return 0, &ServiceError{StatusCode: resp.StatusCode, Err: err}
	}
	return toPercent(raw), nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	return Truncate(s, 200)
}

var _ scoring.SimilarityScorer = (*Client)(nil)

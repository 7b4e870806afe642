package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysisCompletedTotal     atomic.Uint64
	analysisFallbackTotal      atomic.Uint64
	analysisFailedTotal        atomic.Uint64
	similarityAttemptsTotal    atomic.Uint64
	similarityUnavailableTotal atomic.Uint64
	workerReceivedTotal        atomic.Uint64
	workerRequeuedTotal        atomic.Uint64
	workerDeadLetteredTotal    atomic.Uint64
	workerDiscardedTotal       atomic.Uint64

	analysisDuration = newHistogram([]float64{5, 25, 100, 250, 500, 1000, 5000, 30000, 120000})
)

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFallback counts analyses that produced a fallback result.
func IncAnalysisFallback() {
	analysisFallbackTotal.Add(1)
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Add(1)
}

// IncSimilarityAttempt counts one HTTP attempt against the similarity API.
func IncSimilarityAttempt() {
	similarityAttemptsTotal.Add(1)
}

// IncSimilarityUnavailable counts similarity calls mapped to the unavailable sentinel.
func IncSimilarityUnavailable() {
	similarityUnavailableTotal.Add(1)
}

// IncWorkerReceived counts deliveries taken off the analysis queue.
func IncWorkerReceived() {
	workerReceivedTotal.Add(1)
}

// IncWorkerRequeued counts deliveries returned to the queue for a retry.
func IncWorkerRequeued() {
	workerRequeuedTotal.Add(1)
}

// IncWorkerDeadLettered counts deliveries rejected after a failed retry.
func IncWorkerDeadLettered() {
	workerDeadLetteredTotal.Add(1)
}

// IncWorkerDiscarded counts malformed deliveries that were dropped.
func IncWorkerDiscarded() {
	workerDiscardedTotal.Add(1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_fallback_total", "Total analyses scored on the fallback path", analysisFallbackTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "similarity_attempts_total", "Total similarity API attempts", similarityAttemptsTotal.Load())
	writeCounter(&buf, "similarity_unavailable_total", "Total similarity calls reported as unavailable", similarityUnavailableTotal.Load())
	writeCounter(&buf, "worker_received_total", "Total queue deliveries received by workers", workerReceivedTotal.Load())
	writeCounter(&buf, "worker_requeued_total", "Total queue deliveries requeued", workerRequeuedTotal.Load())
	writeCounter(&buf, "worker_dead_lettered_total", "Total queue deliveries dead-lettered", workerDeadLetteredTotal.Load())
	writeCounter(&buf, "worker_discarded_total", "Total malformed queue deliveries discarded", workerDiscardedTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

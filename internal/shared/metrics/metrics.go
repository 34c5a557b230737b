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
	ingestAcceptedTotal atomic.Uint64
	ingestConflictTotal atomic.Uint64
	ingestFailedTotal   atomic.Uint64
	verifyHitTotal      atomic.Uint64
	verifyMissTotal     atomic.Uint64
	decisionTotal       atomic.Uint64

	ingestDuration = newHistogram([]float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000})
)

// IncIngestAccepted increments the accepted-ingest counter.
func IncIngestAccepted() {
	ingestAcceptedTotal.Add(1)
}

// IncIngestConflict increments the fingerprint-conflict counter.
func IncIngestConflict() {
	ingestConflictTotal.Add(1)
}

// IncIngestFailed increments the failed-ingest counter.
func IncIngestFailed() {
	ingestFailedTotal.Add(1)
}

// IncVerifyHit increments the verification-match counter.
func IncVerifyHit() {
	verifyHitTotal.Add(1)
}

// IncVerifyMiss increments the verification-miss counter.
func IncVerifyMiss() {
	verifyMissTotal.Add(1)
}

// IncDecision increments the recorded-decision counter.
func IncDecision() {
	decisionTotal.Add(1)
}

// ObserveIngestDurationMs records an ingest duration in milliseconds.
func ObserveIngestDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestDuration.Observe(value)
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
	writeCounter(&buf, "ingest_accepted_total", "Total documents ingested", ingestAcceptedTotal.Load())
	writeCounter(&buf, "ingest_conflict_total", "Total ingests rejected on fingerprint conflict", ingestConflictTotal.Load())
	writeCounter(&buf, "ingest_failed_total", "Total ingests failed", ingestFailedTotal.Load())
	writeCounter(&buf, "verify_hit_total", "Total fingerprint verifications that matched", verifyHitTotal.Load())
	writeCounter(&buf, "verify_miss_total", "Total fingerprint verifications that missed", verifyMissTotal.Load())
	writeCounter(&buf, "decision_recorded_total", "Total verification decisions recorded", decisionTotal.Load())
	writeHistogram(&buf, "ingest_duration_ms", "Ingest duration in milliseconds", ingestDuration.Snapshot())
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

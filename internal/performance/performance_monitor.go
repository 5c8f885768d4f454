package performance

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackendMetrics tracks calls made to one external backend
type BackendMetrics struct {
	TotalCalls     int64
	FailedCalls    int64
	TotalBytes     int64
	TotalLatency   time.Duration
	AvgLatency     time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration
	LastLatency    time.Duration
	LastError      string
	LastCallFailed bool
}

// PerformanceMetrics is a snapshot of everything the monitor has recorded
type PerformanceMetrics struct {
	Backends       map[string]BackendMetrics
	QuotesAligned  int64
	QuotesDropped  int64
	Summaries      int64
	Transcriptions int64
	LastTimestamp  time.Time
}

// CallTimer tracks timing for an individual backend call
type CallTimer struct {
	Backend   string
	StartTime time.Time
	Bytes     int64
}

// PerformanceMonitor handles performance tracking and reporting. It is safe
// for concurrent use.
type PerformanceMonitor struct {
	logger    *zap.Logger
	metrics   PerformanceMetrics
	mu        sync.RWMutex
	benchmark bool
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor(logger *zap.Logger) *PerformanceMonitor {
	return NewPerformanceMonitorWithBenchmark(logger, false)
}

// NewPerformanceMonitorWithBenchmark creates a performance monitor with benchmarking enabled
func NewPerformanceMonitorWithBenchmark(logger *zap.Logger, benchmark bool) *PerformanceMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceMonitor{
		logger: logger,
		metrics: PerformanceMetrics{
			Backends:      make(map[string]BackendMetrics),
			LastTimestamp: time.Now(),
		},
		benchmark: benchmark,
	}
}

// StartCall begins timing a backend call
func (pm *PerformanceMonitor) StartCall(backend string, bytes int64) *CallTimer {
	return &CallTimer{
		Backend:   backend,
		StartTime: time.Now(),
		Bytes:     bytes,
	}
}

// EndCall completes timing and updates the metrics of the timer's backend
func (pm *PerformanceMonitor) EndCall(timer *CallTimer, err error) time.Duration {
	elapsed := time.Since(timer.StartTime)

	pm.mu.Lock()
	defer pm.mu.Unlock()

	m := pm.metrics.Backends[timer.Backend]
	m.TotalCalls++
	m.TotalBytes += timer.Bytes
	m.TotalLatency += elapsed
	m.LastLatency = elapsed
	m.LastCallFailed = err != nil
	if err != nil {
		m.FailedCalls++
		m.LastError = err.Error()
	}
	if m.TotalCalls == 1 || elapsed < m.MinLatency {
		m.MinLatency = elapsed
	}
	if elapsed > m.MaxLatency {
		m.MaxLatency = elapsed
	}
	m.AvgLatency = time.Duration(int64(m.TotalLatency) / m.TotalCalls)

	pm.metrics.Backends[timer.Backend] = m
	pm.metrics.LastTimestamp = time.Now()

	if pm.benchmark {
		pm.logger.Info("backend call performance",
			zap.String("backend", timer.Backend),
			zap.Int64("bytes", timer.Bytes),
			zap.Duration("latency", elapsed),
			zap.Bool("failed", err != nil))
	}
	return elapsed
}

// RecordTranscription counts a completed transcription
func (pm *PerformanceMonitor) RecordTranscription() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.metrics.Transcriptions++
}

// RecordSummary counts a completed summary and the quotes it aligned or dropped
func (pm *PerformanceMonitor) RecordSummary(aligned, dropped int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.metrics.Summaries++
	pm.metrics.QuotesAligned += int64(aligned)
	pm.metrics.QuotesDropped += int64(dropped)
}

// GetMetrics returns a copy of current metrics
func (pm *PerformanceMonitor) GetMetrics() PerformanceMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := pm.metrics
	out.Backends = make(map[string]BackendMetrics, len(pm.metrics.Backends))
	for k, v := range pm.metrics.Backends {
		out.Backends[k] = v
	}
	return out
}

// AlignmentRate returns the share of candidate quotes that were grounded
func (pm *PerformanceMonitor) AlignmentRate() float64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	total := pm.metrics.QuotesAligned + pm.metrics.QuotesDropped
	if total == 0 {
		return 0
	}
	return float64(pm.metrics.QuotesAligned) / float64(total)
}

// GetPerformanceSummary returns a formatted summary of performance metrics
func (pm *PerformanceMonitor) GetPerformanceSummary() string {
	metrics := pm.GetMetrics()

	if len(metrics.Backends) == 0 && metrics.Summaries == 0 && metrics.Transcriptions == 0 {
		return "No performance metrics available"
	}

	var b strings.Builder
	b.WriteString("Performance Summary:\n")
	fmt.Fprintf(&b, "  Transcriptions: %d\n", metrics.Transcriptions)
	fmt.Fprintf(&b, "  Summaries: %d\n", metrics.Summaries)
	fmt.Fprintf(&b, "  Quotes Aligned/Dropped: %d / %d (%.1f%% grounded)\n",
		metrics.QuotesAligned, metrics.QuotesDropped, pm.AlignmentRate()*100)

	names := make([]string, 0, len(metrics.Backends))
	for name := range metrics.Backends {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := metrics.Backends[name]
		fmt.Fprintf(&b, "  Backend %s: %d calls, %d failed, avg %v, min/max %v / %v, %.2f MB sent\n",
			name, m.TotalCalls, m.FailedCalls, m.AvgLatency, m.MinLatency, m.MaxLatency,
			float64(m.TotalBytes)/1024/1024)
	}

	return b.String()
}

// LogCurrentMetrics logs the current performance metrics
func (pm *PerformanceMonitor) LogCurrentMetrics() {
	metrics := pm.GetMetrics()

	fields := []zap.Field{
		zap.Int64("transcriptions", metrics.Transcriptions),
		zap.Int64("summaries", metrics.Summaries),
		zap.Int64("quotes_aligned", metrics.QuotesAligned),
		zap.Int64("quotes_dropped", metrics.QuotesDropped),
	}
	for name, m := range metrics.Backends {
		fields = append(fields,
			zap.Int64(name+"_calls", m.TotalCalls),
			zap.Int64(name+"_failures", m.FailedCalls),
			zap.Duration(name+"_avg_latency", m.AvgLatency))
	}

	pm.logger.Info("current performance metrics", fields...)
}

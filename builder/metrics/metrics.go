// Package metrics provides build performance tracking and telemetry.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

// BuildMetrics tracks performance data during the build process. Counters
// are updated from the writer pool and are safe for concurrent use.
type BuildMetrics struct {
	// Timing
	StartTime    time.Time
	EndTime      time.Time
	LoadTime     time.Duration
	GenerateTime time.Duration
	WriteTime    time.Duration

	// Counters
	RecordsLoaded int
	written       atomic.Int64
	skipped       atomic.Int64
	pruned        atomic.Int64
	bytesWritten  atomic.Int64

	// CacheRebuilt is set when the cache was discarded because the site base changed.
	CacheRebuilt bool
}

// NewBuildMetrics creates a new metrics instance.
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{
		StartTime: time.Now(),
	}
}

// RecordEnd marks the end of the build.
func (m *BuildMetrics) RecordEnd() {
	m.EndTime = time.Now()
}

// TotalDuration returns the total build duration.
func (m *BuildMetrics) TotalDuration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// RecordWrite counts an artifact that was (re)written to the output.
func (m *BuildMetrics) RecordWrite(bytes int) {
	m.written.Add(1)
	m.bytesWritten.Add(int64(bytes))
}

// RecordSkip counts an artifact left in place because it was unchanged.
func (m *BuildMetrics) RecordSkip() {
	m.skipped.Add(1)
}

// RecordPrune counts stale artifacts removed from the output.
func (m *BuildMetrics) RecordPrune(n int) {
	m.pruned.Add(int64(n))
}

func (m *BuildMetrics) Written() int { return int(m.written.Load()) }
func (m *BuildMetrics) Skipped() int { return int(m.skipped.Load()) }
func (m *BuildMetrics) Pruned() int { return int(m.pruned.Load()) }
func (m *BuildMetrics) BytesWritten() int64 { return m.bytesWritten.Load() }

// Artifacts is the number of artifacts the build produced.
func (m *BuildMetrics) Artifacts() int {
	return m.Written() + m.Skipped()
}

// CacheHitRate returns the share of artifacts that were unchanged, in percent.
func (m *BuildMetrics) CacheHitRate() float64 {
	total := m.Artifacts()
	if total == 0 {
		return 0
	}
	return float64(m.Skipped()) / float64(total) * 100
}

// String returns a formatted summary of the build metrics (minimal single-line format).
func (m *BuildMetrics) String() string {
	s := fmt.Sprintf("📊 Built %d artifacts from %d records in %v (written: %d, unchanged: %d, %.0f%%)",
		m.Artifacts(),
		m.RecordsLoaded,
		m.TotalDuration().Round(time.Millisecond),
		m.Written(),
		m.Skipped(),
		m.CacheHitRate(),
	)
	if n := m.Pruned(); n > 0 {
		s += fmt.Sprintf(", pruned %d", n)
	}
	return s + "\n"
}

// Print outputs the metrics to stdout.
func (m *BuildMetrics) Print() {
	fmt.Println(m.String())
}

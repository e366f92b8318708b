// Package telemetry records what the scheduler does each tick: a ring buffer
// of recent tick samples for debugging and a Prometheus observer for
// long-running hosts. Both implement core.TickObserver.
package telemetry

import (
	"sync"
	"time"

	"github.com/go-drift/recompose/pkg/core"
)

const (
	traceSamplesDefault   = 240
	defaultTraceThreshold = 10 * time.Millisecond
)

// TickSample is a single tick trace sample.
type TickSample struct {
	Timestamp int64          `json:"ts"`
	TickMs    float64        `json:"tickMs"`
	Stats     core.TickStats `json:"stats"`
}

// Timeline is a chronological view of the buffer.
type Timeline struct {
	Samples     []TickSample `json:"samples"`
	SlowTicks   int          `json:"slowTicks"`
	ThresholdMs float64      `json:"thresholdMs"`
}

// TraceBuffer stores recent tick samples in a ring buffer and counts the
// ticks that took longer than a threshold.
type TraceBuffer struct {
	mu        sync.RWMutex
	samples   []TickSample
	index     int
	count     int
	slow      int
	threshold time.Duration
	now       func() time.Time
}

// NewTraceBuffer creates a trace buffer. Non-positive arguments select the
// defaults.
func NewTraceBuffer(capacity int, threshold time.Duration) *TraceBuffer {
	if capacity <= 0 {
		capacity = traceSamplesDefault
	}
	if threshold <= 0 {
		threshold = defaultTraceThreshold
	}
	return &TraceBuffer{
		samples:   make([]TickSample, capacity),
		threshold: threshold,
		now:       time.Now,
	}
}

// Capacity returns the buffer capacity.
func (b *TraceBuffer) Capacity() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// SetThreshold updates the slow tick threshold.
func (b *TraceBuffer) SetThreshold(threshold time.Duration) {
	if threshold <= 0 {
		threshold = defaultTraceThreshold
	}
	b.mu.Lock()
	b.threshold = threshold
	b.mu.Unlock()
}

// Threshold returns the slow tick threshold.
func (b *TraceBuffer) Threshold() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold
}

// ObserveTick implements core.TickObserver.
func (b *TraceBuffer) ObserveTick(stats core.TickStats) {
	total := stats.Phases.Total()
	sample := TickSample{
		Timestamp: b.now().UnixMilli(),
		TickMs:    durationToMillis(total),
		Stats:     stats,
	}

	b.mu.Lock()
	b.samples[b.index] = sample
	b.index = (b.index + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	if total > b.threshold {
		b.slow++
	}
	b.mu.Unlock()
}

// Timeline returns a chronological copy of the samples.
func (b *TraceBuffer) Timeline() Timeline {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return Timeline{ThresholdMs: durationToMillis(b.threshold)}
	}

	result := make([]TickSample, b.count)
	if b.count < len(b.samples) {
		copy(result, b.samples[:b.count])
	} else {
		copy(result, b.samples[b.index:])
		copy(result[len(b.samples)-b.index:], b.samples[:b.index])
	}

	return Timeline{
		Samples:     result,
		SlowTicks:   b.slow,
		ThresholdMs: durationToMillis(b.threshold),
	}
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

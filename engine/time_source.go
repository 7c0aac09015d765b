package engine

import (
	"sync/atomic"
	"time"
)

// TimeSource supplies the loop's notion of now
type TimeSource interface {
	Now() time.Time
}

// WallTime reads the system clock, monotonic reading included
type WallTime struct{}

func (WallTime) Now() time.Time { return time.Now() }

var _ TimeSource = (*ManualTime)(nil)

// ManualTime is a TimeSource that only moves when told to
// Drives the loop deterministically in tests and replays
type ManualTime struct {
	base    time.Time
	elapsed atomic.Int64
}

func NewManualTime(base time.Time) *ManualTime {
	return &ManualTime{base: base}
}

func (m *ManualTime) Now() time.Time {
	return m.base.Add(time.Duration(m.elapsed.Load()))
}

// Advance moves time forward; negative durations are ignored
func (m *ManualTime) Advance(d time.Duration) {
	if d > 0 {
		m.elapsed.Add(int64(d))
	}
}

// Elapsed returns the total time advanced since base
func (m *ManualTime) Elapsed() time.Duration {
	return time.Duration(m.elapsed.Load())
}

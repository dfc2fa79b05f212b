// Package sampling provides a dual-threshold rate gate for expensive
// telemetry work.
package sampling

import (
	"sync/atomic"
	"time"
)

// SamplingInterval gates an action behind both a call-count threshold and an
// elapsed-time threshold. It is safe for concurrent use; exactly one caller
// observes true per threshold crossing.
type SamplingInterval struct {
	countThreshold uint64
	timeThreshold  time.Duration

	// calls since the last fire; decremented (not zeroed) on fire so
	// concurrent increments are not lost.
	counter  atomic.Int64
	lastFire atomic.Int64 // unix nanos
}

// NewSamplingInterval returns a gate that fires once every countThreshold
// calls, provided at least timeThreshold has elapsed since the last fire. A
// zero timeThreshold degenerates to pure count-based sampling.
func NewSamplingInterval(countThreshold uint64, timeThreshold time.Duration) *SamplingInterval {
	s := &SamplingInterval{
		countThreshold: countThreshold,
		timeThreshold:  timeThreshold,
	}
	s.lastFire.Store(time.Now().UnixNano())
	return s
}

// Sample increments the call counter and reports whether the caller crossed
// both thresholds. On a true result both the counter and the time marker
// reset.
func (s *SamplingInterval) Sample() bool {
	n := s.counter.Add(1)
	if n <= int64(s.countThreshold) {
		return false
	}

	now := time.Now().UnixNano()
	last := s.lastFire.Load()
	if s.timeThreshold > 0 && now-last < int64(s.timeThreshold) {
		return false
	}

	// The CAS on the time marker elects a single firing caller among any
	// simultaneous batch.
	if !s.lastFire.CompareAndSwap(last, now) {
		return false
	}
	s.counter.Add(-n)
	return true
}

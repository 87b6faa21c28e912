package dwell

import (
	"sync"
	"time"
)

// Clock provides the current wall time
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// Now returns the current time
func (RealClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a Clock that only moves when told to, for use in tests and
// when replaying recorded streams
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock set to the given time
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current time of the clock
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StreamClock measures time since the start of a stream.  A single
// StreamClock is shared by all tracks of a run so their dwell times are
// comparable.
type StreamClock struct {
	clock   Clock
	start   time.Time
	started bool
}

// NewStreamClock returns a stream clock reading from the given Clock, or the
// system clock if nil.  The clock starts on the first call to Start or
// Elapsed.
func NewStreamClock(clock Clock) *StreamClock {
	if clock == nil {
		clock = RealClock{}
	}
	return &StreamClock{clock: clock}
}

// Start marks the start of the stream, it has no effect once started
func (s *StreamClock) Start() {
	if !s.started {
		s.start = s.clock.Now()
		s.started = true
	}
}

// Elapsed returns the time since the stream started
func (s *StreamClock) Elapsed() time.Duration {
	s.Start()
	return s.clock.Now().Sub(s.start)
}

// internal/clock/clock.go
// Package clock provides the millisecond time source read by the decode loop.
package clock

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ColonelBlimp/keydecoder/internal/recovery"
)

var (
	// ErrInvalidTickInterval indicates the tick period must be at least one millisecond
	ErrInvalidTickInterval = errors.New("tick interval must be at least 1ms")
	// ErrAlreadyStarted indicates Start was called twice on the same clock
	ErrAlreadyStarted = errors.New("clock already started")
)

// TimePoint is a millisecond count since the clock was started.
// It wraps at 32 bits (about 49.7 days).
type TimePoint uint32

// Since returns the time elapsed from earlier to t.
// Unsigned subtraction keeps the result correct across a single wrap.
func (t TimePoint) Since(earlier TimePoint) time.Duration {
	return time.Duration(uint32(t)-uint32(earlier)) * time.Millisecond
}

// Clock is a monotonic millisecond counter.
// Now must be safe to call from any goroutine.
type Clock interface {
	Now() TimePoint
}

// MonotonicClock derives the millisecond count from the runtime's monotonic clock.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonic returns a clock whose zero is the moment of the call.
func NewMonotonic() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns the milliseconds elapsed since NewMonotonic.
func (c *MonotonicClock) Now() TimePoint {
	return TimePoint(uint32(time.Since(c.start).Milliseconds()))
}

// TickClock is a counter advanced by a periodic ticker goroutine, the way a
// timer interrupt advances a millis() counter on a microcontroller.
// Reads and writes go through an atomic so a reader never sees a torn value.
type TickClock struct {
	interval time.Duration
	step     uint32
	counter  atomic.Uint32
	started  atomic.Bool
}

// NewTickClock creates a tick clock that advances by interval on every tick.
func NewTickClock(interval time.Duration) (*TickClock, error) {
	if interval < time.Millisecond {
		return nil, ErrInvalidTickInterval
	}
	return &TickClock{
		interval: interval,
		step:     uint32(interval / time.Millisecond),
	}, nil
}

// Start launches the tick goroutine. It stops when ctx is cancelled.
func (c *TickClock) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	go func() {
		defer recovery.HandlePanic()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.counter.Add(c.step)
			}
		}
	}()

	return nil
}

// Now returns the current counter value.
func (c *TickClock) Now() TimePoint {
	return TimePoint(c.counter.Load())
}

// ManualClock is a clock moved only by its owner. Used to drive the decoder
// deterministically in tests and replays.
type ManualClock struct {
	now atomic.Uint32
}

// Now returns the current value.
func (c *ManualClock) Now() TimePoint {
	return TimePoint(c.now.Load())
}

// Set moves the clock to t.
func (c *ManualClock) Set(t TimePoint) {
	c.now.Store(uint32(t))
}

// Advance moves the clock forward by d, truncated to whole milliseconds.
func (c *ManualClock) Advance(d time.Duration) TimePoint {
	return TimePoint(c.now.Add(uint32(d / time.Millisecond)))
}

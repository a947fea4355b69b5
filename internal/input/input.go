// internal/input/input.go
// Package input provides the key line read by the decode loop.
//
// Samplers report the raw line level. None of them debounce: a bouncing
// contact shows up as extra short presses, and a filtering Sampler can be
// dropped in without touching the decoder.
package input

import "sync/atomic"

// Sampler reports the current level of the key line. High means pressed.
type Sampler interface {
	IsHigh() bool
}

// Func adapts a plain function to Sampler.
type Func func() bool

// IsHigh calls f.
func (f Func) IsHigh() bool {
	return f()
}

// Static is a line whose level is set by its owner. Safe for concurrent use.
type Static struct {
	level atomic.Bool
}

// IsHigh returns the last level set.
func (s *Static) IsHigh() bool {
	return s.level.Load()
}

// Set changes the level.
func (s *Static) Set(high bool) {
	s.level.Store(high)
}

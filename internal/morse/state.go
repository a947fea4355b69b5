// internal/morse/state.go
package morse

import (
	"errors"
	"time"

	"github.com/ColonelBlimp/keydecoder/internal/clock"
)

// Default timing, in milliseconds of key activity.
const (
	// DefaultDashThreshold separates dots from dashes
	DefaultDashThreshold = 250 * time.Millisecond
	// DefaultCharGapMin opens the character-gap window
	DefaultCharGapMin = 1000 * time.Millisecond
	// DefaultCharGapMax closes the character-gap window (exclusive)
	DefaultCharGapMax = 1500 * time.Millisecond
	// DefaultWordGap is the idle time that ends a word
	DefaultWordGap = 2500 * time.Millisecond
)

// OverflowLimit is the symbol count that forces an overflow on the next cycle.
const OverflowLimit = PatternLength

var (
	// ErrInvalidDashThreshold indicates the dot/dash threshold must be positive
	ErrInvalidDashThreshold = errors.New("dash threshold must be positive")
	// ErrInvalidCharGap indicates the character-gap window must be a positive, non-empty range
	ErrInvalidCharGap = errors.New("character gap window must satisfy 0 < min < max")
	// ErrInvalidWordGap indicates the word gap must not start inside the character-gap window
	ErrInvalidWordGap = errors.New("word gap must be at least the character gap maximum")
)

// Timing holds the thresholds used by Step.
type Timing struct {
	// DashThreshold: a press at least this long is a dash (from config: dash_threshold_ms)
	DashThreshold time.Duration
	// CharGapMin and CharGapMax bound the idle window that completes a character
	// (from config: char_gap_min_ms, char_gap_max_ms)
	CharGapMin time.Duration
	CharGapMax time.Duration
	// WordGap is the idle time that emits a space (from config: word_gap_ms)
	WordGap time.Duration
}

// DefaultTiming returns the standard thresholds.
func DefaultTiming() Timing {
	return Timing{
		DashThreshold: DefaultDashThreshold,
		CharGapMin:    DefaultCharGapMin,
		CharGapMax:    DefaultCharGapMax,
		WordGap:       DefaultWordGap,
	}
}

// Validate checks that the thresholds are usable.
func (t Timing) Validate() error {
	if t.DashThreshold <= 0 {
		return ErrInvalidDashThreshold
	}
	if t.CharGapMin <= 0 || t.CharGapMax <= t.CharGapMin {
		return ErrInvalidCharGap
	}
	if t.WordGap < t.CharGapMax {
		return ErrInvalidWordGap
	}
	return nil
}

// State is everything the decoder remembers between poll cycles.
type State struct {
	// Held is true while the key is down
	Held bool
	// PressStart is when the current press began
	PressStart clock.TimePoint
	// GapStart is when the last press ended
	GapStart clock.TimePoint
	// Waiting suppresses gap evaluation after a word space until the next press
	Waiting bool
	// Buffer holds the symbols of the character being keyed
	Buffer SymbolBuffer
}

// Sample is one poll cycle's view of the world. Now is read once per cycle
// and reused for every timing decision in that cycle.
type Sample struct {
	Now  clock.TimePoint
	High bool
}

// Edge identifies a key transition seen during a cycle.
type Edge uint8

const (
	NoEdge Edge = iota
	Pressed
	Released
)

// EmissionKind identifies what a cycle asks the emitter to write.
type EmissionKind uint8

const (
	EmitChar EmissionKind = iota + 1
	EmitSpace
	EmitOverflow
)

// Emission is one output produced by a cycle.
type Emission struct {
	Kind EmissionKind
	// Char is the decoded character for EmitChar
	Char rune
	// Pattern is the resolved pattern for EmitChar, or the discarded one for EmitOverflow
	Pattern Pattern
}

// Effects are the outputs of a single Step.
type Effects struct {
	// Indicator is the level the visual indicator should be driven to
	Indicator bool
	// Edge is the transition detected this cycle, if any
	Edge Edge
	// Symbol is the classified symbol when Edge is Released
	Symbol Symbol
	// PressDuration is the measured press length when Edge is Released
	PressDuration time.Duration
	// Skipped is true when gap evaluation was suppressed by the waiting flag
	Skipped bool
	// Emissions are in the order they must be written
	Emissions []Emission
}

// Step advances the decoder by one poll cycle. It is a pure function of its
// inputs: the returned State replaces s, and the Effects describe what the
// caller must write and drive.
//
// Cycle order: overflow check, edge detection, then gap classification
// (character window before word window) while the key is up.
func Step(s State, in Sample, t Timing) (State, Effects) {
	var fx Effects

	if s.Buffer.Len() >= OverflowLimit {
		fx.Emissions = append(fx.Emissions, Emission{Kind: EmitOverflow, Pattern: s.Buffer.Pattern()})
		s.Buffer.Reset()
	}

	if in.High {
		if !s.Held {
			s.Waiting = false
			s.Held = true
			s.PressStart = in.Now
			fx.Edge = Pressed
		}
		fx.Indicator = true
	} else if s.Held {
		s.Held = false
		fx.PressDuration = in.Now.Since(s.PressStart)
		fx.Symbol = Classify(fx.PressDuration, t.DashThreshold)
		s.Buffer.Append(fx.Symbol)
		s.GapStart = in.Now
		fx.Edge = Released
	}

	if s.Held {
		return s, fx
	}
	if s.Waiting {
		fx.Skipped = true
		return s, fx
	}

	elapsed := in.Now.Since(s.GapStart)

	if elapsed >= t.CharGapMin && elapsed < t.CharGapMax && s.Buffer.Len() > 0 {
		p := s.Buffer.Pattern()
		fx.Emissions = append(fx.Emissions, Emission{Kind: EmitChar, Char: Lookup(p), Pattern: p})
		s.Buffer.Reset()
	}

	if elapsed >= t.WordGap {
		fx.Emissions = append(fx.Emissions, Emission{Kind: EmitSpace, Char: ' '})
		s.Waiting = true
	}

	return s, fx
}

// internal/morse/symbol.go
// Package morse decodes a single key's press/release timing into Morse
// characters: press durations become dots and dashes, idle gaps close
// characters and words, and a fixed table resolves each pattern.
package morse

import (
	"strings"
	"time"
)

// PatternLength is the number of symbol slots in a pattern.
const PatternLength = 6

// Symbol is one keyed element. The zero value marks an unused slot.
type Symbol uint8

const (
	Unset Symbol = 0
	Dot   Symbol = 1
	Dash  Symbol = 2
)

// String returns "." for Dot, "-" for Dash and "" for Unset.
func (s Symbol) String() string {
	switch s {
	case Dot:
		return "."
	case Dash:
		return "-"
	default:
		return ""
	}
}

// Classify maps a press duration to a symbol.
// Anything shorter than threshold is a dot, everything else a dash.
func Classify(d, threshold time.Duration) Symbol {
	if d < threshold {
		return Dot
	}
	return Dash
}

// Pattern is a zero-padded sequence of symbols identifying one character.
type Pattern [PatternLength]Symbol

// ParsePattern builds a pattern from dot/dash notation, e.g. "-.--".
// It reports false for unknown runes or more than PatternLength elements.
func ParsePattern(s string) (Pattern, bool) {
	var p Pattern
	if len(s) > PatternLength {
		return p, false
	}
	for i, r := range s {
		switch r {
		case '.':
			p[i] = Dot
		case '-':
			p[i] = Dash
		default:
			return Pattern{}, false
		}
	}
	return p, true
}

// Len returns the number of leading set slots.
func (p Pattern) Len() int {
	for i, s := range p {
		if s == Unset {
			return i
		}
	}
	return PatternLength
}

// String renders the pattern in dot/dash notation without padding.
func (p Pattern) String() string {
	var b strings.Builder
	for _, s := range p {
		b.WriteString(s.String())
	}
	return b.String()
}

// SymbolBuffer accumulates the symbols of the character being keyed.
// Filled slots are always contiguous from index 0.
type SymbolBuffer struct {
	slots Pattern
	count int
}

// Append stores s in the next free slot.
// It reports false and leaves the buffer unchanged when the buffer is full.
func (b *SymbolBuffer) Append(s Symbol) bool {
	if b.count >= PatternLength {
		return false
	}
	b.slots[b.count] = s
	b.count++
	return true
}

// Len returns the number of filled slots.
func (b *SymbolBuffer) Len() int {
	return b.count
}

// Full reports whether every slot is filled.
func (b *SymbolBuffer) Full() bool {
	return b.count >= PatternLength
}

// Pattern returns the filled slots with the unused tail padded with Unset.
func (b *SymbolBuffer) Pattern() Pattern {
	p := b.slots
	for i := b.count; i < PatternLength; i++ {
		p[i] = Unset
	}
	return p
}

// Reset empties the buffer and clears every slot.
func (b *SymbolBuffer) Reset() {
	b.slots = Pattern{}
	b.count = 0
}

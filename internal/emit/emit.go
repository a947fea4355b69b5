// internal/emit/emit.go
// Package emit writes decoded text to a character stream.
package emit

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// OverflowMessage is the diagnostic written when too many symbols were keyed.
const OverflowMessage = "Too many presses"

// ErrWriterRequired indicates a nil io.Writer was given
var ErrWriterRequired = errors.New("emitter writer is required")

// Emitter receives decoder output.
type Emitter interface {
	// Char writes one decoded character.
	Char(r rune) error
	// Space writes the single space that separates words.
	Space() error
	// Overflow writes the overflow diagnostic line.
	Overflow() error
}

// WriterEmitter writes decoder output to an io.Writer.
type WriterEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns an emitter that writes to w.
func NewWriter(w io.Writer) (*WriterEmitter, error) {
	if w == nil {
		return nil, ErrWriterRequired
	}
	return &WriterEmitter{w: w}, nil
}

// Char writes r UTF-8 encoded.
func (e *WriterEmitter) Char(r rune) error {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return e.write(buf[:n])
}

// Space writes a single space.
func (e *WriterEmitter) Space() error {
	return e.write([]byte{' '})
}

// Overflow writes OverflowMessage followed by a newline.
func (e *WriterEmitter) Overflow() error {
	return e.write([]byte(OverflowMessage + "\n"))
}

func (e *WriterEmitter) write(p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(p); err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	return nil
}

// Recorder keeps everything emitted in memory.
type Recorder struct {
	mu        sync.Mutex
	b         strings.Builder
	chars     int
	spaces    int
	overflows int
}

// Char records r.
func (r *Recorder) Char(c rune) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b.WriteRune(c)
	r.chars++
	return nil
}

// Space records a space.
func (r *Recorder) Space() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b.WriteByte(' ')
	r.spaces++
	return nil
}

// Overflow records the overflow line.
func (r *Recorder) Overflow() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b.WriteString(OverflowMessage + "\n")
	r.overflows++
	return nil
}

// String returns the text recorded so far.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.b.String()
}

// Counts returns the number of characters, spaces and overflows recorded.
func (r *Recorder) Counts() (chars, spaces, overflows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chars, r.spaces, r.overflows
}

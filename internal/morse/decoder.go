// internal/morse/decoder.go
package morse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ColonelBlimp/keydecoder/internal/clock"
	"github.com/ColonelBlimp/keydecoder/internal/emit"
	"github.com/ColonelBlimp/keydecoder/internal/indicator"
	"github.com/ColonelBlimp/keydecoder/internal/input"
)

var (
	// ErrClockRequired indicates a clock must be supplied
	ErrClockRequired = errors.New("clock is required")
	// ErrSamplerRequired indicates an input sampler must be supplied
	ErrSamplerRequired = errors.New("input sampler is required")
	// ErrEmitterRequired indicates an emitter must be supplied
	ErrEmitterRequired = errors.New("emitter is required")
	// ErrInvalidPollInterval indicates the poll interval must not be negative
	ErrInvalidPollInterval = errors.New("poll interval must not be negative")
)

// DecoderConfig holds configuration for the key decoder.
type DecoderConfig struct {
	Timing Timing
	// PollInterval is the pause between cycles; zero spins without pausing
	// (from config: poll_interval_us)
	PollInterval time.Duration
}

// DecodedOutput describes one emission, for observers.
type DecodedOutput struct {
	Kind    EmissionKind
	Char    rune
	Pattern Pattern
	At      clock.TimePoint
}

// DecodedCallback is called after each emission has been written.
// Must be non-blocking and fast.
type DecodedCallback func(output DecodedOutput)

// Decoder owns the decode state and runs the poll loop against its
// collaborators: clock, key input, indicator and emitter.
type Decoder struct {
	config DecoderConfig

	clock   clock.Clock
	input   input.Sampler
	output  emit.Emitter
	lamp    indicator.Indicator
	log     *slog.Logger
	onEmit  DecodedCallback
	mu      sync.Mutex
	state   State
	written int
}

// NewDecoder validates cfg and wires the required collaborators.
// The indicator defaults to indicator.Nop and logging is discarded until
// SetIndicator and SetLogger are called.
func NewDecoder(cfg DecoderConfig, clk clock.Clock, in input.Sampler, out emit.Emitter) (*Decoder, error) {
	if err := cfg.Timing.Validate(); err != nil {
		return nil, err
	}
	if cfg.PollInterval < 0 {
		return nil, ErrInvalidPollInterval
	}
	if clk == nil {
		return nil, ErrClockRequired
	}
	if in == nil {
		return nil, ErrSamplerRequired
	}
	if out == nil {
		return nil, ErrEmitterRequired
	}

	return &Decoder{
		config: cfg,
		clock:  clk,
		input:  in,
		output: out,
		lamp:   indicator.Nop{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetIndicator replaces the key-down indicator.
func (d *Decoder) SetIndicator(ind indicator.Indicator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ind == nil {
		ind = indicator.Nop{}
	}
	d.lamp = ind
}

// SetLogger replaces the logger.
func (d *Decoder) SetLogger(log *slog.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if log != nil {
		d.log = log
	}
}

// SetCallback sets the observer called after each emission.
func (d *Decoder) SetCallback(cb DecodedCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEmit = cb
}

// Cycle runs one poll cycle: it reads the clock and the key once each,
// advances the state and performs the resulting effects.
func (d *Decoder) Cycle() {
	d.mu.Lock()
	defer d.mu.Unlock()

	in := Sample{Now: d.clock.Now(), High: d.input.IsHigh()}

	next, fx := Step(d.state, in, d.config.Timing)
	d.state = next

	if err := d.lamp.Set(fx.Indicator); err != nil {
		d.log.Error("indicator update failed", "error", err)
	}

	switch fx.Edge {
	case Pressed:
		d.log.Debug("press", "at", in.Now)
	case Released:
		d.log.Debug("release", "at", in.Now, "duration", fx.PressDuration,
			"symbol", fx.Symbol.String(), "buffered", d.state.Buffer.Len())
	}

	for _, e := range fx.Emissions {
		d.perform(e, in.Now)
	}
}

func (d *Decoder) perform(e Emission, at clock.TimePoint) {
	var err error
	switch e.Kind {
	case EmitOverflow:
		d.log.Warn("symbol buffer overflow, character discarded", "pattern", e.Pattern.String())
		err = d.output.Overflow()
	case EmitChar:
		if e.Char == Unknown {
			d.log.Info("unknown pattern", "pattern", e.Pattern.String())
		} else {
			d.log.Info("decoded", "char", string(e.Char), "pattern", e.Pattern.String())
		}
		err = d.output.Char(e.Char)
	case EmitSpace:
		d.log.Debug("word gap")
		err = d.output.Space()
	}

	if err != nil {
		d.log.Error("emit failed", "error", err)
		return
	}
	d.written++

	if d.onEmit != nil {
		d.onEmit(DecodedOutput{Kind: e.Kind, Char: e.Char, Pattern: e.Pattern, At: at})
	}
}

// Run repeats Cycle until ctx is cancelled.
func (d *Decoder) Run(ctx context.Context) error {
	d.log.Info("decoder running",
		"dash_threshold", d.config.Timing.DashThreshold,
		"char_gap", [2]time.Duration{d.config.Timing.CharGapMin, d.config.Timing.CharGapMax},
		"word_gap", d.config.Timing.WordGap,
		"poll_interval", d.config.PollInterval)

	var ticker *time.Ticker
	if d.config.PollInterval > 0 {
		ticker = time.NewTicker(d.config.PollInterval)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		d.Cycle()
	}
}

// State returns a copy of the current decode state.
func (d *Decoder) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Written returns the number of emissions successfully written.
func (d *Decoder) Written() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Reset returns the decoder to its startup state.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = State{}
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ColonelBlimp/keydecoder/internal/clock"
	"github.com/ColonelBlimp/keydecoder/internal/config"
	"github.com/ColonelBlimp/keydecoder/internal/emit"
	"github.com/ColonelBlimp/keydecoder/internal/indicator"
	"github.com/ColonelBlimp/keydecoder/internal/input"
	"github.com/ColonelBlimp/keydecoder/internal/morse"
)

// toneInput is the audio key input: a sampler that must be started.
type toneInput interface {
	input.Sampler
	Start(ctx context.Context) error
	io.Closer
}

// Hardware constructors, replaced in tests.
var (
	openPinSampler = func(cfg input.PinConfig) (input.Sampler, error) {
		s, err := input.NewPinSampler(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	openToneSampler = func(cfg input.ToneConfig) (toneInput, error) {
		s, err := input.NewToneSampler(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	openLED = func(name string) (indicator.Indicator, error) {
		p, err := indicator.NewPin(name)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	openSerial = emit.OpenSerial
)

// buildDecoder creates the clock, key input, indicator and emitter described
// by s and wires them into a decoder. The returned cleanup releases
// whatever was opened.
func buildDecoder(ctx context.Context, s *config.Settings, stdout io.Writer, log *slog.Logger) (*morse.Decoder, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}
	fail := func(err error) (*morse.Decoder, func(), error) {
		cleanup()
		return nil, nil, err
	}

	clk, err := newClock(ctx, s)
	if err != nil {
		return fail(fmt.Errorf("clock: %w", err))
	}

	var sampler input.Sampler
	switch s.Input {
	case "tone":
		tone, err := openToneSampler(s.ToneConfig())
		if err != nil {
			return fail(fmt.Errorf("audio: %w", err))
		}
		closers = append(closers, tone)
		if err := tone.Start(ctx); err != nil {
			return fail(fmt.Errorf("audio: %w", err))
		}
		sampler = tone
	default:
		sampler, err = openPinSampler(s.PinConfig())
		if err != nil {
			return fail(fmt.Errorf("gpio: %w", err))
		}
	}

	var out emit.Emitter
	if s.UsesStdout() {
		out, err = emit.NewWriter(stdout)
		if err != nil {
			return fail(err)
		}
	} else {
		w, port, err := openSerial(s.SerialConfig())
		if err != nil {
			return fail(fmt.Errorf("serial: %w", err))
		}
		closers = append(closers, port)
		out = w
	}

	var lamp indicator.Indicator = indicator.NewLog(log)
	if s.LEDPin != "" {
		lamp, err = openLED(s.LEDPin)
		if err != nil {
			return fail(fmt.Errorf("led: %w", err))
		}
	}

	dec, err := morse.NewDecoder(s.DecoderConfig(), clk, sampler, out)
	if err != nil {
		return fail(err)
	}
	dec.SetIndicator(lamp)
	dec.SetLogger(log)

	log.Info("collaborators ready",
		"input", s.Input,
		"clock", s.Clock,
		"output", s.Output,
		"led", s.LEDPin)

	return dec, cleanup, nil
}

func newClock(ctx context.Context, s *config.Settings) (clock.Clock, error) {
	if s.Clock != "tick" {
		return clock.NewMonotonic(), nil
	}
	tc, err := clock.NewTickClock(s.TickInterval())
	if err != nil {
		return nil, err
	}
	if err := tc.Start(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}

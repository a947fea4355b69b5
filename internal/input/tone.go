// internal/input/tone.go
package input

import (
	"context"
	"fmt"

	"github.com/ColonelBlimp/keydecoder/internal/audio"
	"github.com/ColonelBlimp/keydecoder/internal/dsp"
)

// ToneConfig configures a sampler that reads the key from a keyed sidetone.
type ToneConfig struct {
	Audio    audio.Config
	Goertzel dsp.GoertzelConfig
	Key      dsp.KeyConfig
}

// toneSource is the capture side of a ToneSampler.
type toneSource interface {
	SetHandler(h audio.SampleHandler)
	Start(ctx context.Context) error
	Close() error
}

// ToneSampler reports the key as down while the sidetone is present.
type ToneSampler struct {
	source   toneSource
	detector *dsp.KeyDetector
}

// NewToneSampler builds the detector chain and initializes the audio backend.
// Call Start to begin capturing and Close to release the device.
func NewToneSampler(cfg ToneConfig) (*ToneSampler, error) {
	detector, err := newKeyDetector(cfg)
	if err != nil {
		return nil, err
	}

	capture := audio.New(cfg.Audio)
	if err := capture.Init(); err != nil {
		return nil, err
	}
	return newToneSampler(capture, detector), nil
}

func newKeyDetector(cfg ToneConfig) (*dsp.KeyDetector, error) {
	g, err := dsp.NewGoertzel(cfg.Goertzel)
	if err != nil {
		return nil, fmt.Errorf("tone filter: %w", err)
	}
	d, err := dsp.NewKeyDetector(cfg.Key, g)
	if err != nil {
		return nil, fmt.Errorf("tone detector: %w", err)
	}
	return d, nil
}

func newToneSampler(src toneSource, d *dsp.KeyDetector) *ToneSampler {
	src.SetHandler(d.Process)
	return &ToneSampler{source: src, detector: d}
}

// Start begins capturing. Capture stops when ctx is cancelled.
func (s *ToneSampler) Start(ctx context.Context) error {
	if err := s.source.Start(ctx); err != nil {
		return fmt.Errorf("start tone capture: %w", err)
	}
	return nil
}

// IsHigh reports whether the tone is currently detected.
func (s *ToneSampler) IsHigh() bool {
	return s.detector.Keyed()
}

// Close releases the audio device.
func (s *ToneSampler) Close() error {
	return s.source.Close()
}

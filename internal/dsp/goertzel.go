// internal/dsp/goertzel.go
// Package dsp detects a keyed sidetone in audio so a transmitter's key line
// can be read through a sound card instead of a GPIO pin.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates fewer samples than one block
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig selects the frequency bin to measure.
type GoertzelConfig struct {
	// TargetFrequency is the sidetone pitch in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the capture rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per measurement (from config: block_size)
	BlockSize int
}

// Goertzel measures the energy of one frequency bin per block of samples.
type Goertzel struct {
	config      GoertzelConfig
	coefficient float64 // 2*cos(omega)
	normalizer  float64 // 2/N, scales a full-scale sine to ~1.0
}

// NewGoertzel precomputes the filter coefficient for cfg.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2.0 * math.Pi * cfg.TargetFrequency / cfg.SampleRate

	return &Goertzel{
		config:      cfg,
		coefficient: 2.0 * math.Cos(omega),
		normalizer:  2.0 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude returns the normalized bin magnitude of the first BlockSize samples.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.config.BlockSize {
		return 0, ErrInsufficientSamples
	}
	return g.magnitude(samples), nil
}

// magnitude is the hot path; samples must hold at least one block.
func (g *Goertzel) magnitude(samples []float32) float64 {
	var s1, s2 float64
	coeff := g.coefficient

	for _, x := range samples[:g.config.BlockSize] {
		s0 := float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.normalizer
}

// BlockSize returns the configured block size.
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}

// Config returns the configuration.
func (g *Goertzel) Config() GoertzelConfig {
	return g.config
}

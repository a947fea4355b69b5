// internal/dsp/key.go
package dsp

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be at least one block
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrInvalidOverlap indicates overlap percentage must be 0-99
	ErrInvalidOverlap = errors.New("overlap percentage must be between 0 and 99")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
	// ErrGoertzelRequired indicates a Goertzel filter is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// minAGCPeak keeps the AGC divisor away from zero.
const minAGCPeak = 0.001

// KeyConfig tunes the tone-to-key-level decision.
type KeyConfig struct {
	// Threshold on the normalized magnitude above which the key is down (from config: threshold)
	Threshold float64
	// Hysteresis is consecutive agreeing blocks needed to flip the level (from config: hysteresis)
	Hysteresis int
	// OverlapPct is the block overlap percentage 0-99 (from config: overlap_pct)
	OverlapPct int
	// AGCEnabled normalizes magnitude against a tracked peak (from config: agc_enabled)
	AGCEnabled bool
	// AGCDecay is the per-block peak decay (from config: agc_decay)
	AGCDecay float64
	// AGCAttack is how quickly the peak follows louder blocks (from config: agc_attack)
	AGCAttack float64
}

// KeyDetector turns blocks of audio into a key-down/key-up level.
// Process runs on the audio thread; Keyed may be read from any goroutine.
type KeyDetector struct {
	config   KeyConfig
	goertzel *Goertzel

	mu        sync.Mutex
	window    []float32
	blockSize int
	hopSize   int
	agcPeak   float64
	pending   bool
	agreeing  int

	keyed atomic.Bool
}

// NewKeyDetector validates cfg and wraps g.
func NewKeyDetector(cfg KeyConfig, g *Goertzel) (*KeyDetector, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.OverlapPct < 0 || cfg.OverlapPct >= 100 {
		return nil, ErrInvalidOverlap
	}
	if cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGCDecay
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 {
		return nil, ErrInvalidAGCAttack
	}

	blockSize := g.BlockSize()
	hopSize := blockSize - (blockSize*cfg.OverlapPct)/100

	return &KeyDetector{
		config:    cfg,
		goertzel:  g,
		window:    make([]float32, 0, 2*blockSize),
		blockSize: blockSize,
		hopSize:   hopSize,
		agcPeak:   minAGCPeak,
	}, nil
}

// Process consumes samples normalized to -1.0..1.0.
func (d *KeyDetector) Process(samples []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.window = append(d.window, samples...)

	for len(d.window) >= d.blockSize {
		d.processBlock(d.window[:d.blockSize])

		n := copy(d.window, d.window[d.hopSize:])
		d.window = d.window[:n]
	}
}

func (d *KeyDetector) processBlock(block []float32) {
	magnitude := d.goertzel.magnitude(block)
	if d.config.AGCEnabled {
		magnitude = d.applyAGC(magnitude)
	}
	d.update(magnitude > d.config.Threshold)
}

func (d *KeyDetector) applyAGC(magnitude float64) float64 {
	if magnitude > d.agcPeak {
		d.agcPeak += d.config.AGCAttack * (magnitude - d.agcPeak)
	} else {
		d.agcPeak *= d.config.AGCDecay
	}
	if d.agcPeak < minAGCPeak {
		d.agcPeak = minAGCPeak
	}

	normalized := magnitude / d.agcPeak
	if normalized > 1.0 {
		normalized = 1.0
	}
	return normalized
}

// update flips the key level once Hysteresis consecutive blocks disagree with it.
func (d *KeyDetector) update(present bool) {
	current := d.keyed.Load()
	if present == current {
		d.pending = current
		d.agreeing = 0
		return
	}

	if present == d.pending {
		d.agreeing++
	} else {
		d.pending = present
		d.agreeing = 1
	}

	if d.agreeing >= d.config.Hysteresis {
		d.keyed.Store(present)
		d.agreeing = 0
	}
}

// Keyed reports whether the tone is currently present.
func (d *KeyDetector) Keyed() bool {
	return d.keyed.Load()
}

// Reset clears buffered audio and releases the key.
func (d *KeyDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.window = d.window[:0]
	d.agcPeak = minAGCPeak
	d.pending = false
	d.agreeing = 0
	d.keyed.Store(false)
}

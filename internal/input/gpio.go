// internal/input/gpio.go
package input

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	// ErrPinRequired indicates the pin name is empty
	ErrPinRequired = errors.New("gpio pin name is required")
	// ErrUnknownPull indicates the pull setting is not one of up, down, none
	ErrUnknownPull = errors.New("pull must be one of: up, down, none")
)

// hostInit is replaced in tests.
var hostInit = func() error {
	_, err := host.Init()
	return err
}

// PinConfig describes the key input pin.
type PinConfig struct {
	// Name is the periph.io pin name, e.g. GPIO17 (from config: button_pin)
	Name string
	// Pull is the internal resistor: up, down or none (from config: button_pull)
	Pull string
	// ActiveLow inverts the line for keys wired to ground (from config: button_active_low)
	ActiveLow bool
}

// digitalIn is the subset of gpio.PinIn the sampler uses.
type digitalIn interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

// PinSampler polls a GPIO pin through periph.io.
type PinSampler struct {
	pin       digitalIn
	activeLow bool
}

// ParsePull converts a config pull name to a periph.io pull.
func ParsePull(s string) (gpio.Pull, error) {
	switch strings.ToLower(s) {
	case "down", "":
		return gpio.PullDown, nil
	case "up":
		return gpio.PullUp, nil
	case "none", "float":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("%w, got %q", ErrUnknownPull, s)
	}
}

// NewPinSampler initializes the periph.io host and configures the named pin
// as an input without edge detection.
func NewPinSampler(cfg PinConfig) (*PinSampler, error) {
	if cfg.Name == "" {
		return nil, ErrPinRequired
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	p := gpioreg.ByName(cfg.Name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found in hardware", cfg.Name)
	}
	return newPinSampler(p, cfg)
}

func newPinSampler(p digitalIn, cfg PinConfig) (*PinSampler, error) {
	pull, err := ParsePull(cfg.Pull)
	if err != nil {
		return nil, err
	}
	if err := p.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("set pin %s to input: %w", cfg.Name, err)
	}
	return &PinSampler{pin: p, activeLow: cfg.ActiveLow}, nil
}

// IsHigh reads the pin.
func (s *PinSampler) IsHigh() bool {
	level := s.pin.Read() == gpio.High
	if s.activeLow {
		return !level
	}
	return level
}

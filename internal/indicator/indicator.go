// internal/indicator/indicator.go
// Package indicator drives the key-down lamp.
package indicator

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// ErrPinRequired indicates the pin name is empty
var ErrPinRequired = errors.New("indicator pin name is required")

// hostInit is replaced in tests.
var hostInit = func() error {
	_, err := host.Init()
	return err
}

// Indicator shows whether the key is held.
type Indicator interface {
	Set(on bool) error
}

// Nop discards every update.
type Nop struct{}

// Set does nothing.
func (Nop) Set(bool) error { return nil }

// Log reports level changes at debug level instead of driving hardware.
type Log struct {
	log   *slog.Logger
	known bool
	on    bool
}

// NewLog returns a logging indicator.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

// Set logs the new level when it differs from the last one.
func (l *Log) Set(on bool) error {
	if l.known && l.on == on {
		return nil
	}
	l.known, l.on = true, on
	l.log.Debug("indicator", "on", on)
	return nil
}

// digitalOut is the subset of gpio.PinOut the indicator uses.
type digitalOut interface {
	Out(l gpio.Level) error
}

// Pin drives a GPIO output high while the key is held.
// The pin is written only when the level changes.
type Pin struct {
	pin   digitalOut
	known bool
	on    bool
}

// NewPin initializes the periph.io host and claims the named pin as an output, driven low.
func NewPin(name string) (*Pin, error) {
	if name == "" {
		return nil, ErrPinRequired
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found in hardware", name)
	}
	return newPin(p)
}

func newPin(p digitalOut) (*Pin, error) {
	ind := &Pin{pin: p}
	if err := ind.Set(false); err != nil {
		return nil, err
	}
	return ind, nil
}

// Set drives the pin.
func (p *Pin) Set(on bool) error {
	if p.known && p.on == on {
		return nil
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("drive indicator: %w", err)
	}
	p.known, p.on = true, on
	return nil
}

// internal/emit/serial.go
package emit

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"
)

// DefaultBaudRate is the serial console speed used unless configured otherwise.
const DefaultBaudRate = 57600

var (
	// ErrPortRequired indicates the serial device path is empty
	ErrPortRequired = errors.New("serial port path is required")
	// ErrInvalidBaudRate indicates the baud rate must be positive
	ErrInvalidBaudRate = errors.New("baud rate must be positive")
)

// SerialConfig describes the serial output line. Frames are always 8N1.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyUSB0 (from config: output)
	Port string
	// BaudRate is the line speed (from config: baud_rate)
	BaudRate int
	// Timeout bounds a single write
	Timeout time.Duration
}

// openPort is replaced in tests.
var openPort = func(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.Open(c)
}

// OpenSerial opens the serial device and returns an emitter writing to it.
// The caller must close the returned io.Closer.
func OpenSerial(cfg SerialConfig) (*WriterEmitter, io.Closer, error) {
	if cfg.Port == "" {
		return nil, nil, ErrPortRequired
	}
	if cfg.BaudRate <= 0 {
		return nil, nil, ErrInvalidBaudRate
	}

	port, err := openPort(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}

	e, err := NewWriter(port)
	if err != nil {
		_ = port.Close()
		return nil, nil, err
	}
	return e, port, nil
}

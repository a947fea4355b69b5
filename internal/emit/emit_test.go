package emit

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/goburrow/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("line down") }

func TestNewWriter_Nil(t *testing.T) {
	_, err := NewWriter(nil)
	assert.ErrorIs(t, err, ErrWriterRequired)
}

func TestWriterEmitter_Output(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, e.Char('S'))
	require.NoError(t, e.Char('O'))
	require.NoError(t, e.Char('S'))
	require.NoError(t, e.Space())
	require.NoError(t, e.Overflow())
	require.NoError(t, e.Char('#'))

	assert.Equal(t, "SOS Too many presses\n#", buf.String())
}

func TestWriterEmitter_WriteError(t *testing.T) {
	e, err := NewWriter(failingWriter{})
	require.NoError(t, err)

	err = e.Char('E')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line down")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Char('I'))
	require.NoError(t, r.Space())
	require.NoError(t, r.Overflow())

	assert.Equal(t, "I Too many presses\n", r.String())
	chars, spaces, overflows := r.Counts()
	assert.Equal(t, 1, chars)
	assert.Equal(t, 1, spaces)
	assert.Equal(t, 1, overflows)
}

type fakePort struct {
	bytes.Buffer
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func stubOpenPort(t *testing.T, fn func(*serial.Config) (io.ReadWriteCloser, error)) {
	t.Helper()
	prev := openPort
	openPort = fn
	t.Cleanup(func() { openPort = prev })
}

func TestOpenSerial_Validation(t *testing.T) {
	_, _, err := OpenSerial(SerialConfig{BaudRate: DefaultBaudRate})
	assert.ErrorIs(t, err, ErrPortRequired)

	_, _, err = OpenSerial(SerialConfig{Port: "/dev/ttyUSB0"})
	assert.ErrorIs(t, err, ErrInvalidBaudRate)
}

func TestOpenSerial_ConfiguresLine(t *testing.T) {
	port := &fakePort{}
	var got *serial.Config
	stubOpenPort(t, func(c *serial.Config) (io.ReadWriteCloser, error) {
		got = c
		return port, nil
	})

	e, closer, err := OpenSerial(SerialConfig{Port: "/dev/ttyACM0", BaudRate: DefaultBaudRate})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/dev/ttyACM0", got.Address)
	assert.Equal(t, 57600, got.BaudRate)
	assert.Equal(t, 8, got.DataBits)
	assert.Equal(t, 1, got.StopBits)
	assert.Equal(t, "N", got.Parity)

	require.NoError(t, e.Char('K'))
	assert.Equal(t, "K", port.String())

	require.NoError(t, closer.Close())
	assert.True(t, port.closed)
}

func TestOpenSerial_OpenError(t *testing.T) {
	stubOpenPort(t, func(*serial.Config) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	})

	_, _, err := OpenSerial(SerialConfig{Port: "/dev/ttyS9", BaudRate: 9600})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyS9")
	assert.Contains(t, err.Error(), "no such device")
}

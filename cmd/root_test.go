package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ColonelBlimp/keydecoder/internal/audio"
	"github.com/ColonelBlimp/keydecoder/internal/emit"
	"github.com/ColonelBlimp/keydecoder/internal/indicator"
	"github.com/ColonelBlimp/keydecoder/internal/input"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func resetViperForTest() {
	viper.Reset()
}

// setupConfig gives the test its own HOME holding config as the XDG config
// file, and resets flags left over from earlier Execute calls.
func setupConfig(t *testing.T, config string) {
	t.Helper()
	resetViperForTest()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	configDir := filepath.Join(tmpDir, ".config", "keydecoder")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(config), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Logf("failed to restore dir: %v", err)
		}
	})

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// stubHardware replaces the hardware constructors for the test.
func stubHardware(t *testing.T) {
	t.Helper()
	prevPin, prevTone, prevLED, prevSerial := openPinSampler, openToneSampler, openLED, openSerial
	t.Cleanup(func() {
		openPinSampler, openToneSampler, openLED, openSerial = prevPin, prevTone, prevLED, prevSerial
	})

	openPinSampler = func(input.PinConfig) (input.Sampler, error) {
		return &input.Static{}, nil
	}
	openToneSampler = func(input.ToneConfig) (toneInput, error) {
		return nil, errors.New("no audio in tests")
	}
	openLED = func(string) (indicator.Indicator, error) {
		return indicator.Nop{}, nil
	}
	openSerial = func(emit.SerialConfig) (*emit.WriterEmitter, io.Closer, error) {
		return nil, nil, errors.New("no serial in tests")
	}
}

func execute(t *testing.T, timeout time.Duration, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

const quietConfig = "log_level: error\n"

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		shorthand    string
		defaultValue string
	}{
		{"input", "i", "gpio"},
		{"pin", "p", "GPIO17"},
		{"led", "l", ""},
		{"output", "o", "stdout"},
		{"baud", "b", "57600"},
		{"debug", "D", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "keydecoder" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "keydecoder")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"devices", "table"} {
		if !names[want] {
			t.Errorf("subcommand %q not registered", want)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetViperForTest()

	output, err := execute(t, time.Second, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"keydecoder", "--input", "--output", "devices", "table"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestInitConfig_BindsFlags(t *testing.T) {
	setupConfig(t, "button_pin: GPIO4\n")

	if err := rootCmd.PersistentFlags().Set("pin", "GPIO5"); err != nil {
		t.Fatalf("Set(pin) error = %v", err)
	}
	initConfig()

	if got := viper.GetString("button_pin"); got != "GPIO5" {
		t.Errorf("viper.GetString(button_pin) = %q, want GPIO5 (flag overrides config)", got)
	}
	if got := viper.GetInt("baud_rate"); got != 57600 {
		t.Errorf("viper.GetInt(baud_rate) = %d, want 57600", got)
	}
}

func TestRunDecoder_DecodesFromKey(t *testing.T) {
	setupConfig(t, quietConfig+"poll_interval_us: 200\n")
	stubHardware(t)

	// Key held for 100ms from the first sample, then released.
	var once sync.Once
	var start time.Time
	openPinSampler = func(input.PinConfig) (input.Sampler, error) {
		return input.Func(func() bool {
			once.Do(func() { start = time.Now() })
			return time.Since(start) < 100*time.Millisecond
		}), nil
	}

	output, err := execute(t, 1800*time.Millisecond)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if output != "E" {
		t.Errorf("output = %q, want %q", output, "E")
	}
}

func TestRunDecoder_FlagsReachCollaborators(t *testing.T) {
	setupConfig(t, quietConfig)
	stubHardware(t)

	var gotPin string
	openPinSampler = func(cfg input.PinConfig) (input.Sampler, error) {
		gotPin = cfg.Name
		return &input.Static{}, nil
	}
	var gotLED string
	openLED = func(name string) (indicator.Indicator, error) {
		gotLED = name
		return indicator.Nop{}, nil
	}

	var serialOut bytes.Buffer
	closed := false
	var gotSerial emit.SerialConfig
	openSerial = func(cfg emit.SerialConfig) (*emit.WriterEmitter, io.Closer, error) {
		gotSerial = cfg
		w, err := emit.NewWriter(&serialOut)
		return w, closerFunc(func() error { closed = true; return nil }), err
	}

	_, err := execute(t, 50*time.Millisecond,
		"--pin", "GPIO5", "--led", "GPIO6", "--output", "/dev/ttyUSB1", "--baud", "9600")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotPin != "GPIO5" || gotLED != "GPIO6" {
		t.Errorf("pin = %q, led = %q; want GPIO5, GPIO6", gotPin, gotLED)
	}
	if gotSerial.Port != "/dev/ttyUSB1" || gotSerial.BaudRate != 9600 {
		t.Errorf("serial config = %+v", gotSerial)
	}
	if !closed {
		t.Error("serial port not closed on exit")
	}
}

func TestRunDecoder_TickClock(t *testing.T) {
	setupConfig(t, quietConfig+"clock: tick\n")
	stubHardware(t)

	if _, err := execute(t, 50*time.Millisecond); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestRunDecoder_InvalidConfig(t *testing.T) {
	setupConfig(t, quietConfig+"word_gap_ms: 1200\n")
	stubHardware(t)

	_, err := execute(t, time.Second)
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestRunDecoder_CollaboratorErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		stub    func()
		wantErr string
	}{
		{
			name:   "gpio",
			config: quietConfig,
			stub: func() {
				openPinSampler = func(input.PinConfig) (input.Sampler, error) {
					return nil, errors.New("pin busy")
				}
			},
			wantErr: "gpio: pin busy",
		},
		{
			name:    "audio",
			config:  quietConfig + "input: tone\n",
			stub:    func() {},
			wantErr: "audio",
		},
		{
			name:    "serial",
			config:  quietConfig + "output: /dev/ttyUSB0\n",
			stub:    func() {},
			wantErr: "serial",
		},
		{
			name:   "led",
			config: quietConfig + "led_pin: GPIO27\n",
			stub: func() {
				openLED = func(string) (indicator.Indicator, error) {
					return nil, errors.New("no such pin")
				}
			},
			wantErr: "led: no such pin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupConfig(t, tt.config)
			stubHardware(t)
			tt.stub()

			_, err := execute(t, time.Second)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestTableCmd(t *testing.T) {
	setupConfig(t, quietConfig)

	output, err := execute(t, time.Second, "table")
	if err != nil {
		t.Fatalf("Execute(table) error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 36 {
		t.Errorf("table printed %d lines, want 36", len(lines))
	}
	for _, want := range []string{"A  .-", "Y  -.--", "0  -----"} {
		if !strings.Contains(output, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

func TestDevicesCmd(t *testing.T) {
	setupConfig(t, quietConfig)

	prev := listDevices
	t.Cleanup(func() { listDevices = prev })

	listDevices = func() ([]audio.Device, error) {
		return []audio.Device{{Index: 0, Name: "USB Audio"}, {Index: 1, Name: "Line In"}}, nil
	}
	output, err := execute(t, time.Second, "devices")
	if err != nil {
		t.Fatalf("Execute(devices) error = %v", err)
	}
	if !strings.Contains(output, "  0  USB Audio") || !strings.Contains(output, "  1  Line In") {
		t.Errorf("devices output = %q", output)
	}

	listDevices = func() ([]audio.Device, error) { return nil, nil }
	output, err = execute(t, time.Second, "devices")
	if err != nil {
		t.Fatalf("Execute(devices) error = %v", err)
	}
	if !strings.Contains(output, "no capture devices") {
		t.Errorf("devices output = %q", output)
	}

	listDevices = func() ([]audio.Device, error) { return nil, errors.New("no backend") }
	if _, err = execute(t, time.Second, "devices"); err == nil || !strings.Contains(err.Error(), "audio") {
		t.Errorf("Execute(devices) error = %v, want audio error", err)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ColonelBlimp/keydecoder/internal/audio"
	"github.com/ColonelBlimp/keydecoder/internal/dsp"
	"github.com/ColonelBlimp/keydecoder/internal/emit"
	"github.com/ColonelBlimp/keydecoder/internal/input"
	"github.com/ColonelBlimp/keydecoder/internal/logger"
	"github.com/ColonelBlimp/keydecoder/internal/morse"
	"github.com/spf13/viper"
)

const (
	AppName       = "keydecoder"
	ConfigType    = "yaml"
	DefaultConfig = `# Key Decoder Configuration

# Key input
input: "gpio"           # gpio (straight key on a pin) or tone (keyed sidetone via audio)
button_pin: "GPIO17"    # periph.io pin name of the key
button_pull: "down"     # down, up or none
button_active_low: false # true when the key pulls the line to ground

# Indicator
led_pin: ""             # periph.io pin name of the key-down LED, empty logs instead

# Output
output: "stdout"        # stdout or a serial device such as /dev/ttyUSB0
baud_rate: 57600        # serial line speed (8N1)
serial_timeout_ms: 1000 # serial write timeout

# Clock
clock: "monotonic"      # monotonic or tick
tick_interval_ms: 1     # tick clock period
poll_interval_us: 500   # pause between poll cycles, 0 = busy loop

# Timing
dash_threshold_ms: 250  # presses at least this long are dashes
char_gap_min_ms: 1000   # character gap window start
char_gap_max_ms: 1500   # character gap window end (exclusive)
word_gap_ms: 2500       # silence that ends a word

# Audio (input: tone)
device_index: -1        # -1 for default device
sample_rate: 48000      # Audio sample rate in Hz
buffer_size: 512        # Audio buffer size
tone_frequency: 600     # Sidetone frequency in Hz
block_size: 256         # Goertzel block size (samples per detection window)
overlap_pct: 50         # Block overlap percentage (0-99)
threshold: 0.4          # Detection threshold (0.0-1.0)
hysteresis: 2           # Consecutive blocks required to confirm state change
agc_enabled: true       # Enable automatic gain control
agc_decay: 0.9995       # AGC peak decay rate per block
agc_attack: 0.1         # AGC attack rate (0.0-1.0)

# Logging
log_level: "info"       # debug, info, warn, error
log_format: "text"      # text or json
log_output: "stderr"    # stderr, stdout or a file path
debug: false            # Force debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Key input
	Input           string `mapstructure:"input"`
	ButtonPin       string `mapstructure:"button_pin"`
	ButtonPull      string `mapstructure:"button_pull"`
	ButtonActiveLow bool   `mapstructure:"button_active_low"`

	// Indicator
	LEDPin string `mapstructure:"led_pin"`

	// Output
	Output          string `mapstructure:"output"`
	BaudRate        int    `mapstructure:"baud_rate"`
	SerialTimeoutMs int    `mapstructure:"serial_timeout_ms"`

	// Clock
	Clock          string `mapstructure:"clock"`
	TickIntervalMs int    `mapstructure:"tick_interval_ms"`
	PollIntervalUs int    `mapstructure:"poll_interval_us"`

	// Timing
	DashThresholdMs int `mapstructure:"dash_threshold_ms"`
	CharGapMinMs    int `mapstructure:"char_gap_min_ms"`
	CharGapMaxMs    int `mapstructure:"char_gap_max_ms"`
	WordGapMs       int `mapstructure:"word_gap_ms"`

	// Audio
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	BufferSize    int     `mapstructure:"buffer_size"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	OverlapPct    int     `mapstructure:"overlap_pct"`
	Threshold     float64 `mapstructure:"threshold"`
	Hysteresis    int     `mapstructure:"hysteresis"`
	AGCEnabled    bool    `mapstructure:"agc_enabled"`
	AGCDecay      float64 `mapstructure:"agc_decay"`
	AGCAttack     float64 `mapstructure:"agc_attack"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogOutput string `mapstructure:"log_output"`
	Debug     bool   `mapstructure:"debug"`
}

// SetDefaults registers the default value of every key with viper.
func SetDefaults() {
	viper.SetDefault("input", "gpio")
	viper.SetDefault("button_pin", "GPIO17")
	viper.SetDefault("button_pull", "down")
	viper.SetDefault("button_active_low", false)
	viper.SetDefault("led_pin", "")
	viper.SetDefault("output", "stdout")
	viper.SetDefault("baud_rate", emit.DefaultBaudRate)
	viper.SetDefault("serial_timeout_ms", 1000)
	viper.SetDefault("clock", "monotonic")
	viper.SetDefault("tick_interval_ms", 1)
	viper.SetDefault("poll_interval_us", 500)
	viper.SetDefault("dash_threshold_ms", 250)
	viper.SetDefault("char_gap_min_ms", 1000)
	viper.SetDefault("char_gap_max_ms", 1500)
	viper.SetDefault("word_gap_ms", 2500)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("overlap_pct", 50)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 2)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("log_output", "stderr")
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/keydecoder/
func Init() error {
	SetDefaults()

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		// No config found - create default in ~/.config/keydecoder/
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Key input
	switch s.Input {
	case "gpio":
		if s.ButtonPin == "" {
			errs = append(errs, errors.New("button_pin is required when input is gpio"))
		}
	case "tone":
	default:
		errs = append(errs, fmt.Errorf("input must be gpio or tone, got %q", s.Input))
	}
	if _, err := input.ParsePull(s.ButtonPull); err != nil {
		errs = append(errs, fmt.Errorf("button_pull: %w", err))
	}

	// Output
	if s.Output == "" {
		errs = append(errs, errors.New("output must be stdout or a serial device path"))
	}
	if !s.UsesStdout() {
		if s.BaudRate < 300 || s.BaudRate > 4000000 {
			errs = append(errs, fmt.Errorf("baud_rate must be between 300 and 4000000, got %d", s.BaudRate))
		}
		if s.SerialTimeoutMs < 0 {
			errs = append(errs, fmt.Errorf("serial_timeout_ms must not be negative, got %d", s.SerialTimeoutMs))
		}
	}

	// Clock
	if s.Clock != "monotonic" && s.Clock != "tick" {
		errs = append(errs, fmt.Errorf("clock must be monotonic or tick, got %q", s.Clock))
	}
	if s.TickIntervalMs < 1 || s.TickIntervalMs > 100 {
		errs = append(errs, fmt.Errorf("tick_interval_ms must be between 1 and 100, got %d", s.TickIntervalMs))
	}
	if s.PollIntervalUs < 0 || s.PollIntervalUs > 100000 {
		errs = append(errs, fmt.Errorf("poll_interval_us must be between 0 and 100000, got %d", s.PollIntervalUs))
	}

	// Timing
	if err := s.Timing().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timing: %w", err))
	}

	// Audio
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}
	if s.AGCDecay < 0.99 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.99 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	// Logging
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}
	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", s.LogFormat))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// UsesStdout reports whether decoded text goes to standard output rather
// than a serial port.
func (s *Settings) UsesStdout() bool {
	return strings.EqualFold(s.Output, "stdout") || s.Output == "-"
}

// Timing returns the decode thresholds.
func (s *Settings) Timing() morse.Timing {
	return morse.Timing{
		DashThreshold: time.Duration(s.DashThresholdMs) * time.Millisecond,
		CharGapMin:    time.Duration(s.CharGapMinMs) * time.Millisecond,
		CharGapMax:    time.Duration(s.CharGapMaxMs) * time.Millisecond,
		WordGap:       time.Duration(s.WordGapMs) * time.Millisecond,
	}
}

// DecoderConfig returns the decode loop configuration.
func (s *Settings) DecoderConfig() morse.DecoderConfig {
	return morse.DecoderConfig{
		Timing:       s.Timing(),
		PollInterval: time.Duration(s.PollIntervalUs) * time.Microsecond,
	}
}

// TickInterval returns the tick clock period.
func (s *Settings) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalMs) * time.Millisecond
}

// PinConfig returns the GPIO key input settings.
func (s *Settings) PinConfig() input.PinConfig {
	return input.PinConfig{
		Name:      s.ButtonPin,
		Pull:      s.ButtonPull,
		ActiveLow: s.ButtonActiveLow,
	}
}

// ToneConfig returns the audio key input settings.
func (s *Settings) ToneConfig() input.ToneConfig {
	return input.ToneConfig{
		Audio: audio.Config{
			DeviceIndex: s.DeviceIndex,
			SampleRate:  uint32(s.SampleRate),
			BufferSize:  uint32(s.BufferSize),
		},
		Goertzel: dsp.GoertzelConfig{
			TargetFrequency: s.ToneFrequency,
			SampleRate:      s.SampleRate,
			BlockSize:       s.BlockSize,
		},
		Key: dsp.KeyConfig{
			Threshold:  s.Threshold,
			Hysteresis: s.Hysteresis,
			OverlapPct: s.OverlapPct,
			AGCEnabled: s.AGCEnabled,
			AGCDecay:   s.AGCDecay,
			AGCAttack:  s.AGCAttack,
		},
	}
}

// SerialConfig returns the serial output settings.
func (s *Settings) SerialConfig() emit.SerialConfig {
	return emit.SerialConfig{
		Port:     s.Output,
		BaudRate: s.BaudRate,
		Timeout:  time.Duration(s.SerialTimeoutMs) * time.Millisecond,
	}
}

// LoggerConfig returns the logging settings; debug forces the debug level.
func (s *Settings) LoggerConfig() logger.Config {
	level := s.LogLevel
	if s.Debug {
		level = "debug"
	}
	return logger.Config{
		Level:  level,
		Format: s.LogFormat,
		Output: s.LogOutput,
	}
}

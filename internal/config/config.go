// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
)

const (
	AppName       = "cwlistener"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Listener Configuration

# Timing
wpm: 15                   # Sending speed in words per minute (PARIS standard)

# Line source
source: "serial"          # "serial" (CTS line of a serial port) or "audio" (tone on an audio input)
reads_per_second: 100     # How often the line is sampled

# Serial line
serial_device: ""         # Port to read, e.g. /dev/ttyUSB0 (empty = first port matching serial_pattern)
serial_pattern: "usb"     # Case-insensitive regexp matched against port name, product and VID:PID
baud_rate: 9600           # Port speed; only CTS is read, so this rarely matters

# Audio line
device_index: -1          # Capture device index (-1 for default device)
sample_rate: 48000        # Capture sample rate in Hz
tone_frequency: 600       # Keyed tone frequency in Hz
block_size: 256           # Goertzel block size (samples per detection window)
threshold: 0.1            # Tone magnitude (0.0-1.0) above which the line counts as keyed
hysteresis: 2             # Consecutive blocks required to confirm a level change

# Sidetone
sidetone: true            # Play a tone while the line is keyed
volume: 0.1               # Sidetone volume (0.0-1.0)
sidetone_frequency: 441   # Sidetone pitch in Hz; must divide sidetone_sample_rate exactly
sidetone_sample_rate: 44100

# Session output
history_path: ""          # Save raw samples as a .npy file at session end
journal_path: ""          # Record sessions in this SQLite database

# Output
debug: false              # Enable debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Timing
	WPM float64 `mapstructure:"wpm"`

	// Line source
	Source         string `mapstructure:"source"`
	ReadsPerSecond int    `mapstructure:"reads_per_second"`

	// Serial line
	SerialDevice  string `mapstructure:"serial_device"`
	SerialPattern string `mapstructure:"serial_pattern"`
	BaudRate      int    `mapstructure:"baud_rate"`

	// Audio line
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	Threshold     float64 `mapstructure:"threshold"`
	Hysteresis    int     `mapstructure:"hysteresis"`

	// Sidetone
	Sidetone           bool    `mapstructure:"sidetone"`
	Volume             float64 `mapstructure:"volume"`
	SidetoneFrequency  float64 `mapstructure:"sidetone_frequency"`
	SidetoneSampleRate float64 `mapstructure:"sidetone_sample_rate"`

	// Session output
	HistoryPath string `mapstructure:"history_path"`
	JournalPath string `mapstructure:"journal_path"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Line sources
const (
	SourceSerial = "serial"
	SourceAudio  = "audio"
)

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwlistener/
func Init() error {
	// Set defaults
	viper.SetDefault("wpm", 15)
	viper.SetDefault("source", SourceSerial)
	viper.SetDefault("reads_per_second", 100)
	viper.SetDefault("serial_device", "")
	viper.SetDefault("serial_pattern", "usb")
	viper.SetDefault("baud_rate", 9600)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("threshold", 0.1)
	viper.SetDefault("hysteresis", 2)
	viper.SetDefault("sidetone", true)
	viper.SetDefault("volume", 0.1)
	viper.SetDefault("sidetone_frequency", 441)
	viper.SetDefault("sidetone_sample_rate", 44100)
	viper.SetDefault("history_path", "")
	viper.SetDefault("journal_path", "")
	viper.SetDefault("debug", false)

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

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
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

	// Timing
	if !(s.WPM > 0) || s.WPM > 100 {
		errs = append(errs, fmt.Errorf("wpm must be greater than 0 and at most 100, got %v", s.WPM))
	}

	// Line source
	if s.Source != SourceSerial && s.Source != SourceAudio {
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceSerial, SourceAudio, s.Source))
	}
	if s.ReadsPerSecond < 1 || s.ReadsPerSecond > 10000 {
		errs = append(errs, fmt.Errorf("reads_per_second must be between 1 and 10000, got %d", s.ReadsPerSecond))
	}

	// Serial line
	if _, err := regexp.Compile("(?i)" + s.SerialPattern); err != nil {
		errs = append(errs, fmt.Errorf("serial_pattern is not a valid regular expression: %w", err))
	}
	if s.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", s.BaudRate))
	}

	// Audio line
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}

	// Sidetone
	if s.Volume < 0.0 || s.Volume > 1.0 {
		errs = append(errs, fmt.Errorf("volume must be between 0.0 and 1.0, got %v", s.Volume))
	}
	if s.SidetoneSampleRate < 8000 || s.SidetoneSampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sidetone_sample_rate must be between 8000 and 192000 Hz, got %v", s.SidetoneSampleRate))
	}
	if s.SidetoneFrequency <= 0 || s.SidetoneFrequency >= s.SidetoneSampleRate/2 {
		errs = append(errs, fmt.Errorf("sidetone_frequency must be positive and below %v Hz, got %v", s.SidetoneSampleRate/2, s.SidetoneFrequency))
	} else if period := s.SidetoneSampleRate / s.SidetoneFrequency; period != math.Floor(period) {
		errs = append(errs, fmt.Errorf("sidetone_sample_rate (%v) and sidetone_frequency (%v) must give an integer period", s.SidetoneSampleRate, s.SidetoneFrequency))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

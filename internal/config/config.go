// Package config loads micbridge settings from an optional YAML file with
// environment overrides, falling back to built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/petems/micbridge/internal/capture"
	"github.com/petems/micbridge/internal/device"
)

type Config struct {
	Audio         AudioConfig `mapstructure:"audio"`
	QueueCapacity int         `mapstructure:"queue_capacity"`
	StreamSID     string      `mapstructure:"stream_sid"`
	LogLevel      string      `mapstructure:"log_level"`
	MetricsAddr   string      `mapstructure:"metrics_addr"`
}

type AudioConfig struct {
	Device        string `mapstructure:"device"`
	SampleRate    int    `mapstructure:"sample_rate"`
	BitsPerSample int    `mapstructure:"bits_per_sample"`
	Channels      int    `mapstructure:"channels"`
}

// Load reads the config file at path, or searches the working directory and
// the platform config directory when path is empty. A missing file is fine;
// defaults apply. Environment variables with the MICBRIDGE_ prefix override
// file values (MICBRIDGE_AUDIO_SAMPLE_RATE, MICBRIDGE_LOG_LEVEL, ...).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("audio.device", "")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.bits_per_sample", 16)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("queue_capacity", capture.DefaultQueueCapacity)
	v.SetDefault("stream_sid", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")

	v.SetEnvPrefix("MICBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("micbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Format returns the capture format described by the audio section.
func (c *Config) Format() device.Format {
	return device.Format{
		SampleRate:    c.Audio.SampleRate,
		BitsPerSample: c.Audio.BitsPerSample,
		Channels:      c.Audio.Channels,
	}
}

// configDir returns the platform-specific config directory.
func configDir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "micbridge")
}

// Package config layers tonegen settings: flags over TONEGEN_* environment
// variables over an optional config file over defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "TONEGEN"

type Config struct {
	Backend   string
	Device    string
	Frequency float64
	Duration  float64
	Waveform  string
	Volume    float64
	LogLevel  string
	LogPath   string
	Export    string

	// File is the config file that was read, or "" if none was found.
	File string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "")
	v.SetDefault("device", "")
	v.SetDefault("freq", 440.0)
	v.SetDefault("duration", 1.0)
	v.SetDefault("waveform", "sine")
	v.SetDefault("volume", 0.8)
	v.SetDefault("loglevel", "info")
	v.SetDefault("logpath", "")
	v.SetDefault("export", "")
}

// Load reads configuration. An explicit path must exist; with path == "" a
// tonegen.{yaml,toml,json} in the user config dir or the working directory is
// used when present. Flags explicitly set on fs override everything else.
func Load(path string, fs *flag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tonegen")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "tonegen"))
		}
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if fs != nil {
		fs.Visit(func(f *flag.Flag) {
			if slices.Contains(keys, f.Name) {
				v.Set(f.Name, f.Value.String())
			}
		})
	}

	c := &Config{
		Backend:   v.GetString("backend"),
		Device:    v.GetString("device"),
		Frequency: v.GetFloat64("freq"),
		Duration:  v.GetFloat64("duration"),
		Waveform:  v.GetString("waveform"),
		Volume:    v.GetFloat64("volume"),
		LogLevel:  v.GetString("loglevel"),
		LogPath:   v.GetString("logpath"),
		Export:    v.GetString("export"),
		File:      v.ConfigFileUsed(),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var keys = []string{"backend", "device", "freq", "duration", "waveform", "volume", "loglevel", "logpath", "export"}

func (c *Config) validate() error {
	if !(c.Frequency > 0) {
		return fmt.Errorf("freq must be positive, got %v", c.Frequency)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	if !(c.Volume > 0) || c.Volume > 1 {
		return fmt.Errorf("volume must be in (0, 1], got %v", c.Volume)
	}
	return nil
}

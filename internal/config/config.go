// Package config loads gramophone's static configuration: a file named
// "gramophone" discovered on the search path, merged with environment
// variables prefixed GRAMOPHONE_.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileEntry is one entry of the files map: an OSC-visible name bound to a
// decodable URI.
type FileEntry struct {
	URI string `mapstructure:"uri"`
}

// Config is gramophone's immutable-after-load configuration.
type Config struct {
	// Listen is the UDP bind address for the OSC front-end, e.g. "0.0.0.0:9000".
	Listen string `mapstructure:"listen"`

	// Channels is the ordered list of audio-backend output port names. The
	// index into this slice is the session-local channel index.
	Channels []string `mapstructure:"channels"`

	// SampleRate is the nominal process sample rate in Hz. Must match the
	// audio backend's rate at startup.
	SampleRate int `mapstructure:"sample_rate"`

	// ShutdownSecs bounds an optional graceful drain on shutdown. Zero
	// disables the drain and shuts down immediately.
	ShutdownSecs int `mapstructure:"shutdown_secs"`

	// Files maps OSC-visible file names to their playback source.
	Files map[string]FileEntry `mapstructure:"files"`
}

// Load reads "gramophone.{yaml,json,toml,...}" from the given search
// paths, merges environment variables under the GRAMOPHONE_ prefix, and
// unmarshals the result. It does not perform semantic validation; call
// Validate on the result.
func Load(searchPaths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("gramophone")

	if len(searchPaths) == 0 {
		searchPaths = []string{".", "/etc/gramophone"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("GRAMOPHONE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("shutdown_secs", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Validate checks the structural invariants required before the process is
// allowed to come up: nonzero channels, a positive sample rate, and a
// nonempty listen address. Per-file probing (open + sample-rate +
// channel-count checks) happens later, once the decoder adapter and audio
// engine both exist, and is performed by the caller (cmd/serve.go).
func (c Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("config invalid: no channels configured")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("config invalid: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Listen == "" {
		return fmt.Errorf("config invalid: listen address is required")
	}
	return nil
}

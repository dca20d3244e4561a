// Package config loads the ingestion pipeline configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avelier/scancine/internal/classify"
)

// Config holds every tunable of the ingestion pipeline. Durations are
// plain millisecond integers in the file; zero values are replaced by
// defaults in Load.
type Config struct {
	// EndpointURL is the analysis endpoint. Empty selects the built-in
	// mock service.
	EndpointURL string `yaml:"endpoint_url"`

	// StorePath is the durable record database. Empty disables the
	// durable layer.
	StorePath string `yaml:"store_path"`

	// PlaceholderPath substitutes for inline image payloads in the
	// durable layer.
	PlaceholderPath string `yaml:"placeholder_path"`

	// DecodeTimeoutMS bounds each structured-imaging decode.
	DecodeTimeoutMS int `yaml:"decode_timeout_ms"`

	// FrameDelayMS is the display time per frame in the encoded sequence.
	FrameDelayMS int `yaml:"frame_delay_ms"`

	// SettleDelayMS holds the final frame before the recorder stops.
	SettleDelayMS int `yaml:"settle_delay_ms"`

	// CaptureFPS is the recording frame rate.
	CaptureFPS int `yaml:"capture_fps"`

	// BitrateKbps is the target video bitrate.
	BitrateKbps int `yaml:"bitrate_kbps"`

	// MimePreferences is the container negotiation order.
	MimePreferences []string `yaml:"mime_preferences"`

	// AllowMixedBatches processes batches whose files disagree on type
	// instead of rejecting them.
	AllowMixedBatches bool `yaml:"allow_mixed_batches"`

	// VolumetricModalities lists modality codes eligible for sequence
	// encoding.
	VolumetricModalities []string `yaml:"volumetric_modalities"`

	// MockDelayMS is the artificial latency of the built-in mock service.
	MockDelayMS int `yaml:"mock_delay_ms"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DecodeTimeoutMS <= 0 {
		c.DecodeTimeoutMS = 5000
	}
	if c.FrameDelayMS <= 0 {
		c.FrameDelayMS = 200
	}
	if c.SettleDelayMS <= 0 {
		c.SettleDelayMS = 800
	}
	if c.CaptureFPS <= 0 {
		c.CaptureFPS = 30
	}
	if c.BitrateKbps <= 0 {
		c.BitrateKbps = 2500
	}
	if len(c.MimePreferences) == 0 {
		c.MimePreferences = []string{"video/mp4", "video/webm", "video/avi"}
	}
	if len(c.VolumetricModalities) == 0 {
		c.VolumetricModalities = classify.DefaultVolumetricModalities()
	}
	if c.MockDelayMS < 0 {
		c.MockDelayMS = 0
	}
}

func (c *Config) validate() error {
	if c.CaptureFPS > 120 {
		return fmt.Errorf("capture_fps %d exceeds the supported maximum of 120", c.CaptureFPS)
	}
	for _, m := range c.MimePreferences {
		switch m {
		case "video/mp4", "video/webm", "video/avi":
		default:
			return fmt.Errorf("unsupported container %q in mime_preferences", m)
		}
	}
	return nil
}

// DecodeTimeout returns the per-file decode bound as a duration.
func (c *Config) DecodeTimeout() time.Duration {
	return time.Duration(c.DecodeTimeoutMS) * time.Millisecond
}

// FrameDelay returns the per-frame display time as a duration.
func (c *Config) FrameDelay() time.Duration {
	return time.Duration(c.FrameDelayMS) * time.Millisecond
}

// SettleDelay returns the final-frame hold as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// MockDelay returns the mock service latency as a duration.
func (c *Config) MockDelay() time.Duration {
	return time.Duration(c.MockDelayMS) * time.Millisecond
}

// Package config provides configuration loading for gastric-review.
// It loads settings from a YAML file layered over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Server parameters
	Server struct {
		// ListenAddr is the address the HTTP API binds to
		ListenAddr string `yaml:"listenAddr"`

		// DataDir is the root of the read-only ultrasound dataset
		// (images/, annotations/, clinical/ per patient)
		DataDir string `yaml:"dataDir"`

		// WatchDataDir enables live reindexing when the dataset changes
		WatchDataDir bool `yaml:"watchDataDir"`
	} `yaml:"server"`

	// Ring parameters for the peritumoral ring overlay
	Ring struct {
		// Radius is the default ring width in pixels, calibrated to
		// approximate 5mm at the dataset's usual scale
		Radius int `yaml:"radius"`

		// Color is the ring paint color as a hex string ("#RRGGBB")
		Color string `yaml:"color"`

		// Alpha is the base ring opacity (0-255)
		Alpha uint8 `yaml:"alpha"`

		// FadeStrength scales the outer-edge alpha falloff; 0 disables
		// fading, 1 fades the outermost layer to near transparent
		FadeStrength float64 `yaml:"fadeStrength"`
	} `yaml:"ring"`

	// Mask parameters control the raster foreground heuristic.
	// The calibration of these thresholds is a best-effort guess with no
	// documented ground truth, so they are settings rather than constants.
	Mask struct {
		// AlphaThreshold marks a pixel foreground when its alpha exceeds it
		AlphaThreshold uint8 `yaml:"alphaThreshold"`

		// GreenDominance marks a pixel foreground when its green channel
		// exceeds both red and blue by at least this margin
		GreenDominance uint8 `yaml:"greenDominance"`

		// SmoothSigma is the Gaussian pre-smoothing sigma applied before
		// thresholding noisy raster masks; 0 disables smoothing
		SmoothSigma float64 `yaml:"smoothSigma"`
	} `yaml:"mask"`

	// Measure parameters
	Measure struct {
		// PixelSpacingMM is the physical size of one pixel in millimeters
		PixelSpacingMM float64 `yaml:"pixelSpacingMM"`
	} `yaml:"measure"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.ListenAddr = "127.0.0.1:8001"
	cfg.Server.DataDir = "Gastric_Cancer_Dataset"
	cfg.Server.WatchDataDir = true

	cfg.Ring.Radius = 20
	cfg.Ring.Color = "#FFD400"
	cfg.Ring.Alpha = 160
	cfg.Ring.FadeStrength = 0.6

	cfg.Mask.AlphaThreshold = 20
	cfg.Mask.GreenDominance = 30
	cfg.Mask.SmoothSigma = 0

	cfg.Measure.PixelSpacingMM = 0.1

	return cfg
}

// Load reads configuration from the given YAML file, layered over defaults.
// A missing path ("" or nonexistent file) returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.Ring.Radius < 0 {
		return fmt.Errorf("ring.radius must be >= 0, got %d", c.Ring.Radius)
	}
	if c.Ring.FadeStrength < 0 || c.Ring.FadeStrength > 1 {
		return fmt.Errorf("ring.fadeStrength must be in [0,1], got %g", c.Ring.FadeStrength)
	}
	if c.Measure.PixelSpacingMM <= 0 {
		return fmt.Errorf("measure.pixelSpacingMM must be > 0, got %g", c.Measure.PixelSpacingMM)
	}
	return nil
}

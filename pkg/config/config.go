// Package config provides configuration loading and management for maurerdist.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"maurerdist/pkg/distance"
)

// Config represents the application configuration loaded from YAML or TOML
type Config struct {
	// Transform parameters
	Transform struct {
		// BackgroundLabel is the outside label when ForegroundLabels is empty
		BackgroundLabel uint32 `yaml:"backgroundLabel" toml:"backgroundLabel"`

		// ForegroundLabels lists the labels treated as inside (empty: all but background)
		ForegroundLabels []uint32 `yaml:"foregroundLabels" toml:"foregroundLabels"`

		// FullyConnected selects 26-neighbour boundary detection
		FullyConnected bool `yaml:"fullyConnected" toml:"fullyConnected"`

		// BorderIsBackground treats voxels outside the grid as background
		BorderIsBackground bool `yaml:"borderIsBackground" toml:"borderIsBackground"`

		// LabelEdges seeds voxels between two different foreground labels
		LabelEdges bool `yaml:"labelEdges" toml:"labelEdges"`

		// InsideIsPositive flips the sign convention
		InsideIsPositive bool `yaml:"insideIsPositive" toml:"insideIsPositive"`

		// SquaredDistance writes signed squared distances
		SquaredDistance bool `yaml:"squaredDistance" toml:"squaredDistance"`

		// UseImageSpacing measures in physical units instead of voxels
		UseImageSpacing bool `yaml:"useImageSpacing" toml:"useImageSpacing"`

		// Degenerate is "fill" or "error"
		Degenerate string `yaml:"degenerate" toml:"degenerate"`
	} `yaml:"transform" toml:"transform"`

	// Processing parameters
	Processing struct {
		// NumWorkers bounds the goroutines used per transform pass
		NumWorkers int `yaml:"numWorkers" toml:"numWorkers"`
	} `yaml:"processing" toml:"processing"`

	// Output parameters
	Output struct {
		// Compress stores voxel data zlib-compressed
		Compress bool `yaml:"compress" toml:"compress"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose" toml:"verbose"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Transform.BackgroundLabel = 0
	cfg.Transform.BorderIsBackground = true
	cfg.Transform.UseImageSpacing = true
	cfg.Transform.Degenerate = distance.DegenerateFill.String()

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Compress = false
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks values that the YAML/TOML decoders cannot
func (c *Config) Validate() error {
	if _, err := distance.ParseDegeneratePolicy(c.Transform.Degenerate); err != nil {
		return err
	}
	if c.Processing.NumWorkers < 0 {
		return fmt.Errorf("numWorkers must not be negative, got %d", c.Processing.NumWorkers)
	}
	return nil
}

// Options converts the transform section into engine options
func (c *Config) Options() (distance.Options, error) {
	policy, err := distance.ParseDegeneratePolicy(c.Transform.Degenerate)
	if err != nil {
		return distance.Options{}, err
	}

	return distance.Options{
		BackgroundLabel:    c.Transform.BackgroundLabel,
		ForegroundLabels:   append([]uint32(nil), c.Transform.ForegroundLabels...),
		FullyConnected:     c.Transform.FullyConnected,
		BorderIsBackground: c.Transform.BorderIsBackground,
		LabelEdges:         c.Transform.LabelEdges,
		InsideIsPositive:   c.Transform.InsideIsPositive,
		SquaredDistance:    c.Transform.SquaredDistance,
		UseImageSpacing:    c.Transform.UseImageSpacing,
		Degenerate:         policy,
		Workers:            c.Processing.NumWorkers,
	}, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file (chosen by extension)
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = out
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

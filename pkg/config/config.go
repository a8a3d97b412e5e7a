// Package config provides configuration loading and management for pvimage.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Read parameters for bulk image loading
	Read struct {
		// Patterns lists the filename globs treated as image files
		Patterns []string `yaml:"patterns"`

		// Modality is the imaging modality of the source images (EL or PL)
		Modality string `yaml:"modality"`

		// Cols is the number of cell columns per module
		Cols int `yaml:"cols"`

		// Rows is the number of cell rows per module
		Rows int `yaml:"rows"`

		// SameCamera declares that all images share one camera setup
		SameCamera bool `yaml:"sameCamera"`

		// AllowDifferentDTypes permits mixed sample types in one sequence
		AllowDifferentDTypes bool `yaml:"allowDifferentDTypes"`

		// N limits how many images are read; 0 reads everything
		N int `yaml:"n"`
	} `yaml:"read"`

	// Write parameters for bulk image saving
	Write struct {
		// Mkdir creates the output directory when it does not exist
		Mkdir bool `yaml:"mkdir"`
	} `yaml:"write"`

	// Render parameters for overview images
	Render struct {
		// ClipLow is the lower display percentile in [0, 100]
		ClipLow float64 `yaml:"clipLow"`

		// ClipHigh is the upper display percentile in [0, 100]
		ClipHigh float64 `yaml:"clipHigh"`

		// MaxWidth caps the rendered width in pixels; 0 disables scaling
		MaxWidth int `yaml:"maxWidth"`

		// Markers draws grid-crossing markers on module images
		Markers bool `yaml:"markers"`
	} `yaml:"render"`

	// Dataset parameters for demo dataset fetching
	Dataset struct {
		// CacheDir overrides the download cache location; empty picks the
		// user cache directory
		CacheDir string `yaml:"cacheDir"`
	} `yaml:"dataset"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default read parameters
	cfg.Read.Patterns = []string{"*.png", "*.tif", "*.tiff", "*.bmp"}
	cfg.Read.Modality = "EL"
	cfg.Read.Cols = 10
	cfg.Read.Rows = 6
	cfg.Read.SameCamera = false
	cfg.Read.AllowDifferentDTypes = false
	cfg.Read.N = 0

	// Set default write parameters
	cfg.Write.Mkdir = true

	// Set default render parameters
	cfg.Render.ClipLow = 0.001
	cfg.Render.ClipHigh = 99.999
	cfg.Render.MaxWidth = 1600
	cfg.Render.Markers = false

	// Set default dataset parameters
	cfg.Dataset.CacheDir = ""

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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

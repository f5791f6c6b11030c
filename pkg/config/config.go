// Package config provides configuration loading and management for ndresample.
// It loads YAML or TOML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"ndresample/pkg/logging"
)

// Config represents the application configuration
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is the number of local workers when no remote ones are given
		Workers int `yaml:"workers" toml:"workers"`

		// SlicesPerChunk bounds the input slices per volume in one unit of work
		SlicesPerChunk int `yaml:"slicesPerChunk" toml:"slices_per_chunk"`
	} `yaml:"processing" toml:"processing"`

	// Transport parameters
	Transport struct {
		// WorkerAddrs lists remote workers; empty runs everything in-process
		WorkerAddrs []string `yaml:"workerAddrs" toml:"worker_addrs"`

		// Listen is the address a worker process serves on
		Listen string `yaml:"listen" toml:"listen"`

		// Compress snappy-compresses message bodies
		Compress bool `yaml:"compress" toml:"compress"`

		// RequestTimeout bounds a remote unit; zero waits forever
		RequestTimeout Duration `yaml:"requestTimeout" toml:"request_timeout"`
	} `yaml:"transport" toml:"transport"`

	// Logging parameters
	Logging struct {
		logging.LogConfig `yaml:",inline"`

		// Verbose enables debug messages
		Verbose bool `yaml:"verbose" toml:"verbose"`
	} `yaml:"logging" toml:"logging"`

	// Output parameters
	Output struct {
		// ExtractSlices exports images of the result along every axis
		ExtractSlices bool `yaml:"extractSlices" toml:"extract_slices"`

		// SlicesDir is where exported images go
		SlicesDir string `yaml:"slicesDir" toml:"slices_dir"`

		// ImageFormat is the extension of exported images
		ImageFormat string `yaml:"imageFormat" toml:"image_format"`
	} `yaml:"output" toml:"output"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.SlicesPerChunk = 8

	cfg.Transport.Listen = ":8870"
	cfg.Transport.Compress = false

	cfg.Logging.MaxSize = 100
	cfg.Logging.MaxAge = 30

	cfg.Output.ExtractSlices = false
	cfg.Output.SlicesDir = "resampled_slices"
	cfg.Output.ImageFormat = "png"

	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if cfg.Processing.Workers < 1 {
		return nil, fmt.Errorf("invalid worker count %d", cfg.Processing.Workers)
	}
	if cfg.Processing.SlicesPerChunk < 1 {
		return nil, fmt.Errorf("invalid slices per chunk %d", cfg.Processing.SlicesPerChunk)
	}
	return cfg, nil
}

// SaveConfig saves the configuration, as TOML when the path ends in
// .toml and as YAML otherwise
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var b strings.Builder
		if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = []byte(b.String())
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
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

/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/nexas/pkg/codec"
)

// Config represents the nexas configuration
type Config struct {
	Logging    Logging    `yaml:"logging"`
	Batch      Batch      `yaml:"batch"`
	Codec      Codec      `yaml:"codec"`
	Extensions Extensions `yaml:"extensions"`
	Journal    Journal    `yaml:"journal"`
	Metrics    Metrics    `yaml:"metrics"`
	Server     Server     `yaml:"server"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Batch controls how directories are processed
type Batch struct {
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
	Strict  bool          `yaml:"strict"`
}

// Codec contains string and header handling options
type Codec struct {
	TextEncoding  string `yaml:"text_encoding"`
	LenientHeader bool   `yaml:"lenient_header"`
}

// Extensions maps each file role to its extension, dot included
type Extensions struct {
	Script   string `yaml:"script"`
	Document string `yaml:"document"`
	Table    string `yaml:"table"`
	CSV      string `yaml:"csv"`
	Output   string `yaml:"output"`
}

// Journal configures the run journal. An empty Dir disables it.
type Journal struct {
	Dir string `yaml:"dir"`
}

// Metrics configures metric export for CLI runs
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Server contains HTTP surface configuration
type Server struct {
	Addr         string `yaml:"addr"`
	APIKey       string `yaml:"api_key"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: Logging{
			Level: "info",
		},
		Batch: Batch{
			Workers: 1,
		},
		Codec: Codec{
			TextEncoding: codec.TextEncodingUTF8,
		},
		Extensions: Extensions{
			Script:   ".bin",
			Document: ".json",
			Table:    ".dat",
			CSV:      ".csv",
			Output:   ".new",
		},
		Server: Server{
			Addr:         "127.0.0.1:8080",
			MaxBodyBytes: 64 << 20,
		},
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Batch.Timeout < 0 {
		return fmt.Errorf("batch.timeout must not be negative, got %s", c.Batch.Timeout)
	}
	if _, err := codec.LookupTextEncoding(c.Codec.TextEncoding); err != nil {
		return fmt.Errorf("invalid codec.text_encoding: %w", err)
	}
	for name, ext := range map[string]string{
		"script":   c.Extensions.Script,
		"document": c.Extensions.Document,
		"table":    c.Extensions.Table,
		"csv":      c.Extensions.CSV,
		"output":   c.Extensions.Output,
	} {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("extensions.%s must start with a dot, got %q", name, ext)
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Keys absent from the
// file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// Resolve loads configPath when it is set. Otherwise the default location is
// used if a file exists there, and the built-in defaults if not.
func Resolve(configPath string) (*Config, error) {
	if configPath != "" {
		return LoadConfig(configPath)
	}
	if def := GetDefaultConfigPath(); ConfigExists(def) {
		return LoadConfig(def)
	}
	return DefaultConfig(), nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry the server API key.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated server API
// key and a journal under journalDir (when non-empty).
func BootstrapConfig(configPath string, journalDir string) (*Config, error) {
	config := DefaultConfig()
	config.Journal.Dir = journalDir

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate server API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./nexas.yaml"
	}
	return filepath.Join(homeDir, ".config", "nexas", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

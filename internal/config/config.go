// Package config provides configuration loading and structs for the Bunsho engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Documents DocumentsConfig `yaml:"documents"`
	Services  ServicesConfig  `yaml:"services"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DocumentsConfig holds the documents root and index locations.
type DocumentsConfig struct {
	// Root is the directory whose documents are tracked.
	Root string `yaml:"root"`
	// IndexPath overrides the default index file location
	// (<root>/.bunsho/index.json). Normally left empty so the index stays
	// colocated with the documents it describes.
	IndexPath string `yaml:"index_path"`
	// LegacyIndexPath is consulted on load when the portable index is
	// absent; a legacy index found there is migrated on the next persist.
	LegacyIndexPath string `yaml:"legacy_index_path"`
}

// ServicesConfig holds endpoints and credentials for external collaborators.
type ServicesConfig struct {
	SearchURL      string `yaml:"search_url"`
	GraphURL       string `yaml:"graph_url"`
	OCRURL         string `yaml:"ocr_url"`
	OllamaURL      string `yaml:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// WatchConfig holds filesystem watch settings.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, overlays environment
// variables, expands paths, and applies defaults. A .env file next to the
// config is loaded first when present (godotenv); missing .env is not an
// error. Returns an error if the config file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	applyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Documents.Root = expandPath(cfg.Documents.Root, configDir)
	if cfg.Documents.IndexPath != "" {
		cfg.Documents.IndexPath = expandPath(cfg.Documents.IndexPath, configDir)
	}
	if cfg.Documents.LegacyIndexPath != "" {
		cfg.Documents.LegacyIndexPath = expandPath(cfg.Documents.LegacyIndexPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnv overlays BUNSHO_* environment variables onto cfg. Environment
// wins over the YAML file so deployments can inject credentials and
// endpoints without editing config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BUNSHO_API_KEY"); v != "" {
		cfg.Services.APIKey = v
	}
	if v := os.Getenv("BUNSHO_SEARCH_URL"); v != "" {
		cfg.Services.SearchURL = v
	}
	if v := os.Getenv("BUNSHO_GRAPH_URL"); v != "" {
		cfg.Services.GraphURL = v
	}
	if v := os.Getenv("BUNSHO_OCR_URL"); v != "" {
		cfg.Services.OCRURL = v
	}
	if v := os.Getenv("BUNSHO_OLLAMA_URL"); v != "" {
		cfg.Services.OllamaURL = v
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return filepath.Join(configDir, path)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/lexrun/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lexrun configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection settings
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Conversation storage settings
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Document folder sync settings
	Documents DocumentsConfig `toml:"documents" json:"documents"`

	// Report export settings
	Export ExportConfig `toml:"export" json:"export"`

	// Terminal UI settings
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains connection settings for the retrieval backend.
type BackendConfig struct {
	// URL is the base URL of the backend API server
	URL string `toml:"url" json:"url"`
	// TimeoutSecs is the request timeout for non-streaming calls in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerSecond caps the outgoing request rate (negative disables)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// StorageConfig contains conversation persistence settings.
type StorageConfig struct {
	// Dir is the conversation storage directory (empty = ~/.lexrun/conversations)
	Dir string `toml:"dir" json:"dir"`
	// MaxConversations caps stored conversations; oldest are evicted first
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`
}

// DocumentsConfig contains document folder sync settings.
type DocumentsConfig struct {
	// Dir is the local folder of legal documents to sync (empty = disabled)
	Dir string `toml:"dir" json:"dir"`
	// Watch enables continuous folder watching during chat sessions
	Watch bool `toml:"watch" json:"watch"`
	// DebounceMs is how long to wait after a file change before uploading
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
	// Extensions lists the document types to sync (empty = built-in defaults)
	Extensions []string `toml:"extensions" json:"extensions"`
}

// ExportConfig contains report export settings.
type ExportConfig struct {
	// OutputDir is where exported reports are written
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// OpenAfterExport opens exported files in the default application
	OpenAfterExport bool `toml:"open_after_export" json:"open_after_export"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// RenderMarkdown formats assistant answers with terminal markdown rendering
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// ShowSources prints cited sources after each answer
	ShowSources bool `toml:"show_sources" json:"show_sources"`
	// ShowConfidence prints the confidence level after each answer
	ShowConfidence bool `toml:"show_confidence" json:"show_confidence"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			URL:               "http://localhost:8000",
			TimeoutSecs:       30,
			RequestsPerSecond: 10,
		},

		Storage: StorageConfig{
			Dir:              "", // resolved to ~/.lexrun/conversations at use
			MaxConversations: 100,
		},

		Documents: DocumentsConfig{
			Dir:        "",
			Watch:      false,
			DebounceMs: 2000,
			Extensions: nil, // docs.DefaultExtensions
		},

		Export: ExportConfig{
			OutputDir:       ".",
			OpenAfterExport: false,
		},

		UI: UIConfig{
			RenderMarkdown: true,
			ShowSources:    true,
			ShowConfidence: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the lexrun configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lexrun"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	cfg, err = finalize(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finalize applies environment overrides and validation to a loaded config.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finalize(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaults.Backend.URL
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if cfg.Backend.RequestsPerSecond == 0 {
		cfg.Backend.RequestsPerSecond = defaults.Backend.RequestsPerSecond
	}

	if cfg.Storage.MaxConversations == 0 {
		cfg.Storage.MaxConversations = defaults.Storage.MaxConversations
	}

	if cfg.Documents.DebounceMs == 0 {
		cfg.Documents.DebounceMs = defaults.Documents.DebounceMs
	}

	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = defaults.Export.OutputDir
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# lexrun configuration file")
	fmt.Fprintln(file, "# Generated by lexrun - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// SECURITY: Restrictive permissions, the file may hold internal URLs
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "backend.url", Message: fmt.Sprintf("not a valid URL: %q", c.Backend.URL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "backend.url", Message: fmt.Sprintf("unsupported scheme: %q", u.Scheme)}
	}

	if c.Backend.TimeoutSecs <= 0 {
		return ValidationError{Field: "backend.timeout_secs", Message: "must be positive"}
	}

	if c.Storage.MaxConversations < 1 {
		return ValidationError{Field: "storage.max_conversations", Message: "must be at least 1"}
	}

	if c.Documents.DebounceMs < 0 {
		return ValidationError{Field: "documents.debounce_ms", Message: "must not be negative"}
	}
	for _, ext := range c.Documents.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return ValidationError{Field: "documents.extensions", Message: fmt.Sprintf("extension %q must start with a dot", ext)}
		}
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LEXRUN_* environment variables over the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if backendURL := os.Getenv("LEXRUN_BACKEND_URL"); backendURL != "" {
		c.Backend.URL = backendURL
	}

	if timeout := os.Getenv("LEXRUN_TIMEOUT_SECS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.Backend.TimeoutSecs = secs
		}
	}

	if dir := os.Getenv("LEXRUN_STORAGE_DIR"); dir != "" {
		c.Storage.Dir = dir
	}

	if dir := os.Getenv("LEXRUN_DOCUMENTS_DIR"); dir != "" {
		c.Documents.Dir = dir
	}

	if dir := os.Getenv("LEXRUN_EXPORT_DIR"); dir != "" {
		c.Export.OutputDir = dir
	}
}

// =============================================================================
// DERIVED PATHS
// =============================================================================

// StorageDir resolves the conversation storage directory, falling back
// to ~/.lexrun/conversations when unset.
func (c *Config) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations"), nil
}

// IndexPath resolves the search index database path.
func (c *Config) IndexPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

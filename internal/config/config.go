// Package config handles configuration and session management for agentchat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/diogo/agentchat/internal/models"
)

// Config represents the user configuration
type Config struct {
	// ServerURL is the base address of the agent backend.
	ServerURL string `json:"server_url"`
	// RequestTimeout is the per-operation budget in seconds. Streaming
	// operations get the same budget for the whole stream.
	RequestTimeout int `json:"request_timeout"`
	// StreamDelayMS is the artificial delay between successive streaming
	// transcript updates, to keep perceived delivery human-readable.
	StreamDelayMS int `json:"stream_delay_ms"`
	// TTSLanguage and TTSSpeaker are defaults for the speak command. Empty
	// values let the server auto-detect.
	TTSLanguage string `json:"tts_language,omitempty"`
	TTSSpeaker  string `json:"tts_speaker,omitempty"`
	// MarkdownStyle selects the glamour theme ("dark", "light", "auto").
	MarkdownStyle string `json:"markdown_style"`
	// CopyToClipboard copies the final answer of one-shot queries.
	CopyToClipboard bool `json:"copy_to_clipboard"`
	// Verbose enables detailed diagnostics during operations.
	Verbose bool `json:"verbose"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:      models.DefaultBaseURL,
		RequestTimeout: 120,
		StreamDelayMS:  40,
		MarkdownStyle:  "dark",
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".agentchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the session cookie
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetHistoryPath returns the path to the persisted conversation record
func GetHistoryPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "conversations.json"), nil
}

// LoadConfig loads the configuration from disk, falling back to defaults
// when no config file exists.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = models.DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.StreamDelayMS < 0 {
		cfg.StreamDelayMS = 0
	}

	return cfg, nil
}

// SaveConfig writes the configuration to disk
func SaveConfig(cfg Config) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

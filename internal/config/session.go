package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apierrors "github.com/diogo/agentchat/internal/errors"
)

// Session holds the backend session cookie obtained after the Google OAuth
// login. The cookie is only needed for operations that touch the user's
// Google services; everything else works anonymously.
type Session struct {
	Cookie     string    `json:"cookie"`
	Browser    string    `json:"browser,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// GetSessionPath returns the path to the session file
func GetSessionPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "session.json"), nil
}

// LoadSession loads the persisted session, returning ErrNoSession when none
// has been imported yet.
func LoadSession() (*Session, error) {
	path, err := GetSessionPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierrors.ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if s.Cookie == "" {
		return nil, apierrors.ErrNoSession
	}

	return &s, nil
}

// SaveSession persists the session cookie with restrictive permissions.
func SaveSession(s *Session) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}

	path, err := GetSessionPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// ClearSession removes the persisted session, if any.
func ClearSession() error {
	path, err := GetSessionPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

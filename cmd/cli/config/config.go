package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIURL   = "http://localhost:8080"
	sessionFileName = ".cinebrowse_session"
)

// ErrNoSession is returned when no session has been saved by login or signup.
var ErrNoSession = errors.New("not logged in; run `cinebrowse login` first")

// APIURL returns the base URL for the Cinebrowse API.
// It can be overridden with the CINEBROWSE_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("CINEBROWSE_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}

// SessionPath is where the session cookie value is kept between commands.
func SessionPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, sessionFileName)
}

// SaveSession stores the session cookie value, readable only by the owner.
func SaveSession(value string) error {
	return os.WriteFile(SessionPath(), []byte(value), 0600)
}

// LoadSession returns the saved session cookie value.
func LoadSession() (string, error) {
	data, err := os.ReadFile(SessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoSession
		}
		return "", err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", ErrNoSession
	}
	return value, nil
}

// ClearSession removes the saved session. It reports whether one existed.
func ClearSession() (bool, error) {
	err := os.Remove(SessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

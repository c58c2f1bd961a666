// Package auth provides Linear API key resolution.
// It implements a simple interface with multiple providers following the
// "deep modules" principle - simple interface, complex implementation hidden.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar is the environment variable holding a Linear personal API key.
const EnvVar = "LINEAR_API_KEY"

// ErrNoKey is returned when no provider could produce an API key.
var ErrNoKey = errors.New("no Linear API key available")

// TokenProvider defines the interface for obtaining a Linear API key.
// Implementations may use different sources (config, environment, key files).
type TokenProvider interface {
	GetToken() (string, error)
}

// StaticProvider returns a key that was already loaded, typically from config.yaml.
type StaticProvider struct {
	Key string
}

// GetToken returns the configured key or an error if it is empty.
func (s *StaticProvider) GetToken() (string, error) {
	key := strings.TrimSpace(s.Key)
	if key == "" {
		return "", errors.New("api key not set in config")
	}
	return key, nil
}

// EnvProvider obtains keys from the LINEAR_API_KEY environment variable.
type EnvProvider struct{}

// GetToken reads the LINEAR_API_KEY environment variable.
// Returns an error if the variable is not set or is empty.
func (e *EnvProvider) GetToken() (string, error) {
	key := strings.TrimSpace(os.Getenv(EnvVar))
	if key == "" {
		return "", errors.New(EnvVar + " environment variable not set or empty")
	}
	return key, nil
}

// FileProvider reads the key from a file, e.g. ~/.config/linearpulse/api_key.
// An empty Path uses DefaultKeyFile.
type FileProvider struct {
	Path string
}

// DefaultKeyFile returns the default key file location.
func DefaultKeyFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "linearpulse", "api_key"), nil
}

// GetToken reads and trims the key file.
func (f *FileProvider) GetToken() (string, error) {
	path := f.Path
	if path == "" {
		p, err := DefaultKeyFile()
		if err != nil {
			return "", fmt.Errorf("resolve key file: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file %s: %w", path, err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", path)
	}
	return key, nil
}

// Chain tries each provider in order and returns the first key found.
type Chain []TokenProvider

// GetToken implements TokenProvider.
func (c Chain) GetToken() (string, error) {
	var errs []string
	for _, p := range c {
		key, err := p.GetToken()
		if err == nil {
			return key, nil
		}
		errs = append(errs, err.Error())
	}
	return "", fmt.Errorf("%w (%s)", ErrNoKey, strings.Join(errs, "; "))
}

// GetToken resolves a key using the following strategy:
// 1. The key from config.yaml, if any
// 2. The LINEAR_API_KEY environment variable
// 3. The default key file
//
// This is the main entry point for key retrieval in the application.
func GetToken(configured string) (string, error) {
	key, err := Chain{
		&StaticProvider{Key: configured},
		&EnvProvider{},
		&FileProvider{},
	}.GetToken()
	if err != nil {
		return "", fmt.Errorf(
			"%w.\nPlease either:\n"+
				"  1. Set linear.api_key in config.yaml, or\n"+
				"  2. Set the %s environment variable with a personal API key",
			err, EnvVar,
		)
	}
	return key, nil
}

// Package config provides configuration management for sway apps and the
// sway CLI.
package config

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/swayhq/sway/internal/types"
)

// Config is the complete app configuration.
type Config struct {
	HTTP     HTTPConfig     `validate:"required"`
	Routes   RoutesConfig   `validate:"required"`
	CORS     CORSConfig     `validate:"required"`
	Admin    AdminConfig    `validate:"required"`
	Database DatabaseConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

// HTTPConfig holds the listener settings of the app server.
type HTTPConfig struct {
	Host           string        `validate:"required"`
	Port           int           `validate:"min=0,max=65535"` // 0 picks a free port
	TLSCert        string        `validate:"required_with=TLSKey"`
	TLSKey         string        `validate:"required_with=TLSCert"`
	RequestTimeout time.Duration `validate:"gt=0"`
	MaxBodyBytes   int64         `validate:"gt=0"`
}

// Addr is the host:port the server listens on.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TLSEnabled reports whether a certificate pair is configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// RoutesConfig locates route files.
type RoutesConfig struct {
	Root string `validate:"required"`
}

// CORSConfig mirrors the options of the CORS manager.
// An origin wrapped in slashes ("/\.example\.com$/") is a regular expression.
type CORSConfig struct {
	Disabled          bool
	Origins           []string `validate:"dive,required"`
	Methods           []string `validate:"dive,oneof=GET HEAD PUT PATCH POST DELETE OPTIONS"`
	AllowedHeaders    []string
	ExposedHeaders    []string
	Credentials       bool
	MaxAge            int `validate:"gte=0"`
	PreflightContinue bool
	OptionsStatus     int `validate:"min=200,max=299"`
}

// AdminConfig holds the admin gRPC listener settings.
type AdminConfig struct {
	Host string `validate:"required"`
	Port int    `validate:"min=0,max=65535"`
}

// Addr is the host:port the admin server listens on.
func (c AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig locates snapshot and admin key storage.
type DatabaseConfig struct {
	URL string
}

// EventsConfig enables event publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL string `validate:"omitempty,url"`
}

// MetricsConfig controls the Prometheus endpoint on the app server.
type MetricsConfig struct {
	Enabled bool
	Path    string `validate:"omitempty,startswith=/"`
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   types.DefaultMaxBodyBytes,
		},
		Routes: RoutesConfig{Root: "routes"},
		CORS: CORSConfig{
			Origins:       []string{"*"},
			Methods:       []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
			OptionsStatus: http.StatusNoContent,
		},
		Admin:   AdminConfig{Host: "0.0.0.0", Port: 50061},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports SWAY_HMAC_SECRET (single) and SWAY_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("SWAY_HMAC_SECRET"); val != "" {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("SWAY_HMAC_SECRET: %w", err)
		}
		secrets[secretID] = decoded
	}

	// Numbered secrets keep old and new keys valid during rotation.
	for i := 1; ; i++ {
		key := fmt.Sprintf("SWAY_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check SWAY_HMAC_SECRET and SWAY_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}

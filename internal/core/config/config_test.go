package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestHMACSecrets(t *testing.T) {
	// Clean environment
	os.Unsetenv("SWAY_HMAC_SECRET")
	os.Unsetenv("SWAY_HMAC_SECRET_1")
	os.Unsetenv("SWAY_HMAC_SECRET_2")

	t.Run("single secret", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("SWAY_HMAC_SECRET")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("SWAY_HMAC_SECRET_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("SWAY_HMAC_SECRET_1")
		defer os.Unsetenv("SWAY_HMAC_SECRET_2")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET", "invalid_format")
		defer os.Unsetenv("SWAY_HMAC_SECRET")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET", "short:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("SWAY_HMAC_SECRET")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex secret_id", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET", "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("SWAY_HMAC_SECRET")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})

	t.Run("duplicate secret_id in numbered secrets", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("SWAY_HMAC_SECRET_2", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("SWAY_HMAC_SECRET_1")
		defer os.Unsetenv("SWAY_HMAC_SECRET_2")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		os.Setenv("SWAY_HMAC_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("SWAY_HMAC_SECRET_1", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("SWAY_HMAC_SECRET")
		defer os.Unsetenv("SWAY_HMAC_SECRET_1")

		_, err := HMACSecrets()
		if err == nil {
			t.Error("expected error for duplicate secret_id between SWAY_HMAC_SECRET and SWAY_HMAC_SECRET_1")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	// Clean environment
	os.Unsetenv("SWAY_HTTP_HOST")
	os.Unsetenv("SWAY_HTTP_PORT")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.HTTP.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.HTTP.Host)
		}
		if cfg.HTTP.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.HTTP.Port)
		}
		if cfg.HTTP.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.HTTP.RequestTimeout)
		}
		if cfg.HTTP.MaxBodyBytes != 1<<20 {
			t.Errorf("expected max_body_bytes 1MiB, got %d", cfg.HTTP.MaxBodyBytes)
		}
		if cfg.Routes.Root != "routes" {
			t.Errorf("expected routes root routes, got %s", cfg.Routes.Root)
		}
		if len(cfg.CORS.Origins) != 1 || cfg.CORS.Origins[0] != "*" {
			t.Errorf("expected cors origins [*], got %v", cfg.CORS.Origins)
		}
		if cfg.CORS.OptionsStatus != 204 {
			t.Errorf("expected options status 204, got %d", cfg.CORS.OptionsStatus)
		}
		if cfg.Admin.Port != 50061 {
			t.Errorf("expected admin port 50061, got %d", cfg.Admin.Port)
		}
		if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
			t.Errorf("expected metrics on /metrics, got %+v", cfg.Metrics)
		}
		if cfg.HTTP.TLSEnabled() {
			t.Error("expected TLS disabled by default")
		}
	})

	t.Run("environment override", func(t *testing.T) {
		os.Setenv("SWAY_HTTP_PORT", "9999")
		os.Setenv("SWAY_HTTP_HOST", "127.0.0.1")
		defer os.Unsetenv("SWAY_HTTP_PORT")
		defer os.Unsetenv("SWAY_HTTP_HOST")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.HTTP.Addr() != "127.0.0.1:9999" {
			t.Errorf("expected addr 127.0.0.1:9999, got %s", cfg.HTTP.Addr())
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		os.Setenv("SWAY_HTTP_PORT", "70000")
		defer os.Unsetenv("SWAY_HTTP_PORT")

		_, err := LoadConfig("")
		if err == nil || !strings.Contains(err.Error(), "http.port failed max") {
			t.Errorf("expected http.port error, got %v", err)
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		os.Setenv("SWAY_HTTP_MAX_BODY_BYTES", "-1")
		defer os.Unsetenv("SWAY_HTTP_MAX_BODY_BYTES")

		_, err := LoadConfig("")
		if err == nil || !strings.Contains(err.Error(), "http.max_body_bytes") {
			t.Errorf("expected max_body_bytes error, got %v", err)
		}
	})

	t.Run("tls requires both files", func(t *testing.T) {
		os.Setenv("SWAY_HTTP_TLS_CERT", "server.crt")
		defer os.Unsetenv("SWAY_HTTP_TLS_CERT")

		_, err := LoadConfig("")
		if err == nil || !strings.Contains(err.Error(), "http.tls_key failed required_with") {
			t.Errorf("expected tls_key error, got %v", err)
		}
	})

	t.Run("unknown cors method", func(t *testing.T) {
		cfg := Default()
		cfg.CORS.Methods = []string{"GET", "BREW"}
		if err := Validate(cfg); err == nil {
			t.Error("expected error for unknown cors method")
		}
	})
}

func TestLoad_FlagPrecedence(t *testing.T) {
	os.Setenv("SWAY_HTTP_PORT", "9000")
	defer os.Unsetenv("SWAY_HTTP_PORT")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.String("routes", "", "")
	if err := fs.Parse([]string{"--port=9100"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New(), "", map[string]*pflag.Flag{
		"http.port":   fs.Lookup("port"),
		"routes.root": fs.Lookup("routes"),
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Port != 9100 {
		t.Errorf("expected flag port 9100, got %d", cfg.HTTP.Port)
	}
	// Unchanged flags must not shadow defaults.
	if cfg.Routes.Root != "routes" {
		t.Errorf("expected default routes root, got %q", cfg.Routes.Root)
	}
}

func TestConfigKey(t *testing.T) {
	tests := map[string]string{
		"Config.HTTP.MaxBodyBytes":  "http.max_body_bytes",
		"Config.HTTP.TLSCert":       "http.tls_cert",
		"Config.CORS.OptionsStatus": "cors.options_status",
		"Config.Admin.Port":         "admin.port",
	}
	for in, want := range tests {
		if got := configKey(in); got != want {
			t.Errorf("configKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseHMACSecret(t *testing.T) {
	t.Run("valid base64", func(t *testing.T) {
		secret, err := ParseHMACSecret("dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecret failed: %v", err)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := ParseHMACSecret("not-valid-base64!!!")
		if err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		_, err := ParseHMACSecret("c2hvcnQ=") // "short" in base64
		if err == nil {
			t.Error("expected error for secret < 32 bytes")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) == 0 {
			t.Error("secret should not be empty")
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef")
		if err == nil {
			t.Error("expected error for missing colon")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex chars in secret_id", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})
}

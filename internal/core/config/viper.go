package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: http.port -> SWAY_HTTP_PORT.
const EnvPrefix = "SWAY"

var validate = validator.New(validator.WithRequiredStructEnabled())

// New creates a viper instance with defaults and environment binding.
func New() *viper.Viper {
	d := Default()
	v := viper.New()

	v.SetDefault("http.host", d.HTTP.Host)
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.tls_cert", "")
	v.SetDefault("http.tls_key", "")
	v.SetDefault("http.request_timeout", d.HTTP.RequestTimeout.String())
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("routes.root", d.Routes.Root)
	v.SetDefault("cors.disabled", false)
	v.SetDefault("cors.origins", d.CORS.Origins)
	v.SetDefault("cors.methods", d.CORS.Methods)
	v.SetDefault("cors.allowed_headers", []string{})
	v.SetDefault("cors.exposed_headers", []string{})
	v.SetDefault("cors.credentials", false)
	v.SetDefault("cors.max_age", 0)
	v.SetDefault("cors.preflight_continue", false)
	v.SetDefault("cors.options_status", d.CORS.OptionsStatus)
	v.SetDefault("admin.host", d.Admin.Host)
	v.SetDefault("admin.port", d.Admin.Port)
	v.SetDefault("database.url", "")
	v.SetDefault("events.nats_url", "")
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	return Load(New(), configPath, nil)
}

// Load reads configPath into v, binds flags that were set on the command
// line and validates the result. flags maps config keys to flag names.
func Load(v *viper.Viper, configPath string, flags map[string]*pflag.Flag) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only.
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	for key, flag := range flags {
		if flag != nil && flag.Changed {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
			}
		}
	}

	cfg := fromViper(v)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTPConfig{
			Host:           v.GetString("http.host"),
			Port:           v.GetInt("http.port"),
			TLSCert:        v.GetString("http.tls_cert"),
			TLSKey:         v.GetString("http.tls_key"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
			MaxBodyBytes:   v.GetInt64("http.max_body_bytes"),
		},
		Routes: RoutesConfig{Root: v.GetString("routes.root")},
		CORS: CORSConfig{
			Disabled:          v.GetBool("cors.disabled"),
			Origins:           v.GetStringSlice("cors.origins"),
			Methods:           upper(v.GetStringSlice("cors.methods")),
			AllowedHeaders:    v.GetStringSlice("cors.allowed_headers"),
			ExposedHeaders:    v.GetStringSlice("cors.exposed_headers"),
			Credentials:       v.GetBool("cors.credentials"),
			MaxAge:            v.GetInt("cors.max_age"),
			PreflightContinue: v.GetBool("cors.preflight_continue"),
			OptionsStatus:     v.GetInt("cors.options_status"),
		},
		Admin: AdminConfig{
			Host: v.GetString("admin.host"),
			Port: v.GetInt("admin.port"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Events:   EventsConfig{NATSURL: v.GetString("events.nats_url")},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

// Validate checks cfg against its struct tags. The returned error lists
// every failing field by its config key.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %s", configKey(fe.Namespace()), fe.Tag())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// configKey turns "Config.HTTP.MaxBodyBytes" into "http.max_body_bytes".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		upperRune := r >= 'A' && r <= 'Z'
		if upperRune && i > 0 {
			prev := rune(s[i-1])
			nextLower := i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || nextLower {
				b.WriteByte('_')
			}
		}
		if upperRune {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validateNoSecretsInConfig enforces environment-only secrets. IsSet would
// also see SWAY_HMAC_SECRET through AutomaticEnv, so only the file is checked.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("admin.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use SWAY_HMAC_SECRET environment variable)")
	}
	return nil
}

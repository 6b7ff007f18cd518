package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/melontrace/melontrace-engine/pkg/models"
)

// Config holds all configuration for melontrace-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, signing keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AlertRules AlertRulesConfig `yaml:"alert_rules"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether tokens are validated.
	// Set to false for local development; tokens are then decoded without
	// signature checks.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWTSecret signs and verifies HS256 tokens issued by this service.
	JWTSecret string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML

	// TokenTTLHours is the lifetime of tokens minted by /api/auth/token.
	TokenTTLHours int `yaml:"token_ttl_hours" env:"AUTH_TOKEN_TTL_HOURS" env-default:"168"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs for
	// externally issued RS256 tokens. Empty disables JWKS verification.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"melontrace"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"melontrace"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns   int32  `yaml:"max_idle_conns" env:"PGMAX_IDLE_CONNS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds the view cache configuration. An empty host disables Redis
// and falls back to uncached views with log-only invalidation.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`

	// ViewTTLSeconds bounds how long a cached view may live without an invalidation.
	ViewTTLSeconds int `yaml:"view_ttl_seconds" env:"REDIS_VIEW_TTL_SECONDS" env-default:"300"`
}

// AlertRulesConfig holds the thresholds of the alert rule engine.
type AlertRulesConfig struct {
	Enabled bool `yaml:"enabled" env:"ALERTS_ENABLED" env-default:"true"`

	// DisabledRulesStr is a comma-separated list of alert types to skip.
	DisabledRulesStr string `yaml:"disabled_rules" env:"ALERTS_DISABLED_RULES" env-default:""`

	InspectionLimit int `yaml:"inspection_limit" env:"ALERTS_INSPECTION_LIMIT" env-default:"5"`
	FeedbackLimit   int `yaml:"feedback_limit" env:"ALERTS_FEEDBACK_LIMIT" env-default:"10"`
	StorageLimit    int `yaml:"storage_limit" env:"ALERTS_STORAGE_LIMIT" env-default:"5"`

	LowRatingThreshold int `yaml:"low_rating_threshold" env:"ALERTS_LOW_RATING_THRESHOLD" env-default:"2"`
	ComplaintMinCount  int `yaml:"complaint_min_count" env:"ALERTS_COMPLAINT_MIN_COUNT" env-default:"3"`
	ComplaintHighCount int `yaml:"complaint_high_count" env:"ALERTS_COMPLAINT_HIGH_COUNT" env-default:"5"`

	TemperatureMin float64 `yaml:"temperature_min" env:"ALERTS_TEMPERATURE_MIN" env-default:"5"`
	TemperatureMax float64 `yaml:"temperature_max" env:"ALERTS_TEMPERATURE_MAX" env-default:"20"`
	HumidityMin    float64 `yaml:"humidity_min" env:"ALERTS_HUMIDITY_MIN" env-default:"70"`
	HumidityMax    float64 `yaml:"humidity_max" env:"ALERTS_HUMIDITY_MAX" env-default:"95"`

	EnvDedupWindowHours int `yaml:"env_dedup_window_hours" env:"ALERTS_ENV_DEDUP_WINDOW_HOURS" env-default:"24"`
}

// TracingConfig holds OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Exporter    string  `yaml:"exporter" env:"OTEL_EXPORTER" env-default:"stdout"` // stdout | otlp
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_SAMPLE_RATIO" env-default:"1"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, REDIS_PASSWORD, JWT_SECRET) must come from environment
// variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.AlertRules.validate(); err != nil {
		return nil, fmt.Errorf("invalid alert_rules configuration: %w", err)
	}

	if cfg.Tracing.Exporter != "stdout" && cfg.Tracing.Exporter != "otlp" {
		return nil, fmt.Errorf("invalid tracing exporter %q (expected stdout or otlp)", cfg.Tracing.Exporter)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// IsLocal returns true for the local development environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func (a *AlertRulesConfig) validate() error {
	if a.TemperatureMin > a.TemperatureMax {
		return fmt.Errorf("temperature_min %v exceeds temperature_max %v", a.TemperatureMin, a.TemperatureMax)
	}
	if a.HumidityMin > a.HumidityMax {
		return fmt.Errorf("humidity_min %v exceeds humidity_max %v", a.HumidityMin, a.HumidityMax)
	}
	if a.InspectionLimit <= 0 || a.FeedbackLimit <= 0 || a.StorageLimit <= 0 {
		return fmt.Errorf("record limits must be positive")
	}
	if a.ComplaintMinCount <= 0 || a.ComplaintHighCount < a.ComplaintMinCount {
		return fmt.Errorf("complaint_high_count must be at least complaint_min_count (> 0)")
	}
	for _, t := range splitList(a.DisabledRulesStr) {
		if !models.ValidAlertType(models.AlertType(t)) {
			return fmt.Errorf("unknown alert type %q in disabled_rules", t)
		}
	}
	return nil
}

// Rules converts the configuration into the engine's rule thresholds.
func (a *AlertRulesConfig) Rules() *models.AlertRules {
	rules := &models.AlertRules{
		AlertsEnabled:      a.Enabled,
		InspectionLimit:    a.InspectionLimit,
		FeedbackLimit:      a.FeedbackLimit,
		StorageLimit:       a.StorageLimit,
		LowRatingThreshold: a.LowRatingThreshold,
		ComplaintMinCount:  a.ComplaintMinCount,
		ComplaintHighCount: a.ComplaintHighCount,
		TemperatureMin:     a.TemperatureMin,
		TemperatureMax:     a.TemperatureMax,
		HumidityMin:        a.HumidityMin,
		HumidityMax:        a.HumidityMax,
		EnvDedupWindow:     time.Duration(a.EnvDedupWindowHours) * time.Hour,
	}
	if disabled := splitList(a.DisabledRulesStr); len(disabled) > 0 {
		rules.RuleEnabled = make(map[models.AlertType]bool, len(disabled))
		for _, t := range disabled {
			rules.RuleEnabled[models.AlertType(t)] = false
		}
	}
	return rules
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	for _, pair := range splitList(value) {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if ok {
			endpoints[strings.TrimSpace(issuer)] = strings.TrimSpace(jwksURL)
		}
	}
	return endpoints
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ViewTTL returns the cache lifetime of rendered views.
func (c *RedisConfig) ViewTTL() time.Duration {
	return time.Duration(c.ViewTTLSeconds) * time.Second
}

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/melontrace/melontrace-engine/pkg/models"
)

const minimalYAML = `
port: "3480"
env: "test"
database:
  host: "localhost"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
port: "3480"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
redis:
  host: "redis.example.com"
  port: 6379
`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Change to temp directory so Load() finds config.yaml
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	os.Unsetenv("PGHOST")
	os.Unsetenv("BASE_URL")

	t.Setenv("PORT", "4480")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4480" {
		t.Errorf("expected Port=4480 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.BaseURL != "http://localhost:4480" {
		t.Errorf("expected BaseURL=http://localhost:4480 (auto-derived from PORT), got %s", cfg.BaseURL)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
	if cfg.Redis.Addr() != "redis.example.com:6379" {
		t.Errorf("expected Redis.Addr()=redis.example.com:6379, got %s", cfg.Redis.Addr())
	}
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	os.Unsetenv("BASE_URL")
	os.Unsetenv("PORT")

	path := writeConfig(t, minimalYAML+`base_url: "http://trace.internal:8080"
`)

	cfg, err := LoadFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.BaseURL != "http://trace.internal:8080" {
		t.Errorf("expected explicit BaseURL, got %s", cfg.BaseURL)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "config.yaml"), "test-version")
	if err == nil {
		t.Error("expected error when config.yaml is missing")
	}
}

func TestLoad_AlertRulesDefaults(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	cfg, err := LoadFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	rules := cfg.AlertRules.Rules()
	want := models.DefaultAlertRules()
	if rules.InspectionLimit != want.InspectionLimit || rules.FeedbackLimit != want.FeedbackLimit || rules.StorageLimit != want.StorageLimit {
		t.Errorf("unexpected limits: %d/%d/%d", rules.InspectionLimit, rules.FeedbackLimit, rules.StorageLimit)
	}
	if rules.TemperatureMin != 5 || rules.TemperatureMax != 20 {
		t.Errorf("unexpected temperature bounds: %v-%v", rules.TemperatureMin, rules.TemperatureMax)
	}
	if rules.HumidityMin != 70 || rules.HumidityMax != 95 {
		t.Errorf("unexpected humidity bounds: %v-%v", rules.HumidityMin, rules.HumidityMax)
	}
	if rules.EnvDedupWindow != 24*time.Hour {
		t.Errorf("expected 24h env dedup window, got %s", rules.EnvDedupWindow)
	}
	if !rules.IsRuleEnabled(models.AlertTypeEnvAbnormal) {
		t.Error("expected env_abnormal enabled by default")
	}
}

func TestLoad_AlertRulesFromEnv(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	t.Setenv("ALERTS_TEMPERATURE_MAX", "18")
	t.Setenv("ALERTS_DISABLED_RULES", "quality_complaint")

	cfg, err := LoadFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	rules := cfg.AlertRules.Rules()
	if rules.TemperatureMax != 18 {
		t.Errorf("expected TemperatureMax=18 (from env), got %v", rules.TemperatureMax)
	}
	if rules.IsRuleEnabled(models.AlertTypeQualityComplaint) {
		t.Error("expected quality_complaint disabled")
	}
	if !rules.IsRuleEnabled(models.AlertTypeInspectionFail) {
		t.Error("expected inspection_fail still enabled")
	}
}

func TestLoad_AlertRulesInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"inverted temperature", "alert_rules:\n  temperature_min: 30\n  temperature_max: 20\n"},
		{"inverted humidity", "alert_rules:\n  humidity_min: 96\n"},
		{"zero limit", "alert_rules:\n  storage_limit: 0\n"},
		{"unknown rule", "alert_rules:\n  disabled_rules: \"sql_injection\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, minimalYAML+tt.yaml)
			if _, err := LoadFile(path, "test-version"); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestLoad_InvalidTracingExporter(t *testing.T) {
	path := writeConfig(t, minimalYAML+"tracing:\n  exporter: \"jaeger\"\n")

	_, err := LoadFile(path, "test-version")
	if err == nil || !strings.Contains(err.Error(), "tracing exporter") {
		t.Errorf("expected tracing exporter error, got %v", err)
	}
}

func TestLoad_SecretsOnlyFromEnv(t *testing.T) {
	path := writeConfig(t, minimalYAML+"auth:\n  jwt_secret: \"from-yaml\"\n")

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PGPASSWORD", "pg-secret")

	cfg, err := LoadFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("expected JWTSecret from env, got %q", cfg.Auth.JWTSecret)
	}
	if !strings.Contains(cfg.Database.ConnectionString(), "password=pg-secret") {
		t.Error("expected PGPASSWORD in connection string")
	}
}

func TestParseJWKSEndpoints(t *testing.T) {
	got := parseJWKSEndpoints("https://issuer-a=https://issuer-a/jwks.json, https://issuer-b=https://issuer-b/jwks.json,broken")
	if len(got) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(got))
	}
	if got["https://issuer-b"] != "https://issuer-b/jwks.json" {
		t.Errorf("unexpected issuer-b url: %s", got["https://issuer-b"])
	}
	if len(parseJWKSEndpoints("")) != 0 {
		t.Error("expected empty map for empty string")
	}
}

// TLS Configuration Tests

func TestValidateTLS_OnlyCertProvided(t *testing.T) {
	certPath := filepath.Join(t.TempDir(), "cert.pem")
	if err := os.WriteFile(certPath, []byte("cert"), 0600); err != nil {
		t.Fatalf("failed to write cert: %v", err)
	}

	cfg := &Config{TLSCertPath: certPath}
	if err := cfg.validateTLS(); err == nil {
		t.Error("expected error when only cert is provided")
	}
}

func TestValidateTLS_BothProvided(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	for _, p := range []string{certPath, keyPath} {
		if err := os.WriteFile(p, []byte("pem"), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}

	cfg := &Config{TLSCertPath: certPath, TLSKeyPath: keyPath}
	if err := cfg.validateTLS(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateTLS_KeyFileNotFound(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	if err := os.WriteFile(certPath, []byte("cert"), 0600); err != nil {
		t.Fatalf("failed to write cert: %v", err)
	}

	cfg := &Config{TLSCertPath: certPath, TLSKeyPath: filepath.Join(dir, "missing.pem")}
	err := cfg.validateTLS()
	if err == nil || !strings.Contains(err.Error(), "TLS key file does not exist") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestWriteExample_OmitsSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret")
	path := writeConfig(t, minimalYAML)

	cfg, err := LoadFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteExample(&buf, cfg); err != nil {
		t.Fatalf("WriteExample() failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "super-secret") {
		t.Error("secret leaked into example output")
	}
	if !strings.Contains(out, "alert_rules:") || !strings.Contains(out, "temperature_min: 5") {
		t.Errorf("expected alert_rules section in output, got:\n%s", out)
	}
}

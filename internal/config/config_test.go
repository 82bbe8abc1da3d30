package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
cors_allowed_origins = ["http://localhost:3000"]

[opensky]
username = "pilot"
password = "secret"

[animation]
steps = 20
duration_seconds = 5

[poller]
interval_ms = 2500

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Animation.Steps != 20 || cfg.Animation.DurationSecs != 5 {
		t.Errorf("animation = %+v", cfg.Animation)
	}
	if cfg.Animation.FlightLimit != 1000 {
		t.Errorf("flight limit default = %d, want 1000", cfg.Animation.FlightLimit)
	}
	if cfg.Poller.IntervalMs != 2500 {
		t.Errorf("interval = %d", cfg.Poller.IntervalMs)
	}
	if cfg.OpenSky.BaseURL != "https://opensky-network.org/api" {
		t.Errorf("base url default = %q", cfg.OpenSky.BaseURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithFallbackMissingPreferred(t *testing.T) {
	if _, err := LoadWithFallback(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error when the explicit path does not exist")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Animation.Steps != 50 || cfg.Animation.DurationSecs != 10 {
		t.Errorf("animation defaults = %+v", cfg.Animation)
	}
	if cfg.Poller.IntervalMs != 5000 {
		t.Errorf("poller default = %d", cfg.Poller.IntervalMs)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 || cfg.Server.CORSAllowedOrigins[0] != "*" {
		t.Errorf("cors default = %v", cfg.Server.CORSAllowedOrigins)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENSKY_USERNAME": "user",
		"OPENSKY_PASSWORD": "pass",
		"APP_PORT":         "6000",
		"APP_CORS_ORIGIN":  "http://a.example, http://b.example",
		"TRACING_ENABLED":  "true",

		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
	}
	cfg := &Config{}
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.OpenSky.Username != "user" || cfg.OpenSky.Password != "pass" {
		t.Errorf("credentials not applied: %+v", cfg.OpenSky)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 2 || cfg.Server.CORSAllowedOrigins[1] != "http://b.example" {
		t.Errorf("cors = %v", cfg.Server.CORSAllowedOrigins)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != "otlp" || cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}

	bad := &Config{}
	if err := bad.ApplyEnv(func(k string) string {
		if k == "APP_PORT" {
			return "abc"
		}
		return ""
	}); err == nil {
		t.Error("expected error for non-numeric APP_PORT")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"half oauth", func(c *Config) { c.OpenSky.ClientID = "id" }},
		{"steps", func(c *Config) { c.Animation.Steps = 1 }},
		{"duration", func(c *Config) { c.Animation.DurationSecs = -1 }},
		{"interval", func(c *Config) { c.Poller.IntervalMs = 10 }},
		{"level", func(c *Config) { c.Logging.Level = "trace" }},
		{"format", func(c *Config) { c.Logging.Format = "xml" }},
		{"base url", func(c *Config) { c.OpenSky.BaseURL = "ftp://x" }},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	OpenSky   OpenSkyConfig   `toml:"opensky"`   // Upstream telemetry source settings
	Animation AnimationConfig `toml:"animation"` // Client-side interpolation settings
	Poller    PollerConfig    `toml:"poller"`    // View refresh settings
	Tracker   TrackerConfig   `toml:"tracker"`   // Flight/airport enrichment settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Tracing   TracingConfig   `toml:"tracing"`   // OpenTelemetry trace export
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // Origins allowed for CORS requests (["*"] for all)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
	StaticDir          string   `toml:"static_dir"`            // Built map front-end served at /, empty disables
}

// OpenSkyConfig contains settings for the OpenSky Network REST API
type OpenSkyConfig struct {
	BaseURL string `toml:"base_url"` // REST API root (default https://opensky-network.org/api)

	// Basic auth (legacy accounts)
	Username string `toml:"username"`
	Password string `toml:"password"`

	// OAuth2 client credentials (preferred when set)
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`

	RequestTimeoutSecs int `toml:"request_timeout_seconds"` // Per-request timeout, 0 = library default
	RouteCacheSize     int `toml:"route_cache_size"`        // Number of callsign routes kept in memory
	RouteCacheTTLMins  int `toml:"route_cache_ttl_minutes"` // How long a cached route stays valid
}

// AnimationConfig contains dead-reckoning animation settings
type AnimationConfig struct {
	Steps        int `toml:"steps"`            // Interpolated points per session
	DurationSecs int `toml:"duration_seconds"` // Forward time window covered by a session
	FlightLimit  int `toml:"flight_limit"`     // Flight count at which animation is bypassed
}

// PollerConfig contains refresh timer settings for views
type PollerConfig struct {
	IntervalMs int `toml:"interval_ms"` // Refresh period for flight sets
}

// TrackerConfig contains enrichment settings
type TrackerConfig struct {
	AirportType         string `toml:"airport_type"`          // Airport type pushed to views (e.g. "large_airport"), empty = all
	AirportHistoryHours int    `toml:"airport_history_hours"` // Arrivals/departures window for airport detail, 0 = disabled
	MagneticTrack       bool   `toml:"magnetic_track"`        // Attach magnetic direction to flight detail
}

// TracingConfig controls OpenTelemetry span export
type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`      // Export spans; when false a noop provider is installed
	Exporter    string  `toml:"exporter"`     // "stdout" or "otlp"
	Endpoint    string  `toml:"endpoint"`     // OTLP gRPC collector address (default localhost:4317)
	ServiceName string  `toml:"service_name"` // service.name resource attribute
	SampleRatio float64 `toml:"sample_ratio"` // Fraction of root traces kept, 0 < ratio <= 1
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
	File   string `toml:"file"`   // Optional rotating log file
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the first config file found in the search paths.
// When no file exists at all, defaults are used so the server can run with
// environment variables only.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var cfg *Config
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err != nil {
			if path == preferredPath {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			continue
		}
		loaded, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		cfg = loaded
		break
	}

	if cfg == nil {
		cfg = &Config{}
	}

	// .env is optional, same as the environment itself
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides config values from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("OPENSKY_USERNAME"); v != "" {
		c.OpenSky.Username = v
	}
	if v := getenv("OPENSKY_PASSWORD"); v != "" {
		c.OpenSky.Password = v
	}
	if v := getenv("OPENSKY_CLIENT_ID"); v != "" {
		c.OpenSky.ClientID = v
	}
	if v := getenv("OPENSKY_CLIENT_SECRET"); v != "" {
		c.OpenSky.ClientSecret = v
	}
	if v := getenv("APP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid APP_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenv("APP_CORS_ORIGIN"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.Server.CORSAllowedOrigins = origins
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRACING_ENABLED %q: %w", v, err)
		}
		c.Tracing.Enabled = enabled
	}
	if v := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Exporter = "otlp"
		c.Tracing.Endpoint = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 15
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 60
	}

	if c.OpenSky.BaseURL == "" {
		c.OpenSky.BaseURL = "https://opensky-network.org/api"
	}
	if c.OpenSky.TokenURL == "" {
		c.OpenSky.TokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"
	}
	if c.OpenSky.RequestTimeoutSecs == 0 {
		c.OpenSky.RequestTimeoutSecs = 15
	}
	if c.OpenSky.RouteCacheSize == 0 {
		c.OpenSky.RouteCacheSize = 512
	}
	if c.OpenSky.RouteCacheTTLMins == 0 {
		c.OpenSky.RouteCacheTTLMins = 30
	}

	if c.Animation.Steps == 0 {
		c.Animation.Steps = 50
	}
	if c.Animation.DurationSecs == 0 {
		c.Animation.DurationSecs = 10
	}
	if c.Animation.FlightLimit == 0 {
		c.Animation.FlightLimit = 1000
	}

	if c.Poller.IntervalMs == 0 {
		c.Poller.IntervalMs = 5000
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "skytrack"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

// Validate fills in defaults and checks the configuration
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}

	if !strings.HasPrefix(c.OpenSky.BaseURL, "http://") && !strings.HasPrefix(c.OpenSky.BaseURL, "https://") {
		return fmt.Errorf("invalid opensky base_url: %s", c.OpenSky.BaseURL)
	}
	if (c.OpenSky.ClientID == "") != (c.OpenSky.ClientSecret == "") {
		return fmt.Errorf("opensky client_id and client_secret must be set together")
	}
	if c.OpenSky.RequestTimeoutSecs < 0 {
		return fmt.Errorf("invalid opensky request_timeout_seconds: %d", c.OpenSky.RequestTimeoutSecs)
	}
	if c.OpenSky.RouteCacheSize < 0 || c.OpenSky.RouteCacheTTLMins < 0 {
		return fmt.Errorf("opensky route cache settings must be >= 0")
	}

	if c.Animation.Steps < 2 {
		return fmt.Errorf("invalid animation steps: %d (must be >= 2)", c.Animation.Steps)
	}
	if c.Animation.DurationSecs <= 0 {
		return fmt.Errorf("invalid animation duration_seconds: %d", c.Animation.DurationSecs)
	}
	if c.Animation.FlightLimit <= 0 {
		return fmt.Errorf("invalid animation flight_limit: %d", c.Animation.FlightLimit)
	}

	if c.Poller.IntervalMs < 100 {
		return fmt.Errorf("invalid poller interval_ms: %d (must be >= 100)", c.Poller.IntervalMs)
	}

	if c.Tracker.AirportHistoryHours < 0 {
		return fmt.Errorf("invalid tracker airport_history_hours: %d", c.Tracker.AirportHistoryHours)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	switch c.Tracing.Exporter {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("invalid tracing exporter: %s", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("invalid tracing sample_ratio: %g (must be within 0..1)", c.Tracing.SampleRatio)
	}

	return nil
}

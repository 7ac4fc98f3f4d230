package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Geo       GeoConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig locates the two source tables and controls how they are read.
type DataConfig struct {
	SalesFile     string
	SalesEncoding string
	RentFile      string
	RentEncoding  string
	ReferenceYear int
	Watch         bool
	WatchDebounce time.Duration
}

type GeoConfig struct {
	// Source is an http(s) URL or a local file path.
	Source          string
	FetchTimeout    time.Duration
	RefreshSchedule string
}

type DashboardConfig struct {
	DefaultCategory  string
	DefaultFloorArea float64
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	TrustedProxies  []string
}

const defaultGeoSource = "https://raw.githubusercontent.com/southkorea/seoul-maps/master/kostat/2013/json/seoul_municipalities_geo_simple.json"

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			SalesFile:     getEnvString("SALES_FILE", "seoul_data/상권_추정매출.csv"),
			SalesEncoding: getEnvString("SALES_ENCODING", "utf-8"),
			RentFile:      getEnvString("RENT_FILE", "seoul_data/자치구_평당임대료.csv"),
			RentEncoding:  getEnvString("RENT_ENCODING", "cp949"),
			ReferenceYear: getEnvInt("REFERENCE_YEAR", 2021),
			Watch:         getEnvBool("DATA_WATCH", false),
			WatchDebounce: getEnvDuration("DATA_WATCH_DEBOUNCE", 2*time.Second),
		},
		Geo: GeoConfig{
			Source:          getEnvString("GEO_SOURCE", defaultGeoSource),
			FetchTimeout:    getEnvDuration("GEO_FETCH_TIMEOUT", 15*time.Second),
			RefreshSchedule: getEnvString("GEO_REFRESH_SCHEDULE", "@every 1h"),
		},
		Dashboard: DashboardConfig{
			DefaultCategory:  getEnvString("DEFAULT_CATEGORY", "커피"),
			DefaultFloorArea: getEnvFloat("DEFAULT_FLOOR_AREA", 20),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 40),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.SalesFile == "" {
		return fmt.Errorf("sales file path cannot be empty")
	}

	if c.Data.RentFile == "" {
		return fmt.Errorf("rent file path cannot be empty")
	}

	if c.Data.ReferenceYear < 2000 || c.Data.ReferenceYear > 2100 {
		return fmt.Errorf("reference year out of range: %d", c.Data.ReferenceYear)
	}

	if c.Data.Watch && c.Data.WatchDebounce <= 0 {
		return fmt.Errorf("watch debounce must be positive when watching is enabled")
	}

	if c.Geo.Source == "" {
		return fmt.Errorf("geo source cannot be empty")
	}

	if c.Geo.FetchTimeout <= 0 {
		return fmt.Errorf("geo fetch timeout must be positive")
	}

	area := c.Dashboard.DefaultFloorArea
	if area <= 0 || math.IsInf(area, 0) || math.IsNaN(area) {
		return fmt.Errorf("default floor area must be a positive number, got %v", area)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

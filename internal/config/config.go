package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	CORS      CORSConfig      `yaml:"cors"`
	Auth      AuthConfig      `yaml:"auth"`
	Flow      FlowConfig      `yaml:"flow"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DatabaseConfig holds data source configuration
type DatabaseConfig struct {
	Driver            string        `yaml:"driver"` // "pgx" or "sqlite"
	URL               string        `yaml:"dsn"`
	Host              string        `yaml:"host"`
	Port              string        `yaml:"port"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	Name              string        `yaml:"name"`
	SSLMode           string        `yaml:"sslmode"`
	ColumnStatusTable string        `yaml:"column_status_table"`
	DailyFlowTable    string        `yaml:"daily_flow_table"`
	MaxOpenConns      int           `yaml:"max_open_conns"`
	MaxIdleConns      int           `yaml:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	QueryTimeout      time.Duration `yaml:"query_timeout"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Mode      string `yaml:"mode"` // "none", "jwt"
	JWTSecret string `yaml:"jwt_secret"`
}

// FlowConfig holds defaults for dashboard selections
type FlowConfig struct {
	DefaultExcluded []string `yaml:"default_excluded"`
	HourlyBound     string   `yaml:"hourly_bound"` // "inclusive", "exclusive"
	// ChartAssetsHost serves the echarts scripts; empty uses the library CDN
	ChartAssetsHost string `yaml:"chart_assets_host"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:            "pgx",
			Host:              "localhost",
			Port:              "5432",
			SSLMode:           "disable",
			ColumnStatusTable: "kanban_column_status_by_hour",
			DailyFlowTable:    "kanban_daily_flow",
			MaxOpenConns:      10,
			MaxIdleConns:      2,
			ConnMaxLifetime:   5 * time.Minute,
			ConnectTimeout:    10 * time.Second,
			QueryTimeout:      60 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8050",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Auth: AuthConfig{
			Mode: "none",
		},
		Flow: FlowConfig{
			DefaultExcluded: []string{"Archived", "Done"},
			HourlyBound:     "inclusive",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
	}
}

// Load loads configuration: .env, then defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	db := &c.Database
	db.Driver = getEnv("SWA_DB_DRIVER", db.Driver)
	db.URL = getEnv("SWA_DB_DSN", db.URL)
	db.Host = getEnv("SWA_DB_HOST", db.Host)
	db.Port = getEnv("SWA_DB_PORT", db.Port)
	db.Name = getEnv("SWA_DB_DB", db.Name)
	db.User = getEnv("SWA_DB_USER", db.User)
	db.Password = getEnv("SWA_DB_PASS", db.Password)
	db.SSLMode = getEnv("SWA_DB_SSLMODE", db.SSLMode)
	db.ColumnStatusTable = getEnv("SWA_COLUMN_STATUS_TABLE", db.ColumnStatusTable)
	db.DailyFlowTable = getEnv("SWA_DAILY_FLOW_TABLE", db.DailyFlowTable)
	db.MaxOpenConns = getEnvInt("SWA_DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvInt("SWA_DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.ConnMaxLifetime = getEnvDuration("SWA_DB_CONN_MAX_LIFETIME", db.ConnMaxLifetime)
	db.ConnectTimeout = getEnvDuration("SWA_DB_CONNECT_TIMEOUT", db.ConnectTimeout)
	db.QueryTimeout = getEnvDuration("SWA_DB_QUERY_TIMEOUT", db.QueryTimeout)

	s := &c.Server
	s.Host = getEnv("SERVER_HOST", s.Host)
	s.Port = getEnv("SERVER_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", s.WriteTimeout)
	s.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = int64(getEnvInt("SERVER_MAX_BODY_BYTES", int(s.MaxBodyBytes)))

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = getEnv("LOG_OUTPUT", c.Logging.Output)

	c.CORS.AllowedOrigins = getEnvSlice("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.AllowedMethods = getEnvSlice("CORS_ALLOWED_METHODS", c.CORS.AllowedMethods)
	c.CORS.AllowedHeaders = getEnvSlice("CORS_ALLOWED_HEADERS", c.CORS.AllowedHeaders)

	c.Auth.Mode = getEnv("AUTH_MODE", c.Auth.Mode)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	// FLOW_DEFAULT_EXCLUDED="" (set but empty) means exclude nothing by default
	if value, ok := os.LookupEnv("FLOW_DEFAULT_EXCLUDED"); ok {
		c.Flow.DefaultExcluded = splitList(value)
	}
	c.Flow.HourlyBound = getEnv("FLOW_HOURLY_BOUND", c.Flow.HourlyBound)
	c.Flow.ChartAssetsHost = getEnv("FLOW_CHART_ASSETS_HOST", c.Flow.ChartAssetsHost)

	c.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)
}

func getEnv(key, defaultValue string) string {
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		if parts := splitList(value); len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// splitList parses a comma-separated list, dropping blanks
func splitList(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// ErrMissingDatabase is returned by DSN when neither a DSN nor a host and
// database name are configured.
var ErrMissingDatabase = errors.New("database not configured")

// DSN returns the database connection string for the configured driver.
// An explicit URL always wins; sqlite requires one.
func (c *DatabaseConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Driver == "sqlite" || c.Host == "" || c.Name == "" {
		return "", ErrMissingDatabase
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Address returns the host:port the server listens on
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

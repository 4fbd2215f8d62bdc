package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Source kinds
const (
	SourceStatic  = "static"
	SourceHTML    = "html"
	SourceJSONAPI = "jsonapi"
	SourceChain   = "chain"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Redis
	Redis RedisConfig

	// Outbound HTTP
	HTTP HTTPConfig

	// Data source adapter
	Source SourceConfig

	// Classification thresholds
	Thresholds ThresholdConfig

	// Batch runner
	Batch BatchConfig

	// Periodic refresh
	Watch WatchConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64 // 0 disables the polite limiter
	Burst             int
	UserAgent         string
}

// SourceConfig holds data source adapter settings
// Endpoints and keys live here, never in the engine.
type SourceConfig struct {
	Kind        string   // static, html, jsonapi, chain
	Chain       []string // order of kinds when Kind == chain
	FixturePath string

	// HTML labelled page
	HTMLURLTemplate string // e.g. https://example.com/company/{symbol}/
	HTMLPELabel     string
	HTMLMarginLabel string

	// JSON REST API
	JSONURLTemplate string
	JSONPEPath      string // gjson path
	JSONMarginPath  string // gjson path
	APIKey          string
	APIKeyHeader    string
	APIKeyParam     string

	// Decorators
	BreakerEnabled bool
	CacheTTL       time.Duration
}

// ThresholdConfig selects the classification grid
// Precedence: File, then Preset, then explicit overrides on top.
type ThresholdConfig struct {
	File      string
	Preset    string
	MarginPct *float64
	Multiple  *float64
}

// BatchConfig holds batch runner settings
type BatchConfig struct {
	Workers int
}

// WatchConfig holds scheduled refresh settings
type WatchConfig struct {
	Schedule   string
	Symbols    []string
	ExportPath string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads envFile first when given, then the usual .env search paths
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		loadEnvFile()
	}

	marginOverride, err := getEnvAsFloatPtr("QUADRANT_MARGIN_THRESHOLD")
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	multipleOverride, err := getEnvAsFloatPtr("QUADRANT_MULTIPLE_THRESHOLD")
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		HTTP: HTTPConfig{
			Timeout:           getEnvAsDuration("HTTP_TIMEOUT", "30s"),
			MaxRetries:        getEnvAsInt("HTTP_MAX_RETRIES", 3),
			RetryDelay:        getEnvAsDuration("HTTP_RETRY_DELAY", "1s"),
			RequestsPerSecond: getEnvAsFloat("HTTP_RATE_PER_SECOND", 1),
			Burst:             getEnvAsInt("HTTP_RATE_BURST", 1),
			UserAgent:         getEnv("HTTP_USER_AGENT", "Mozilla/5.0"),
		},

		Source: SourceConfig{
			Kind:            strings.ToLower(getEnv("SOURCE_KIND", SourceStatic)),
			Chain:           lowerAll(getEnvAsList("SOURCE_CHAIN", []string{SourceHTML, SourceJSONAPI})),
			FixturePath:     getEnv("SOURCE_FIXTURE_PATH", ""),
			HTMLURLTemplate: getEnv("SOURCE_HTML_URL", ""),
			HTMLPELabel:     getEnv("SOURCE_HTML_PE_LABEL", "Stock P/E"),
			HTMLMarginLabel: getEnv("SOURCE_HTML_MARGIN_LABEL", "Net profit margin"),
			JSONURLTemplate: getEnv("SOURCE_JSON_URL", ""),
			JSONPEPath:      getEnv("SOURCE_JSON_PE_PATH", "peRatio"),
			JSONMarginPath:  getEnv("SOURCE_JSON_MARGIN_PATH", "netProfitMargin"),
			APIKey:          getEnv("SOURCE_API_KEY", ""),
			APIKeyHeader:    getEnv("SOURCE_API_KEY_HEADER", ""),
			APIKeyParam:     getEnv("SOURCE_API_KEY_PARAM", "apikey"),
			BreakerEnabled:  getEnvAsBool("SOURCE_BREAKER_ENABLED", true),
			CacheTTL:        getEnvAsDuration("SOURCE_CACHE_TTL", "10m"),
		},

		Thresholds: ThresholdConfig{
			File:      getEnv("QUADRANT_THRESHOLDS_FILE", ""),
			Preset:    getEnv("QUADRANT_PRESET", ""),
			MarginPct: marginOverride,
			Multiple:  multipleOverride,
		},

		Batch: BatchConfig{
			Workers: getEnvAsInt("BATCH_WORKERS", 1),
		},

		Watch: WatchConfig{
			Schedule:   getEnv("WATCH_SCHEDULE", "0 0 * * * *"),
			Symbols:    getEnvAsList("WATCH_SYMBOLS", []string{"TCS", "INFY", "HDFCBANK"}),
			ExportPath: getEnv("WATCH_EXPORT_PATH", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if err := c.Source.validate(); err != nil {
		return err
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.Batch.Workers)
	}

	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("HTTP_RATE_PER_SECOND must not be negative")
	}

	return nil
}

func (s SourceConfig) validate() error {
	switch s.Kind {
	case SourceStatic:
		// empty fixture means an empty source; everything is "Not classified"
	case SourceHTML:
		if s.HTMLURLTemplate == "" {
			return fmt.Errorf("SOURCE_HTML_URL is required for source kind html")
		}
	case SourceJSONAPI:
		if s.JSONURLTemplate == "" {
			return fmt.Errorf("SOURCE_JSON_URL is required for source kind jsonapi")
		}
	case SourceChain:
		if len(s.Chain) == 0 {
			return fmt.Errorf("SOURCE_CHAIN must list at least one source kind")
		}
		for _, kind := range s.Chain {
			if kind == SourceChain {
				return fmt.Errorf("SOURCE_CHAIN cannot contain %q", SourceChain)
			}
			inner := s
			inner.Kind = kind
			if err := inner.validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("SOURCE_KIND must be one of: static, html, jsonapi, chain (got %q)", s.Kind)
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloatPtr is strict: thresholds never fall back silently
func getEnvAsFloatPtr(key string) (*float64, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%s must be a finite number, got %q", key, valueStr)
	}

	return &value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Cache       CacheConfig    `toml:"cache"`
	Storage     StorageConfig  `toml:"storage"`
	Results     ResultsConfig  `toml:"results"`
	SEC         SECConfig      `toml:"sec"`
	EODHD       ProviderConfig `toml:"eodhd"`
	Finnhub     ProviderConfig `toml:"finnhub"`
	GDELT       ProviderConfig `toml:"gdelt"`
	Yahoo       ProviderConfig `toml:"yahoo"`
	LLM         LLMConfig      `toml:"llm"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Batch       BatchConfig    `toml:"batch"`
}

type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	WriteTimeout string `toml:"write_timeout"` // Analyze calls hold the connection while the LLM runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// CacheConfig controls the shared expiring key/value store
type CacheConfig struct {
	Backend       string `toml:"backend"`        // "badger" (default), "redis" or "memory"
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for expired entry removal, empty disables
	MaxAge        string `toml:"max_age"`        // Entries older than this are removed by the sweeper
}

type StorageConfig struct {
	Badger   BadgerConfig   `toml:"badger"`
	Redis    RedisConfig    `toml:"redis"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Postgres PostgresConfig `toml:"postgres"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type RedisConfig struct {
	URL       string `toml:"url"`        // redis://host:port/db
	KeyPrefix string `toml:"key_prefix"` // Prepended to every cache key
}

type SQLiteConfig struct {
	Path          string `toml:"path"`
	WALMode       bool   `toml:"wal_mode"`
	CacheSizeMB   int    `toml:"cache_size_mb"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// ResultsConfig selects the durable analysis result store
type ResultsConfig struct {
	Backend       string `toml:"backend"`        // "sqlite" (default) or "postgres"
	HistoricalTTL string `toml:"historical_ttl"` // Baseline date before today
	CurrentTTL    string `toml:"current_ttl"`    // Baseline date is today
}

type SECConfig struct {
	BaseURL    string  `toml:"base_url"`    // data.sec.gov
	FilesURL   string  `toml:"files_url"`   // www.sec.gov (ticker map, archives)
	UserAgent  string  `toml:"user_agent"`  // EDGAR rejects requests without a contact user agent
	Timeout    string  `toml:"timeout"`
	RateLimit  float64 `toml:"rate_limit"`  // Requests per second
	MaxFilings int     `toml:"max_filings"` // Most recent filings kept per analysis
}

// ProviderConfig is shared by the HTTP market/news data providers
type ProviderConfig struct {
	BaseURL   string  `toml:"base_url"`
	APIKey    string  `toml:"api_key"`
	Timeout   string  `toml:"timeout"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second, 0 disables limiting
}

type LLMConfig struct {
	DefaultModel    string  `toml:"default_model"`
	ClaudeAPIKey    string  `toml:"claude_api_key"`
	GeminiAPIKey    string  `toml:"gemini_api_key"`
	OpenAIAPIKey    string  `toml:"openai_api_key"`
	OpenAIBaseURL   string  `toml:"openai_base_url"`
	MaxTokens       int     `toml:"max_tokens"`
	Temperature     float32 `toml:"temperature"`
	Timeout         string  `toml:"timeout"`
	MaxRetries      int     `toml:"max_retries"`
	HelperModel     string  `toml:"helper_model"` // Model used for keywords, sentiment and event classification
	HelperMaxTokens int     `toml:"helper_max_tokens"`
}

type AnalysisConfig struct {
	ExcerptChars    int    `toml:"excerpt_chars"`    // Character budget per filing excerpt in the payload
	FilingWorkers   int    `toml:"filing_workers"`   // Concurrent narrative fetches per analysis
	TransformTTL    string `toml:"transform_ttl"`    // Transform response cache window
	SelfTestTicker  string `toml:"selftest_ticker"`  // Ticker exercised by /api/selftest
	NewsLookbackDay int    `toml:"news_lookback_days"`
}

type BatchConfig struct {
	Concurrency int `toml:"concurrency"` // Rows analysed in parallel
	MaxRows     int `toml:"max_rows"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:         8085,
			Host:         "localhost",
			WriteTimeout: "10m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Cache: CacheConfig{
			Backend:       "badger",
			SweepSchedule: "0 30 3 * * *", // Daily at 03:30
			MaxAge:        "720h",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/cache",
			},
			Redis: RedisConfig{
				URL:       "redis://localhost:6379/0",
				KeyPrefix: "tickerlens:",
			},
			SQLite: SQLiteConfig{
				Path:          "./data/results.db",
				WALMode:       true,
				CacheSizeMB:   16,
				BusyTimeoutMS: 5000,
			},
		},
		Results: ResultsConfig{
			Backend:       "sqlite",
			HistoricalTTL: "720h",
			CurrentTTL:    "6h",
		},
		SEC: SECConfig{
			BaseURL:    "https://data.sec.gov",
			FilesURL:   "https://www.sec.gov",
			UserAgent:  "tickerlens admin@example.com",
			Timeout:    "30s",
			RateLimit:  8,
			MaxFilings: 4,
		},
		EODHD: ProviderConfig{
			BaseURL:   "https://eodhd.com/api",
			Timeout:   "15s",
			RateLimit: 10,
		},
		Finnhub: ProviderConfig{
			BaseURL:   "https://finnhub.io/api/v1",
			Timeout:   "15s",
			RateLimit: 1, // Free tier: 60 calls/minute
		},
		GDELT: ProviderConfig{
			BaseURL:   "https://api.gdeltproject.org/api/v2/doc/doc",
			Timeout:   "30s",
			RateLimit: 0.2, // GDELT asks for one request every five seconds
		},
		Yahoo: ProviderConfig{
			Timeout: "15s",
		},
		LLM: LLMConfig{
			DefaultModel:    "claude-sonnet-4-20250514",
			MaxTokens:       8192,
			Temperature:     0.2,
			Timeout:         "120s",
			MaxRetries:      3,
			HelperModel:     "gemini-2.5-flash",
			HelperMaxTokens: 1024,
		},
		Analysis: AnalysisConfig{
			ExcerptChars:    4000,
			FilingWorkers:   3,
			TransformTTL:    "720h",
			SelfTestTicker:  "AAPL",
			NewsLookbackDay: 7,
		},
		Batch: BatchConfig{
			Concurrency: 3,
			MaxRows:     500,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> .env -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env is optional; existing process variables are never overwritten
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKERLENS_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("TICKERLENS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TICKERLENS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("TICKERLENS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("TICKERLENS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage configuration
	if backend := os.Getenv("TICKERLENS_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = backend
	}
	if badgerPath := os.Getenv("TICKERLENS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if redisURL := os.Getenv("TICKERLENS_REDIS_URL"); redisURL != "" {
		config.Storage.Redis.URL = redisURL
	}
	if backend := os.Getenv("TICKERLENS_RESULTS_BACKEND"); backend != "" {
		config.Results.Backend = backend
	}
	if sqlitePath := os.Getenv("TICKERLENS_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}
	if dsn := os.Getenv("TICKERLENS_POSTGRES_DSN"); dsn != "" {
		config.Storage.Postgres.DSN = dsn
	}

	// Provider configuration
	if ua := os.Getenv("TICKERLENS_SEC_USER_AGENT"); ua != "" {
		config.SEC.UserAgent = ua
	}
	if model := os.Getenv("TICKERLENS_LLM_DEFAULT_MODEL"); model != "" {
		config.LLM.DefaultModel = model
	}
	if model := os.Getenv("TICKERLENS_LLM_HELPER_MODEL"); model != "" {
		config.LLM.HelperModel = model
	}

	// Batch configuration
	if concurrency := os.Getenv("TICKERLENS_BATCH_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Batch.Concurrency = c
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "badger", "redis", "memory":
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
	switch c.Results.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported results backend: %s", c.Results.Backend)
	}
	if c.Cache.SweepSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Cache.SweepSchedule); err != nil {
			return fmt.Errorf("invalid cache sweep schedule %q: %w", c.Cache.SweepSchedule, err)
		}
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	return nil
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → config fallback → error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":   {"TICKERLENS_EODHD_API_KEY", "EODHD_API_KEY"},
		"finnhub_api_key": {"TICKERLENS_FINNHUB_API_KEY", "FINNHUB_API_KEY"},
		"claude_api_key":  {"TICKERLENS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"gemini_api_key":  {"TICKERLENS_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"openai_api_key":  {"TICKERLENS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ParseDuration parses a config duration, returning fallback on empty or invalid input
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

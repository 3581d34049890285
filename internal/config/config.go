package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// CORS origins; "*" allows any origin.
	CORSAllowedOrigins []string

	// Gemini advice configuration. An empty key leaves the advisor unconfigured.
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	GeminiTimeout    time.Duration
	GeminiRetryCount int
	AdviceCacheSize  int
	AdviceCacheTTL   time.Duration

	// Event stream configuration. Enabled when KAFKA_BROKERS is set.
	EventsEnabled      bool
	KafkaBrokers       []string
	KafkaEventsTopic   string
	BatchSize          int
	BatchFlushInterval time.Duration
	EventBufferSize    int
}

// LoadDotEnv loads variables from the given .env files without overriding
// ones already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geminiTimeout, err := parsePositiveDuration("GEMINI_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("ADVICE_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	retryCount, err := parseNonNegativeInt("GEMINI_RETRY_COUNT", 1)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseNonNegativeInt("ADVICE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	bufferSize, err := parseNonNegativeInt("EVENT_BUFFER_SIZE", 1024)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); strings.TrimSpace(v) != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":5001"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
		GeminiTimeout:    geminiTimeout,
		GeminiRetryCount: retryCount,
		AdviceCacheSize:  cacheSize,
		AdviceCacheTTL:   cacheTTL,

		EventsEnabled:      len(brokers) > 0,
		KafkaBrokers:       brokers,
		KafkaEventsTopic:   sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "crop-advisor-events"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		EventBufferSize:    bufferSize,
	}

	if cfg.GeminiModel == "" {
		return nil, errors.New("GEMINI_MODEL must not be empty")
	}
	if cfg.EventsEnabled && cfg.KafkaEventsTopic == "" {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.EventsEnabled && cfg.EventBufferSize == 0 {
		return nil, errors.New("EVENT_BUFFER_SIZE must be positive when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

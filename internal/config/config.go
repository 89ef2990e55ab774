package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnv             = "development"
	defaultLogLevel        = "info"
	defaultEnvFile         = ".env"
	defaultHTTPHost        = "0.0.0.0"
	defaultHTTPPort        = 8080
	defaultRedisAddr       = "localhost:6379"
	defaultRedisDB         = 0
	defaultCacheTTLSeconds = 30
	defaultRegroupSize     = 25

	defaultTradesExchange     = "marketdata.trades"
	defaultOrderBooksExchange = "marketdata.orderbooks"
	defaultFundingExchange    = "marketdata.funding"
	defaultPrefetch           = 64
	defaultBatchSize          = 500
	defaultBatchTimeout       = 2 * time.Second
)

// Config keeps the runtime configuration for the API server.
type Config struct {
	Env      string
	LogLevel string
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	RabbitMQ RabbitMQConfig
	Regroup  RegroupConfig
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig stores cache behavior.
type CacheConfig struct {
	TTLSeconds int
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RabbitMQConfig describes the fanout exchanges shared by producer and
// consumer. An empty URL disables the broker.
type RabbitMQConfig struct {
	URL                string
	TradesExchange     string
	OrderBooksExchange string
	FundingExchange    string
	Prefetch           int
	BatchSize          int
	BatchTimeout       time.Duration
}

func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type RegroupConfig struct {
	Size int
}

// Load builds Config from environment variables, reading ENV_FILE (.env by
// default) first when it exists.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	host := getString("HTTP_HOST", defaultHTTPHost)
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_PORT: %w", err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	cacheTTL, err := getInt("CACHE_TTL_SECONDS", defaultCacheTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse CACHE_TTL_SECONDS: %w", err)
	}

	rabbit, err := loadRabbitMQ(os.Getenv("RABBITMQ_URL"))
	if err != nil {
		return nil, err
	}

	regroupSize, err := getInt("REGROUP_SIZE", defaultRegroupSize)
	if err != nil {
		return nil, fmt.Errorf("parse REGROUP_SIZE: %w", err)
	}
	if regroupSize <= 0 {
		return nil, fmt.Errorf("REGROUP_SIZE must be positive, got %d", regroupSize)
	}

	return &Config{
		Env:      getString("APP_ENV", defaultEnv),
		LogLevel: getString("LOG_LEVEL", defaultLogLevel),
		HTTP:     HTTPConfig{Host: host, Port: port},
		Postgres: PostgresConfig{
			DSN: dsn,
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", defaultRedisAddr),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Cache: CacheConfig{
			TTLSeconds: cacheTTL,
		},
		RabbitMQ: rabbit,
		Regroup:  RegroupConfig{Size: regroupSize},
	}, nil
}

func loadRabbitMQ(url string) (RabbitMQConfig, error) {
	prefetch, err := getInt("RABBITMQ_PREFETCH", defaultPrefetch)
	if err != nil {
		return RabbitMQConfig{}, fmt.Errorf("parse RABBITMQ_PREFETCH: %w", err)
	}
	batchSize, err := getInt("BATCH_SIZE", defaultBatchSize)
	if err != nil {
		return RabbitMQConfig{}, fmt.Errorf("parse BATCH_SIZE: %w", err)
	}
	batchTimeout, err := getDuration("BATCH_TIMEOUT", defaultBatchTimeout)
	if err != nil {
		return RabbitMQConfig{}, fmt.Errorf("parse BATCH_TIMEOUT: %w", err)
	}
	return RabbitMQConfig{
		URL:                url,
		TradesExchange:     getString("RABBITMQ_TRADES_EXCHANGE", defaultTradesExchange),
		OrderBooksExchange: getString("RABBITMQ_ORDERBOOKS_EXCHANGE", defaultOrderBooksExchange),
		FundingExchange:    getString("RABBITMQ_FUNDING_EXCHANGE", defaultFundingExchange),
		Prefetch:           prefetch,
		BatchSize:          batchSize,
		BatchTimeout:       batchTimeout,
	}, nil
}

func loadEnvFile() error {
	path := getString("ENV_FILE", defaultEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func getInt(key string, fallback int) (int, error) {
	value := getString(key, "")
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value := getString(key, "")
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to float: %w", key, value, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value := getString(key, "")
	if value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("convert %s value %q to bool: %w", key, value, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getString(key, "")
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to duration: %w", key, value, err)
	}
	return parsed, nil
}

// getList splits a comma separated value, dropping blanks and upper-casing
// each entry.
func getList(key string, fallback []string) []string {
	value := getString(key, "")
	if value == "" {
		return fallback
	}
	var res []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToUpper(strings.TrimSpace(item))
		if item != "" {
			res = append(res, item)
		}
	}
	return res
}

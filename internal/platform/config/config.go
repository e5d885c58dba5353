package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" default:"60m"`
	AuthRateLimit  float64       `env:"AUTH_RATE_LIMIT" default:"5"`

	ChainEndpoint      string        `env:"CHAIN_ENDPOINT" default:"wss://entrypoint-finney.opentensor.ai:443"`
	LedgerQueryTimeout time.Duration `env:"LEDGER_QUERY_TIMEOUT" default:"30s"`
	DividendCacheTTL   time.Duration `env:"DIVIDEND_CACHE_TTL" default:"120s"`
	FanoutMaxNetuid    int           `env:"FANOUT_MAX_NETUID" default:"50"`
	FanoutConcurrency  int           `env:"FANOUT_CONCURRENCY" default:"50"`

	DaturaAPIKey      string        `env:"DATURA_API_KEY"`
	DaturaBaseURL     string        `env:"DATURA_BASE_URL" default:"https://apis.datura.ai"`
	ChutesAPIKey      string        `env:"CHUTES_API_KEY"`
	ChutesBaseURL     string        `env:"CHUTES_BASE_URL" default:"https://llm.chutes.ai"`
	ChutesModel       string        `env:"CHUTES_MODEL" default:"unsloth/Llama-3.2-3B-Instruct"`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" default:"30s"`

	SentimentRefreshInterval time.Duration `env:"SENTIMENT_REFRESH_INTERVAL" default:"2h"`
	SentimentTextCount       int           `env:"SENTIMENT_TEXT_COUNT" default:"10"`
	SentimentWindowDays      int           `env:"SENTIMENT_WINDOW_DAYS" default:"7"`

	// Comma separated; empty disables the trading action stream.
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" default:"trading-actions"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// KafkaBrokerList splits KAFKA_BROKERS, dropping blanks.
func (c *Config) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"JWT_SECRET", cfg.JWTSecret},
		{"DATURA_API_KEY", cfg.DaturaAPIKey},
		{"CHUTES_API_KEY", cfg.ChutesAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if len(cfg.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}

	if cfg.FanoutMaxNetuid < 1 || cfg.FanoutMaxNetuid > 65535 {
		return fmt.Errorf("FANOUT_MAX_NETUID must be between 1 and 65535, got %d", cfg.FanoutMaxNetuid)
	}
	if cfg.FanoutConcurrency < 1 {
		return fmt.Errorf("FANOUT_CONCURRENCY must be positive, got %d", cfg.FanoutConcurrency)
	}
	if cfg.SentimentTextCount < 1 {
		return fmt.Errorf("SENTIMENT_TEXT_COUNT must be positive, got %d", cfg.SentimentTextCount)
	}
	if cfg.SentimentWindowDays < 1 {
		return fmt.Errorf("SENTIMENT_WINDOW_DAYS must be positive, got %d", cfg.SentimentWindowDays)
	}
	if cfg.SentimentRefreshInterval <= 0 {
		return errors.New("SENTIMENT_REFRESH_INTERVAL must be positive")
	}
	if cfg.DividendCacheTTL <= 0 {
		return errors.New("DIVIDEND_CACHE_TTL must be positive")
	}
	if cfg.LedgerQueryTimeout <= 0 {
		return errors.New("LEDGER_QUERY_TIMEOUT must be positive")
	}
	if cfg.HTTPClientTimeout <= 0 {
		return errors.New("HTTP_CLIENT_TIMEOUT must be positive")
	}

	if !strings.HasPrefix(cfg.ChainEndpoint, "ws://") && !strings.HasPrefix(cfg.ChainEndpoint, "wss://") {
		return fmt.Errorf("CHAIN_ENDPOINT must be a ws:// or wss:// URL, got %q", cfg.ChainEndpoint)
	}

	if cfg.AppEnv == "production" {
		mode := extractSSLMode(cfg.DatabaseURL)
		if mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func extractSSLMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}

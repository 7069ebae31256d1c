package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration.
// Nested sections are prefixed by their tag, e.g. DB_HOST, AI_PROVIDER, CHART_URL.
type Config struct {
	Database  DatabaseConfig  `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	AI        AIConfig        `envconfig:"AI"`
	Market    MarketConfig    `envconfig:"MARKET"`
	Chart     ChartConfig     `envconfig:"CHART"`
	News      NewsConfig      `envconfig:"NEWS"`
	Scheduler SchedulerConfig `envconfig:"SCHEDULER"`
	Telegram  TelegramConfig  `envconfig:"TELEGRAM"`
	Health    HealthConfig    `envconfig:"HEALTH"`
	Logging   LoggingConfig   `envconfig:"LOG"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host           string `envconfig:"HOST" default:"localhost"`
	Port           int    `envconfig:"PORT" default:"5432"`
	Name           string `envconfig:"NAME" default:"market_reporter"`
	User           string `envconfig:"USER" default:"postgres"`
	Password       string `envconfig:"PASSWORD"`
	SSLMode        string `envconfig:"SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"migrations"`
}

// RedisConfig represents redis connection parameters (lease + report cache)
type RedisConfig struct {
	Host     string        `envconfig:"HOST" default:"localhost"`
	Port     int           `envconfig:"PORT" default:"6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`
}

// AIConfig represents LLM provider configuration
type AIConfig struct {
	Provider    string        `envconfig:"PROVIDER" default:"openai"` // openai or claude
	APIKey      string        `envconfig:"API_KEY"`
	BaseURL     string        `envconfig:"BASE_URL"`
	Model       string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" default:"1000"`
	Temperature float32       `envconfig:"TEMPERATURE" default:"0.5"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

// MarketConfig represents market data endpoints
type MarketConfig struct {
	Symbol       string        `envconfig:"SYMBOL" default:"KRW-BTC"`
	TickerURL    string        `envconfig:"TICKER_URL" default:"https://api.upbit.com"`
	FearGreedURL string        `envconfig:"FEAR_GREED_URL" default:"https://api.alternative.me"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// ChartConfig represents chart capture parameters
type ChartConfig struct {
	URL         string        `envconfig:"URL" default:"https://upbit.com/full_chart?code=CRIX.UPBIT.KRW-BTC"`
	WaitFor     string        `envconfig:"WAIT_FOR" default:"#fullChartiq"`
	MediaDir    string        `envconfig:"MEDIA_DIR" default:"media"`
	MediaURL    string        `envconfig:"MEDIA_URL" default:"/media/"`
	Headless    bool          `envconfig:"HEADLESS" default:"true"`
	StepTimeout time.Duration `envconfig:"STEP_TIMEOUT" default:"30s"`
	Settle      time.Duration `envconfig:"SETTLE" default:"3s"`
}

// NewsConfig represents news crawling parameters
type NewsConfig struct {
	FeedURL    string        `envconfig:"FEED_URL" default:"https://news.google.com/rss/search"`
	Categories []string      `envconfig:"CATEGORIES" default:"Bitcoin,Altcoin"`
	Limit      int           `envconfig:"LIMIT" default:"10"`
	Language   string        `envconfig:"LANGUAGE" default:"en-US"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"15s"`
}

// SchedulerConfig represents report cadence
type SchedulerConfig struct {
	Cron       string        `envconfig:"CRON" default:"30 0,8,16 * * *"`
	Timezone   string        `envconfig:"TIMEZONE" default:"Asia/Seoul"`
	RunOnStart bool          `envconfig:"RUN_ON_START" default:"false"`
	LeaseKey   string        `envconfig:"LEASE_KEY" default:"generate_reports_lock"`
	LeaseTTL   time.Duration `envconfig:"LEASE_TTL" default:"1h"`
}

// TelegramConfig represents Telegram publishing configuration
type TelegramConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	BotToken string `envconfig:"BOT_TOKEN"`
	ChatID   int64  `envconfig:"CHAT_ID"`
}

// HealthConfig represents health server configuration
type HealthConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
	File  string `envconfig:"FILE" default:"logs/reporter.log"`
}

// Load reads configuration from .env (if present) and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "claude":
	default:
		return fmt.Errorf("unknown ai provider %q (want openai or claude)", c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai api key is required")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai max_tokens must be positive")
	}

	if c.Market.Symbol == "" {
		return fmt.Errorf("market symbol is required")
	}

	if c.News.Limit <= 0 {
		return fmt.Errorf("news limit must be positive")
	}
	if len(c.News.Categories) == 0 {
		return fmt.Errorf("at least one news category is required")
	}

	if c.Scheduler.LeaseTTL <= 0 {
		return fmt.Errorf("scheduler lease_ttl must be positive")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram chat_id is required when telegram is enabled")
		}
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns host:port for the redis client
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location returns the scheduler time zone (UTC when invalid)
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

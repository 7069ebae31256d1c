package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("NEWS_CATEGORIES", "Bitcoin,Altcoin,Ethereum")

	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "30 0,8,16 * * *", cfg.Scheduler.Cron)
	assert.Equal(t, time.Hour, cfg.Scheduler.LeaseTTL)
	assert.Equal(t, "generate_reports_lock", cfg.Scheduler.LeaseKey)
	assert.Equal(t, []string{"Bitcoin", "Altcoin", "Ethereum"}, cfg.News.Categories)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "Asia/Seoul", cfg.Scheduler.Location().String())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			AI:        AIConfig{Provider: "claude", APIKey: "k", MaxTokens: 1000},
			Market:    MarketConfig{Symbol: "KRW-BTC"},
			News:      NewsConfig{Limit: 10, Categories: []string{"Bitcoin"}},
			Scheduler: SchedulerConfig{LeaseTTL: time.Hour, Timezone: "UTC"},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.AI.Provider = "deepseek"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AI.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Telegram.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

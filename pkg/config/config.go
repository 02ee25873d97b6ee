package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"TradeRelay/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment" default:"production"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"` // empty => in-memory store
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"traderelay"`
	} `yaml:"redis"`
	Channels struct {
		Discord struct {
			WebhookURL   string `yaml:"webhook_url"`
			BuyImageURL  string `yaml:"buy_image_url"`
			SellImageURL string `yaml:"sell_image_url"`
		} `yaml:"discord"`
		Telegram struct {
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"channels"`
	Dispatch struct {
		MaxAttempts    int           `yaml:"max_attempts" default:"3"`
		BackoffBase    time.Duration `yaml:"backoff_base" default:"1s"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout" default:"10s"`
		BatchSize      int           `yaml:"batch_size" default:"10"`
		BatchDelay     time.Duration `yaml:"batch_delay" default:"1s"`
	} `yaml:"dispatch"`
	Trading struct {
		Timezone      string `yaml:"timezone" default:"America/New_York"`
		SymbolDisplay string `yaml:"symbol_display" default:"NQ|NAS100"`
		OpenMinute    int    `yaml:"open_minute" default:"574"` // 09:34
		CloseMinute   int    `yaml:"close_minute" default:"660"` // 11:00
		BiasRelease   string `yaml:"bias_release" default:"08:30"`
		WeekCloseDay  string `yaml:"week_close_day" default:"Friday"`
	} `yaml:"trading"`
	Sweeps struct {
		RetentionCron   string `yaml:"retention_cron" default:"0 0 3 * * *"`
		SettlementCron  string `yaml:"settlement_cron" default:"0 0 16 * * 1-5"`
		BiasReleaseCron string `yaml:"bias_release_cron" default:"0 30 8 * * 1-5"`
	} `yaml:"sweeps"`
	Retention struct {
		TradeMaxAge       time.Duration `yaml:"trade_max_age" default:"24h"`
		ArchiveMaxAge     time.Duration `yaml:"archive_max_age" default:"720h"` // 30 days
		MarkerMaxAge      time.Duration `yaml:"marker_max_age" default:"10s"`
		PendingBiasMaxAge time.Duration `yaml:"pending_bias_max_age" default:"24h"`
	} `yaml:"retention"`
	Duplicate struct {
		Window time.Duration `yaml:"window" default:"5s"`
	} `yaml:"duplicate"`
	Intake struct {
		RateLimit float64 `yaml:"rate_limit" default:"0"` // requests/sec per source, 0 disables
		RateBurst int     `yaml:"rate_burst" default:"10"`
	} `yaml:"intake"`
}

// Load reads and parses a YAML configuration file, applying struct defaults
// for anything the file leaves unset.
func Load(path string) (*Config, error) {
	var c Config

	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables, then validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Channels.Discord.WebhookURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Channels.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Channels.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Channels.Discord.WebhookURL == "" {
		return fmt.Errorf("channels.discord.webhook_url is required")
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("dispatch.max_attempts must be at least 1")
	}
	if c.Dispatch.BatchSize < 1 {
		return fmt.Errorf("dispatch.batch_size must be at least 1")
	}
	if c.Trading.OpenMinute < 0 || c.Trading.CloseMinute > 24*60-1 || c.Trading.OpenMinute > c.Trading.CloseMinute {
		return fmt.Errorf("trading window %d-%d is invalid", c.Trading.OpenMinute, c.Trading.CloseMinute)
	}
	if _, err := util.ParseClockMinute(c.Trading.BiasRelease); err != nil {
		return fmt.Errorf("trading.bias_release: %w", err)
	}
	if _, err := ParseWeekday(c.Trading.WeekCloseDay); err != nil {
		return fmt.Errorf("trading.week_close_day: %w", err)
	}
	return nil
}

// BiasReleaseMinute returns the bias release cutoff as minutes since local
// midnight. Validate must have accepted the config first.
func (c *Config) BiasReleaseMinute() int {
	m, _ := util.ParseClockMinute(c.Trading.BiasRelease)
	return m
}

// ParseWeekday converts a weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

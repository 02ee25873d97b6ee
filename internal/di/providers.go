package di

import (
	"fmt"
	"time"

	"TradeRelay/internal/domain/repository"
	"TradeRelay/internal/handler/api"
	"TradeRelay/internal/service/dispatch"
	"TradeRelay/internal/service/ratelimit"
	"TradeRelay/internal/usecase"
	"TradeRelay/pkg/config"
	xhttp "TradeRelay/pkg/http"
	"TradeRelay/pkg/kv"
	applogger "TradeRelay/pkg/logger"
	"TradeRelay/pkg/metrics"
	"TradeRelay/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLocation loads the trading timezone.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Trading.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Trading.Timezone, err)
	}
	return loc, nil
}

// ProvideStore creates the key-value store: Redis when an address is
// configured, in-memory otherwise. The in-memory store loses state on
// restart and is meant for local runs.
func ProvideStore(cfg *config.Config, l *applogger.Logger) (kv.Store, error) {
	if cfg.Redis.Addr == "" {
		l.Warn("no redis address configured, using in-memory store")
		return kv.NewMemory(), nil
	}
	return kv.NewRedis(
		kv.WithAddr(cfg.Redis.Addr),
		kv.WithAuth(cfg.Redis.Password, cfg.Redis.DB),
		kv.WithPrefix(cfg.Redis.Prefix),
	)
}

// ProvideChannels builds the notification channels. Discord is mandatory
// and primary; Telegram joins when configured.
func ProvideChannels(cfg *config.Config) []dispatch.Channel {
	channels := []dispatch.Channel{
		dispatch.NewDiscord(cfg.Channels.Discord.WebhookURL, nil),
	}
	if cfg.Channels.Telegram.BotToken != "" && cfg.Channels.Telegram.ChatID != "" {
		channels = append(channels, dispatch.NewTelegram(
			cfg.Channels.Telegram.BotToken,
			cfg.Channels.Telegram.ChatID,
			nil,
		))
	}
	return channels
}

// ProvideDispatcher creates the retrying dispatcher over the channels.
func ProvideDispatcher(channels []dispatch.Channel, m repository.Metrics, l *applogger.Logger, cfg *config.Config) repository.Dispatcher {
	return dispatch.New(channels, m, l,
		dispatch.WithMaxAttempts(cfg.Dispatch.MaxAttempts),
		dispatch.WithBackoffBase(cfg.Dispatch.BackoffBase),
		dispatch.WithAttemptTimeout(cfg.Dispatch.AttemptTimeout),
		dispatch.WithBatching(cfg.Dispatch.BatchSize, cfg.Dispatch.BatchDelay),
	)
}

// ProvideSuppressor creates the duplicate suppressor.
func ProvideSuppressor(store kv.Store, cfg *config.Config) *usecase.Suppressor {
	return usecase.NewSuppressor(store, cfg.Duplicate.Window)
}

// ProvideTracker creates the trade state engine.
func ProvideTracker(store kv.Store, loc *time.Location, l *applogger.Logger, m repository.Metrics, cfg *config.Config) *usecase.Tracker {
	return usecase.NewTracker(store, loc, cfg.Trading.OpenMinute, cfg.Trading.CloseMinute, l, m)
}

// ProvideBias creates the bias scheduler.
func ProvideBias(store kv.Store, disp repository.Dispatcher, loc *time.Location, l *applogger.Logger, cfg *config.Config) *usecase.Bias {
	return usecase.NewBias(store, disp, loc, cfg.BiasReleaseMinute(), l)
}

// ProvideSweeper creates the sweep scheduler. Validate accepted the weekday
// name already.
func ProvideSweeper(
	store kv.Store,
	tracker *usecase.Tracker,
	bias *usecase.Bias,
	disp repository.Dispatcher,
	m repository.Metrics,
	l *applogger.Logger,
	loc *time.Location,
	cfg *config.Config,
) *usecase.Sweeper {
	weekCloseDay, _ := config.ParseWeekday(cfg.Trading.WeekCloseDay)
	return usecase.NewSweeper(store, tracker, bias, disp, m, l, loc, weekCloseDay, usecase.RetentionPolicy{
		TradeMaxAge:       cfg.Retention.TradeMaxAge,
		ArchiveMaxAge:     cfg.Retention.ArchiveMaxAge,
		MarkerMaxAge:      cfg.Retention.MarkerMaxAge,
		PendingBiasMaxAge: cfg.Retention.PendingBiasMaxAge,
	})
}

// ProvideProcessor creates the signal pipeline.
func ProvideProcessor(
	suppressor *usecase.Suppressor,
	tracker *usecase.Tracker,
	bias *usecase.Bias,
	disp repository.Dispatcher,
	m repository.Metrics,
	l *applogger.Logger,
	loc *time.Location,
	cfg *config.Config,
) *usecase.Processor {
	return usecase.NewProcessor(
		suppressor, tracker, bias, disp, m, l, loc,
		cfg.Trading.SymbolDisplay,
		cfg.Channels.Discord.BuyImageURL,
		cfg.Channels.Discord.SellImageURL,
	)
}

// ProvideRateLimiter creates the intake rate limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Intake.RateLimit, cfg.Intake.RateBurst)
}

// ProvideHandler creates the API handler.
func ProvideHandler(p *usecase.Processor, limiter *ratelimit.Limiter, l *applogger.Logger) xhttp.Handler {
	return api.NewHandler(p, limiter, l)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store kv.Store,
	sweeper *usecase.Sweeper,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, store, sweeper, handler)
}

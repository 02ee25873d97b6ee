package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/pkg/kv"
	"TradeRelay/pkg/logger"
	"TradeRelay/pkg/util"
)

// biasSentWindow bounds the atomic sent-marker check. The marker key embeds
// the calendar date, so any marker younger than a day means today's bias
// already went out.
const biasSentWindow = 24 * time.Hour

// Bias defers opening-bias alerts received before the release cutoff to a
// fixed time of day, releasing at most one per calendar date. Flip alerts
// bypass the queue entirely.
type Bias struct {
	store        kv.Store
	disp         repository.Dispatcher
	loc          *time.Location
	cutoffMinute int
	logger       *logger.Logger
}

// NewBias creates the bias scheduler. cutoffMinute is the release time as
// minutes since local midnight.
func NewBias(store kv.Store, disp repository.Dispatcher, loc *time.Location, cutoffMinute int, l *logger.Logger) *Bias {
	return &Bias{
		store:        store,
		disp:         disp,
		loc:          loc,
		cutoffMinute: cutoffMinute,
		logger:       l,
	}
}

// Handle processes an inbound bias signal. Opening biases before the cutoff
// are queued; at or after the cutoff they are released immediately unless
// today's bias already went out. Flips always notify.
func (b *Bias) Handle(ctx context.Context, sig *models.Signal, now time.Time) (*models.Outcome, error) {
	if sig.Type == models.SignalBiasFlip {
		res := b.disp.Send(ctx, models.DeliveryMessage{Text: formatBias(sig, util.DisplayTime(sig.Time, b.loc))})
		return &models.Outcome{Status: models.StatusSuccess, Type: sig.Type, Delivery: &res}, nil
	}

	date := util.DateKey(now, b.loc)
	if util.MinuteOfDay(now, b.loc) < b.cutoffMinute {
		pending := models.PendingBias{
			Type:       sig.Type,
			Symbol:     sig.Symbol,
			Profile:    sig.Profile,
			SignalTime: sig.Time,
			ReceivedAt: now.UnixMilli(),
		}
		data, err := json.Marshal(&pending)
		if err != nil {
			return nil, fmt.Errorf("marshal pending bias: %w", err)
		}
		if err := b.store.Set(ctx, pendingBiasPrefix+date, data); err != nil {
			return nil, fmt.Errorf("queue bias: %w", err)
		}
		b.logger.Info("bias queued until release", logger.String("date", date))
		return &models.Outcome{Status: models.StatusQueued, Type: sig.Type}, nil
	}

	sent, err := b.markSent(ctx, date, now)
	if err != nil {
		return nil, err
	}
	if !sent {
		return models.Rejected(models.ReasonBiasAlreadySent, map[string]interface{}{"date": date}), nil
	}

	res := b.disp.Send(ctx, models.DeliveryMessage{Text: formatBias(sig, util.DisplayTime(sig.Time, b.loc))})
	return &models.Outcome{Status: models.StatusSuccess, Type: sig.Type, Delivery: &res}, nil
}

// Release is the sweep-triggered path, run once daily at the cutoff. It
// consumes today's pending bias if one exists. Safe to run twice: the
// second run finds nothing pending.
func (b *Bias) Release(ctx context.Context, now time.Time) (bool, error) {
	date := util.DateKey(now, b.loc)

	data, err := b.store.Get(ctx, pendingBiasPrefix+date)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pending bias: %w", err)
	}

	var pending models.PendingBias
	if err := json.Unmarshal(data, &pending); err != nil {
		return false, fmt.Errorf("decode pending bias: %w", err)
	}

	sent, err := b.markSent(ctx, date, now)
	if err != nil {
		return false, err
	}
	if sent {
		sig := &models.Signal{
			Type:    pending.Type,
			Symbol:  pending.Symbol,
			Profile: pending.Profile,
			Time:    pending.SignalTime,
		}
		b.disp.Send(ctx, models.DeliveryMessage{Text: formatBias(sig, util.DisplayTime(pending.SignalTime, b.loc))})
		b.logger.Info("queued bias released", logger.String("date", date))
	}

	if err := b.store.Delete(ctx, pendingBiasPrefix+date); err != nil {
		return sent, fmt.Errorf("clear pending bias: %w", err)
	}
	return sent, nil
}

// markSent atomically claims today's single release slot. Returns false if
// the slot was already taken.
func (b *Bias) markSent(ctx context.Context, date string, now time.Time) (bool, error) {
	dup, _, err := b.store.CheckAndMark(ctx, biasSentPrefix+date, now, biasSentWindow)
	if err != nil {
		return false, fmt.Errorf("bias sent marker: %w", err)
	}
	return !dup, nil
}

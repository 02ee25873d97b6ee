package usecase

import (
	"context"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/pkg/kv"
	"TradeRelay/pkg/logger"
)

// Window used by the tests, in UTC to keep them independent of tzdata:
// 09:34 to 11:00.
const (
	testOpenMinute  = 9*60 + 34
	testCloseMinute = 11 * 60
)

// tradingTime returns a weekday timestamp inside the test trading window.
func tradingTime() time.Time {
	return time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC) // Monday
}

// fakeDispatcher records every message instead of delivering it.
type fakeDispatcher struct {
	sent    []models.DeliveryMessage
	batches [][]string
	fail    bool
}

var _ repository.Dispatcher = (*fakeDispatcher)(nil)

func (d *fakeDispatcher) Send(_ context.Context, msg models.DeliveryMessage) models.DeliveryResult {
	d.sent = append(d.sent, msg)
	if d.fail {
		return models.DeliveryResult{Channel: "discord", Success: false, Attempts: 3, Error: "unavailable"}
	}
	return models.DeliveryResult{Channel: "discord", Success: true, Attempts: 1}
}

func (d *fakeDispatcher) SendBatches(ctx context.Context, header string, lines []string) []models.DeliveryResult {
	d.batches = append(d.batches, lines)
	return []models.DeliveryResult{d.Send(ctx, models.DeliveryMessage{Text: header})}
}

func newTestTracker(store kv.Store) *Tracker {
	return NewTracker(store, time.UTC, testOpenMinute, testCloseMinute, logger.Nop(), repository.NopMetrics{})
}

func longEntry(id string) *models.Signal {
	return &models.Signal{
		Type:    models.SignalLongEntry,
		Symbol:  "NQ1!",
		TF:      "5",
		TradeID: id,
		Time:    tradingTime(),
		Entry:   "100",
		SL:      "95",
		TP1:     "105",
		TP2:     "110",
	}
}

func shortEntry(id string) *models.Signal {
	sig := longEntry(id)
	sig.Type = models.SignalShortEntry
	sig.SL = "105"
	sig.TP1 = "95"
	sig.TP2 = "90"
	return sig
}

func exitSignal(id string, typ models.SignalType, price string) *models.Signal {
	return &models.Signal{
		Type:    typ,
		Symbol:  "NQ1!",
		TF:      "5",
		TradeID: id,
		Time:    tradingTime().Add(30 * time.Minute),
		Price:   price,
	}
}

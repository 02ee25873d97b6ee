package repository

import (
	"context"

	"TradeRelay/internal/domain/models"
)

// Dispatcher fans a logical notification out to the configured channels.
// The first configured channel is primary: the returned result is its
// result, secondary channels are best-effort.
type Dispatcher interface {
	Send(ctx context.Context, msg models.DeliveryMessage) models.DeliveryResult
	SendBatches(ctx context.Context, header string, lines []string) []models.DeliveryResult
}

// Metrics records operational counters. A nil-safe no-op implementation is
// acceptable anywhere a Metrics is consumed.
type Metrics interface {
	RecordSignal(signalType string)
	RecordRejection(reason string)
	RecordDelivery(channel, outcome string)
	RecordSweep(sweep, outcome string)
	SetLiveTrades(n int)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards all recordings; used in tests.
type NopMetrics struct{}

func (NopMetrics) RecordSignal(string)            {}
func (NopMetrics) RecordRejection(string)         {}
func (NopMetrics) RecordDelivery(string, string)  {}
func (NopMetrics) RecordSweep(string, string)     {}
func (NopMetrics) SetLiveTrades(int)              {}
func (NopMetrics) RecordLatency(string, float64)  {}

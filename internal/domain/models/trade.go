package models

import "time"

// Trade is the single globally-active position being tracked. At most one
// trade may be live (open or partially closed) at any time; the invariant is
// enforced by the store's atomic create-if-none-active primitive, never by a
// read-then-write in application code.
type Trade struct {
	Direction        Direction `json:"direction"`
	Symbol           string    `json:"symbol"`
	TF               string    `json:"tf,omitempty"`
	Entry            float64   `json:"entry"`
	SL               float64   `json:"sl"`
	TP1              float64   `json:"tp1"`
	TP2              float64   `json:"tp2"`
	StartTime        time.Time `json:"startTime"`
	LastUpdate       int64     `json:"lastUpdate"` // unix millis, drives retention
	PartialClosed    bool      `json:"partialClosed,omitempty"`
	PartialCloseType string    `json:"partialCloseType,omitempty"`
	PartialCloseTime int64     `json:"partialCloseTime,omitempty"`
	Closed           bool      `json:"closed,omitempty"`
}

// TradeSummary is the compact view returned on conflicts and by the health
// endpoint.
type TradeSummary struct {
	ID            string    `json:"id"`
	Direction     Direction `json:"direction"`
	Symbol        string    `json:"symbol"`
	TF            string    `json:"tf,omitempty"`
	Entry         float64   `json:"entry"`
	StartTime     time.Time `json:"startTime"`
	PartialClosed bool      `json:"partialClosed"`
}

// Summarize builds the compact view of a trade.
func (t *Trade) Summarize(id string) TradeSummary {
	return TradeSummary{
		ID:            id,
		Direction:     t.Direction,
		Symbol:        t.Symbol,
		TF:            t.TF,
		Entry:         t.Entry,
		StartTime:     t.StartTime,
		PartialClosed: t.PartialClosed,
	}
}

// ArchiveRecord is the immutable snapshot written when a trade closes.
// Created exactly once per closed trade, never mutated, and deleted only by
// the age-based retention sweep.
type ArchiveRecord struct {
	TradeID       string     `json:"tradeId"`
	Direction     Direction  `json:"direction"`
	Symbol        string     `json:"symbol"`
	TF            string     `json:"tf,omitempty"`
	Entry         float64    `json:"entry"`
	ExitType      SignalType `json:"exitType"`
	ExitPrice     float64    `json:"exitPrice"`
	Points        float64    `json:"points"`
	Win           bool       `json:"win"`
	PartialClosed bool       `json:"partialClosed"`
	StartTime     time.Time  `json:"startTime"`
	ArchivedAt    int64      `json:"archivedAt"` // unix millis
}

// PendingBias is a deferred opening-bias alert, keyed by calendar date and
// consumed exactly once by the release sweep.
type PendingBias struct {
	Type       SignalType `json:"type"`
	Symbol     string     `json:"symbol"`
	Profile    string     `json:"profile"`
	SignalTime time.Time  `json:"signalTime"`
	ReceivedAt int64      `json:"receivedAt"` // unix millis, drives retention
}

// PerformanceSummary aggregates archive records over a date range.
type PerformanceSummary struct {
	Label   string
	Wins    int
	Losses  int
	Points  float64
	Records []ArchiveRecord
}

// Trades returns the number of records included in the summary.
func (s *PerformanceSummary) Trades() int {
	return len(s.Records)
}

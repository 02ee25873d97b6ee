package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/pkg/kv"
	"TradeRelay/pkg/logger"
	"TradeRelay/pkg/util"
)

// Tracker owns the trade lifecycle: NONE -> OPEN -> PARTIAL -> CLOSED, with
// OPEN -> CLOSED allowed for a direct stop-out. It is the only writer of
// trade: and archive: records.
type Tracker struct {
	store       kv.Store
	loc         *time.Location
	openMinute  int
	closeMinute int
	logger      *logger.Logger
	metrics     repository.Metrics
}

// NewTracker creates the trade state engine.
func NewTracker(store kv.Store, loc *time.Location, openMinute, closeMinute int, l *logger.Logger, m repository.Metrics) *Tracker {
	return &Tracker{
		store:       store,
		loc:         loc,
		openMinute:  openMinute,
		closeMinute: closeMinute,
		logger:      l,
		metrics:     m,
	}
}

func tradeKey(id string) string {
	return tradePrefix + id
}

func archiveKey(date, id string) string {
	return fmt.Sprintf("%s%s:%s", archivePrefix, date, id)
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Open handles an entry signal. Preconditions: all four price fields are
// finite numbers, the signal time is inside the trading-hours window, and no
// other trade is live. The live-trade check and the create are one atomic
// store operation.
func (t *Tracker) Open(ctx context.Context, sig *models.Signal, now time.Time) (*models.Outcome, error) {
	entry, okE := parseFinite(sig.Entry)
	sl, okS := parseFinite(sig.SL)
	tp1, ok1 := parseFinite(sig.TP1)
	tp2, ok2 := parseFinite(sig.TP2)
	if !okE || !okS || !ok1 || !ok2 {
		return models.Rejected(models.ReasonInvalidPrices, map[string]interface{}{
			"entry": sig.Entry, "sl": sig.SL, "tp1": sig.TP1, "tp2": sig.TP2,
		}), nil
	}

	if sig.Time.IsZero() || !util.WithinWindow(sig.Time, t.loc, t.openMinute, t.closeMinute) {
		return models.Rejected(models.ReasonOutsideHours, map[string]interface{}{
			"time":   sig.Time,
			"window": fmt.Sprintf("%02d:%02d-%02d:%02d", t.openMinute/60, t.openMinute%60, t.closeMinute/60, t.closeMinute%60),
		}), nil
	}

	trade := models.Trade{
		Direction:  sig.Type.Direction(),
		Symbol:     sig.Symbol,
		TF:         sig.TF,
		Entry:      entry,
		SL:         sl,
		TP1:        tp1,
		TP2:        tp2,
		StartTime:  sig.Time,
		LastUpdate: now.UnixMilli(),
	}
	data, err := json.Marshal(&trade)
	if err != nil {
		return nil, fmt.Errorf("marshal trade: %w", err)
	}

	created, conflict, err := t.store.CreateIfNoneActive(ctx, tradePrefix, tradeKey(sig.TradeID), data)
	if err != nil {
		return nil, fmt.Errorf("create trade: %w", err)
	}
	if !created {
		details := map[string]interface{}{}
		var existing models.Trade
		if conflict != nil && json.Unmarshal(conflict.Value, &existing) == nil {
			details["activeTrade"] = existing.Summarize(strings.TrimPrefix(conflict.Key, tradePrefix))
		}
		return models.Rejected(models.ReasonActiveTrade, details), nil
	}

	t.logger.Info("trade opened",
		logger.String("tradeId", sig.TradeID),
		logger.String("direction", string(trade.Direction)),
		logger.Float64("entry", entry),
	)
	return &models.Outcome{Status: models.StatusSuccess, Type: sig.Type, TradeID: sig.TradeID}, nil
}

// Exit handles TP1/BE (partial) and TP2/SL (full) exit signals. An exit for
// an unknown trade id or with a mismatched direction is a rejection, never a
// silent no-op.
func (t *Tracker) Exit(ctx context.Context, sig *models.Signal, now time.Time) (*models.Outcome, error) {
	data, err := t.store.Get(ctx, tradeKey(sig.TradeID))
	if errors.Is(err, kv.ErrNotFound) {
		return models.Rejected(models.ReasonNoActiveTrade, map[string]interface{}{
			"tradeId": sig.TradeID, "type": sig.Type,
		}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load trade: %w", err)
	}

	var trade models.Trade
	if err := json.Unmarshal(data, &trade); err != nil {
		return nil, fmt.Errorf("decode trade %s: %w", sig.TradeID, err)
	}

	if dir := sig.Type.Direction(); dir != trade.Direction {
		return models.Rejected(models.ReasonWrongDirection, map[string]interface{}{
			"tradeId":        sig.TradeID,
			"signal":         dir,
			"tradeDirection": trade.Direction,
		}), nil
	}

	if sig.Type.IsPartialExit() {
		return t.partialClose(ctx, sig, &trade, now)
	}
	return t.fullClose(ctx, sig, &trade, now)
}

func (t *Tracker) partialClose(ctx context.Context, sig *models.Signal, trade *models.Trade, now time.Time) (*models.Outcome, error) {
	trade.PartialClosed = true
	trade.PartialCloseType = string(sig.Type)
	trade.PartialCloseTime = now.UnixMilli()
	trade.LastUpdate = now.UnixMilli()

	data, err := json.Marshal(trade)
	if err != nil {
		return nil, fmt.Errorf("marshal trade: %w", err)
	}
	if err := t.store.Set(ctx, tradeKey(sig.TradeID), data); err != nil {
		return nil, fmt.Errorf("update trade: %w", err)
	}

	t.logger.Info("trade partially closed",
		logger.String("tradeId", sig.TradeID),
		logger.String("type", string(sig.Type)),
	)
	return &models.Outcome{Status: models.StatusSuccess, Type: sig.Type, TradeID: sig.TradeID}, nil
}

func (t *Tracker) fullClose(ctx context.Context, sig *models.Signal, trade *models.Trade, now time.Time) (*models.Outcome, error) {
	exitPrice, ok := parseFinite(sig.Price)
	if !ok {
		return models.Rejected(models.ReasonInvalidExit, map[string]interface{}{
			"tradeId": sig.TradeID, "price": sig.Price,
		}), nil
	}

	points := exitPrice - trade.Entry
	if trade.Direction == models.DirectionShort {
		points = trade.Entry - exitPrice
	}
	// A target hit is always a win; a stop after partials were taken means
	// the stop sat at breakeven or better.
	win := sig.Type.IsTargetHit() || trade.PartialClosed

	rec := models.ArchiveRecord{
		TradeID:       sig.TradeID,
		Direction:     trade.Direction,
		Symbol:        trade.Symbol,
		TF:            trade.TF,
		Entry:         trade.Entry,
		ExitType:      sig.Type,
		ExitPrice:     exitPrice,
		Points:        points,
		Win:           win,
		PartialClosed: trade.PartialClosed,
		StartTime:     trade.StartTime,
		ArchivedAt:    now.UnixMilli(),
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("marshal archive: %w", err)
	}

	// Archive before delete: a crash between the two writes leaves a stray
	// live record for the retention sweep, never a lost archive.
	date := util.DateKey(now, t.loc)
	if err := t.store.Set(ctx, archiveKey(date, sig.TradeID), data); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	if err := t.store.Delete(ctx, tradeKey(sig.TradeID)); err != nil {
		return nil, fmt.Errorf("delete trade: %w", err)
	}

	t.logger.Info("trade closed",
		logger.String("tradeId", sig.TradeID),
		logger.String("type", string(sig.Type)),
		logger.Float64("points", points),
		logger.Bool("win", win),
	)
	return &models.Outcome{
		Status:  models.StatusSuccess,
		Type:    sig.Type,
		TradeID: sig.TradeID,
		Details: map[string]interface{}{"points": points, "win": win},
	}, nil
}

// Live returns summaries of all currently live trades.
func (t *Tracker) Live(ctx context.Context) ([]models.TradeSummary, error) {
	entries, err := t.store.Scan(ctx, tradePrefix)
	if err != nil {
		return nil, fmt.Errorf("scan trades: %w", err)
	}

	summaries := make([]models.TradeSummary, 0, len(entries))
	for _, e := range entries {
		var trade models.Trade
		if err := json.Unmarshal(e.Value, &trade); err != nil {
			t.logger.Warn("skipping undecodable trade record", logger.String("key", e.Key), logger.Error(err))
			continue
		}
		summaries = append(summaries, trade.Summarize(strings.TrimPrefix(e.Key, tradePrefix)))
	}
	t.metrics.SetLiveTrades(len(summaries))
	return summaries, nil
}

// DeleteLive removes a live trade without archiving. This is the settlement
// path for trades never resolved by an exit signal; it is distinct from the
// archive-then-delete close.
func (t *Tracker) DeleteLive(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, tradeKey(id)); err != nil {
		return fmt.Errorf("delete live trade %s: %w", id, err)
	}
	return nil
}

// Summary aggregates archive records with date keys in [from, to]
// inclusive. Date keys are YYYY-MM-DD so plain string comparison orders
// them correctly.
func (t *Tracker) Summary(ctx context.Context, label, from, to string) (*models.PerformanceSummary, error) {
	entries, err := t.store.Scan(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("scan archives: %w", err)
	}

	sum := &models.PerformanceSummary{Label: label}
	for _, e := range entries {
		rest := strings.TrimPrefix(e.Key, archivePrefix)
		date, _, ok := strings.Cut(rest, ":")
		if !ok || date < from || date > to {
			continue
		}
		var rec models.ArchiveRecord
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			t.logger.Warn("skipping undecodable archive record", logger.String("key", e.Key), logger.Error(err))
			continue
		}
		sum.Records = append(sum.Records, rec)
		sum.Points += rec.Points
		if rec.Win {
			sum.Wins++
		} else {
			sum.Losses++
		}
	}
	return sum, nil
}

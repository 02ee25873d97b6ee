package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/pkg/kv"
)

func TestOpenRejectsSecondTrade(t *testing.T) {
	store := kv.NewMemory()
	tr := newTestTracker(store)
	ctx := context.Background()
	now := tradingTime()

	out, err := tr.Open(ctx, longEntry("1"), now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out.Status != models.StatusSuccess {
		t.Fatalf("first open status = %q, want success (reason %q)", out.Status, out.Reason)
	}

	out, err = tr.Open(ctx, shortEntry("2"), now)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if out.Status != models.StatusRejected || out.Reason != models.ReasonActiveTrade {
		t.Fatalf("second open = %q/%q, want rejection for active trade", out.Status, out.Reason)
	}
	active, ok := out.Details["activeTrade"].(models.TradeSummary)
	if !ok {
		t.Fatal("rejection is missing the conflicting trade summary")
	}
	if active.ID != "1" {
		t.Errorf("conflicting trade id = %q, want 1", active.ID)
	}

	if _, err := store.Get(ctx, tradeKey("2")); !errors.Is(err, kv.ErrNotFound) {
		t.Error("rejected trade must not be stored")
	}
}

func TestOpenRejectsInvalidPrices(t *testing.T) {
	tr := newTestTracker(kv.NewMemory())

	for _, bad := range []string{"", "abc", "NaN", "Inf"} {
		sig := longEntry("1")
		sig.SL = bad
		out, err := tr.Open(context.Background(), sig, tradingTime())
		if err != nil {
			t.Fatalf("open with sl=%q: %v", bad, err)
		}
		if out.Reason != models.ReasonInvalidPrices {
			t.Errorf("sl=%q: reason = %q, want invalid prices", bad, out.Reason)
		}
	}
}

func TestOpenRejectsOutsideTradingHours(t *testing.T) {
	tr := newTestTracker(kv.NewMemory())

	cases := []struct {
		name string
		at   time.Time
	}{
		{"before open", time.Date(2025, 3, 10, 9, 33, 0, 0, time.UTC)},
		{"after close", time.Date(2025, 3, 10, 11, 1, 0, 0, time.UTC)},
		{"zero time", time.Time{}},
	}
	for _, tc := range cases {
		sig := longEntry("1")
		sig.Time = tc.at
		out, err := tr.Open(context.Background(), sig, tradingTime())
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if out.Reason != models.ReasonOutsideHours {
			t.Errorf("%s: reason = %q, want outside hours", tc.name, out.Reason)
		}
	}
}

func TestOpenAcceptsWindowBoundaries(t *testing.T) {
	for _, tc := range []struct {
		name string
		at   time.Time
	}{
		{"at open", time.Date(2025, 3, 10, 9, 34, 0, 0, time.UTC)},
		{"at close", time.Date(2025, 3, 10, 11, 0, 59, 0, time.UTC)},
	} {
		tr := newTestTracker(kv.NewMemory())
		sig := longEntry("1")
		sig.Time = tc.at
		out, err := tr.Open(context.Background(), sig, tc.at)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if out.Status != models.StatusSuccess {
			t.Errorf("%s: status = %q (reason %q), want success", tc.name, out.Status, out.Reason)
		}
	}
}

func TestExitWithoutActiveTrade(t *testing.T) {
	tr := newTestTracker(kv.NewMemory())

	out, err := tr.Exit(context.Background(), exitSignal("7", models.SignalLongTP2, "110"), tradingTime())
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if out.Reason != models.ReasonNoActiveTrade {
		t.Errorf("reason = %q, want no active trade", out.Reason)
	}
}

func TestExitWrongDirectionLeavesTradeUntouched(t *testing.T) {
	store := kv.NewMemory()
	tr := newTestTracker(store)
	ctx := context.Background()
	now := tradingTime()

	if _, err := tr.Open(ctx, longEntry("1"), now); err != nil {
		t.Fatalf("open: %v", err)
	}
	before, err := store.Get(ctx, tradeKey("1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	out, err := tr.Exit(ctx, exitSignal("1", models.SignalShortTP2, "90"), now)
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if out.Reason != models.ReasonWrongDirection {
		t.Fatalf("reason = %q, want wrong direction", out.Reason)
	}

	after, err := store.Get(ctx, tradeKey("1"))
	if err != nil {
		t.Fatalf("get after: %v", err)
	}
	if string(before) != string(after) {
		t.Error("rejected exit modified the stored trade")
	}
}

func TestPartialCloseKeepsTradeLive(t *testing.T) {
	store := kv.NewMemory()
	tr := newTestTracker(store)
	ctx := context.Background()
	now := tradingTime()

	if _, err := tr.Open(ctx, longEntry("1"), now); err != nil {
		t.Fatalf("open: %v", err)
	}
	out, err := tr.Exit(ctx, exitSignal("1", models.SignalLongTP1, "105"), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("partial exit: %v", err)
	}
	if out.Status != models.StatusSuccess {
		t.Fatalf("status = %q, want success", out.Status)
	}

	data, err := store.Get(ctx, tradeKey("1"))
	if err != nil {
		t.Fatal("trade must stay live after a partial close")
	}
	var trade models.Trade
	if err := json.Unmarshal(data, &trade); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !trade.PartialClosed {
		t.Error("partialClosed flag not set")
	}
	if trade.PartialCloseType != string(models.SignalLongTP1) {
		t.Errorf("partialCloseType = %q", trade.PartialCloseType)
	}
}

func TestFullClosePointsAndWin(t *testing.T) {
	cases := []struct {
		name       string
		entry      func(string) *models.Signal
		exitType   models.SignalType
		exitPrice  string
		partial    bool
		wantPoints float64
		wantWin    bool
	}{
		{"long target", longEntry, models.SignalLongTP2, "110", false, 10, true},
		{"short target", shortEntry, models.SignalShortTP2, "90", false, 10, true},
		{"long stop", longEntry, models.SignalLongSL, "95", false, -5, false},
		{"short stop", shortEntry, models.SignalShortSL, "105", false, -5, false},
		{"stop after partials", longEntry, models.SignalLongSL, "100", true, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := kv.NewMemory()
			tr := newTestTracker(store)
			ctx := context.Background()
			now := tradingTime()

			if _, err := tr.Open(ctx, tc.entry("1"), now); err != nil {
				t.Fatalf("open: %v", err)
			}
			if tc.partial {
				partialType := models.SignalLongTP1
				if tc.entry("1").Type == models.SignalShortEntry {
					partialType = models.SignalShortTP1
				}
				if _, err := tr.Exit(ctx, exitSignal("1", partialType, "105"), now); err != nil {
					t.Fatalf("partial: %v", err)
				}
			}

			out, err := tr.Exit(ctx, exitSignal("1", tc.exitType, tc.exitPrice), now)
			if err != nil {
				t.Fatalf("close: %v", err)
			}
			if out.Status != models.StatusSuccess {
				t.Fatalf("status = %q (reason %q)", out.Status, out.Reason)
			}
			if got := out.Details["points"].(float64); got != tc.wantPoints {
				t.Errorf("points = %v, want %v", got, tc.wantPoints)
			}
			if got := out.Details["win"].(bool); got != tc.wantWin {
				t.Errorf("win = %v, want %v", got, tc.wantWin)
			}

			if _, err := store.Get(ctx, tradeKey("1")); !errors.Is(err, kv.ErrNotFound) {
				t.Error("trade record must be deleted after full close")
			}
			archives, err := store.Scan(ctx, archivePrefix)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(archives) != 1 {
				t.Fatalf("got %d archive records, want 1", len(archives))
			}
		})
	}
}

func TestFullCloseRejectsUnparsableExitPrice(t *testing.T) {
	store := kv.NewMemory()
	tr := newTestTracker(store)
	ctx := context.Background()
	now := tradingTime()

	if _, err := tr.Open(ctx, longEntry("1"), now); err != nil {
		t.Fatalf("open: %v", err)
	}
	out, err := tr.Exit(ctx, exitSignal("1", models.SignalLongTP2, "oops"), now)
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if out.Reason != models.ReasonInvalidExit {
		t.Fatalf("reason = %q, want invalid exit", out.Reason)
	}
	if _, err := store.Get(ctx, tradeKey("1")); err != nil {
		t.Error("trade must survive a rejected close")
	}
}

func TestDeleteLiveSkipsArchive(t *testing.T) {
	store := kv.NewMemory()
	tr := newTestTracker(store)
	ctx := context.Background()

	if _, err := tr.Open(ctx, longEntry("1"), tradingTime()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := tr.DeleteLive(ctx, "1"); err != nil {
		t.Fatalf("delete live: %v", err)
	}

	if _, err := store.Get(ctx, tradeKey("1")); !errors.Is(err, kv.ErrNotFound) {
		t.Error("trade still present after force delete")
	}
	archives, _ := store.Scan(ctx, archivePrefix)
	if len(archives) != 0 {
		t.Error("force delete must not archive")
	}
}

func TestSummaryFiltersByDateRange(t *testing.T) {
	store := kv.NewMemory()
	tr := newTestTracker(store)
	ctx := context.Background()

	write := func(date, id string, points float64, win bool) {
		rec := models.ArchiveRecord{TradeID: id, Points: points, Win: win}
		data, _ := json.Marshal(&rec)
		if err := store.Set(ctx, archiveKey(date, id), data); err != nil {
			t.Fatalf("seed archive: %v", err)
		}
	}
	write("2025-03-09", "1", 5, true)
	write("2025-03-10", "2", 10, true)
	write("2025-03-10", "3", -4, false)
	write("2025-03-11", "4", 2, true)

	sum, err := tr.Summary(ctx, "Daily", "2025-03-10", "2025-03-10")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Trades() != 2 || sum.Wins != 1 || sum.Losses != 1 {
		t.Errorf("trades/wins/losses = %d/%d/%d, want 2/1/1", sum.Trades(), sum.Wins, sum.Losses)
	}
	if sum.Points != 6 {
		t.Errorf("points = %v, want 6", sum.Points)
	}

	week, err := tr.Summary(ctx, "Weekly", "2025-03-09", "2025-03-11")
	if err != nil {
		t.Fatalf("weekly summary: %v", err)
	}
	if week.Trades() != 4 {
		t.Errorf("weekly trades = %d, want 4", week.Trades())
	}
}

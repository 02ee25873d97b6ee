package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/pkg/kv"
	"TradeRelay/pkg/logger"
	"TradeRelay/pkg/util"
)

// RetentionPolicy holds the age limits applied by the retention sweep.
type RetentionPolicy struct {
	TradeMaxAge       time.Duration
	ArchiveMaxAge     time.Duration
	MarkerMaxAge      time.Duration
	PendingBiasMaxAge time.Duration
}

// Stale bias-sent markers are only meaningful on the day they were written;
// anything older than two days is garbage.
const biasSentMaxAge = 48 * time.Hour

// Sweeper runs the three time-triggered jobs: age-based retention,
// market-close settlement with summaries, and the daily bias release. Every
// job re-evaluates state from scratch, so an interrupted run is simply
// picked up by the next trigger.
type Sweeper struct {
	store        kv.Store
	tracker      *Tracker
	bias         *Bias
	disp         repository.Dispatcher
	metrics      repository.Metrics
	logger       *logger.Logger
	loc          *time.Location
	weekCloseDay time.Weekday
	policy       RetentionPolicy
	now          func() time.Time
}

// NewSweeper creates the sweep scheduler.
func NewSweeper(
	store kv.Store,
	tracker *Tracker,
	bias *Bias,
	disp repository.Dispatcher,
	m repository.Metrics,
	l *logger.Logger,
	loc *time.Location,
	weekCloseDay time.Weekday,
	policy RetentionPolicy,
) *Sweeper {
	return &Sweeper{
		store:        store,
		tracker:      tracker,
		bias:         bias,
		disp:         disp,
		metrics:      m,
		logger:       l,
		loc:          loc,
		weekCloseDay: weekCloseDay,
		policy:       policy,
		now:          time.Now,
	}
}

// RunRetention deletes records past their age limit: live trades, archive
// records, duplicate markers, and pending/sent bias records. Records within
// retention are never touched, however often the sweep runs.
func (s *Sweeper) RunRetention(ctx context.Context) error {
	now := s.now()
	deleted := 0

	deleted += s.sweepPrefix(ctx, now, tradePrefix, s.policy.TradeMaxAge, func(v []byte) int64 {
		var t models.Trade
		if json.Unmarshal(v, &t) != nil {
			return 0
		}
		return t.LastUpdate
	})
	deleted += s.sweepPrefix(ctx, now, archivePrefix, s.policy.ArchiveMaxAge, func(v []byte) int64 {
		var r models.ArchiveRecord
		if json.Unmarshal(v, &r) != nil {
			return 0
		}
		return r.ArchivedAt
	})
	deleted += s.sweepPrefix(ctx, now, markerPrefix, s.policy.MarkerMaxAge, func(v []byte) int64 {
		ms, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0
		}
		return ms
	})
	deleted += s.sweepPrefix(ctx, now, pendingBiasPrefix, s.policy.PendingBiasMaxAge, func(v []byte) int64 {
		var p models.PendingBias
		if json.Unmarshal(v, &p) != nil {
			return 0
		}
		return p.ReceivedAt
	})
	deleted += s.sweepPrefix(ctx, now, biasSentPrefix, biasSentMaxAge, func(v []byte) int64 {
		ms, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0
		}
		return ms
	})

	s.metrics.RecordSweep("retention", "ok")
	s.logger.Info("retention sweep finished", logger.Int("deleted", deleted))
	return nil
}

// sweepPrefix deletes entries under prefix whose timestamp (extracted by
// tsOf, unix millis) is older than maxAge. Entries with an unreadable
// timestamp are left alone for a human to inspect.
func (s *Sweeper) sweepPrefix(ctx context.Context, now time.Time, prefix string, maxAge time.Duration, tsOf func([]byte) int64) int {
	entries, err := s.store.Scan(ctx, prefix)
	if err != nil {
		s.logger.Error("retention scan failed", logger.String("prefix", prefix), logger.Error(err))
		s.metrics.RecordSweep("retention", "error")
		return 0
	}

	deleted := 0
	cutoff := now.UnixMilli() - maxAge.Milliseconds()
	for _, e := range entries {
		ts := tsOf(e.Value)
		if ts == 0 || ts > cutoff {
			continue
		}
		if err := s.store.Delete(ctx, e.Key); err != nil {
			s.logger.Error("retention delete failed", logger.String("key", e.Key), logger.Error(err))
			continue
		}
		deleted++
	}
	return deleted
}

// RunSettlement force-closes everything still live at market close, then
// emits the daily summary and, on the designated week-close day, the weekly
// one. Force-closed trades are deleted without archiving: they were never
// resolved by an exit signal.
func (s *Sweeper) RunSettlement(ctx context.Context) error {
	now := s.now()

	live, err := s.tracker.Live(ctx)
	if err != nil {
		s.metrics.RecordSweep("settlement", "error")
		return err
	}

	if len(live) > 0 {
		lines := make([]string, 0, len(live))
		for _, t := range live {
			lines = append(lines, formatForceCloseLine(t))
		}
		s.disp.SendBatches(ctx, forceCloseHeader, lines)

		for _, t := range live {
			if err := s.tracker.DeleteLive(ctx, t.ID); err != nil {
				s.logger.Error("force close failed", logger.String("tradeId", t.ID), logger.Error(err))
			}
		}
		s.logger.Info("force closed live trades at settlement", logger.Int("count", len(live)))
	}

	today := util.DateKey(now, s.loc)
	daily, err := s.tracker.Summary(ctx, "Daily Recap "+today, today, today)
	if err != nil {
		s.metrics.RecordSweep("settlement", "error")
		return err
	}
	s.disp.Send(ctx, models.DeliveryMessage{Text: formatSummary(daily)})

	if now.In(s.loc).Weekday() == s.weekCloseDay {
		monday, friday := util.WeekRange(now, s.loc)
		weekly, err := s.tracker.Summary(ctx, "Weekly Recap "+monday+" to "+friday, monday, friday)
		if err != nil {
			s.metrics.RecordSweep("settlement", "error")
			return err
		}
		s.disp.Send(ctx, models.DeliveryMessage{Text: formatSummary(weekly)})
	}

	s.metrics.RecordSweep("settlement", "ok")
	return nil
}

// RunBiasRelease releases today's queued opening bias, if any.
func (s *Sweeper) RunBiasRelease(ctx context.Context) error {
	released, err := s.bias.Release(ctx, s.now())
	if err != nil {
		s.metrics.RecordSweep("bias_release", "error")
		return err
	}
	s.metrics.RecordSweep("bias_release", "ok")
	if released {
		s.logger.Info("bias release sweep delivered queued bias")
	}
	return nil
}

// SetClock overrides the sweeper's clock; tests only.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

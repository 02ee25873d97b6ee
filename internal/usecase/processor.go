package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/pkg/logger"
	"TradeRelay/pkg/util"
)

// Processor runs the full signal pipeline: duplicate suppression, trade id
// validation, then routing by category to the trade engine, the bias
// scheduler, or a direct notification. Delivery happens after state changes
// commit, so a channel outage can never corrupt trade state.
type Processor struct {
	suppressor    *Suppressor
	tracker       *Tracker
	bias          *Bias
	disp          repository.Dispatcher
	metrics       repository.Metrics
	logger        *logger.Logger
	loc           *time.Location
	symbolDisplay string
	buyImage      string
	sellImage     string
	now           func() time.Time
}

// NewProcessor wires the pipeline.
func NewProcessor(
	suppressor *Suppressor,
	tracker *Tracker,
	bias *Bias,
	disp repository.Dispatcher,
	m repository.Metrics,
	l *logger.Logger,
	loc *time.Location,
	symbolDisplay, buyImage, sellImage string,
) *Processor {
	return &Processor{
		suppressor:    suppressor,
		tracker:       tracker,
		bias:          bias,
		disp:          disp,
		metrics:       m,
		logger:        l,
		loc:           loc,
		symbolDisplay: symbolDisplay,
		buyImage:      buyImage,
		sellImage:     sellImage,
		now:           time.Now,
	}
}

// Handle processes one inbound signal end to end. rawType is the original
// type string before normalization, kept for the unknown-type alert. The
// returned outcome always carries the current live-trade count; the error is
// reserved for store failures.
func (p *Processor) Handle(ctx context.Context, sig *models.Signal, rawType string) (*models.Outcome, error) {
	start := p.now()
	defer func() {
		p.metrics.RecordLatency("signal", p.now().Sub(start).Seconds())
	}()
	p.metrics.RecordSignal(string(sig.Type))

	now := p.now()
	if sig.TradeID == "" {
		sig.TradeID = models.GeneratedTradeID(now)
	}
	displayTime := util.DisplayTime(sig.Time, p.loc)

	dup, err := p.suppressor.CheckAndMark(ctx, sig.Fingerprint(displayTime), now)
	if err != nil {
		return nil, err
	}
	if dup {
		p.logger.Info("duplicate signal suppressed",
			logger.String("type", string(sig.Type)),
			logger.String("tradeId", sig.TradeID),
		)
		return p.finish(ctx, models.Rejected(models.ReasonDuplicate, map[string]interface{}{
			"window": p.suppressor.Window().String(),
		}))
	}

	category := sig.Type.Category()
	if (category == models.CategoryEntry || category == models.CategoryExit) && !models.ValidTradeID(sig.TradeID) {
		return p.finish(ctx, models.Rejected(models.ReasonInvalidTradeID, map[string]interface{}{
			"tradeId": sig.TradeID,
		}))
	}

	var outcome *models.Outcome
	switch category {
	case models.CategoryEntry:
		outcome, err = p.handleEntry(ctx, sig, now, displayTime)
	case models.CategoryExit:
		outcome, err = p.handleExit(ctx, sig, now, displayTime)
	case models.CategoryBias:
		outcome, err = p.bias.Handle(ctx, sig, now)
	case models.CategorySummary:
		outcome, err = p.handleSummary(ctx, now)
	default:
		outcome = p.notify(ctx, sig, models.DeliveryMessage{Text: formatUnknown(sig, rawType, displayTime)})
	}
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, outcome)
}

func (p *Processor) handleEntry(ctx context.Context, sig *models.Signal, now time.Time, displayTime string) (*models.Outcome, error) {
	outcome, err := p.tracker.Open(ctx, sig, now)
	if err != nil || outcome.Status != models.StatusSuccess {
		return outcome, err
	}

	image := p.buyImage
	if sig.Type.Direction() == models.DirectionShort {
		image = p.sellImage
	}
	return p.deliver(ctx, outcome, models.DeliveryMessage{
		Text:     formatEntry(sig, p.symbolDisplay, displayTime),
		ImageURL: image,
	}), nil
}

func (p *Processor) handleExit(ctx context.Context, sig *models.Signal, now time.Time, displayTime string) (*models.Outcome, error) {
	outcome, err := p.tracker.Exit(ctx, sig, now)
	if err != nil || outcome.Status != models.StatusSuccess {
		return outcome, err
	}
	return p.deliver(ctx, outcome, models.DeliveryMessage{Text: formatExit(sig, displayTime)}), nil
}

func (p *Processor) handleSummary(ctx context.Context, now time.Time) (*models.Outcome, error) {
	today := util.DateKey(now, p.loc)
	sum, err := p.tracker.Summary(ctx, "Daily Recap "+today, today, today)
	if err != nil {
		return nil, err
	}
	outcome := &models.Outcome{Status: models.StatusSuccess, Type: models.SignalSummary}
	return p.deliver(ctx, outcome, models.DeliveryMessage{Text: formatSummary(sum)}), nil
}

// notify sends a message for a signal that carries no state change and wraps
// the result in an outcome.
func (p *Processor) notify(ctx context.Context, sig *models.Signal, msg models.DeliveryMessage) *models.Outcome {
	outcome := &models.Outcome{Status: models.StatusSuccess, Type: sig.Type, TradeID: sig.TradeID}
	return p.deliver(ctx, outcome, msg)
}

// deliver attaches the dispatch result to a committed outcome. A failed
// delivery downgrades the outcome to error status so the caller can signal
// the sender to retry, but the state change it reports already happened.
func (p *Processor) deliver(ctx context.Context, outcome *models.Outcome, msg models.DeliveryMessage) *models.Outcome {
	res := p.disp.Send(ctx, msg)
	outcome.Delivery = &res
	if !res.Success {
		outcome.Status = models.StatusError
		outcome.Message = fmt.Sprintf("notification delivery failed on %s", res.Channel)
	}
	return outcome
}

// finish stamps the outcome with the live-trade count and records rejection
// metrics. A count lookup failure is logged, not fatal: the outcome itself
// is already decided.
func (p *Processor) finish(ctx context.Context, outcome *models.Outcome) (*models.Outcome, error) {
	if outcome.Status == models.StatusRejected {
		p.metrics.RecordRejection(outcome.Reason)
	}
	live, err := p.tracker.Live(ctx)
	if err != nil {
		p.logger.Warn("live trade count unavailable", logger.Error(err))
		return outcome, nil
	}
	outcome.ActiveTrades = len(live)
	return outcome, nil
}

// Health reports the live trades for the health endpoint.
func (p *Processor) Health(ctx context.Context) ([]models.TradeSummary, error) {
	return p.tracker.Live(ctx)
}

// SetClock overrides the processor's clock; tests only.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

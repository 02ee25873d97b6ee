package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradeRelay/internal/domain/models"
	"TradeRelay/internal/domain/repository"
	"TradeRelay/pkg/logger"
)

// Channel is one outbound notification target.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg models.DeliveryMessage) error
}

// StatusError is a non-2xx response from a channel endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// retryable reports whether a delivery error is worth another attempt.
// Rate limits and server-side failures are transient; other HTTP errors are
// terminal. Anything that never produced a status (network failure) retries.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == 429 || se.Status >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxAttempts sets the delivery attempts per channel.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) { d.maxAttempts = n }
}

// WithBackoffBase sets the first retry delay; each retry doubles it.
func WithBackoffBase(base time.Duration) Option {
	return func(d *Dispatcher) { d.backoffBase = base }
}

// WithAttemptTimeout bounds each individual delivery attempt.
func WithAttemptTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.attemptTimeout = t }
}

// WithBatching sets the batch size and inter-batch delay for SendBatches.
func WithBatching(size int, delay time.Duration) Option {
	return func(d *Dispatcher) {
		d.batchSize = size
		d.batchDelay = delay
	}
}

// Dispatcher fans messages out to all configured channels with bounded
// retries. The first channel is primary: its result is the one reported
// back, the rest are best-effort.
type Dispatcher struct {
	channels       []Channel
	maxAttempts    int
	backoffBase    time.Duration
	attemptTimeout time.Duration
	batchSize      int
	batchDelay     time.Duration
	metrics        repository.Metrics
	logger         *logger.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

var _ repository.Dispatcher = (*Dispatcher)(nil)

// New creates a dispatcher over the given channels. At least one channel is
// required; the first is primary.
func New(channels []Channel, m repository.Metrics, l *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels:       channels,
		maxAttempts:    3,
		backoffBase:    time.Second,
		attemptTimeout: 10 * time.Second,
		batchSize:      10,
		batchDelay:     time.Second,
		metrics:        m,
		logger:         l,
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Send delivers msg to every channel concurrently and returns the primary
// channel's result. With no channels configured the message is dropped and
// the result reports the failure.
func (d *Dispatcher) Send(ctx context.Context, msg models.DeliveryMessage) models.DeliveryResult {
	if len(d.channels) == 0 {
		d.logger.Error("no delivery channels configured, message dropped")
		return models.DeliveryResult{Error: "no delivery channels configured"}
	}

	results := make([]models.DeliveryResult, len(d.channels))

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			results[i] = d.sendOne(ctx, ch, msg)
		}(i, ch)
	}
	wg.Wait()

	return results[0]
}

// sendOne runs the retry loop for one channel. Backoff doubles per attempt
// starting from the base; a terminal error or a drained context stops early.
func (d *Dispatcher) sendOne(ctx context.Context, ch Channel, msg models.DeliveryMessage) models.DeliveryResult {
	res := models.DeliveryResult{Channel: ch.Name()}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		res.Attempts = attempt

		attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
		err := ch.Deliver(attemptCtx, msg)
		cancel()

		if err == nil {
			res.Success = true
			d.metrics.RecordDelivery(ch.Name(), "success")
			return res
		}
		lastErr = err

		if !retryable(err) || attempt == d.maxAttempts {
			break
		}
		d.logger.Warn("delivery attempt failed",
			logger.String("channel", ch.Name()),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if d.sleep(ctx, d.backoffBase<<(attempt-1)) != nil {
			break
		}
	}

	res.Error = lastErr.Error()
	d.metrics.RecordDelivery(ch.Name(), "failure")
	d.logger.Error("delivery failed",
		logger.String("channel", ch.Name()),
		logger.Int("attempts", res.Attempts),
		logger.Error(lastErr),
	)
	return res
}

// SendBatches splits lines into fixed-size batches, each sent as one message
// under the shared header, pausing between batches to stay under channel
// rate limits. Returns one primary result per batch.
func (d *Dispatcher) SendBatches(ctx context.Context, header string, lines []string) []models.DeliveryResult {
	if len(lines) == 0 {
		return nil
	}

	var results []models.DeliveryResult
	for start := 0; start < len(lines); start += d.batchSize {
		end := start + d.batchSize
		if end > len(lines) {
			end = len(lines)
		}

		if start > 0 {
			if d.sleep(ctx, d.batchDelay) != nil {
				break
			}
		}
		text := header + "\n\n" + strings.Join(lines[start:end], "\n")
		results = append(results, d.Send(ctx, models.DeliveryMessage{Text: text}))
	}
	return results
}

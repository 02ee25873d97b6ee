package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeRelay/pkg/kv"
)

// Key prefixes partition the shared store by owner. The trade engine owns
// trade: and archive:, the bias scheduler owns bias:*, the suppressor owns
// signal:. Ownership never overlaps.
const (
	tradePrefix       = "trade:"
	archivePrefix     = "archive:"
	markerPrefix      = "signal:"
	pendingBiasPrefix = "bias:pending:"
	biasSentPrefix    = "bias:sent:"
)

// Suppressor rejects rapid-fire duplicates of the same logical signal. The
// decision and the marker write happen in one atomic store operation, so two
// concurrent callers with the same fingerprint cannot both pass.
type Suppressor struct {
	store  kv.Store
	window time.Duration
}

// NewSuppressor creates a suppressor with the given duplicate window.
func NewSuppressor(store kv.Store, window time.Duration) *Suppressor {
	return &Suppressor{store: store, window: window}
}

// CheckAndMark reports whether fingerprint was already seen within the
// window. A fresh or expired fingerprint is marked with now and accepted.
func (s *Suppressor) CheckAndMark(ctx context.Context, fingerprint string, now time.Time) (bool, error) {
	dup, _, err := s.store.CheckAndMark(ctx, markerPrefix+fingerprint, now, s.window)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return dup, nil
}

// Window returns the configured suppression window.
func (s *Suppressor) Window() time.Duration {
	return s.window
}

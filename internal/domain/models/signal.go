package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignalType identifies the alert type emitted by the charting platform.
type SignalType string

const (
	SignalLongEntry  SignalType = "LONG_ENTRY"
	SignalShortEntry SignalType = "SHORT_ENTRY"
	SignalLongTP1    SignalType = "LONG_TP1"
	SignalShortTP1   SignalType = "SHORT_TP1"
	SignalLongBE     SignalType = "LONG_BE"
	SignalShortBE    SignalType = "SHORT_BE"
	SignalLongTP2    SignalType = "LONG_TP2"
	SignalShortTP2   SignalType = "SHORT_TP2"
	SignalLongSL     SignalType = "LONG_SL"
	SignalShortSL    SignalType = "SHORT_SL"
	SignalBiasOpen   SignalType = "BIAS_OPEN"
	SignalBiasFlip   SignalType = "BIAS_FLIP"
	SignalSummary    SignalType = "SUMMARY"
	SignalUnknown    SignalType = "UNKNOWN"
)

// Category groups signal types by the processing path they take.
type Category string

const (
	CategoryEntry   Category = "ENTRY"
	CategoryExit    Category = "EXIT"
	CategoryBias    Category = "BIAS"
	CategorySummary Category = "SUMMARY"
	CategoryUnknown Category = "UNKNOWN"
)

// Direction of a trade or exit signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = ""
)

// Signal is one inbound alert event. It is ephemeral: nothing beyond its
// duplicate marker survives processing.
type Signal struct {
	Type    SignalType
	Symbol  string
	TF      string
	TradeID string
	Time    time.Time
	Entry   string
	SL      string
	TP1     string
	TP2     string
	Price   string
	Profile string
}

// ParseSignalType normalizes a raw type string. Anything unrecognized maps
// to SignalUnknown so it can still be surfaced to operators.
func ParseSignalType(raw string) SignalType {
	switch t := SignalType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case SignalLongEntry, SignalShortEntry,
		SignalLongTP1, SignalShortTP1,
		SignalLongBE, SignalShortBE,
		SignalLongTP2, SignalShortTP2,
		SignalLongSL, SignalShortSL,
		SignalBiasOpen, SignalBiasFlip,
		SignalSummary:
		return t
	default:
		return SignalUnknown
	}
}

// Category returns the processing category for the signal type.
func (t SignalType) Category() Category {
	switch t {
	case SignalLongEntry, SignalShortEntry:
		return CategoryEntry
	case SignalLongTP1, SignalShortTP1, SignalLongBE, SignalShortBE,
		SignalLongTP2, SignalShortTP2, SignalLongSL, SignalShortSL:
		return CategoryExit
	case SignalBiasOpen, SignalBiasFlip:
		return CategoryBias
	case SignalSummary:
		return CategorySummary
	default:
		return CategoryUnknown
	}
}

// Direction returns LONG/SHORT for entry and exit types, empty otherwise.
func (t SignalType) Direction() Direction {
	s := string(t)
	switch {
	case strings.HasPrefix(s, "LONG_"):
		return DirectionLong
	case strings.HasPrefix(s, "SHORT_"):
		return DirectionShort
	default:
		return DirectionNone
	}
}

// IsPartialExit reports whether the type is a first-target or breakeven exit
// that keeps the trade live.
func (t SignalType) IsPartialExit() bool {
	switch t {
	case SignalLongTP1, SignalShortTP1, SignalLongBE, SignalShortBE:
		return true
	}
	return false
}

// IsFullExit reports whether the type closes the trade outright.
func (t SignalType) IsFullExit() bool {
	switch t {
	case SignalLongTP2, SignalShortTP2, SignalLongSL, SignalShortSL:
		return true
	}
	return false
}

// IsTargetHit reports whether the type represents a profit target being
// reached, which always classifies as a win on close.
func (t SignalType) IsTargetHit() bool {
	switch t {
	case SignalLongTP1, SignalShortTP1, SignalLongTP2, SignalShortTP2:
		return true
	}
	return false
}

// IsStopLoss reports whether the type is a stop-loss exit.
func (t SignalType) IsStopLoss() bool {
	return t == SignalLongSL || t == SignalShortSL
}

const generatedIDPrefix = "TRADE_"

// ValidTradeID accepts a positive integer (as emitted by the indicator) or
// a generated TRADE_<millis> fallback id.
func ValidTradeID(id string) bool {
	if strings.HasPrefix(id, generatedIDPrefix) {
		return true
	}
	n, err := strconv.Atoi(id)
	return err == nil && n > 0
}

// GeneratedTradeID builds a fallback id for signals that arrive without one.
func GeneratedTradeID(now time.Time) string {
	return fmt.Sprintf("%s%d", generatedIDPrefix, now.UnixMilli())
}

// Fingerprint derives the duplicate-detection key for a signal: type, trade
// id, the primary numeric field (entry for entries, price otherwise) and the
// display-formatted time. Structurally distinct signals that collide on all
// four components are treated as one logical signal.
func (s *Signal) Fingerprint(displayTime string) string {
	primary := s.Price
	if s.Type.Category() == CategoryEntry {
		primary = s.Entry
	}
	return fmt.Sprintf("%s_%s_%s_%s", s.Type, s.TradeID, primary, displayTime)
}

package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Entry is one key/value pair returned by a prefix scan.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the durable key-value contract the trade tracker is built on.
// Both atomic primitives must be linearizable with respect to a single
// tracking instance; they exist so that "no duplicate marker" and "no
// conflicting active trade" decisions never degrade into separate
// read-then-write calls.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Scan returns all entries whose key starts with prefix. Order is not
	// significant to correctness.
	Scan(ctx context.Context, prefix string) ([]Entry, error)

	// CheckAndMark atomically inspects the marker at key. If a marker exists
	// and now-marker < window it reports a duplicate without touching the
	// marker; otherwise it overwrites the marker with now. Times are unix
	// milliseconds.
	CheckAndMark(ctx context.Context, key string, now time.Time, window time.Duration) (duplicate bool, lastSeen int64, err error)

	// CreateIfNoneActive atomically scans prefix for a record not marked
	// closed; if none exists it writes value under key. On conflict it
	// returns the first active record found and writes nothing.
	CreateIfNoneActive(ctx context.Context, prefix, key string, value []byte) (created bool, conflict *Entry, err error)

	Close() error
}

// activeRecord is the minimal shape CreateIfNoneActive needs to decide
// whether a scanned record still counts as active.
type activeRecord struct {
	Closed bool `json:"closed"`
}

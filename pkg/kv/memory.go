package kv

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Memory implements Store with an in-process map guarded by a mutex. It is
// used by tests and by local runs without a Redis server; the mutex makes
// both atomic primitives trivially linearizable.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *Memory) Scan(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []Entry
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out := make([]byte, len(v))
			copy(out, v)
			entries = append(entries, Entry{Key: k, Value: out})
		}
	}
	// Deterministic order keeps callers and tests simple even though the
	// contract does not require it.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (m *Memory) CheckAndMark(_ context.Context, key string, now time.Time, window time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nowMs := now.UnixMilli()
	if v, ok := m.data[key]; ok {
		last, err := strconv.ParseInt(string(v), 10, 64)
		if err == nil && nowMs-last < window.Milliseconds() {
			return true, last, nil
		}
	}
	m.data[key] = []byte(strconv.FormatInt(nowMs, 10))
	return false, nowMs, nil
}

func (m *Memory) CreateIfNoneActive(_ context.Context, prefix, key string, value []byte) (bool, *Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		var rec activeRecord
		if err := json.Unmarshal(m.data[k], &rec); err != nil {
			continue
		}
		if !rec.Closed {
			out := make([]byte, len(m.data[k]))
			copy(out, m.data[k])
			return false, &Entry{Key: k, Value: out}, nil
		}
	}

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return true, nil, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

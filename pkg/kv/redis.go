package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis store configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	Prefix       string
}

// RedisOption configures the Redis store.
type RedisOption func(*RedisConfig)

// WithAddr sets the server address.
func WithAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

// WithAuth sets password and database.
func WithAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithPrefix sets the namespace prepended to every key.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// checkAndMarkScript implements the duplicate-marker primitive server-side
// so concurrent callers on the same fingerprint cannot interleave.
var checkAndMarkScript = redis.NewScript(`
local last = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if last and (now - tonumber(last)) < window then
  return {1, last}
end
redis.call('SET', KEYS[1], ARGV[1])
return {0, ARGV[1]}
`)

// createIfNoneActiveScript scans the live-trade prefix and creates the new
// record only when no non-closed record exists, in one atomic step.
var createIfNoneActiveScript = redis.NewScript(`
local ks = redis.call('KEYS', ARGV[1] .. '*')
for _, k in ipairs(ks) do
  local v = redis.call('GET', k)
  if v then
    local ok, rec = pcall(cjson.decode, v)
    if ok and not rec.closed then
      return {0, k, v}
    end
  end
end
redis.call('SET', KEYS[1], ARGV[2])
return {1, '', ''}
`)

// Redis implements Store on a Redis server. All keys are namespaced with a
// configurable prefix so several deployments can share one instance.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(opts ...RedisOption) (*Redis, error) {
	cfg := &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		Prefix:       "traderelay",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{client: client, prefix: cfg.Prefix}, nil
}

// Close closes the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *Redis) unwrapKey(key string) string {
	return strings.TrimPrefix(key, r.prefix+":")
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.wrapKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.wrapKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.wrapKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *Redis) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry
	var cursor uint64
	match := r.wrapKey(prefix) + "*"

	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range keys {
			data, err := r.client.Get(ctx, k).Bytes()
			if err == redis.Nil {
				continue // deleted between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("redis scan get %q: %w", k, err)
			}
			entries = append(entries, Entry{Key: r.unwrapKey(k), Value: data})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return entries, nil
}

func (r *Redis) CheckAndMark(ctx context.Context, key string, now time.Time, window time.Duration) (bool, int64, error) {
	res, err := checkAndMarkScript.Run(ctx, r.client,
		[]string{r.wrapKey(key)},
		now.UnixMilli(), window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis check-and-mark: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis check-and-mark: unexpected reply %v", res)
	}
	dup := toInt64(res[0]) == 1
	return dup, toInt64(res[1]), nil
}

func (r *Redis) CreateIfNoneActive(ctx context.Context, prefix, key string, value []byte) (bool, *Entry, error) {
	res, err := createIfNoneActiveScript.Run(ctx, r.client,
		[]string{r.wrapKey(key)},
		r.wrapKey(prefix), string(value),
	).Slice()
	if err != nil {
		return false, nil, fmt.Errorf("redis create-if-none-active: %w", err)
	}
	if len(res) != 3 {
		return false, nil, fmt.Errorf("redis create-if-none-active: unexpected reply %v", res)
	}
	if toInt64(res[0]) == 1 {
		return true, nil, nil
	}
	conflict := &Entry{
		Key:   r.unwrapKey(toString(res[1])),
		Value: []byte(toString(res[2])),
	}
	return false, conflict, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		var out int64
		fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

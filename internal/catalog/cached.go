package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yourorg/rals-widget/internal/refresh"
)

// Store is the key/value surface the cache needs; *redisx.Client
// satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, val string, ttl time.Duration) error
}

type CacheOptions struct {
	// TTL bounds how long a payload is kept at all.
	TTL time.Duration
	// StaleAfter is the age after which a hit triggers a background refresh.
	StaleAfter time.Duration
	Workers    int
	QueueSize  int
	Logger     *slog.Logger
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		URL        string    `json:"url"`
		LastFetch  time.Time `json:"last_fetch_at"`
		StaleAfter time.Time `json:"stale_after"`
	} `json:"meta"`
}

// Cached serves catalog payloads from a Store, refreshing stale entries in
// the background and fetching misses once per key at a time.
type Cached struct {
	src     Source
	store   Store
	opts    CacheOptions
	logger  *slog.Logger
	group   singleflight.Group
	refresh *refresh.Refresher[Request]
	now     func() time.Time
}

func NewCached(src Source, store Store, opts CacheOptions) *Cached {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.StaleAfter <= 0 || opts.StaleAfter > opts.TTL {
		opts.StaleAfter = min(5*time.Minute, opts.TTL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Cached{src: src, store: store, opts: opts, logger: logger, now: time.Now}
	c.refresh = refresh.New(opts.QueueSize, opts.Workers, 15*time.Second, func(ctx context.Context, j refresh.Job[Request]) {
		if _, err := c.fetchAndStore(ctx, j.Key, j.Payload); err != nil {
			c.logger.Warn("catalog refresh failed", "key", j.Key, "error", err)
		}
	})
	return c
}

// Close waits for pending refreshes.
func (c *Cached) Close() { c.refresh.Close() }

// Key is the store key of a request.
func Key(req Request) (string, error) {
	u, err := req.URL()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(u))
	return "catalog:search:" + hex.EncodeToString(sum[:]), nil
}

func (c *Cached) Fetch(ctx context.Context, req Request) ([]byte, error) {
	key, err := Key(req)
	if err != nil {
		return nil, err
	}
	if val, err := c.store.Get(ctx, key); err == nil && val != "" {
		var env envelope
		if err := json.Unmarshal([]byte(val), &env); err == nil && len(env.Data) > 0 {
			if c.now().After(env.Meta.StaleAfter) {
				c.refresh.Enqueue(refresh.Job[Request]{Key: key, Payload: req})
			}
			return env.Data, nil
		}
		c.logger.Warn("catalog cache entry unreadable", "key", key)
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetchAndStore(ctx, key, req)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cached) fetchAndStore(ctx context.Context, key string, req Request) ([]byte, error) {
	data, err := c.src.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		// not cacheable; the caller reports the decode failure
		return data, nil
	}
	var env envelope
	env.Data = data
	env.Meta.URL, _ = req.URL()
	env.Meta.LastFetch = c.now()
	env.Meta.StaleAfter = env.Meta.LastFetch.Add(c.opts.StaleAfter)
	b, err := json.Marshal(env)
	if err != nil {
		return data, nil
	}
	if err := c.store.Set(ctx, key, string(b), c.opts.TTL); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
	return data, nil
}

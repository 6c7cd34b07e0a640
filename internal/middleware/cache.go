package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// DefaultCacheTTL is how long a fetched issue is served from the cache.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "links/"

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Path is the badger directory. Empty keeps the cache in memory.
	Path string
	// TTL bounds the age of a cached entry. Badger expires entries with
	// second granularity.
	TTL time.Duration
	// Logger receives badger's own log output. Nil silences it.
	Logger *slog.Logger
}

// Cache memoizes successful fetches in a badger database. Failures are
// never cached.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	log *slog.Logger
}

// NewCache opens the cache database described by cfg.
func NewCache(cfg CacheConfig) (*Cache, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{db: db, ttl: ttl, log: log}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Decorator returns a Decorator serving fetches from the cache.
func (c *Cache) Decorator() Decorator {
	return func(next traverse.Fetcher) traverse.Fetcher {
		return traverse.FetcherFunc(func(ctx context.Context, key string) (*traverse.RawLinks, error) {
			if raw, ok := c.get(key); ok {
				cacheHits.Inc()
				return raw, nil
			}
			cacheMisses.Inc()

			raw, err := next.FetchLinks(ctx, key)
			if err != nil {
				return nil, err
			}
			if raw != nil {
				if err := c.put(key, raw); err != nil {
					c.log.Warn("caching fetch result", "key", key, "err", err)
				}
			}
			return raw, nil
		})
	}
}

// Invalidate drops the cached entry for key, if any.
func (c *Cache) Invalidate(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cacheKeyPrefix + key))
	})
}

// Purge drops every cached entry.
func (c *Cache) Purge() error {
	return c.db.DropPrefix([]byte(cacheKeyPrefix))
}

func (c *Cache) get(key string) (*traverse.RawLinks, bool) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Warn("reading cache", "key", key, "err", err)
		}
		return nil, false
	}

	var raw traverse.RawLinks
	if err := json.Unmarshal(data, &raw); err != nil {
		c.log.Warn("decoding cached entry", "key", key, "err", err)
		return nil, false
	}
	return &raw, true
}

func (c *Cache) put(key string, raw *traverse.RawLinks) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cacheKeyPrefix+key), data).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

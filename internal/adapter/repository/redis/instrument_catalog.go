package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase"
)

const (
	// DefaultInstrumentTTL bounds how stale a cached catalog entry may be.
	DefaultInstrumentTTL = 5 * time.Minute

	availableInstrumentsKey = "instruments:available"
)

// CachedInstrumentCatalog is a read-through Redis cache in front of the
// instrument catalog. Cache failures fall back to the underlying catalog.
type CachedInstrumentCatalog struct {
	next    usecase.InstrumentCatalog
	cache   *Cache
	metrics *metrics.Metrics
	logger  zerolog.Logger
	ttl     time.Duration
}

// NewCachedInstrumentCatalog wraps next with a Redis cache.
func NewCachedInstrumentCatalog(next usecase.InstrumentCatalog, cache *Cache, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *CachedInstrumentCatalog {
	if ttl <= 0 {
		ttl = DefaultInstrumentTTL
	}
	return &CachedInstrumentCatalog{
		next:    next,
		cache:   cache,
		metrics: m,
		logger:  logger.With().Str("component", "instrument_cache").Logger(),
		ttl:     ttl,
	}
}

// GetByID returns the instrument, reading through the cache.
func (c *CachedInstrumentCatalog) GetByID(ctx context.Context, id string) (*domain.Instrument, error) {
	key := "instrument:" + id

	var instrument domain.Instrument
	if c.lookup(ctx, key, &instrument) {
		return &instrument, nil
	}

	found, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, found)
	return found, nil
}

// ListAvailable returns the open instruments, reading through the cache.
func (c *CachedInstrumentCatalog) ListAvailable(ctx context.Context) ([]*domain.Instrument, error) {
	var instruments []*domain.Instrument
	if c.lookup(ctx, availableInstrumentsKey, &instruments) {
		return instruments, nil
	}

	found, err := c.next.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, availableInstrumentsKey, found)
	return found, nil
}

// Invalidate drops the cached entries for the given instrument IDs and the
// available list.
func (c *CachedInstrumentCatalog) Invalidate(ctx context.Context, ids ...string) error {
	keys := []string{availableInstrumentsKey}
	for _, id := range ids {
		keys = append(keys, "instrument:"+id)
	}
	return c.cache.Delete(ctx, keys...)
}

func (c *CachedInstrumentCatalog) lookup(ctx context.Context, key string, dest any) bool {
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, dest); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
			c.record("error")
			return false
		}
		c.record("hit")
		return true
	case errors.Is(err, redis.Nil):
		c.record("miss")
	default:
		c.logger.Warn().Err(err).Str("key", key).Msg("instrument cache unavailable")
		c.record("error")
	}
	return false
}

func (c *CachedInstrumentCatalog) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to populate instrument cache")
	}
}

func (c *CachedInstrumentCatalog) record(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

package servicecontrol

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/observability"
)

// CheckCache stores check decisions in Redis so repeated calls with the
// same key skip the remote round trip until the entry expires.
type CheckCache struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	logger  observability.Logger
	metrics *Metrics
}

// NewCheckCache connects to the configured Redis server.
func NewCheckCache(cfg *config.CheckCacheConfig, logger observability.Logger) (*CheckCache, error) {
	if cfg == nil || cfg.RedisURL == "" {
		return nil, errors.New("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	c := NewCheckCacheFromClient(client, cfg.TTL.OrDefault(config.DefaultCheckCacheTTL), cfg.KeyPrefix, logger)
	c.logger.Info("check cache initialized",
		observability.String("keyPrefix", c.prefix),
		observability.Duration("ttl", c.ttl))
	return c, nil
}

// NewCheckCacheFromClient wraps an existing Redis client.
func NewCheckCacheFromClient(
	client *redis.Client, ttl time.Duration, prefix string, logger observability.Logger,
) *CheckCache {
	if prefix == "" {
		prefix = config.DefaultCheckCachePrefix
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CheckCache{
		client:  client,
		ttl:     ttl,
		prefix:  prefix,
		logger:  logger,
		metrics: GetSharedMetrics(),
	}
}

// checkCacheKey hashes the fields a decision depends on. The client IP is
// left out so one consumer shares an entry across addresses.
func (c *CheckCache) checkCacheKey(info CheckRequestInfo) string {
	h := sha256.New()
	for _, part := range []string{info.ServiceName, info.OperationName, info.APIKey, info.ProducerProjectID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached decision for info. Redis failures are logged and
// reported as a miss.
func (c *CheckCache) Get(ctx context.Context, info CheckRequestInfo) (CheckResponseInfo, bool) {
	var resp CheckResponseInfo

	data, err := c.client.Get(ctx, c.checkCacheKey(info)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("check cache get failed", observability.Error(err))
		}
		c.metrics.cacheLookups.WithLabelValues(cacheMiss).Inc()
		return resp, false
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("check cache entry is corrupt", observability.Error(err))
		c.metrics.cacheLookups.WithLabelValues(cacheMiss).Inc()
		return resp, false
	}

	c.metrics.cacheLookups.WithLabelValues(cacheHit).Inc()
	return resp, true
}

// Set stores the decision for info.
func (c *CheckCache) Set(ctx context.Context, info CheckRequestInfo, resp CheckResponseInfo) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("check cache marshal failed", observability.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.checkCacheKey(info), data, c.ttl).Err(); err != nil {
		c.logger.Warn("check cache set failed", observability.Error(err))
	}
}

// Ping checks that Redis is reachable.
func (c *CheckCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *CheckCache) Close() error {
	return c.client.Close()
}

package explainer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajharbinger/tender-eligibility/internal/logger"
)

const cacheKeyPrefix = "explanation:"

// CachedExplainer serves repeated requests from Redis. Cache failures are
// logged and never fail the explanation.
type CachedExplainer struct {
	next   Explainer
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCached wraps next with a Redis cache
func NewCached(next Explainer, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedExplainer {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedExplainer{next: next, client: client, ttl: ttl, logger: log}
}

// CacheKey derives the cache key from the request contents
func CacheKey(req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}

// Explain returns the cached explanation or generates and stores a new one
func (c *CachedExplainer) Explain(ctx context.Context, req Request) (*Explanation, error) {
	key, err := CacheKey(req)
	if err != nil || c.client == nil {
		return c.next.Explain(ctx, req)
	}

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var exp Explanation
		if err := json.Unmarshal(cached, &exp); err == nil {
			c.logger.Debug("explanation cache hit", map[string]interface{}{"key": key})
			return &exp, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("explanation cache read failed", map[string]interface{}{"error": err.Error()})
	}

	exp, err := c.next.Explain(ctx, req)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(exp); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("explanation cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return exp, nil
}

// NewRedisClient connects to the Redis instance at url
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// HealthCheck pings the cache
func (c *CachedExplainer) HealthCheck() error {
	if c.client == nil {
		return errors.New("explanation cache is not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

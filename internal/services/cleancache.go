package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/glancehq/glance-backend/internal/clients/redis"
	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

const cacheKeyPrefix = "ocr:"

// CleanCache fronts the Cleaner with a content-addressed store so the same
// raw capture is never cleaned twice within the TTL window. The cache is
// strictly optional: with no KV, or a failing one, every lookup is a miss
// and nothing is stored.
type CleanCache struct {
	log     *logger.Logger
	kv      redis.KV
	cleaner Cleaner
	ttl     time.Duration
}

func NewCleanCache(log *logger.Logger, kv redis.KV, cleaner Cleaner) *CleanCache {
	ttl := utils.GetEnvAsSeconds("CACHE_TTL_SECONDS", 600, log)
	return &CleanCache{
		log:     log.With("service", "CleanCache"),
		kv:      kv,
		cleaner: cleaner,
		ttl:     ttl,
	}
}

// CacheKey derives the storage key for a raw capture text. Identical bytes
// map to the identical key regardless of which app produced them.
func CacheKey(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cleaned form of the capture, from cache when a
// valid entry exists, otherwise by calling the cleaner. A cleaner response
// that fails to parse degrades to a passthrough fallback that is never
// cached. Cache failures degrade to misses.
func (c *CleanCache) GetOrCompute(ctx context.Context, capture types.Capture) (types.CleanedCapture, error) {
	key := CacheKey(capture.Text)

	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	raw, err := c.cleaner.Clean(ctx, capture)
	if err != nil {
		return types.CleanedCapture{}, err
	}

	var cleaned types.CleanedCapture
	if err := utils.DecodeLLMJSON(raw, &cleaned); err != nil || !cleaned.Valid() {
		c.log.Warn("Cleaner output unusable, passing raw text through",
			"key", key,
			"parse_ok", err == nil,
		)
		return types.CleanedCapture{
			CleanedText: capture.Text,
			Topic:       "unrecognised",
		}, nil
	}

	c.store(ctx, key, cleaned)
	return cleaned, nil
}

// Flush removes every cleaning entry. Other keyspaces in the same redis
// instance are untouched.
func (c *CleanCache) Flush(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	keys, err := c.kv.Keys(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.kv.Del(ctx, keys...)
}

func (c *CleanCache) lookup(ctx context.Context, key string) (types.CleanedCapture, bool) {
	if c.kv == nil {
		return types.CleanedCapture{}, false
	}

	val, found, err := c.kv.Get(ctx, key)
	if err != nil {
		c.log.Warn("Cache read failed, treating as miss", "key", key, "error", err.Error())
		return types.CleanedCapture{}, false
	}
	if !found {
		return types.CleanedCapture{}, false
	}

	var cleaned types.CleanedCapture
	if err := json.Unmarshal([]byte(val), &cleaned); err != nil || !cleaned.Valid() {
		c.log.Warn("Corrupt cache entry, deleting", "key", key)
		if delErr := c.kv.Del(ctx, key); delErr != nil {
			c.log.Warn("Failed to delete corrupt cache entry", "key", key, "error", delErr.Error())
		}
		return types.CleanedCapture{}, false
	}
	return cleaned, true
}

func (c *CleanCache) store(ctx context.Context, key string, cleaned types.CleanedCapture) {
	if c.kv == nil {
		return
	}
	payload, err := json.Marshal(cleaned)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, key, string(payload), c.ttl); err != nil {
		c.log.Warn("Cache write failed, result served uncached", "key", key, "error", err.Error())
	}
}

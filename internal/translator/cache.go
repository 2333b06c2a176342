package translator

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/intent"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultCacheTTL = 10 * time.Minute

// CachedTranslator is a read-through Redis cache in front of another
// Translator. Only successfully decoded intents are cached; a Redis outage
// degrades to calling the inner translator.
type CachedTranslator struct {
	next      Translator
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    logger.ZapLogger
}

// NewCachedTranslator keys entries by namespace (usually the model name) so
// switching models does not serve stale answers.
func NewCachedTranslator(next Translator, client *redis.Client, namespace string, ttl time.Duration, log logger.ZapLogger) *CachedTranslator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedTranslator{next: next, client: client, namespace: namespace, ttl: ttl, logger: log}
}

func (c *CachedTranslator) Translate(ctx context.Context, prompt string) (*model.Intent, error) {
	key := c.cacheKey(prompt)

	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if in, derr := intent.Decode(val); derr == nil {
			c.logger.Debug("Intent cache hit", zap.String("key", key))
			return in, nil
		}
		c.client.Del(ctx, key)
	case err != redis.Nil:
		c.logger.Warn("Intent cache unavailable", zap.Error(err))
	}

	in, err := c.next.Translate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(in); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache intent", zap.Error(err))
		}
	}
	return in, nil
}

func (c *CachedTranslator) cacheKey(prompt string) string {
	return fmt.Sprintf("wms:intent:%s:%x", c.namespace, md5.Sum([]byte(prompt)))
}

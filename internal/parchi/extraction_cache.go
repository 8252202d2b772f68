package parchi

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultExtractTTL = 15 * time.Minute

// ExtractionCache memoizes vision output keyed by image digest so a
// re-upload of the same photo skips the vision call. A nil cache is a
// valid no-op, used when Redis is not configured.
type ExtractionCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewExtractionCache wraps a Redis client as an extraction cache.
func NewExtractionCache(client *redis.Client, ttl time.Duration) *ExtractionCache {
	if client == nil {
		panic("parchi: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultExtractTTL
	}
	return &ExtractionCache{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("parchi.internal.extraction_cache"),
	}
}

// Get returns the cached transcription for an image. A miss is not an
// error; the bool reports whether a value was found.
func (c *ExtractionCache) Get(ctx context.Context, image []byte) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}

	ctx, span := c.tracer.Start(ctx, "parchi.extract_cache.get")
	defer span.End()

	text, err := c.redis.Get(ctx, extractKey(image)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, fmt.Errorf("parchi: extraction cache read failed: %w", err)
	}
	return text, true, nil
}

// Put stores a transcription for an image until the TTL lapses.
func (c *ExtractionCache) Put(ctx context.Context, image []byte, rawText string) error {
	if c == nil {
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "parchi.extract_cache.put")
	defer span.End()

	if err := c.redis.Set(ctx, extractKey(image), rawText, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("parchi: extraction cache write failed: %w", err)
	}
	return nil
}

func extractKey(image []byte) string {
	return fmt.Sprintf("parchi:extract:%x", sha256.Sum256(image))
}

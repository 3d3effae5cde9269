package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edupulse/arena/internal/domain"
)

const defaultCacheTTL = 2 * time.Minute

// CachedSource puts a short-lived redis cache in front of another Source, so
// a burst of pairings for the same grade does not hammer the generator. The
// cache is an optimization only: any redis failure falls through to the
// inner source.
type CachedSource struct {
	inner  Source
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type CacheConfig struct {
	Inner  Source
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

func NewCachedSource(c CacheConfig) *CachedSource {
	if c.TTL <= 0 {
		c.TTL = defaultCacheTTL
	}

	return &CachedSource{
		inner:  c.Inner,
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
}

func (s *CachedSource) Questions(ctx context.Context, gradeLevel int) ([]domain.Question, error) {
	key := s.key(gradeLevel)

	cached, err := s.redis.Get(ctx, key).Bytes()
	if err == nil {
		var qs []domain.Question
		if err := json.Unmarshal(cached, &qs); err == nil {
			return qs, nil
		}
		slog.WarnContext(ctx, "questions: dropping undecodable cache entry", "key", key)
		s.redis.Del(ctx, key)
	} else if err != redis.Nil {
		slog.WarnContext(ctx, "questions: cache read failed", "key", key, "error", err)
	}

	qs, err := s.inner.Questions(ctx, gradeLevel)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(qs); err == nil {
		if err := s.redis.Set(ctx, key, b, s.ttl).Err(); err != nil {
			slog.WarnContext(ctx, "questions: cache write failed", "key", key, "error", err)
		}
	}

	return qs, nil
}

func (s *CachedSource) key(gradeLevel int) string {
	return fmt.Sprintf("%s:questions:grade:%d", s.prefix, gradeLevel)
}

package questions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/questions"
)

type countingSource struct {
	inner questions.Source
	calls int
	err   error
}

func (s *countingSource) Questions(ctx context.Context, gradeLevel int) ([]domain.Question, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Questions(ctx, gradeLevel)
}

func makeCache(t *testing.T, inner questions.Source) (*questions.CachedSource, *miniredis.Miniredis) {
	t.Helper()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })

	return questions.NewCachedSource(questions.CacheConfig{
		Inner:  inner,
		Redis:  rc,
		Prefix: "test",
		TTL:    time.Minute,
	}), rs
}

func TestCachedSource_HitSkipsInner(t *testing.T) {
	cs := &countingSource{inner: questions.NewStaticSource(20)}
	cache, _ := makeCache(t, cs)

	first, err := cache.Questions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, first, 20)
	require.Equal(t, 1, cs.calls)

	second, err := cache.Questions(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, cs.calls, "second draw should be served from cache")
}

func TestCachedSource_GradesAreIsolated(t *testing.T) {
	cs := &countingSource{inner: questions.NewStaticSource(20)}
	cache, _ := makeCache(t, cs)

	_, err := cache.Questions(context.Background(), 5)
	require.NoError(t, err)
	_, err = cache.Questions(context.Background(), 6)
	require.NoError(t, err)
	require.Equal(t, 2, cs.calls)
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	cs := &countingSource{inner: questions.NewStaticSource(20)}
	cache, rs := makeCache(t, cs)
	rs.Close()

	qs, err := cache.Questions(context.Background(), 5)
	require.NoError(t, err, "cache failure must not fail the draw")
	require.Len(t, qs, 20)
	require.Equal(t, 1, cs.calls)
}

func TestDraw(t *testing.T) {
	t.Run("truncates to the requested length", func(t *testing.T) {
		qs, err := questions.Draw(context.Background(), questions.NewStaticSource(30), 5, 20)
		require.NoError(t, err)
		require.Len(t, qs, 20)
	})

	t.Run("short set is unavailable", func(t *testing.T) {
		_, err := questions.Draw(context.Background(), questions.NewStaticSource(3), 5, 20)
		require.Error(t, err)
	})

	t.Run("source error is unavailable", func(t *testing.T) {
		src := &countingSource{err: errors.New("generator down")}
		_, err := questions.Draw(context.Background(), src, 5, 20)
		require.Error(t, err)
	})
}

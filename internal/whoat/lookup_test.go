package whoat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docent_bot/internal/cache"
	"docent_bot/internal/models"
)

type countingQuerier struct {
	calls int
	days  []string
	res   models.WhoAtResult
	err   error
}

func (q *countingQuerier) WhoAt(_ context.Context, day, where string) (models.WhoAtResult, error) {
	q.calls++
	q.days = append(q.days, day+":"+where)
	return q.res, q.err
}

func newLookup(t *testing.T, q Querier) (*Lookup, cache.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.NewRedisStore(rdb, "", cache.DefaultTTL, logger)
	l := NewLookup(q, store, pacific(t), logger)
	l.now = func() time.Time { return time.Date(2024, 7, 12, 2, 30, 0, 0, time.UTC) }
	return l, store
}

func TestLookupFillsCacheOnMiss(t *testing.T) {
	q := &countingQuerier{res: models.NobodyHere()}
	l, store := newLookup(t, q)
	ctx := context.Background()
	day := l.Day(0)

	_, ok, err := l.Cached(ctx, day, AllLocations)
	require.NoError(t, err)
	assert.False(t, ok)

	res, hit, err := l.Get(ctx, day, AllLocations)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.NobodyHere(), res)
	assert.Equal(t, []string{"20240711:all"}, q.days)

	res, hit, err = l.Get(ctx, day, AllLocations)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, models.NobodyHere(), res)
	assert.Equal(t, 1, q.calls)

	require.NoError(t, l.Forget(ctx, "20240711:all"))
	var out models.WhoAtResult
	ok, err = store.Get(ctx, "20240711:all", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupPropagatesQueryError(t *testing.T) {
	boom := errors.New("site down")
	l, _ := newLookup(t, &countingQuerier{err: boom})
	_, _, err := l.Get(context.Background(), l.Day(1), AllLocations)
	assert.ErrorIs(t, err, boom)
}

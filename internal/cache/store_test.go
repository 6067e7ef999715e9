package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docent_bot/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGormStore(t *testing.T, c *clock) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.CacheEntry{}))

	s := NewGormStore(db, quietLogger())
	s.now = c.now
	return s
}

func newRedisStore(t *testing.T, c *clock) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, "docent:", DefaultTTL, quietLogger())
	s.now = c.now
	return s, mr
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store, c *clock)) {
	t.Run("gorm", func(t *testing.T) {
		c := &clock{t: time.Date(2024, 7, 11, 12, 0, 0, 0, time.UTC)}
		fn(t, newGormStore(t, c), c)
	})
	t.Run("redis", func(t *testing.T) {
		c := &clock{t: time.Date(2024, 7, 11, 12, 0, 0, 0, time.UTC)}
		s, _ := newRedisStore(t, c)
		fn(t, s, c)
	})
}

func sampleResult() models.WhoAtResult {
	var r models.WhoAtResult
	r.Add("Info Station", models.WhoAtEntry{Time: "9:00am-11:00am", Who: []string{"Jane Doe"}, Where: "unk"})
	r.Add("Docent Walk", models.WhoAtEntry{Time: "1:00pm", Who: []string{"Sam", "Lee"}})
	return r
}

func TestRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *clock) {
		ctx := context.Background()
		in := sampleResult()
		require.NoError(t, s.Put(ctx, "20240711:all", in, SkipIfUnchanged))

		var out models.WhoAtResult
		ok, err := s.Get(ctx, "20240711:all", &out)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, in, out)
	})
}

func TestMiss(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *clock) {
		var out models.WhoAtResult
		ok, err := s.Get(context.Background(), "20240101:all", &out)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = s.UpdatedAt(context.Background(), "20240101:all")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSkipIfUnchangedKeepsTimestamp(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, c *clock) {
		ctx := context.Background()
		first := c.t
		require.NoError(t, s.Put(ctx, "k", sampleResult(), SkipIfUnchanged))

		c.t = c.t.Add(time.Hour)
		require.NoError(t, s.Put(ctx, "k", sampleResult(), SkipIfUnchanged))
		ts, ok, err := s.UpdatedAt(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, ts.Equal(first), "unchanged write must not bump timestamp, got %s", ts)

		require.NoError(t, s.Put(ctx, "k", sampleResult(), AlwaysWrite))
		ts, _, err = s.UpdatedAt(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ts.Equal(c.t))

		c.t = c.t.Add(time.Hour)
		require.NoError(t, s.Put(ctx, "k", models.NobodyHere(), SkipIfUnchanged))
		ts, _, err = s.UpdatedAt(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ts.Equal(c.t))

		var out models.WhoAtResult
		_, err = s.Get(ctx, "k", &out)
		require.NoError(t, err)
		assert.Equal(t, models.NobodyHere(), out)
	})
}

func TestDeleteIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *clock) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "list:places", []models.Term{{Name: "Bird Island", ID: "p1"}}, AlwaysWrite))
		require.NoError(t, s.Delete(ctx, "list:places"))
		require.NoError(t, s.Delete(ctx, "list:places"))

		var out []models.Term
		ok, err := s.Get(ctx, "list:places", &out)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestBadValue(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, _ *clock) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "k", "just a string", AlwaysWrite))
		var out models.WhoAtResult
		_, err := s.Get(ctx, "k", &out)
		assert.ErrorIs(t, err, ErrBadValue)
	})
}

func TestRedisExpiry(t *testing.T) {
	c := &clock{t: time.Now()}
	s, mr := newRedisStore(t, c)
	require.NoError(t, s.Put(context.Background(), "20240711:all", sampleResult(), SkipIfUnchanged))
	assert.Equal(t, DefaultTTL, mr.TTL("docent:20240711:all"))

	mr.FastForward(DefaultTTL + time.Second)
	var out models.WhoAtResult
	ok, err := s.Get(context.Background(), "20240711:all", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeIsCanonical(t *testing.T) {
	a, err := Encode(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := Encode(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, `{"a":1,"b":2}`, string(a))

	raw, err := Encode(models.NobodyHere())
	require.NoError(t, err)
	assert.Equal(t, `{"Oh no!":[{"time":"all day","who":["No one"]}]}`, string(raw))
}

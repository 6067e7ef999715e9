package whoat

import (
	"context"
	"log/slog"
	"time"

	"docent_bot/internal/cache"
	"docent_bot/internal/models"
)

// Querier computes a fresh result.
type Querier interface {
	WhoAt(ctx context.Context, day, where string) (models.WhoAtResult, error)
}

// Lookup serves results from the cache and fills it on demand.
type Lookup struct {
	query  Querier
	store  cache.Store
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewLookup(q Querier, store cache.Store, loc *time.Location, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{query: q, store: store, loc: loc, now: time.Now, logger: logger.With(slog.String("component", "whoat_lookup"))}
}

// Day returns the reserve-local midnight offsetDays from today.
func (l *Lookup) Day(offsetDays int) time.Time {
	return LocalDay(l.now(), l.loc, offsetDays)
}

// Cached returns the stored result for day and where without querying.
func (l *Lookup) Cached(ctx context.Context, day time.Time, where string) (models.WhoAtResult, bool, error) {
	var res models.WhoAtResult
	ok, err := l.store.Get(ctx, CacheKey(day, where), &res)
	if err != nil {
		return models.WhoAtResult{}, false, err
	}
	return res, ok, nil
}

// Refresh queries the source and stores the result. A failed cache write is
// logged; the fresh result is still returned.
func (l *Lookup) Refresh(ctx context.Context, day time.Time, where string) (models.WhoAtResult, error) {
	if where == "" {
		where = AllLocations
	}
	res, err := l.query.WhoAt(ctx, day.Format(DayLayout), where)
	if err != nil {
		return models.WhoAtResult{}, err
	}
	key := CacheKey(day, where)
	if err := l.store.Put(ctx, key, res, cache.SkipIfUnchanged); err != nil {
		l.logger.ErrorContext(ctx, "cache put failed", slog.String("key", key), slog.Any("error", err))
	}
	return res, nil
}

// Get is Cached falling back to Refresh. A cache read error is treated as a miss.
func (l *Lookup) Get(ctx context.Context, day time.Time, where string) (models.WhoAtResult, bool, error) {
	res, ok, err := l.Cached(ctx, day, where)
	if err != nil {
		l.logger.WarnContext(ctx, "cache get failed", slog.String("key", CacheKey(day, where)), slog.Any("error", err))
	}
	if ok {
		return res, true, nil
	}
	res, err = l.Refresh(ctx, day, where)
	return res, false, err
}

// Forget deletes a cache key verbatim.
func (l *Lookup) Forget(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}

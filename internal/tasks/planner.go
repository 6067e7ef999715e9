package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"docent_bot/internal/cache"
	"docent_bot/internal/contentapi"
	"docent_bot/internal/models"
	"docent_bot/internal/whoat"
)

// Fixed cache keys of the lists offered in report dialogs.
const (
	KeyPlaces         = "list:places"
	KeyWildlifeIssues = "list:wildlife_issues"
	KeyOtherIssues    = "list:other_issues"
)

// AuxList ties a cache key to the taxonomy it is filled from.
type AuxList struct {
	Key   string
	Vocab string
}

var AuxLists = []AuxList{
	{Key: KeyPlaces, Vocab: contentapi.VocabPlaces},
	{Key: KeyWildlifeIssues, Vocab: contentapi.VocabWildlife},
	{Key: KeyOtherIssues, Vocab: contentapi.VocabOther},
}

const (
	DefaultPrimeSpec = "0 0 * * * *"
	DefaultPruneSpec = "0 30 3 * * *"

	primeTimeout = 2 * time.Minute
)

// Refresher recomputes a who's at result and stores it.
type Refresher interface {
	Refresh(ctx context.Context, day time.Time, where string) (models.WhoAtResult, error)
	Day(offsetDays int) time.Time
}

type TermSource interface {
	GetTaxonomy(ctx context.Context, which string) ([]models.Term, error)
}

// KeyOutcome is the result of refreshing one cache key.
type KeyOutcome struct {
	Key     string
	Err     error
	Elapsed time.Duration
}

// PrimeResult summarizes a priming run. A failed key leaves the previous
// value in place.
type PrimeResult struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Keys     []KeyOutcome
}

func (r PrimeResult) Failed() []KeyOutcome {
	var out []KeyOutcome
	for _, k := range r.Keys {
		if k.Err != nil {
			out = append(out, k)
		}
	}
	return out
}

func (r PrimeResult) OK() bool {
	return len(r.Failed()) == 0
}

// Primer refreshes today's and tomorrow's who's at results and the report
// dialog lists.
type Primer struct {
	whoat  Refresher
	terms  TermSource
	store  cache.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewPrimer(w Refresher, terms TermSource, store cache.Store, logger *slog.Logger) *Primer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Primer{
		whoat:  w,
		terms:  terms,
		store:  store,
		now:    time.Now,
		logger: logger.With(slog.String("component", "primer")),
	}
}

// Prime never returns an error; failures are reported per key.
func (p *Primer) Prime(ctx context.Context) PrimeResult {
	res := PrimeResult{RunID: uuid.NewString(), Started: p.now()}
	log := p.logger.With(slog.String("run_id", res.RunID))

	for _, offset := range []int{0, 1} {
		day := p.whoat.Day(offset)
		key := whoat.CacheKey(day, whoat.AllLocations)
		res.Keys = append(res.Keys, p.step(ctx, key, func(ctx context.Context) error {
			_, err := p.whoat.Refresh(ctx, day, whoat.AllLocations)
			return err
		}))
	}
	for _, list := range AuxLists {
		list := list
		res.Keys = append(res.Keys, p.step(ctx, list.Key, func(ctx context.Context) error {
			terms, err := p.terms.GetTaxonomy(ctx, list.Vocab)
			if err != nil {
				return err
			}
			return p.store.Put(ctx, list.Key, terms, cache.AlwaysWrite)
		}))
	}

	res.Finished = p.now()
	for _, k := range res.Keys {
		if k.Err != nil {
			log.Error("prime key failed", slog.String("key", k.Key), slog.Any("error", k.Err))
		}
	}
	log.Info("prime finished",
		slog.Int("keys", len(res.Keys)),
		slog.Int("failed", len(res.Failed())),
		slog.Duration("elapsed", res.Finished.Sub(res.Started)))
	return res
}

func (p *Primer) step(ctx context.Context, key string, fn func(context.Context) error) (out KeyOutcome) {
	out.Key = key
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
		}
		out.Elapsed = p.now().Sub(start)
	}()
	out.Err = fn(ctx)
	return out
}

// Pruner drops stale entries. Only table backed stores need it; redis
// entries expire on their own.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// InitScheduler registers the priming job, and the prune job when pruner is
// not nil, on a seconds resolution cron running in loc. The caller starts it.
func InitScheduler(spec string, loc *time.Location, p *Primer, pruner Pruner, keep time.Duration, logger *slog.Logger) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultPrimeSpec
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), primeTimeout)
		defer cancel()
		p.Prime(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: schedule prime %q: %w", spec, err)
	}

	if pruner != nil {
		_, err = c.AddFunc(DefaultPruneSpec, func() {
			n, err := pruner.Prune(context.Background(), time.Now().Add(-keep))
			if err != nil {
				logger.Error("cache prune failed", slog.Any("error", err))
				return
			}
			logger.Info("cache pruned", slog.Int64("rows", n))
		})
		if err != nil {
			return nil, fmt.Errorf("tasks: schedule prune: %w", err)
		}
	}
	return c, nil
}

// Package whoat answers "who is staffing the reserve" for a calendar day.
package whoat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docent_bot/internal/contentapi"
	"docent_bot/internal/models"
	"docent_bot/internal/resolve"
)

// Source is the part of the docent site the query needs.
type Source interface {
	ListActivities(ctx context.Context, start, end time.Time, activityType string) ([]models.Activity, error)
	GetActivityTypes(ctx context.Context) (map[string]models.ActivityType, error)
	GetActivityViews(ctx context.Context) ([]models.ActivityView, error)
	GetSignups(ctx context.Context, activityIDs []string) (map[string][]string, error)
	GetUser(ctx context.Context, id string) (models.SiteUser, error)
}

type Service struct {
	src    Source
	loc    *time.Location
	logger *slog.Logger
}

func NewService(src Source, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, loc: loc, logger: logger.With(slog.String("component", "whoat"))}
}

// WhoAt lists the staffed activities of day (YYYYMMDD, reserve time) grouped
// by resolved title. where is an activity type tag or "all". Activities
// nobody is attending are left out; when nothing is left the NobodyHere
// result is returned.
func (s *Service) WhoAt(ctx context.Context, day, where string) (models.WhoAtResult, error) {
	start, end, err := DayWindow(day, s.loc)
	if err != nil {
		return models.WhoAtResult{}, err
	}
	typeFilter := where
	if where == AllLocations {
		typeFilter = ""
	}
	log := s.logger.With(slog.String("day", day), slog.String("where", where))
	log.InfoContext(ctx, "who at query", slog.Time("from", start), slog.Time("to", end))

	activities, err := s.src.ListActivities(ctx, start, end, typeFilter)
	if err != nil {
		return models.WhoAtResult{}, err
	}
	if len(activities) == 0 {
		return models.NobodyHere(), nil
	}

	types, err := s.src.GetActivityTypes(ctx)
	if err != nil {
		return models.WhoAtResult{}, err
	}
	views, err := s.src.GetActivityViews(ctx)
	if err != nil {
		return models.WhoAtResult{}, err
	}

	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	signups, err := s.src.GetSignups(ctx, ids)
	if err != nil {
		return models.WhoAtResult{}, err
	}

	names := newNameCache(s.src, log)
	var result models.WhoAtResult
	for _, a := range activities {
		who, err := s.attendees(ctx, names, a, signups[a.ID])
		if err != nil {
			return models.WhoAtResult{}, err
		}
		if len(who) == 0 {
			continue
		}

		var typ *models.ActivityType
		if t, ok := types[a.Type]; ok {
			typ = &t
		}
		result.Add(resolve.Title(a, views, typ), models.WhoAtEntry{
			Time:  FormatSpan(a.Start, a.End, s.loc),
			Who:   who,
			Where: resolve.Location(a, views, typ),
		})
	}
	if result.Empty() {
		return models.NobodyHere(), nil
	}
	return result, nil
}

// attendees returns the presenter followed by everyone signed up, each
// person once.
func (s *Service) attendees(ctx context.Context, names *nameCache, a models.Activity, signedUp []string) ([]string, error) {
	ids := make([]string, 0, len(signedUp)+1)
	if a.PresenterID != "" {
		ids = append(ids, a.PresenterID)
	}
	ids = append(ids, signedUp...)

	seen := make(map[string]bool, len(ids))
	var who []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		name, ok, err := names.lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			who = append(who, name)
		}
	}
	return who, nil
}

// nameCache memoizes user lookups for a single query.
type nameCache struct {
	src    Source
	logger *slog.Logger
	names  map[string]string
	known  map[string]bool
}

func newNameCache(src Source, logger *slog.Logger) *nameCache {
	return &nameCache{src: src, logger: logger, names: map[string]string{}, known: map[string]bool{}}
}

func (n *nameCache) lookup(ctx context.Context, id string) (string, bool, error) {
	if ok, seen := n.known[id]; seen {
		return n.names[id], ok, nil
	}
	u, err := n.src.GetUser(ctx, id)
	switch {
	case errors.Is(err, contentapi.ErrNotFound):
		n.logger.WarnContext(ctx, "attendee not found", slog.String("user", id))
		n.known[id] = false
		return "", false, nil
	case errors.Is(err, contentapi.ErrMalformed):
		n.logger.WarnContext(ctx, "attendee unreadable", slog.String("user", id), slog.Any("error", err))
		n.known[id] = false
		return "", false, nil
	case err != nil:
		return "", false, err
	case u.Name == "":
		n.known[id] = false
		return "", false, nil
	}
	n.names[id] = u.Name
	n.known[id] = true
	return u.Name, true, nil
}

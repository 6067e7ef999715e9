package whoat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docent_bot/internal/contentapi"
	"docent_bot/internal/models"
)

type fakeSource struct {
	activities []models.Activity
	types      map[string]models.ActivityType
	views      []models.ActivityView
	signups    map[string][]string
	users      map[string]string
	userErrs   map[string]error
	listErr    error

	gotStart, gotEnd time.Time
	gotFilter        string
	signupCalls      int
	userCalls        map[string]int
}

func (f *fakeSource) ListActivities(_ context.Context, start, end time.Time, activityType string) ([]models.Activity, error) {
	f.gotStart, f.gotEnd, f.gotFilter = start, end, activityType
	return f.activities, f.listErr
}

func (f *fakeSource) GetActivityTypes(context.Context) (map[string]models.ActivityType, error) {
	return f.types, nil
}

func (f *fakeSource) GetActivityViews(context.Context) ([]models.ActivityView, error) {
	return f.views, nil
}

func (f *fakeSource) GetSignups(_ context.Context, ids []string) (map[string][]string, error) {
	f.signupCalls++
	return f.signups, nil
}

func (f *fakeSource) GetUser(_ context.Context, id string) (models.SiteUser, error) {
	if f.userCalls == nil {
		f.userCalls = map[string]int{}
	}
	f.userCalls[id]++
	if err := f.userErrs[id]; err != nil {
		return models.SiteUser{}, err
	}
	name, ok := f.users[id]
	if !ok {
		return models.SiteUser{}, contentapi.ErrNotFound
	}
	return models.SiteUser{ID: id, Name: name}, nil
}

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	return loc
}

func newService(t *testing.T, src Source) *Service {
	return NewService(src, pacific(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var infoStationDefs = struct {
	types map[string]models.ActivityType
	views []models.ActivityView
}{
	types: map[string]models.ActivityType{"info_station": {Tag: "info_station", Name: "Info Station"}},
	views: []models.ActivityView{{ID: "week", Types: map[string]models.ViewRules{"info_station": {}}}},
}

func TestWhoAtInfoStation(t *testing.T) {
	src := &fakeSource{
		activities: []models.Activity{{
			ID:          "a1",
			Type:        "info_station",
			Start:       time.Date(2024, 7, 11, 16, 0, 0, 0, time.UTC),
			PresenterID: "u1",
		}},
		types: infoStationDefs.types,
		views: infoStationDefs.views,
		users: map[string]string{"u1": "L Turrini-Smith"},
	}

	got, err := newService(t, src).WhoAt(context.Background(), "20240711", AllLocations)
	require.NoError(t, err)

	want := models.WhoAtResult{Groups: []models.WhoAtGroup{{
		Title:   "Info Station",
		Entries: []models.WhoAtEntry{{Time: "9:00am", Who: []string{"L Turrini-Smith"}, Where: "unk"}},
	}}}
	assert.Equal(t, want, got)
	assert.Empty(t, src.gotFilter)
	assert.Equal(t, time.Date(2024, 7, 11, 7, 0, 0, 0, time.UTC), src.gotStart)
}

func TestWhoAtPresenterFirstAndMemoized(t *testing.T) {
	end := time.Date(2024, 7, 11, 18, 0, 0, 0, time.UTC)
	src := &fakeSource{
		activities: []models.Activity{
			{ID: "a1", Type: "info_station", Start: time.Date(2024, 7, 11, 16, 0, 0, 0, time.UTC), End: &end, PresenterID: "u1"},
			{ID: "a2", Type: "info_station", Start: time.Date(2024, 7, 11, 20, 30, 0, 0, time.UTC), PresenterID: "u2"},
			{ID: "a3", Type: "info_station", Start: time.Date(2024, 7, 11, 22, 0, 0, 0, time.UTC)},
			{ID: "a4", Type: "walk", Start: time.Date(2024, 7, 11, 23, 0, 0, 0, time.UTC), PresenterID: "ghost"},
		},
		types: infoStationDefs.types,
		views: infoStationDefs.views,
		signups: map[string][]string{
			"a1": {"u2", "u1", "u3"},
			"a2": {"u3"},
		},
		users: map[string]string{"u1": "Ann", "u2": "Bob", "u3": "Cy"},
	}

	got, err := newService(t, src).WhoAt(context.Background(), "20240711", "info_station")
	require.NoError(t, err)
	assert.Equal(t, "info_station", src.gotFilter)
	assert.Equal(t, 1, src.signupCalls)
	for id, n := range src.userCalls {
		assert.Equal(t, 1, n, "user %s looked up more than once", id)
	}

	entries, ok := got.Entries("Info Station")
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"Ann", "Bob", "Cy"}, entries[0].Who)
	assert.Equal(t, "9:00am-11:00am", entries[0].Time)
	assert.Equal(t, []string{"Bob", "Cy"}, entries[1].Who)
	assert.Equal(t, "1:30pm", entries[1].Time)

	// a3 has nobody, a4's only attendee is unknown.
	assert.Len(t, got.Groups, 1)
	for _, g := range got.Groups {
		for _, e := range g.Entries {
			assert.NotEmpty(t, e.Who)
		}
	}
}

func TestWhoAtSkipsUnreadableAttendee(t *testing.T) {
	src := &fakeSource{
		activities: []models.Activity{{
			ID:          "a1",
			Type:        "info_station",
			Start:       time.Date(2024, 7, 11, 16, 0, 0, 0, time.UTC),
			PresenterID: "u1",
		}},
		types:    infoStationDefs.types,
		views:    infoStationDefs.views,
		signups:  map[string][]string{"a1": {"u2"}},
		users:    map[string]string{"u2": "Bob"},
		userErrs: map[string]error{"u1": fmt.Errorf("%w: user u1", contentapi.ErrMalformed)},
	}

	got, err := newService(t, src).WhoAt(context.Background(), "20240711", AllLocations)
	require.NoError(t, err)
	entries, ok := got.Entries("Info Station")
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"Bob"}, entries[0].Who)
}

func TestWhoAtNobody(t *testing.T) {
	t.Run("no activities", func(t *testing.T) {
		got, err := newService(t, &fakeSource{}).WhoAt(context.Background(), "20240711", AllLocations)
		require.NoError(t, err)
		assert.Equal(t, models.NobodyHere(), got)
	})
	t.Run("no attendees", func(t *testing.T) {
		src := &fakeSource{
			activities: []models.Activity{{ID: "a1", Type: "info_station", Start: time.Date(2024, 7, 11, 16, 0, 0, 0, time.UTC)}},
			types:      infoStationDefs.types,
			views:      infoStationDefs.views,
		}
		got, err := newService(t, src).WhoAt(context.Background(), "20240711", AllLocations)
		require.NoError(t, err)
		assert.Equal(t, models.NobodyHere(), got)
	})
}

func TestWhoAtErrors(t *testing.T) {
	_, err := newService(t, &fakeSource{}).WhoAt(context.Background(), "2024-07-11", AllLocations)
	assert.Error(t, err)

	boom := errors.New("connection reset")
	_, err = newService(t, &fakeSource{listErr: boom}).WhoAt(context.Background(), "20240711", AllLocations)
	assert.ErrorIs(t, err, boom)
}

func TestDayWindowStartsAtLocalMidnight(t *testing.T) {
	loc := pacific(t)
	for _, day := range []string{"20241225", "20240310", "20241103", "20240711"} {
		start, end, err := DayWindow(day, loc)
		require.NoError(t, err)
		assert.Equal(t, time.UTC, start.Location())

		local := start.In(loc)
		assert.Equal(t, day, local.Format(DayLayout))
		assert.Zero(t, local.Hour())
		assert.Zero(t, local.Minute())

		next := end.In(loc)
		assert.Zero(t, next.Hour(), "end of %s", day)
		assert.Equal(t, local.AddDate(0, 0, 1).Format(DayLayout), next.Format(DayLayout))
	}

	start, end, err := DayWindow("20241225", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 25, 8, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	// The window follows the civil day rather than a fixed 24h span, so an
	// activity at 12:30am the morning after spring forward is not counted twice.
	start, end, err = DayWindow("20240310", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 23*time.Hour, end.Sub(start))

	// Fall back: 25 hours, so nothing after 11pm is dropped.
	start, end, err = DayWindow("20241103", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 3, 7, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 25*time.Hour, end.Sub(start))
}

func TestLocalDayAndKey(t *testing.T) {
	loc := pacific(t)
	// 02:30 UTC on the 12th is still the evening of the 11th in California.
	now := time.Date(2024, 7, 12, 2, 30, 0, 0, time.UTC)

	assert.Equal(t, "20240711:all", CacheKey(LocalDay(now, loc, 0), AllLocations))
	assert.Equal(t, "20240712:info_station", CacheKey(LocalDay(now, loc, 1), "info_station"))
	assert.Equal(t, "20240801:all", CacheKey(LocalDay(time.Date(2024, 7, 31, 20, 0, 0, 0, loc), loc, 1), ""))
}

func TestFormatSpan(t *testing.T) {
	loc := pacific(t)
	start := time.Date(2024, 1, 5, 20, 5, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	assert.Equal(t, "12:05pm-1:35pm", FormatSpan(start, &end, loc))
	assert.Equal(t, "12:05pm", FormatSpan(start, nil, loc))
}

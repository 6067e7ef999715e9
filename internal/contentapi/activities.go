package contentapi

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"docent_bot/internal/models"
)

type activityAttributes struct {
	Title        string  `json:"title"`
	ActivityType string  `json:"activity_type"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Custom1      *string `json:"custom1"`
	Custom2      *string `json:"custom2"`
	Cancelled    bool    `json:"cancelled"`
}

// ListActivities returns the activities starting in [start, end), cancelled
// ones excluded, sorted by start time. An empty activityType means every type.
// Records without a parseable start time are dropped.
func (c *Client) ListActivities(ctx context.Context, start, end time.Time, activityType string) ([]models.Activity, error) {
	params := url.Values{}
	filter(params, "from", "start_time", ">=", start.UTC().Format(time.RFC3339))
	filter(params, "to", "start_time", "<", end.UTC().Format(time.RFC3339))
	filter(params, "live", "cancelled", "<>", "1")
	if activityType != "" {
		filter(params, "at", "activity_type", "=", activityType)
	}
	params.Set("sort", "start_time")

	raw, err := c.getAll(ctx, "scheduled_activity/scheduled_activity", params)
	if err != nil {
		return nil, err
	}

	out := make([]models.Activity, 0, len(raw))
	for _, r := range raw {
		a, ok := c.toActivity(r)
		if !ok {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) toActivity(r resource) (models.Activity, bool) {
	log := c.logger.With(slog.String("activity", r.ID))

	var attrs activityAttributes
	if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
		log.Warn("skipping activity with unreadable attributes", slog.Any("error", err))
		return models.Activity{}, false
	}
	if attrs.Cancelled {
		return models.Activity{}, false
	}
	if attrs.StartTime == nil {
		log.Warn("skipping activity without start time")
		return models.Activity{}, false
	}
	start, err := parseTime(*attrs.StartTime)
	if err != nil {
		log.Warn("skipping activity with bad start time", slog.String("start_time", *attrs.StartTime))
		return models.Activity{}, false
	}

	a := models.Activity{
		ID:          r.ID,
		Type:        attrs.ActivityType,
		Title:       attrs.Title,
		Custom1:     deref(attrs.Custom1),
		Custom2:     deref(attrs.Custom2),
		Start:       start,
		PresenterID: r.relatedID("presenter"),
	}
	if attrs.EndTime != nil && *attrs.EndTime != "" {
		if end, err := parseTime(*attrs.EndTime); err == nil {
			a.End = &end
		} else {
			log.Warn("ignoring bad end time", slog.String("end_time", *attrs.EndTime))
		}
	}
	return a, true
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err == nil {
		return t, nil
	}
	// Drupal occasionally omits the colon in the offset.
	return time.Parse("2006-01-02T15:04:05-0700", v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

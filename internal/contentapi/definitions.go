package contentapi

import (
	"bytes"
	"context"
	"log/slog"
	"sort"

	json "github.com/goccy/go-json"

	"docent_bot/internal/models"
)

type activityTypeAttributes struct {
	ID           string          `json:"drupal_internal__id"`
	Label        string          `json:"label"`
	CustomFields json.RawMessage `json:"custom_fields"`
}

// emptyish reports whether raw is absent or one of the empty shapes the site
// serializes for an unset map or list.
func emptyish(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("[]")) || bytes.Equal(t, []byte("{}"))
}

// decodeCustomFields accepts a list, or an object keyed by position.
func decodeCustomFields(raw json.RawMessage) ([]models.CustomField, error) {
	if emptyish(raw) {
		return nil, nil
	}
	var list []models.CustomField
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var keyed map[string]models.CustomField
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list = make([]models.CustomField, 0, len(keys))
	for _, k := range keys {
		list = append(list, keyed[k])
	}
	return list, nil
}

// GetActivityTypes returns every activity type keyed by machine name.
func (c *Client) GetActivityTypes(ctx context.Context) (map[string]models.ActivityType, error) {
	raw, err := c.getAll(ctx, "activity_type/activity_type", nil)
	if err != nil {
		return nil, err
	}
	types := make(map[string]models.ActivityType, len(raw))
	for _, r := range raw {
		var attrs activityTypeAttributes
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			c.logger.Warn("skipping unreadable activity type", slog.String("id", r.ID), slog.Any("error", err))
			continue
		}
		if attrs.ID == "" {
			c.logger.Warn("skipping activity type without machine name", slog.String("id", r.ID))
			continue
		}
		fields, err := decodeCustomFields(attrs.CustomFields)
		if err != nil {
			c.logger.Warn("ignoring unreadable custom fields",
				slog.String("activity_type", attrs.ID), slog.Any("error", err))
		}
		types[attrs.ID] = models.ActivityType{
			Tag:          attrs.ID,
			Name:         attrs.Label,
			CustomFields: fields,
		}
	}
	return types, nil
}

type calendarEntry struct {
	Enabled   bool   `json:"enabled"`
	FieldName string `json:"sa_field_name"`
	Markup    string `json:"markup"`
}

type viewRule struct {
	Week  calendarEntry `json:"week_entry"`
	Month calendarEntry `json:"month_entry"`
}

type viewTypeRules struct {
	What  *viewRule `json:"what"`
	Where *viewRule `json:"where"`
}

type activityViewAttributes struct {
	ID            string          `json:"drupal_internal__id"`
	Label         string          `json:"label"`
	ActivityTypes json.RawMessage `json:"activity_types"`
}

// GetActivityViews returns the calendar views in site order. Resolution uses
// the first view that lists an activity type.
func (c *Client) GetActivityViews(ctx context.Context) ([]models.ActivityView, error) {
	raw, err := c.getAll(ctx, "activity_view/activity_view", nil)
	if err != nil {
		return nil, err
	}
	views := make([]models.ActivityView, 0, len(raw))
	for _, r := range raw {
		var attrs activityViewAttributes
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			c.logger.Warn("skipping unreadable activity view", slog.String("id", r.ID), slog.Any("error", err))
			continue
		}
		view := models.ActivityView{
			ID:    attrs.ID,
			Label: attrs.Label,
			Types: make(map[string]models.ViewRules),
		}
		var byTag map[string]json.RawMessage
		if !emptyish(attrs.ActivityTypes) {
			if err := json.Unmarshal(attrs.ActivityTypes, &byTag); err != nil {
				c.logger.Warn("ignoring unreadable view activity types",
					slog.String("view", view.ID), slog.Any("error", err))
				byTag = nil
			}
		}
		for tag, body := range byTag {
			var rules viewTypeRules
			if err := json.Unmarshal(body, &rules); err != nil {
				c.logger.Warn("skipping unreadable view rules",
					slog.String("view", view.ID), slog.String("activity_type", tag), slog.Any("error", err))
				continue
			}
			view.Types[tag] = models.ViewRules{
				What:  c.whatRule(view.ID, tag, rules.What),
				Where: c.whereRule(view.ID, tag, rules.Where),
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// whatRule prefers markup. Older views only name a field, which is the same
// as markup holding just that placeholder.
func (c *Client) whatRule(view, tag string, r *viewRule) models.Rule {
	return c.pickEntry(view, tag, "what", r, func(e calendarEntry) string {
		if e.Markup != "" {
			return e.Markup
		}
		if e.FieldName != "" {
			return "@" + e.FieldName
		}
		return ""
	})
}

func (c *Client) whereRule(view, tag string, r *viewRule) models.Rule {
	return c.pickEntry(view, tag, "where", r, func(e calendarEntry) string {
		return e.FieldName
	})
}

func (c *Client) pickEntry(view, tag, which string, r *viewRule, source func(calendarEntry) string) models.Rule {
	if r == nil {
		return models.Rule{Kind: models.EntryDisabled}
	}
	if r.Week.Enabled && r.Month.Enabled {
		c.logger.Warn("both calendar entries enabled, using week entry",
			slog.String("view", view), slog.String("activity_type", tag), slog.String("rule", which))
	}
	switch {
	case r.Week.Enabled:
		return models.Rule{Kind: models.EntryWeek, Source: source(r.Week)}
	case r.Month.Enabled:
		return models.Rule{Kind: models.EntryMonth, Source: source(r.Month)}
	default:
		return models.Rule{Kind: models.EntryDisabled}
	}
}

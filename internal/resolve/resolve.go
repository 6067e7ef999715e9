// Package resolve turns an activity into display strings using the activity
// view rules configured on the docent site.
package resolve

import (
	"strings"

	"docent_bot/internal/models"
)

// Unknown is returned whenever a value cannot be resolved.
const Unknown = "unk"

var placeholders = []string{"@activity_type", "@custom1", "@custom2", "@title"}

// Title returns the "what" of an activity. The first view listing the
// activity type decides; a view without an enabled what rule falls back to
// the type's display name.
func Title(a models.Activity, views []models.ActivityView, typ *models.ActivityType) string {
	rules, ok := findRules(a.Type, views)
	if !ok {
		return Unknown
	}
	switch rules.What.Kind {
	case models.EntryWeek, models.EntryMonth:
		if title := expand(rules.What.Source, a, typ); title != "" {
			return title
		}
		return typeName(typ)
	default:
		return typeName(typ)
	}
}

// Location returns the "where" of an activity. Only custom1, custom2 and
// title are meaningful field names.
func Location(a models.Activity, views []models.ActivityView, typ *models.ActivityType) string {
	rules, ok := findRules(a.Type, views)
	if !ok {
		return Unknown
	}
	switch rules.Where.Kind {
	case models.EntryWeek, models.EntryMonth:
		if rules.Where.Source == "activity_type" {
			return Unknown
		}
		if v, ok := fieldValue(rules.Where.Source, a, typ); ok {
			return v
		}
		return Unknown
	default:
		return Unknown
	}
}

func findRules(tag string, views []models.ActivityView) (models.ViewRules, bool) {
	for _, v := range views {
		if rules, ok := v.Types[tag]; ok {
			return rules, true
		}
	}
	return models.ViewRules{}, false
}

func typeName(typ *models.ActivityType) string {
	if typ == nil || typ.Name == "" {
		return Unknown
	}
	return typ.Name
}

// fieldValue resolves a field name against an activity. Custom fields yield
// the option display name.
func fieldValue(field string, a models.Activity, typ *models.ActivityType) (string, bool) {
	switch field {
	case "title":
		return a.Title, true
	case "custom1":
		return typ.OptionName(0, a.Custom1)
	case "custom2":
		return typ.OptionName(1, a.Custom2)
	case "activity_type":
		if typ == nil {
			return "", false
		}
		return typ.Name, true
	}
	return "", false
}

// expand substitutes every placeholder in markup. Placeholders that do not
// resolve become empty; runs of whitespace left behind are collapsed.
func expand(markup string, a models.Activity, typ *models.ActivityType) string {
	if !strings.Contains(markup, "@") {
		return strings.TrimSpace(markup)
	}
	pairs := make([]string, 0, 2*len(placeholders))
	for _, p := range placeholders {
		v, _ := fieldValue(p[1:], a, typ)
		pairs = append(pairs, p, v)
	}
	return strings.Join(strings.Fields(strings.NewReplacer(pairs...).Replace(markup)), " ")
}

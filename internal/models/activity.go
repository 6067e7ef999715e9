package models

import "time"

// Activity is a scheduled docent duty as returned by the docent site.
type Activity struct {
	ID          string
	Type        string // activity type machine name
	Title       string
	Custom1     string // raw option key
	Custom2     string // raw option key
	Start       time.Time
	End         *time.Time // nil for open ended activities
	PresenterID string     // empty when nobody presents
}

// FieldOption is one entry of an activity type's custom field vocabulary.
type FieldOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// CustomField is an ordered option list.
type CustomField struct {
	Label   string        `json:"label"`
	Options []FieldOption `json:"options"`
}

// ActivityType describes one activity type. Immutable once loaded.
type ActivityType struct {
	Tag          string
	Name         string
	CustomFields []CustomField // at most two: custom1, custom2
}

// OptionName returns the display name of key within custom field idx (0 based).
func (t *ActivityType) OptionName(idx int, key string) (string, bool) {
	if t == nil || idx < 0 || idx >= len(t.CustomFields) {
		return "", false
	}
	for _, o := range t.CustomFields[idx].Options {
		if o.Key == key {
			return o.Name, true
		}
	}
	return "", false
}

// EntryKind says which calendar entry of a view rule is enabled.
type EntryKind int

const (
	EntryDisabled EntryKind = iota
	EntryWeek
	EntryMonth
)

func (k EntryKind) String() string {
	switch k {
	case EntryWeek:
		return "week_entry"
	case EntryMonth:
		return "month_entry"
	default:
		return "disabled"
	}
}

// Rule is a resolved view rule. Source holds markup for "what" rules and a
// field name for "where" rules; it is empty when Kind is EntryDisabled.
type Rule struct {
	Kind   EntryKind
	Source string
}

// ViewRules are the what/where rules of one activity type within a view.
type ViewRules struct {
	What  Rule
	Where Rule
}

// ActivityView is a calendar view configuration from the docent site.
type ActivityView struct {
	ID    string
	Label string
	Types map[string]ViewRules // keyed by activity type tag
}

// SiteUser is the subset of a docent site account the bot needs.
type SiteUser struct {
	ID    string
	UID   int
	Name  string
	Email string
}

// Term is a taxonomy term offered in report dialogs.
type Term struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

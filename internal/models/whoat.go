package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	NobodyTitle = "Oh no!"
	NobodyWho   = "No one"
	NobodyTime  = "all day"
)

// WhoAtEntry is one staffed activity.
type WhoAtEntry struct {
	Time  string   `json:"time"`
	Who   []string `json:"who"`
	Where string   `json:"where,omitempty"`
}

// WhoAtGroup holds the entries that resolved to the same title.
type WhoAtGroup struct {
	Title   string
	Entries []WhoAtEntry
}

// WhoAtResult maps a resolved title to its entries. Groups keep the order in
// which titles were first seen; the JSON form is an object in that order.
type WhoAtResult struct {
	Groups []WhoAtGroup
}

// NobodyHere is the result returned when no activity has a known attendee.
func NobodyHere() WhoAtResult {
	return WhoAtResult{Groups: []WhoAtGroup{{
		Title:   NobodyTitle,
		Entries: []WhoAtEntry{{Who: []string{NobodyWho}, Time: NobodyTime}},
	}}}
}

// Add appends e under title, creating the group on first use.
func (r *WhoAtResult) Add(title string, e WhoAtEntry) {
	for i := range r.Groups {
		if r.Groups[i].Title == title {
			r.Groups[i].Entries = append(r.Groups[i].Entries, e)
			return
		}
	}
	r.Groups = append(r.Groups, WhoAtGroup{Title: title, Entries: []WhoAtEntry{e}})
}

// Entries returns the entries for title.
func (r WhoAtResult) Entries(title string) ([]WhoAtEntry, bool) {
	for _, g := range r.Groups {
		if g.Title == title {
			return g.Entries, true
		}
	}
	return nil, false
}

func (r WhoAtResult) Empty() bool {
	return len(r.Groups) == 0
}

func (r WhoAtResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range r.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		title, err := json.Marshal(g.Title)
		if err != nil {
			return nil, err
		}
		entries := g.Entries
		if entries == nil {
			entries = []WhoAtEntry{}
		}
		body, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(title)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *WhoAtResult) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("who at result: expected object, got %v", tok)
	}
	groups := []WhoAtGroup{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		title, ok := tok.(string)
		if !ok {
			return fmt.Errorf("who at result: expected title, got %v", tok)
		}
		var entries []WhoAtEntry
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("who at result %q: %w", title, err)
		}
		groups = append(groups, WhoAtGroup{Title: title, Entries: entries})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	r.Groups = groups
	return nil
}

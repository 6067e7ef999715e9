package contentapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// NewReport is a disturbance report to be created on the docent site.
type NewReport struct {
	When        time.Time
	Details     string
	WildlifeIDs []string
	OtherIDs    []string
	ReporterID  string // site user uuid, optional
	PlaceID     string
}

type relData struct {
	Data any `json:"data"`
}

type nodeBody struct {
	Type          string             `json:"type"`
	Attributes    map[string]any     `json:"attributes"`
	Relationships map[string]relData `json:"relationships"`
}

// CreateReport posts a disturbance report node and returns its id. When the
// site answers 500 with its known spurious failure the node was still stored;
// the id is then empty and warning is set instead of err.
func (c *Client) CreateReport(ctx context.Context, r NewReport) (id string, warning string, err error) {
	body := nodeBody{
		Type: "node--disturbance_report",
		Attributes: map[string]any{
			"field_interaction_time": r.When.Format(time.RFC3339),
			"field_details":          map[string]string{"value": r.Details, "format": "plain_text"},
			"field_via":              "slack",
		},
		Relationships: map[string]relData{},
	}
	if len(r.WildlifeIDs) > 0 {
		body.Relationships["field_wildlife_disturbance"] = relData{Data: identifiers("taxonomy_term--wildlife_disturbance", r.WildlifeIDs)}
	}
	if len(r.OtherIDs) > 0 {
		body.Relationships["field_other_disturbance"] = relData{Data: identifiers("taxonomy_term--other_disturbance", r.OtherIDs)}
	}
	if r.ReporterID != "" {
		body.Relationships["field_reporter"] = relData{Data: identifier{Type: "user--user", ID: r.ReporterID}}
	}
	body.Relationships["field_place"] = relData{Data: identifier{Type: "taxonomy_term--places", ID: r.PlaceID}}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err = c.do(ctx, http.MethodPost, c.endpoint("node/disturbance_report"), map[string]any{"data": body}, &created)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.WarnContext(ctx, "create report failed",
				slog.Int("status", apiErr.Status), slog.String("body", apiErr.Body))
			if apiErr.Status == http.StatusInternalServerError && strings.Contains(apiErr.Body, spuriousFailureMarker) {
				return "", SpuriousFailureWarning, nil
			}
		}
		return "", "", err
	}
	return created.Data.ID, "", nil
}

func identifiers(typ string, ids []string) []identifier {
	out := make([]identifier, 0, len(ids))
	for _, id := range ids {
		out = append(out, identifier{Type: typ, ID: id})
	}
	return out
}

// RemoteReport is a disturbance report as stored on the docent site.
// Relationship fields hold uuids.
type RemoteReport struct {
	ID             string    `json:"id"`
	Details        string    `json:"details"`
	Interaction    time.Time `json:"interaction_time"`
	ReporterID     string    `json:"reporter_id,omitempty"`
	PlaceID        string    `json:"place_id,omitempty"`
	WildlifeIssues []string  `json:"wildlife_issues,omitempty"`
	OtherIssues    []string  `json:"other_issues,omitempty"`
}

// RecentReports returns the newest disturbance reports by interaction time.
func (c *Client) RecentReports(ctx context.Context, limit int) ([]RemoteReport, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("sort", "-field_interaction_time")
	params.Set("page[limit]", strconv.Itoa(limit))

	var doc document
	if err := c.do(ctx, http.MethodGet, c.endpoint("node/disturbance_report")+"?"+params.Encode(), nil, &doc); err != nil {
		return nil, err
	}
	var items []resource
	if err := json.Unmarshal(doc.Data, &items); err != nil {
		return nil, err
	}

	out := make([]RemoteReport, 0, len(items))
	for _, r := range items {
		var attrs struct {
			InteractionTime string `json:"field_interaction_time"`
			Details         *struct {
				Value string `json:"value"`
			} `json:"field_details"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			c.logger.Warn("skipping unreadable report", slog.String("id", r.ID), slog.Any("error", err))
			continue
		}
		rep := RemoteReport{
			ID:             r.ID,
			ReporterID:     r.relatedID("field_reporter"),
			PlaceID:        r.relatedID("field_place"),
			WildlifeIssues: r.relatedIDs("field_wildlife_disturbance"),
			OtherIssues:    r.relatedIDs("field_other_disturbance"),
		}
		if attrs.Details != nil {
			rep.Details = attrs.Details.Value
		}
		if t, err := parseTime(attrs.InteractionTime); err == nil {
			rep.Interaction = t
		}
		out = append(out, rep)
	}
	return out, nil
}

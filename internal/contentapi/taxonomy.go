package contentapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"docent_bot/internal/models"
)

const (
	VocabPlaces   = "places"
	VocabWildlife = "wildlife_disturbance"
	VocabOther    = "other_disturbance"
)

// GetTaxonomy returns the terms of a vocabulary sorted by name, then id.
// which may be the bare vocabulary ("places") or the resource type
// ("taxonomy_term--places"). Config.Bundles may point a vocabulary at a
// differently named bundle.
func (c *Client) GetTaxonomy(ctx context.Context, which string) ([]models.Term, error) {
	vocab := which
	if _, after, ok := strings.Cut(which, "--"); ok {
		vocab = after
	}
	bundle := vocab
	if b, ok := c.bundles[vocab]; ok {
		bundle = b
	}
	raw, err := c.getAll(ctx, "taxonomy_term/"+url.PathEscape(bundle), nil)
	if err != nil {
		return nil, err
	}

	terms := make([]models.Term, 0, len(raw))
	for _, r := range raw {
		var attrs struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			c.logger.Warn("skipping unreadable term", slog.String("vocabulary", vocab), slog.String("id", r.ID), slog.Any("error", err))
			continue
		}
		terms = append(terms, models.Term{Name: attrs.Name, ID: r.ID})
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTerms, which)
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Name != terms[j].Name {
			return terms[i].Name < terms[j].Name
		}
		return terms[i].ID < terms[j].ID
	})
	return terms, nil
}

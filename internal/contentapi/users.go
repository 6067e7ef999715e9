package contentapi

import (
	"context"
	"fmt"
	"net/url"

	json "github.com/goccy/go-json"

	"docent_bot/internal/models"
)

type userAttributes struct {
	UID         int    `json:"drupal_internal__uid"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Mail        string `json:"mail"`
}

func toUser(r resource) (models.SiteUser, error) {
	var attrs userAttributes
	if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
		return models.SiteUser{}, fmt.Errorf("%w: user %s: %v", ErrMalformed, r.ID, err)
	}
	name := attrs.DisplayName
	if name == "" {
		name = attrs.Name
	}
	return models.SiteUser{ID: r.ID, UID: attrs.UID, Name: name, Email: attrs.Mail}, nil
}

// GetUser fetches one account. Returns ErrNotFound for unknown ids and
// ErrMalformed when the record cannot be read.
func (c *Client) GetUser(ctx context.Context, id string) (models.SiteUser, error) {
	r, err := c.getOne(ctx, "user/user/"+url.PathEscape(id))
	if err != nil {
		return models.SiteUser{}, err
	}
	return toUser(r)
}

// ListUsers walks every page of site accounts.
func (c *Client) ListUsers(ctx context.Context) ([]models.SiteUser, error) {
	raw, err := c.getAll(ctx, "user/user", nil)
	if err != nil {
		return nil, err
	}
	users := make([]models.SiteUser, 0, len(raw))
	for _, r := range raw {
		u, err := toUser(r)
		if err != nil {
			c.logger.Warn("skipping unreadable user", "id", r.ID, "error", err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// GetSignups returns the signed up user ids per activity id for the given
// activities, in one filtered request. Signups missing either side of the
// relationship are ignored.
func (c *Client) GetSignups(ctx context.Context, activityIDs []string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(activityIDs) == 0 {
		return out, nil
	}
	params := url.Values{}
	filter(params, "sa", "scheduled_activity.id", "IN", activityIDs...)

	raw, err := c.getAll(ctx, "signup/signup", params)
	if err != nil {
		return nil, err
	}
	for _, r := range raw {
		activity := r.relatedID("scheduled_activity")
		user := r.relatedID("user")
		if activity == "" || user == "" {
			c.logger.Warn("skipping signup with missing relationship", "id", r.ID)
			continue
		}
		out[activity] = append(out[activity], user)
	}
	return out, nil
}

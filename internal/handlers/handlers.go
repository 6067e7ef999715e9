// Package handlers serves the admin web view's JSON API.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"docent_bot/internal/cache"
	"docent_bot/internal/contentapi"
	"docent_bot/internal/models"
)

type WhoAtLookup interface {
	Day(offsetDays int) time.Time
	Get(ctx context.Context, day time.Time, where string) (models.WhoAtResult, bool, error)
	Refresh(ctx context.Context, day time.Time, where string) (models.WhoAtResult, error)
	Forget(ctx context.Context, key string) error
}

type ReportStore interface {
	Recent(ctx context.Context, limit int) ([]models.Report, error)
	Get(ctx context.Context, name string) (*models.Report, error)
}

// SiteReader is the read side of the docent site used by the admin view.
type SiteReader interface {
	RecentReports(ctx context.Context, limit int) ([]contentapi.RemoteReport, error)
	GetTaxonomy(ctx context.Context, which string) ([]models.Term, error)
	GetUser(ctx context.Context, id string) (models.SiteUser, error)
}

type Deps struct {
	WhoAt   WhoAtLookup
	Reports ReportStore
	Site    SiteReader
	Lists   cache.Store
	Logger  *slog.Logger
}

// API holds the admin view endpoints other than auth.
type API struct {
	whoat   WhoAtLookup
	reports ReportStore
	site    SiteReader
	lists   cache.Store
	logger  *slog.Logger
}

func NewAPI(d Deps) *API {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		whoat:   d.WhoAt,
		reports: d.Reports,
		site:    d.Site,
		lists:   d.Lists,
		logger:  logger.With(slog.String("component", "admin_api")),
	}
}

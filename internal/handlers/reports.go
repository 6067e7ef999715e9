package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docent_bot/internal/models"
	"docent_bot/internal/report"
	"docent_bot/internal/response"
	"docent_bot/internal/tasks"
)

// ReportItem is a filed report as shown in the admin view.
type ReportItem struct {
	// example: DR-12
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	RemoteID        string    `json:"remote_id,omitempty"`
	InteractionTime time.Time `json:"interaction_time"`
	Place           string    `json:"place"`
	WildlifeIssues  string    `json:"wildlife_issues,omitempty"`
	OtherIssues     string    `json:"other_issues,omitempty"`
	Details         string    `json:"details,omitempty"`
	Reporter        string    `json:"reporter"`
	Warning         string    `json:"warning,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toReportItem(r models.Report) ReportItem {
	return ReportItem{
		ID:              report.DisplayID(r),
		Type:            r.Type,
		RemoteID:        r.RemoteID,
		InteractionTime: r.InteractionTime,
		Place:           r.Place,
		WildlifeIssues:  r.WildlifeIssues,
		OtherIssues:     r.OtherIssues,
		Details:         r.Details,
		Reporter:        r.Reporter,
		Warning:         r.Warning,
		CreatedAt:       r.CreatedAt,
	}
}

func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || n <= 0 || n > 100 {
		return 20
	}
	return n
}

// ListReports godoc
// @Summary		Recent reports
// @Description	Reports filed through the bot, newest interaction first
// @Tags			reports
// @Produce		json
// @Security		BearerAuth
// @Param			limit	query		int	false	"At most this many, 1-100"
// @Success		200		{array}		ReportItem				"Reports"
// @Failure		500		{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/reports [get]
func (a *API) ListReports(c *gin.Context) {
	reps, err := a.reports.Recent(c, limitParam(c))
	if err != nil {
		a.logger.Error("list reports failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Could not list reports",
		})
		return
	}
	items := make([]ReportItem, 0, len(reps))
	for _, r := range reps {
		items = append(items, toReportItem(r))
	}
	c.JSON(http.StatusOK, items)
}

// GetReport godoc
// @Summary		One report
// @Tags			reports
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		string	true	"Display id such as DR-12, or the bare number"
// @Success		200	{object}	ReportItem				"Report"
// @Failure		404	{object}	response.ErrorResponse	"NOT_FOUND"
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/reports/{id} [get]
func (a *API) GetReport(c *gin.Context) {
	rep, err := a.reports.Get(c, c.Param("id"))
	if errors.Is(err, report.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "No such report",
			Details: c.Param("id"),
		})
		return
	}
	if err != nil {
		a.logger.Error("get report failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Could not load report",
		})
		return
	}
	c.JSON(http.StatusOK, toReportItem(*rep))
}

// RemoteReportItem is a docent site report with its place, issues and
// reporter resolved to names. Unresolvable ids show as "Unk".
type RemoteReportItem struct {
	ID              string    `json:"id"`
	InteractionTime time.Time `json:"interaction_time"`
	Details         string    `json:"details,omitempty"`
	// example: Bird Island
	Place string `json:"place"`
	// example: Drones,Kayakers
	WildlifeIssues string `json:"wildlife_issues,omitempty"`
	OtherIssues    string `json:"other_issues,omitempty"`
	Reporter       string `json:"reporter"`
}

const unknownName = "Unk"

// ListRemoteReports godoc
// @Summary		Reports on the docent site
// @Description	Disturbance reports as stored on the site, including ones not filed through the bot
// @Tags			reports
// @Produce		json
// @Security		BearerAuth
// @Param			limit	query		int	false	"At most this many, 1-100"
// @Success		200		{array}		RemoteReportItem		"Reports"
// @Failure		502		{object}	response.ErrorResponse	"UPSTREAM_ERROR"
// @Router			/api/reports/remote [get]
func (a *API) ListRemoteReports(c *gin.Context) {
	reps, err := a.site.RecentReports(c, limitParam(c))
	if err != nil {
		a.logger.Error("remote reports failed", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, response.ErrorResponse{
			Code:    "UPSTREAM_ERROR",
			Message: "Could not list reports on the docent site",
		})
		return
	}

	names := make(map[string]string)
	for _, list := range tasks.AuxLists {
		terms, err := a.loadList(c, list)
		if err != nil {
			continue
		}
		for _, t := range terms {
			names[t.ID] = t.Name
		}
	}
	reporters := make(map[string]string)
	reporter := func(id string) string {
		if id == "" {
			return unknownName
		}
		if name, ok := reporters[id]; ok {
			return name
		}
		name := unknownName
		if u, err := a.site.GetUser(c, id); err != nil {
			a.logger.Warn("reporter lookup failed", slog.String("user", id), slog.Any("error", err))
		} else if u.Name != "" {
			name = u.Name
		}
		reporters[id] = name
		return name
	}

	items := make([]RemoteReportItem, 0, len(reps))
	for _, r := range reps {
		items = append(items, RemoteReportItem{
			ID:              r.ID,
			InteractionTime: r.Interaction,
			Details:         r.Details,
			Place:           termName(names, r.PlaceID),
			WildlifeIssues:  termNames(names, r.WildlifeIssues),
			OtherIssues:     termNames(names, r.OtherIssues),
			Reporter:        reporter(r.ReporterID),
		})
	}
	c.JSON(http.StatusOK, items)
}

func termName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return unknownName
}

func termNames(names map[string]string, ids []string) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, termName(names, id))
	}
	return strings.Join(out, ",")
}

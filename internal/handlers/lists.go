package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"docent_bot/internal/cache"
	"docent_bot/internal/contentapi"
	"docent_bot/internal/models"
	"docent_bot/internal/response"
	"docent_bot/internal/tasks"
)

// ListResponse is one report dialog option list.
type ListResponse struct {
	// example: list:places
	Key   string        `json:"key"`
	Items []models.Term `json:"items"`
}

// GetList godoc
// @Summary		Report dialog list
// @Description	Returns places, wildlife_issues or other_issues, filling the cache from the site on a miss
// @Tags			lists
// @Produce		json
// @Security		BearerAuth
// @Param			name	path		string	true	"places | wildlife_issues | other_issues"
// @Success		200		{object}	ListResponse			"Options sorted by name"
// @Failure		404		{object}	response.ErrorResponse	"UNKNOWN_LIST"
// @Failure		502		{object}	response.ErrorResponse	"UPSTREAM_ERROR"
// @Router			/api/lists/{name} [get]
func (a *API) GetList(c *gin.Context) {
	key := "list:" + c.Param("name")
	var list *tasks.AuxList
	for i := range tasks.AuxLists {
		if tasks.AuxLists[i].Key == key {
			list = &tasks.AuxLists[i]
		}
	}
	if list == nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "UNKNOWN_LIST",
			Message: "No such list",
			Details: c.Param("name"),
		})
		return
	}

	terms, err := a.loadList(c, *list)
	if err != nil {
		msg := "Could not load the list from the docent site"
		if errors.Is(err, contentapi.ErrNoTerms) {
			msg = "The docent site returned an empty list"
		}
		c.JSON(http.StatusBadGateway, response.ErrorResponse{Code: "UPSTREAM_ERROR", Message: msg})
		return
	}
	c.JSON(http.StatusOK, ListResponse{Key: list.Key, Items: terms})
}

// loadList reads a dialog list from the cache, filling it from the site on a
// miss.
func (a *API) loadList(ctx context.Context, list tasks.AuxList) ([]models.Term, error) {
	var terms []models.Term
	ok, err := a.lists.Get(ctx, list.Key, &terms)
	if err != nil {
		a.logger.Warn("list cache read failed", slog.String("key", list.Key), slog.Any("error", err))
	}
	if ok {
		return terms, nil
	}

	terms, err = a.site.GetTaxonomy(ctx, list.Vocab)
	if err != nil {
		a.logger.Error("taxonomy fetch failed", slog.String("vocab", list.Vocab), slog.Any("error", err))
		return nil, err
	}
	if err := a.lists.Put(ctx, list.Key, terms, cache.AlwaysWrite); err != nil {
		a.logger.Error("list cache write failed", slog.String("key", list.Key), slog.Any("error", err))
	}
	return terms, nil
}

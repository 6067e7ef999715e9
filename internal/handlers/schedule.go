package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docent_bot/internal/models"
	"docent_bot/internal/response"
	"docent_bot/internal/whoat"
)

// GetWhoAt godoc
// @Summary		Who's at the reserve
// @Description	Returns the grouped schedule for a reserve-local day, from the cache when present
// @Tags			whoat
// @Produce		json
// @Security		BearerAuth
// @Param			day		query		string	false	"Day as YYYYMMDD, defaults to today"
// @Param			where	query		string	false	"Activity type tag, defaults to all"
// @Param			fresh	query		bool	false	"Skip the cache and query the site"
// @Success		200		{object}	response.WhoAtResponse	"Schedule"
// @Failure		400		{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		502		{object}	response.ErrorResponse	"UPSTREAM_ERROR"
// @Router			/api/whoat [get]
func (a *API) GetWhoAt(c *gin.Context) {
	today := a.whoat.Day(0)
	day := today
	if raw := c.Query("day"); raw != "" {
		d, err := time.ParseInLocation(whoat.DayLayout, raw, today.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid day",
				Details: "day must be YYYYMMDD",
			})
			return
		}
		day = d
	}
	where := strings.TrimSpace(c.DefaultQuery("where", whoat.AllLocations))
	if where == "" {
		where = whoat.AllLocations
	}

	var (
		res    models.WhoAtResult
		cached bool
		err    error
	)
	if c.Query("fresh") == "true" {
		res, err = a.whoat.Refresh(c, day, where)
	} else {
		res, cached, err = a.whoat.Get(c, day, where)
	}
	if err != nil {
		a.logger.Error("who at lookup failed", slog.String("day", day.Format(whoat.DayLayout)), slog.String("where", where), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, response.ErrorResponse{
			Code:    "UPSTREAM_ERROR",
			Message: "Could not retrieve the schedule from the docent site",
		})
		return
	}

	c.JSON(http.StatusOK, response.WhoAtResponse{
		Key:    whoat.CacheKey(day, where),
		Cached: cached,
		Result: res,
	})
}

// DeleteCacheKey godoc
// @Summary		Delete a cache key
// @Description	Removes one cached value. Deleting a missing key succeeds.
// @Tags			whoat
// @Produce		json
// @Security		BearerAuth
// @Param			key	path		string	true	"Cache key, e.g. 20240711:all"
// @Success		200	{object}	response.SuccessResponse	"Deleted"
// @Failure		500	{object}	response.ErrorResponse		"CACHE_ERROR"
// @Router			/api/cache/{key} [delete]
func (a *API) DeleteCacheKey(c *gin.Context) {
	key := c.Param("key")
	if err := a.whoat.Forget(c, key); err != nil {
		a.logger.Error("cache delete failed", slog.String("key", key), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "CACHE_ERROR",
			Message: "Could not delete cache key",
		})
		return
	}
	a.logger.Info("cache key deleted", slog.String("key", key), slog.Any("by", c.Value("userID")))
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Deleted " + key})
}

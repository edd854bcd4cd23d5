package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/goalconvo/goalconvo/pkg/store"
)

// listDialoguesHandler handles GET /api/dialogues?domain=&limit=&min_quality=.
// Without an explicit min_quality the configured judge quality threshold
// applies, so the default listing only shows dialogues fit for training.
func (s *Server) listDialoguesHandler(c *echo.Context) error {
	filter := store.DialogueFilter{
		Domain:     c.QueryParam("domain"),
		MinQuality: s.cfg.Judge.QualityThreshold,
	}

	if raw := c.QueryParam("min_quality"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "min_quality must be a number between 0 and 1")
		}
		filter.MinQuality = v
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = n
	}

	dialogues, err := s.store.LoadDialogues(filter)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, DialoguesResponse{Dialogues: dialogues, Count: len(dialogues)})
}

// statisticsHandler handles GET /api/statistics.
func (s *Server) statisticsHandler(c *echo.Context) error {
	stats, err := s.store.Stats()
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

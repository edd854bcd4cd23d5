package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/goalconvo/goalconvo/pkg/humaneval"
	"github.com/goalconvo/goalconvo/pkg/pipeline"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, versioning.ErrNotFound),
		errors.Is(err, humaneval.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case errors.Is(err, humaneval.ErrInvalidRating):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, versioning.ErrEmptyDataset):
		return echo.NewHTTPError(http.StatusConflict, "no dialogues to snapshot")
	case errors.Is(err, pipeline.ErrRunInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, versioning.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

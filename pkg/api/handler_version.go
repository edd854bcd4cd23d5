package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/goalconvo/goalconvo/pkg/versioning"
)

// listVersionsHandler handles GET /api/versions.
func (s *Server) listVersionsHandler(c *echo.Context) error {
	versions, err := s.versions.List()
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, versions)
}

// getVersionHandler handles GET /api/versions/:id.
func (s *Server) getVersionHandler(c *echo.Context) error {
	versionID := c.Param("id")
	if versionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "version id is required")
	}

	v, err := s.versions.Get(versionID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// versionDialoguesHandler handles GET /api/versions/:id/dialogues.
func (s *Server) versionDialoguesHandler(c *echo.Context) error {
	versionID := c.Param("id")
	if versionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "version id is required")
	}

	dialogues, err := s.versions.Dialogues(versionID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dialogues)
}

// tagVersionHandler handles POST /api/versions/:id/tags.
func (s *Server) tagVersionHandler(c *echo.Context) error {
	versionID := c.Param("id")
	if versionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "version id is required")
	}

	var req TagVersionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Tags) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tags field is required")
	}

	v, err := s.versions.Tag(versionID, req.Tags)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// compareVersionsHandler handles GET /api/versions/compare?a=&b=.
func (s *Server) compareVersionsHandler(c *echo.Context) error {
	a, b := c.QueryParam("a"), c.QueryParam("b")
	if a == "" || b == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameters a and b are required")
	}

	cmp, err := s.versions.Compare(a, b)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, cmp)
}

// exportVersionHandler handles GET /api/versions/:id/export?format=.
// Single-file formats download directly; multi-file formats (hf) return a
// JSON envelope with the files base64-encoded by the default marshaller.
func (s *Server) exportVersionHandler(c *echo.Context) error {
	versionID := c.Param("id")
	if versionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "version id is required")
	}
	format := c.QueryParam("format")
	if format == "" {
		format = versioning.FormatJSON
	}

	result, err := s.versions.Export(versionID, format)
	if err != nil {
		return mapServiceError(err)
	}

	if len(result.Files) == 1 {
		f := result.Files[0]
		c.Response().Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
		return c.Blob(http.StatusOK, contentTypeFor(f.Name), f.Data)
	}
	return c.JSON(http.StatusOK, result)
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

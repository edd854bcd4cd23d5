package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/goalconvo/goalconvo/pkg/pipeline"
)

// runPipelineHandler handles POST /api/pipeline/run.
// Validates the request, then starts the run in the background and returns
// immediately with the session id; clients follow progress over
// /ws/:session_id.
func (s *Server) runPipelineHandler(c *echo.Context) error {
	var req RunPipelineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	runReq := pipeline.RunRequest{
		NumDialogues:  req.NumDialogues,
		Domains:       req.Domains,
		SessionID:     req.SessionID,
		ExperimentTag: req.ExperimentTag,
		Overrides:     req.Overrides,
	}
	if err := s.runner.Validate(&runReq); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	go func() {
		// The run outlives the HTTP request; failures surface on the
		// event stream.
		if _, err := s.runner.Run(context.Background(), runReq); err != nil {
			slog.Error("Pipeline run failed",
				"session_id", runReq.SessionID, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, &RunPipelineResponse{
		SessionID: req.SessionID,
		Status:    "started",
	})
}

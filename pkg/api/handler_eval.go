package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// createEvalTasksHandler handles POST /api/eval/tasks.
func (s *Server) createEvalTasksHandler(c *echo.Context) error {
	var req CreateEvalTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.DialogueIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "dialogue_ids field is required")
	}

	tasks, err := s.humanEval.CreateTasks(req.DialogueIDs)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, tasks)
}

// listEvalTasksHandler handles GET /api/eval/tasks?status=.
func (s *Server) listEvalTasksHandler(c *echo.Context) error {
	tasks, err := s.humanEval.ListTasks(c.QueryParam("status"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// submitAnnotationHandler handles POST /api/eval/annotations.
func (s *Server) submitAnnotationHandler(c *echo.Context) error {
	var req SubmitAnnotationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TaskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task_id field is required")
	}
	if req.Annotator == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "annotator field is required")
	}

	annotation, err := s.humanEval.SubmitAnnotation(req.TaskID, req.Annotator, req.Ratings, req.Comment)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, annotation)
}

// dialogueAnnotationsHandler handles GET /api/eval/dialogues/:id/annotations.
func (s *Server) dialogueAnnotationsHandler(c *echo.Context) error {
	dialogueID := c.Param("id")
	if dialogueID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dialogue id is required")
	}

	annotations, err := s.humanEval.DialogueAnnotations(dialogueID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, annotations)
}

// dialogueAgreementHandler handles GET /api/eval/dialogues/:id/agreement.
func (s *Server) dialogueAgreementHandler(c *echo.Context) error {
	dialogueID := c.Param("id")
	if dialogueID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dialogue id is required")
	}

	agreement, err := s.humanEval.AgreementForDialogue(dialogueID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, agreement)
}

// evalStatisticsHandler handles GET /api/eval/statistics.
func (s *Server) evalStatisticsHandler(c *echo.Context) error {
	stats, err := s.humanEval.Statistics()
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// evalExportHandler handles GET /api/eval/export.
func (s *Server) evalExportHandler(c *echo.Context) error {
	export, err := s.humanEval.Export()
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, export)
}

// Package api exposes the REST and WebSocket surface of the service: run
// the generation pipeline, browse and export dataset versions, manage
// human evaluation, and stream live run events.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/events"
	"github.com/goalconvo/goalconvo/pkg/humaneval"
	"github.com/goalconvo/goalconvo/pkg/pipeline"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

// Server wires the HTTP handlers to the service layer.
type Server struct {
	cfg         *config.Config
	runner      *pipeline.Runner
	versions    *versioning.Manager
	humanEval   *humaneval.Service
	connManager *events.ConnectionManager
	store       *store.Store
	providers   []string

	httpServer *http.Server
}

// NewServer creates the API server with all routes registered.
func NewServer(cfg *config.Config, runner *pipeline.Runner, versions *versioning.Manager, humanEval *humaneval.Service, connManager *events.ConnectionManager, st *store.Store) *Server {
	s := &Server{
		cfg:         cfg,
		runner:      runner,
		versions:    versions,
		humanEval:   humanEval,
		connManager: connManager,
		store:       st,
	}

	e := echo.New()
	e.Use(securityHeaders())
	e.Use(corsHeaders())

	api := e.Group("/api")
	api.GET("/health", s.healthHandler)

	api.POST("/pipeline/run", s.runPipelineHandler)

	api.GET("/dialogues", s.listDialoguesHandler)
	api.GET("/statistics", s.statisticsHandler)

	api.GET("/versions", s.listVersionsHandler)
	api.GET("/versions/compare", s.compareVersionsHandler)
	api.GET("/versions/:id", s.getVersionHandler)
	api.GET("/versions/:id/dialogues", s.versionDialoguesHandler)
	api.POST("/versions/:id/tags", s.tagVersionHandler)
	api.GET("/versions/:id/export", s.exportVersionHandler)

	api.POST("/eval/tasks", s.createEvalTasksHandler)
	api.GET("/eval/tasks", s.listEvalTasksHandler)
	api.POST("/eval/annotations", s.submitAnnotationHandler)
	api.GET("/eval/dialogues/:id/annotations", s.dialogueAnnotationsHandler)
	api.GET("/eval/dialogues/:id/agreement", s.dialogueAgreementHandler)
	api.GET("/eval/statistics", s.evalStatisticsHandler)
	api.GET("/eval/export", s.evalExportHandler)

	e.GET("/ws/:session_id", s.wsHandler)

	s.httpServer = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetProviders records the names of the configured LLM providers for the
// health endpoint. Call before Start.
func (s *Server) SetProviders(providers []string) {
	s.providers = providers
}

// Start listens on addr and serves requests. Blocks until Shutdown or a
// listener error.
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

package api

import "github.com/goalconvo/goalconvo/pkg/models"

// RunPipelineResponse acknowledges a started run. Progress streams over
// the session's WebSocket channel.
type RunPipelineResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// DialoguesResponse is the GET /api/dialogues body.
type DialoguesResponse struct {
	Dialogues []models.Dialogue `json:"dialogues"`
	Count     int               `json:"count"`
}

// HealthResponse is the GET /api/health body.
type HealthResponse struct {
	Status            string   `json:"status"`
	Providers         []string `json:"providers"`
	ActiveConnections int      `json:"active_connections"`
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/events"
	"github.com/goalconvo/goalconvo/pkg/humaneval"
	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/pipeline"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

// newTestServer wires a Server over a temp store with no LLM client. The
// pipeline runner only serves request validation in these tests.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Generation.Domains = []string{"hotel"}

	bus := events.NewBus(0)
	connManager := events.NewConnectionManager(bus, time.Second)
	versions := versioning.NewManager(st)
	humanEval := humaneval.NewService(st)
	runner := pipeline.NewRunner(nil, st, bus, versions, nil, cfg)

	s := NewServer(cfg, runner, versions, humanEval, connManager, st)
	s.SetProviders([]string{"gemini"})
	return s, st
}

// doRequest routes a request through the full router so path parameters and
// route ordering are exercised.
func doRequest(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func saveTestDialogue(t *testing.T, st *store.Store, id string) {
	t.Helper()

	now := time.Now().UTC()
	d := &models.Dialogue{
		DialogueID: id,
		Goal:       "Book a cheap hotel in the north",
		Domain:     "hotel",
		Turns: []models.Turn{
			{Role: models.RoleUser, Text: "I need a cheap hotel in the north.", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "Alpha Lodge fits, shall I book it?", Timestamp: now.Add(time.Second)},
			{Role: models.RoleUser, Text: "Yes please.", Timestamp: now.Add(2 * time.Second)},
			{Role: models.RoleSupportBot, Text: "Booked, your reference number is A7KX2P.", Timestamp: now.Add(3 * time.Second)},
		},
		Metadata: models.DialogueMetadata{
			NumTurns:     4,
			GeneratedAt:  now,
			QualityScore: 0.85,
		},
	}
	require.NoError(t, st.SaveDialogue(d))
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, []string{"gemini"}, resp.Providers)
	require.Equal(t, 0, resp.ActiveConnections)
}

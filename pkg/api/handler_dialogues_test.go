package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/store"
)

func saveLowQualityDialogue(t *testing.T, st *store.Store, id, domain string) {
	t.Helper()

	now := time.Now().UTC()
	d := &models.Dialogue{
		DialogueID: id,
		Goal:       "Book a taxi to the station",
		Domain:     domain,
		Turns: []models.Turn{
			{Role: models.RoleUser, Text: "I need a taxi.", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "Where to?", Timestamp: now.Add(time.Second)},
		},
		Metadata: models.DialogueMetadata{
			NumTurns:     2,
			GeneratedAt:  now,
			QualityScore: 0.4,
		},
	}
	require.NoError(t, st.SaveDialogue(d))
}

func TestListDialoguesAppliesConfiguredQualityFloor(t *testing.T) {
	s, st := newTestServer(t)
	s.cfg.Judge.QualityThreshold = 0.7

	saveTestDialogue(t, st, "good")
	saveLowQualityDialogue(t, st, "low", "taxi")

	rec := doRequest(t, s, http.MethodGet, "/api/dialogues", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DialoguesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "good", resp.Dialogues[0].DialogueID)

	// An explicit min_quality overrides the configured floor.
	rec = doRequest(t, s, http.MethodGet, "/api/dialogues?min_quality=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestListDialoguesDomainAndLimit(t *testing.T) {
	s, st := newTestServer(t)

	saveTestDialogue(t, st, "h1")
	saveTestDialogue(t, st, "h2")
	saveLowQualityDialogue(t, st, "t1", "taxi")

	rec := doRequest(t, s, http.MethodGet, "/api/dialogues?domain=taxi", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DialoguesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "taxi", resp.Dialogues[0].Domain)

	rec = doRequest(t, s, http.MethodGet, "/api/dialogues?domain=hotel&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestListDialoguesRejectsBadParams(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/dialogues?min_quality=1.5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/dialogues?min_quality=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/dialogues?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatisticsHandler(t *testing.T) {
	s, st := newTestServer(t)
	saveTestDialogue(t, st, "d1")
	saveLowQualityDialogue(t, st, "d2", "taxi")

	rec := doRequest(t, s, http.MethodGet, "/api/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalDialogues)
	assert.Equal(t, 1, stats.ByDomain["hotel"])
	assert.Equal(t, 1, stats.ByDomain["taxi"])
	assert.InDelta(t, 3.0, stats.AvgTurns, 1e-9)
	assert.InDelta(t, 0.625, stats.AvgQuality, 1e-9)
	assert.InDelta(t, 0.4, stats.MinQuality, 1e-9)
	assert.InDelta(t, 0.85, stats.MaxQuality, 1e-9)
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalconvo/goalconvo/pkg/models"
)

func TestVersionEndpoints(t *testing.T) {
	s, st := newTestServer(t)
	saveTestDialogue(t, st, "dlg_api_1")
	saveTestDialogue(t, st, "dlg_api_2")

	v, err := s.versions.Create("api test snapshot", []string{"test"}, nil)
	require.NoError(t, err)

	t.Run("list versions", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/versions", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var versions []models.Version
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
		require.Len(t, versions, 1)
		assert.Equal(t, v.VersionID, versions[0].VersionID)
	})

	t.Run("get version", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/versions/"+v.VersionID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.Version
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 2, got.NumDialogues)
	})

	t.Run("unknown version is 404", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/versions/v_does_not_exist", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("version dialogues", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/versions/"+v.VersionID+"/dialogues", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var dialogues []models.Dialogue
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dialogues))
		assert.Len(t, dialogues, 2)
	})

	t.Run("tag version", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/versions/"+v.VersionID+"/tags",
			&TagVersionRequest{Tags: []string{"release"}})
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.Version
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Contains(t, got.Tags, "release")
	})

	t.Run("tag without tags is 400", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/versions/"+v.VersionID+"/tags",
			&TagVersionRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("compare requires both ids", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/versions/compare?a="+v.VersionID, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("compare version with itself", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet,
			"/api/versions/compare?a="+v.VersionID+"&b="+v.VersionID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var cmp models.VersionComparison
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
		assert.Equal(t, 2, cmp.DialoguesA)
	})

	t.Run("export downloads a json attachment", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/versions/"+v.VersionID+"/export", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.True(t, strings.Contains(rec.Body.String(), "dlg_api_1"))
	})

	t.Run("export jsonl sets ndjson content type", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet,
			"/api/versions/"+v.VersionID+"/export?format=jsonl", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	})

	t.Run("unknown export format is 400", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet,
			"/api/versions/"+v.VersionID+"/export?format=parquet", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

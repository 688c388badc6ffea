package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_RequiresToken(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	resp := ts.api.Post("/api/v1/generate", map[string]any{"prompt": "a fractions game"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGenerate_ReturnsContentTitleAndDescription(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")
	resp := ts.api.Post("/api/v1/generate", "Authorization: Bearer "+token, map[string]any{
		"prompt": "a game about equivalent fractions for 4th grade",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var generated GenerateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &generated))
	assert.Equal(t, "<html><body>Generated</body></html>", generated.HTMLContent)
	assert.Equal(t, "Fraction Frenzy", generated.Title)
	assert.Equal(t, "Match equivalent fractions", generated.Description)
}

func TestRefine_ReturnsRevisedDocument(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")
	resp := ts.api.Post("/api/v1/refine", "Authorization: Bearer "+token, map[string]any{
		"instruction": "make the timer longer",
		"currentHtml": "<html><body>Generated</body></html>",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var refined RefineResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refined))
	assert.Equal(t, "<html><body>Refined</body></html>", refined.HTMLContent)
}

func TestSuggestIdeas(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")
	resp := ts.api.Post("/api/v1/ideas", "Authorization: Bearer "+token, map[string]any{
		"subject": "Science",
		"grade":   5,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var ideas IdeasResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ideas))
	assert.Len(t, ideas.Ideas, 3)
}

func TestSettings_RoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")

	resp := ts.api.Get("/api/v1/settings", "Authorization: Bearer "+token)
	require.Equal(t, http.StatusOK, resp.Code)

	var current SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &current))
	assert.False(t, current.UseCustomPrompts)

	prompt := "Build an educational HTML minigame. Output a single standalone HTML document with inline CSS and JavaScript. The game must be playable offline and suitable for the requested grade."
	resp = ts.api.Put("/api/v1/settings", "Authorization: Bearer "+token, map[string]any{
		"useCustomPrompts": true,
		"customMainPrompt": prompt,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var updated SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.True(t, updated.UseCustomPrompts)
	assert.Equal(t, prompt, updated.CustomMainPrompt)
}

func TestSettings_RejectsInvalidCustomPrompt(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token := ts.issueToken(t, "user-1", "Alice")
	resp := ts.api.Put("/api/v1/settings", "Authorization: Bearer "+token, map[string]any{
		"useCustomPrompts": true,
		"customMainPrompt": "too short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

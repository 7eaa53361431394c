package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/gauntlet/internal/repository"
	"github.com/dom/gauntlet/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertRanking checks the player order of a standings table.
func AssertRanking(t *testing.T, standings *service.RoundStandings, names ...string) {
	t.Helper()

	got := make([]string, len(standings.Rows))
	for i, row := range standings.Rows {
		got[i] = row.PlayerName
	}
	assert.Equal(t, names, got, "unexpected ranking")
}

// RoundEntryNames lists the players registered in a round in registration
// order.
func RoundEntryNames(t *testing.T, repos *repository.Repositories, roundID uint) []string {
	t.Helper()

	entries, err := repos.PlayerRound.GetByRoundID(context.Background(), roundID)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.PlayerName
	}
	return names
}

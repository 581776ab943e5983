package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/google/uuid"
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

// AssertCandidates verifies the queue lists exactly ids, in order.
func AssertCandidates(t *testing.T, view matchmaking.QueueView, ids ...uuid.UUID) {
	t.Helper()

	got := make([]uuid.UUID, 0, len(view.Candidates))
	for _, c := range view.Candidates {
		got = append(got, c.UserID)
	}
	if len(ids) == 0 {
		ids = []uuid.UUID{}
	}
	assert.Equal(t, ids, got, "unexpected queue candidates")
}

// AssertDeclined verifies conn's newest INVITE_DECLINED carries reason.
func AssertDeclined(t *testing.T, conn *RecordingConn, reason matchmaking.Reason) {
	t.Helper()

	evt, ok := conn.Last(matchmaking.EventInviteDeclined)
	require.True(t, ok, "no INVITE_DECLINED delivered")
	payload, ok := evt.Payload.(matchmaking.InviteDeclinedPayload)
	require.True(t, ok, "unexpected payload type %T", evt.Payload)
	assert.Equal(t, reason, payload.Reason)
}

package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/dom/speed-dating/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestQueueHandler_Get(t *testing.T) {
	ts := testutil.NewTestServer(t)
	alice, aliceToken, _ := testutil.NewUserBuilder().WithDisplayName("alice").BuildAndAuthenticate(t, ts)
	bob, bobToken, _ := testutil.NewUserBuilder().WithDisplayName("bob").BuildAndAuthenticate(t, ts)

	bobWS := testutil.NewWSClient(t, ts.WebSocketURL(bobToken))
	bobWS.JoinQueue()
	bobWS.ExpectPresence(bob.ID, true, 2*time.Second)

	resp := authedGet(t, ts.APIURL("/queue"), aliceToken)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var view matchmaking.QueueView
	testutil.AssertJSONResponse(t, resp, &view)
	testutil.AssertCandidates(t, view, bob.ID)
	assert.Equal(t, "bob", view.Candidates[0].DisplayName)
	assert.Equal(t, 1, view.TotalOnlineCount)

	t.Run("reported users are hidden", func(t *testing.T) {
		ts.Directory.Report(alice.ID, bob.ID)
		resp := authedGet(t, ts.APIURL("/queue"), aliceToken)

		var view matchmaking.QueueView
		testutil.AssertJSONResponse(t, resp, &view)
		testutil.AssertCandidates(t, view)
		assert.Equal(t, 1, view.TotalOnlineCount)
	})

	t.Run("banned users are turned away", func(t *testing.T) {
		carol, carolToken, _ := testutil.NewUserBuilder().WithDisplayName("carol").BuildAndAuthenticate(t, ts)
		ts.Directory.Ban(carol.ID)

		resp := authedGet(t, ts.APIURL("/queue"), carolToken)
		testutil.AssertStatusCode(t, resp, http.StatusForbidden)

		resp = authedGet(t, ts.APIURL("/history"), carolToken)
		testutil.AssertStatusCode(t, resp, http.StatusForbidden)
	})

	t.Run("no access", func(t *testing.T) {
		ts.Directory.DenyAccess(alice.ID)
		resp := authedGet(t, ts.APIURL("/queue"), aliceToken)
		testutil.AssertStatusCode(t, resp, http.StatusPaymentRequired)
	})
}

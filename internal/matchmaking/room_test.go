package matchmaking_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/dom/speed-dating/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callFixture struct {
	*testutil.EngineFixture
	Caller     *domain.User
	Callee     *domain.User
	CallerConn *testutil.RecordingConn
	CalleeConn *testutil.RecordingConn
	RoomID     uuid.UUID
}

func startCall(t *testing.T) *callFixture {
	t.Helper()
	f := testutil.NewEngineFixture()
	caller, callerConn := f.Online("alice")
	callee, calleeConn := f.Online("bob")

	inv, err := f.Engine.Invite(caller.ID, callee.ID, 300)
	require.NoError(t, err)
	result, err := f.Engine.Accept(callee.ID, inv.ID, 300)
	require.NoError(t, err)

	return &callFixture{
		EngineFixture: f,
		Caller:        caller,
		Callee:        callee,
		CallerConn:    callerConn,
		CalleeConn:    calleeConn,
		RoomID:        result.RoomID,
	}
}

func TestRoomManager_ShortCallFilter(t *testing.T) {
	tests := []struct {
		name         string
		elapsed      time.Duration
		wantRecorded bool
	}{
		{name: "four seconds is discarded", elapsed: 4 * time.Second, wantRecorded: false},
		{name: "just under five seconds is discarded", elapsed: 5*time.Second - time.Millisecond, wantRecorded: false},
		{name: "exactly five seconds is recorded", elapsed: 5 * time.Second, wantRecorded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startCall(t)
			c.Clock.Advance(tt.elapsed)

			require.NoError(t, c.Engine.EndCall(c.Caller.ID, c.RoomID))

			evt, ok := c.CalleeConn.Last(matchmaking.EventSessionFinalized)
			require.True(t, ok)
			assert.Equal(t, tt.wantRecorded, evt.Payload.(matchmaking.SessionFinalizedPayload).Recorded)

			caller, _ := c.Users.Peek(c.Caller.ID)
			if !tt.wantRecorded {
				assert.Empty(t, c.History.Records())
				assert.Equal(t, 0, c.Engine.Cooldowns.Len())
				assert.Equal(t, int64(0), caller.TotalCallSeconds)
				assert.Equal(t, 0, caller.SessionCount)
				assert.Empty(t, c.CallerConn.OfType(matchmaking.EventMetricsUpdated))
				return
			}

			records := c.History.Records()
			require.Len(t, records, 2)
			assert.True(t, c.Engine.Cooldowns.IsActive(c.Callee.ID, c.Caller.ID))
			assert.Equal(t, int64(5), caller.TotalCallSeconds)
			assert.Equal(t, 1, caller.SessionCount)

			metrics, ok := c.CallerConn.Last(matchmaking.EventMetricsUpdated)
			require.True(t, ok)
			assert.Equal(t, matchmaking.MetricsUpdatedPayload{TotalCallSeconds: 5, SessionCount: 1}, metrics.Payload)
		})
	}
}

func TestRoomManager_MirroredHistory(t *testing.T) {
	c := startCall(t)
	require.NoError(t, c.Engine.Chat(c.Caller.ID, c.RoomID, "hello"))
	require.NoError(t, c.Engine.ShareSocial(c.Callee.ID, c.RoomID, map[string]string{"instagram": "@bob"}))
	c.Clock.Advance(42 * time.Second)
	require.NoError(t, c.Engine.EndCall(c.Callee.ID, c.RoomID))

	records := c.History.Records()
	require.Len(t, records, 2)
	byOwner := map[uuid.UUID]*domain.ChatHistory{records[0].UserID: records[0], records[1].UserID: records[1]}

	mine, theirs := byOwner[c.Caller.ID], byOwner[c.Callee.ID]
	require.NotNil(t, mine)
	require.NotNil(t, theirs)
	assert.Equal(t, mine.SessionID, theirs.SessionID)
	assert.NotEqual(t, mine.ID, theirs.ID)
	assert.Equal(t, c.RoomID, mine.RoomID)
	assert.Equal(t, c.Callee.ID, mine.PartnerID)
	assert.Equal(t, "bob", mine.PartnerName)
	assert.Equal(t, c.Caller.ID, theirs.PartnerID)
	assert.Equal(t, "alice", theirs.PartnerName)
	assert.Equal(t, 42, mine.DurationSeconds)

	require.Len(t, mine.Messages, 2)
	assert.Equal(t, domain.ChatLineText, mine.Messages[0].Kind)
	assert.Equal(t, "hello", mine.Messages[0].Text)
	assert.Equal(t, domain.ChatLineSocial, mine.Messages[1].Kind)
	assert.Equal(t, "@bob", mine.Messages[1].Handles["instagram"])
}

func TestRoomManager_FinalizeIdempotent(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, c *callFixture)
	}{
		{
			name: "end call then disconnect",
			run: func(t *testing.T, c *callFixture) {
				require.NoError(t, c.Engine.EndCall(c.Caller.ID, c.RoomID))
				c.Engine.Disconnect(c.Callee.ID, c.CalleeConn)
			},
		},
		{
			name: "disconnect then end call",
			run: func(t *testing.T, c *callFixture) {
				c.Engine.Disconnect(c.Callee.ID, c.CalleeConn)
				assert.ErrorIs(t, c.Engine.EndCall(c.Caller.ID, c.RoomID), matchmaking.ErrRoomNotFound)
			},
		},
		{
			name: "end call twice",
			run: func(t *testing.T, c *callFixture) {
				require.NoError(t, c.Engine.EndCall(c.Caller.ID, c.RoomID))
				assert.ErrorIs(t, c.Engine.EndCall(c.Callee.ID, c.RoomID), matchmaking.ErrRoomNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startCall(t)
			c.Clock.Advance(30 * time.Second)
			c.CallerConn.Reset()

			tt.run(t, c)

			assert.Len(t, c.History.Records(), 2)
			assert.Equal(t, 1, c.Engine.Cooldowns.Len())
			assert.Equal(t, 0, c.Engine.Rooms.Len())
			assert.Len(t, c.CallerConn.OfType(matchmaking.EventSessionFinalized), 1)

			restored := 0
			for _, evt := range c.CallerConn.OfType(matchmaking.EventPresenceChanged) {
				p := evt.Payload.(matchmaking.PresenceChangedPayload)
				if p.UserID == c.Caller.ID && p.Available {
					restored++
				}
			}
			assert.Equal(t, 1, restored)

			caller, _ := c.Users.Peek(c.Caller.ID)
			assert.Equal(t, 1, caller.SessionCount)
		})
	}
}

func TestRoomManager_Disconnect(t *testing.T) {
	c := startCall(t)
	c.Clock.Advance(20 * time.Second)

	assert.True(t, c.Engine.Disconnect(c.Callee.ID, c.CalleeConn))

	evt, ok := c.CallerConn.Last(matchmaking.EventPeerDisconnected)
	require.True(t, ok)
	assert.Equal(t, matchmaking.PeerDisconnectedPayload{RoomID: c.RoomID, UserID: c.Callee.ID}, evt.Payload)

	final, ok := c.CallerConn.Last(matchmaking.EventSessionFinalized)
	require.True(t, ok)
	assert.Equal(t, matchmaking.EndReasonDisconnected, final.Payload.(matchmaking.SessionFinalizedPayload).Reason)

	records := c.History.Records()
	require.Len(t, records, 2)
	last := records[0].Messages[len(records[0].Messages)-1]
	assert.Equal(t, domain.ChatLineSystem, last.Kind)
	assert.Equal(t, "Call ended due to disconnection", last.Text)

	assert.True(t, c.Engine.Presence.IsAvailable(c.Caller.ID))
	assert.False(t, c.Engine.Presence.IsOnline(c.Callee.ID))
	assert.True(t, c.Engine.Cooldowns.IsActive(c.Caller.ID, c.Callee.ID), "disconnected calls still cool down")
}

func TestRoomManager_RelaySignal(t *testing.T) {
	c := startCall(t)
	stranger := c.Users.Add("mallory", "")
	payload := json.RawMessage(`{"sdp":"v=0"}`)

	require.NoError(t, c.Engine.Signal(c.Caller.ID, c.RoomID, matchmaking.SignalOffer, payload))

	evt, ok := c.CalleeConn.Last(matchmaking.EventSignal)
	require.True(t, ok)
	assert.Equal(t, matchmaking.SignalPayload{
		RoomID:     c.RoomID,
		FromUserID: c.Caller.ID,
		Kind:       matchmaking.SignalOffer,
		Payload:    payload,
	}, evt.Payload)
	assert.Empty(t, c.CallerConn.OfType(matchmaking.EventSignal), "signals go to the peer only")

	assert.ErrorIs(t, c.Engine.Signal(stranger.ID, c.RoomID, matchmaking.SignalAnswer, payload), matchmaking.ErrNotParticipant)
	assert.ErrorIs(t, c.Engine.Signal(c.Caller.ID, uuid.New(), matchmaking.SignalAnswer, payload), matchmaking.ErrRoomNotFound)
	assert.ErrorIs(t, c.Engine.Signal(c.Caller.ID, c.RoomID, matchmaking.SignalKind("renegotiate"), payload), matchmaking.ErrUnknownSignal)
}

func TestRoomManager_RelayChat(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantText string
	}{
		{name: "markup stripped and trimmed", raw: "  <b>hi</b> there  ", wantText: "hi there"},
		{name: "plain text kept", raw: "fish & chips?", wantText: "fish & chips?"},
		{name: "long text truncated", raw: strings.Repeat("ab", 400), wantText: strings.Repeat("ab", 250)},
		{name: "empty after cleaning is dropped", raw: "  <i></i>  ", wantText: ""},
		{name: "entity-encoded markup stripped", raw: "&lt;b&gt;bold&lt;/b&gt; move", wantText: "bold move"},
		{name: "entity-encoded attribute handler stripped", raw: "&lt;img src=x onerror=alert(1)&gt;hi", wantText: "hi"},
		{name: "entity-encoded script dropped", raw: "&lt;script&gt;alert(1)&lt;/script&gt;", wantText: ""},
		{name: "markup split across tags stripped", raw: "<<b>i>x", wantText: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startCall(t)

			require.NoError(t, c.Engine.Chat(c.Caller.ID, c.RoomID, tt.raw))

			if tt.wantText == "" {
				assert.Empty(t, c.CallerConn.OfType(matchmaking.EventChat))
				assert.Empty(t, c.CalleeConn.OfType(matchmaking.EventChat))
				room, _ := c.Engine.Rooms.Get(c.RoomID)
				assert.Empty(t, room.Messages)
				return
			}
			for _, conn := range []*testutil.RecordingConn{c.CallerConn, c.CalleeConn} {
				evt, ok := conn.Last(matchmaking.EventChat)
				require.True(t, ok)
				payload := evt.Payload.(matchmaking.ChatPayload)
				assert.Equal(t, tt.wantText, payload.Text)
				assert.NotContains(t, payload.Text, "<")
				assert.Equal(t, c.Caller.ID, payload.FromUserID)
			}
		})
	}
}

func TestRoomManager_Rejoin(t *testing.T) {
	c := startCall(t)
	stranger := c.Users.Add("mallory", "")

	newConn := testutil.NewRecordingConn()
	c.Engine.Connect(c.Callee.ID, newConn)
	assert.False(t, c.Engine.Disconnect(c.Callee.ID, c.CalleeConn), "stale connection close is ignored")
	assert.Equal(t, 1, c.Engine.Rooms.Len())

	require.NoError(t, c.Engine.JoinRoom(c.Callee.ID, c.RoomID))
	evt, ok := newConn.Last(matchmaking.EventCallStarted)
	require.True(t, ok)
	payload := evt.Payload.(matchmaking.CallStartedPayload)
	assert.Equal(t, matchmaking.RoleAnswerer, payload.Role)
	assert.Equal(t, c.Caller.ID, payload.PeerID)
	assert.Equal(t, "alice", payload.PeerName)

	assert.ErrorIs(t, c.Engine.JoinRoom(stranger.ID, c.RoomID), matchmaking.ErrNotParticipant)
}

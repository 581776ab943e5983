package matchmaking_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/dom/speed-dating/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*matchmaking.PresenceRegistry, *testutil.RecordingConn) {
	t.Helper()
	bus := matchmaking.NewLocalBus()
	watcher := testutil.NewRecordingConn()
	bus.Subscribe(watcher)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return matchmaking.NewPresenceRegistry(bus, testutil.NewClock().Now, logger, nil), watcher
}

func TestPresenceRegistry_Lifecycle(t *testing.T) {
	registry, watcher := newRegistry(t)
	userID := uuid.New()
	conn := testutil.NewRecordingConn()

	registry.SetOnline(userID, conn)
	row, ok := registry.Get(userID)
	require.True(t, ok)
	assert.True(t, row.Online)
	assert.False(t, row.Available)
	assert.True(t, registry.IsCurrent(userID, conn))

	require.NoError(t, registry.SetAvailable(userID, true))
	assert.True(t, registry.IsAvailable(userID))

	registry.SetOffline(userID)
	row, ok = registry.Get(userID)
	require.True(t, ok, "offline rows are kept")
	assert.False(t, row.Online)
	assert.False(t, row.Available)
	assert.Nil(t, registry.ConnOf(userID))

	changes := watcher.OfType(matchmaking.EventPresenceChanged)
	require.Len(t, changes, 3)
	want := []matchmaking.PresenceChangedPayload{
		{UserID: userID, Online: true, Available: false},
		{UserID: userID, Online: true, Available: true},
		{UserID: userID, Online: false, Available: false},
	}
	for i, evt := range changes {
		assert.Equal(t, want[i], evt.Payload)
	}
}

func TestPresenceRegistry_SetAvailableWithoutPresence(t *testing.T) {
	registry, watcher := newRegistry(t)
	userID := uuid.New()

	err := registry.SetAvailable(userID, true)
	assert.ErrorIs(t, err, matchmaking.ErrPresenceMissing)
	_, ok := registry.Get(userID)
	assert.False(t, ok, "presence must not be fabricated")

	registry.SetOnline(userID, testutil.NewRecordingConn())
	registry.SetOffline(userID)
	err = registry.SetAvailable(userID, true)
	assert.ErrorIs(t, err, matchmaking.ErrPresenceMissing)
	assert.False(t, registry.IsAvailable(userID))

	assert.Empty(t, watcher.OfType(matchmaking.EventQueueChanged))
}

func TestPresenceRegistry_Snapshot(t *testing.T) {
	registry, _ := newRegistry(t)
	requester, available, busy, offline := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	for _, id := range []uuid.UUID{requester, available, busy, offline} {
		registry.SetOnline(id, testutil.NewRecordingConn())
	}
	require.NoError(t, registry.SetAvailable(requester, true))
	require.NoError(t, registry.SetAvailable(available, true))
	require.NoError(t, registry.SetAvailable(offline, true))
	registry.SetOffline(offline)

	assert.ElementsMatch(t, []uuid.UUID{available}, registry.Snapshot(requester))

	online, avail := registry.Counts()
	assert.Equal(t, 3, online)
	assert.Equal(t, 2, avail)
}

func TestPresenceRegistry_NoEventWithoutChange(t *testing.T) {
	registry, watcher := newRegistry(t)
	userID := uuid.New()
	registry.SetOnline(userID, testutil.NewRecordingConn())
	require.NoError(t, registry.SetAvailable(userID, false))

	assert.Len(t, watcher.OfType(matchmaking.EventPresenceChanged), 1)
}

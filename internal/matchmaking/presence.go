package matchmaking

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Presence is a user's online/available flags plus their live connection.
// Invariant: Available implies Online.
type Presence struct {
	UserID       uuid.UUID
	Online       bool
	Available    bool
	Conn         Conn
	LastActiveAt time.Time
}

// PresenceRegistry tracks presence rows and broadcasts every transition.
// Rows are never deleted; offline rows keep LastActiveAt for external housekeeping.
type PresenceRegistry struct {
	rows     map[uuid.UUID]*Presence
	bus      Bus
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder
}

func NewPresenceRegistry(bus Bus, now func() time.Time, logger *slog.Logger, recorder Recorder) *PresenceRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &PresenceRegistry{
		rows:     make(map[uuid.UUID]*Presence),
		bus:      bus,
		now:      now,
		logger:   logger,
		recorder: recorder,
	}
}

// SetOnline establishes the row with online=true, available=false and the
// given connection. Calling it again replaces the connection handle.
func (r *PresenceRegistry) SetOnline(userID uuid.UUID, conn Conn) {
	row, ok := r.rows[userID]
	if !ok {
		row = &Presence{UserID: userID}
		r.rows[userID] = row
	}
	wasOnline, wasAvailable := row.Online, row.Available

	row.Online = true
	row.Available = false
	row.Conn = conn
	row.LastActiveAt = r.now()

	r.emit(row, wasOnline, wasAvailable)
}

// SetAvailable flips the available flag. A missing or offline row means the
// caller got the ordering wrong; presence is never fabricated here.
func (r *PresenceRegistry) SetAvailable(userID uuid.UUID, available bool) error {
	row, ok := r.rows[userID]
	if !ok || !row.Online {
		r.logger.Warn("set available without online presence",
			slog.String("user_id", userID.String()),
			slog.Bool("available", available),
			slog.Bool("anomaly", true),
		)
		return ErrPresenceMissing
	}
	wasOnline, wasAvailable := row.Online, row.Available

	row.Available = available
	row.LastActiveAt = r.now()

	r.emit(row, wasOnline, wasAvailable)
	return nil
}

// SetOffline clears both flags and drops the connection handle. The row stays.
func (r *PresenceRegistry) SetOffline(userID uuid.UUID) {
	row, ok := r.rows[userID]
	if !ok {
		return
	}
	wasOnline, wasAvailable := row.Online, row.Available

	row.Online = false
	row.Available = false
	row.Conn = nil
	row.LastActiveAt = r.now()

	r.emit(row, wasOnline, wasAvailable)
}

// Snapshot returns every online and available user except exclude.
func (r *PresenceRegistry) Snapshot(exclude uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.rows))
	for id, row := range r.rows {
		if id == exclude || !row.Online || !row.Available {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Get returns a copy of the user's row.
func (r *PresenceRegistry) Get(userID uuid.UUID) (Presence, bool) {
	row, ok := r.rows[userID]
	if !ok {
		return Presence{}, false
	}
	return *row, true
}

func (r *PresenceRegistry) IsAvailable(userID uuid.UUID) bool {
	row, ok := r.rows[userID]
	return ok && row.Online && row.Available
}

func (r *PresenceRegistry) IsOnline(userID uuid.UUID) bool {
	row, ok := r.rows[userID]
	return ok && row.Online
}

// ConnOf returns the live connection of an online user, or nil.
func (r *PresenceRegistry) ConnOf(userID uuid.UUID) Conn {
	row, ok := r.rows[userID]
	if !ok || !row.Online {
		return nil
	}
	return row.Conn
}

// IsCurrent reports whether conn is the handle currently registered for the user.
func (r *PresenceRegistry) IsCurrent(userID uuid.UUID, conn Conn) bool {
	row, ok := r.rows[userID]
	return ok && row.Online && row.Conn == conn
}

// Send delivers evt to the user's live connection. It reports false when the
// user has none.
func (r *PresenceRegistry) Send(userID uuid.UUID, evt Event) bool {
	conn := r.ConnOf(userID)
	if conn == nil {
		return false
	}
	conn.Deliver(evt)
	return true
}

func (r *PresenceRegistry) Counts() (online, available int) {
	for _, row := range r.rows {
		if row.Online {
			online++
		}
		if row.Available {
			available++
		}
	}
	return online, available
}

// emit publishes the transition, if any. Events for one user leave in the
// order the transitions were applied because the registry is driven by a
// single event loop and each connection delivers in FIFO order.
func (r *PresenceRegistry) emit(row *Presence, wasOnline, wasAvailable bool) {
	if row.Online == wasOnline && row.Available == wasAvailable {
		return
	}

	r.bus.Publish(Event{Type: EventPresenceChanged, Payload: PresenceChangedPayload{
		UserID:    row.UserID,
		Online:    row.Online,
		Available: row.Available,
	}})

	online, available := r.Counts()
	if row.Available != wasAvailable {
		r.bus.Publish(Event{Type: EventQueueChanged, Payload: QueueChangedPayload{
			TotalOnlineCount: available,
		}})
	}
	r.recorder.PresenceCounts(online, available)
}

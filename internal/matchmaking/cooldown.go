package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

const (
	DeclineCooldown = 24 * time.Hour
	RescindCooldown = time.Hour
	CallCooldown    = 24 * time.Hour
)

// CooldownLedger stores a symmetric "do not match again until" expiry per
// unordered pair of users. Expired entries are removed on the first read
// after expiry.
type CooldownLedger struct {
	entries map[string]time.Time
	now     func() time.Time
}

func NewCooldownLedger(now func() time.Time) *CooldownLedger {
	return &CooldownLedger{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

func pairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// Set overwrites any cooldown stored for the pair.
func (l *CooldownLedger) Set(a, b uuid.UUID, expiresAt time.Time) {
	l.entries[pairKey(a, b)] = expiresAt
}

func (l *CooldownLedger) IsActive(a, b uuid.UUID) bool {
	_, ok := l.ExpiryOf(a, b)
	return ok
}

// ExpiryOf returns the pair's expiry while it is still in the future.
func (l *CooldownLedger) ExpiryOf(a, b uuid.UUID) (time.Time, bool) {
	key := pairKey(a, b)
	expiresAt, ok := l.entries[key]
	if !ok {
		return time.Time{}, false
	}
	if !l.now().Before(expiresAt) {
		delete(l.entries, key)
		return time.Time{}, false
	}
	return expiresAt, true
}

// Len returns the number of stored entries, including expired ones not yet read.
func (l *CooldownLedger) Len() int {
	return len(l.entries)
}

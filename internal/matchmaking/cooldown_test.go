package matchmaking_test

import (
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/dom/speed-dating/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCooldownLedger_Symmetry(t *testing.T) {
	clock := testutil.NewClock()
	ledger := matchmaking.NewCooldownLedger(clock.Now)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ledger.Set(a, b, clock.Now().Add(time.Hour))

	checkpoints := []time.Duration{0, 30 * time.Minute, 59 * time.Minute, time.Minute, time.Hour}
	for _, step := range checkpoints {
		clock.Advance(step)
		assert.Equal(t, ledger.IsActive(a, b), ledger.IsActive(b, a))
		assert.False(t, ledger.IsActive(a, c))
		assert.False(t, ledger.IsActive(c, b))
	}
}

func TestCooldownLedger_Expiry(t *testing.T) {
	tests := []struct {
		name       string
		ttl        time.Duration
		advance    time.Duration
		wantActive bool
	}{
		{name: "fresh entry", ttl: time.Hour, advance: 0, wantActive: true},
		{name: "just before expiry", ttl: time.Hour, advance: time.Hour - time.Second, wantActive: true},
		{name: "at expiry", ttl: time.Hour, advance: time.Hour, wantActive: false},
		{name: "long expired", ttl: time.Hour, advance: 48 * time.Hour, wantActive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.NewClock()
			ledger := matchmaking.NewCooldownLedger(clock.Now)
			a, b := uuid.New(), uuid.New()

			expiresAt := clock.Now().Add(tt.ttl)
			ledger.Set(a, b, expiresAt)
			clock.Advance(tt.advance)

			got, ok := ledger.ExpiryOf(b, a)
			assert.Equal(t, tt.wantActive, ok)
			if tt.wantActive {
				assert.Equal(t, expiresAt, got)
				assert.Equal(t, 1, ledger.Len())
			} else {
				assert.True(t, got.IsZero())
				assert.Equal(t, 0, ledger.Len(), "expired entry should be removed on read")
			}
		})
	}
}

func TestCooldownLedger_SetOverwrites(t *testing.T) {
	clock := testutil.NewClock()
	ledger := matchmaking.NewCooldownLedger(clock.Now)
	a, b := uuid.New(), uuid.New()

	ledger.Set(a, b, clock.Now().Add(matchmaking.DeclineCooldown))
	ledger.Set(b, a, clock.Now().Add(matchmaking.RescindCooldown))

	assert.Equal(t, 1, ledger.Len())
	got, ok := ledger.ExpiryOf(a, b)
	assert.True(t, ok)
	assert.Equal(t, clock.Now().Add(matchmaking.RescindCooldown), got)
}

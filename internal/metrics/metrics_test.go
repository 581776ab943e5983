package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/matchmaking"
	"github.com/dom/speed-dating/internal/metrics"
	"github.com/dom/speed-dating/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ matchmaking.Recorder  = (*metrics.Collector)(nil)
	_ store.FailureRecorder = (*metrics.Collector)(nil)
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.InviteOutcome(matchmaking.OutcomeSent)
	c.InviteOutcome(matchmaking.OutcomeSent)
	c.InviteOutcome(matchmaking.OutcomeDeclined)
	c.CallStarted()
	c.CallFinalized(true, 42*time.Second)
	c.CallFinalized(false, 2*time.Second)
	c.PresenceCounts(10, 4)
	c.ActiveRooms(3)
	c.PersistFailed(store.KindHistory)
	c.EventThrottled()

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() == "speeddating_invites_total" {
			assert.Len(t, mf.GetMetric(), 2, "one series per outcome")
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, float64(3), values["speeddating_invites_total"])
	assert.Equal(t, float64(1), values["speeddating_calls_started_total"])
	assert.Equal(t, float64(2), values["speeddating_calls_finalized_total"])
	assert.Equal(t, float64(1), values["speeddating_call_duration_seconds"], "short calls are not observed")
	assert.Equal(t, float64(10), values["speeddating_online_users"])
	assert.Equal(t, float64(4), values["speeddating_available_users"])
	assert.Equal(t, float64(3), values["speeddating_active_rooms"])
	assert.Equal(t, float64(1), values["speeddating_persist_failures_total"])
	assert.Equal(t, float64(1), values["speeddating_events_throttled_total"])
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.CallStarted()

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "speeddating_calls_started_total 1")
}

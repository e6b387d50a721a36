package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordPull(OutcomePlayer)
	m.RecordPull(OutcomePlayer)
	m.RecordPull(OutcomeGuest)
	m.RecordDraw(3)
	m.RecordUnlock("LUCK")
	m.RecordCacheHit("memory")
	m.RecordCacheMiss("memory")
	m.RecordCacheMiss("memory")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PullsTotal.WithLabelValues(OutcomePlayer)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PullsTotal.WithLabelValues(OutcomeGuest)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrawsTotal.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnlocksTotal.WithLabelValues("LUCK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitTotal.WithLabelValues("memory")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissTotal.WithLabelValues("memory")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPull(OutcomeError)
		m.RecordDraw(1)
		m.RecordUnlock("MILESTONE")
		m.RecordCacheHit("redis")
		m.RecordCacheMiss("redis")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordDraw(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gacha_draws_total{rarity="2"} 1`)
}

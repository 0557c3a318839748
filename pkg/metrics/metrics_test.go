package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterMetrics_Counts(t *testing.T) {
	m := NewEmitterMetrics()

	m.EventEmitted()
	m.EventEmitted()
	m.EventSuppressed("dedup")
	m.EventSuppressed("dedup")
	m.EventSuppressed("glue")
	m.EventTruncated()
	m.WriteFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.emitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.suppressed.WithLabelValues("dedup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suppressed.WithLabelValues("glue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.truncated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeFailures))
}

func TestEmitterMetrics_Handler(t *testing.T) {
	m := NewEmitterMetrics()
	m.EventEmitted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "routelens_events_emitted_total 1")
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsCount(t *testing.T) {
	c := NewCollector("journal")

	c.ObserveCapture("created")
	c.ObserveCapture("created")
	c.ObserveEnrichment("summary", false)
	c.ObserveExternal("gemini", "timeout")
	c.ObserveReconcile(1, 2)
	c.ObserveHTTP(http.MethodGet, "/api/journal", 404, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Captures.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EnrichmentCalls.WithLabelValues("summary", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ExternalCalls.WithLabelValues("gemini", "timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.TagReconciliations.WithLabelValues("increment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TagReconciliations.WithLabelValues("decrement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/journal", "4xx")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := NewCollector("journal")
	c.ObserveCapture("skipped")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `journal_captures_total{result="skipped"} 1`)
}

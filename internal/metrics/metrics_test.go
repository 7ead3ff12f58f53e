package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if hasLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetrics_ObserveAnalysis(t *testing.T) {
	m := New()

	m.ObserveAnalysis("malicious", "local", "", false, time.Millisecond)
	m.ObserveAnalysis("malicious", "fallback", "timeout", false, time.Millisecond)
	m.ObserveAnalysis("safe", "allowlist", "", true, time.Microsecond)

	assert.Equal(t, 1.0, counterValue(t, m, "checkurl_analyses_total", map[string]string{"status": "malicious", "source": "local"}))
	assert.Equal(t, 1.0, counterValue(t, m, "checkurl_remote_fallbacks_total", map[string]string{"reason": "timeout"}))
	assert.Equal(t, 1.0, counterValue(t, m, "checkurl_allowlist_hits_total", nil))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAnalysis("safe", "local", "", false, 0)
	m.IncPageScans()
	m.IncScanCacheHits()
	m.IncPersistErrors("statistics")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncPageScans()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "checkurl_page_scans_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/checkurl/internal/analyzer"
	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/metrics"
	"github.com/olegrjumin/checkurl/internal/service"
	"github.com/olegrjumin/checkurl/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.New(store.NewMemory())
	require.NoError(t, st.Seed())

	a := analyzer.New(analyzer.Config{
		Allowlist:  analyzer.NewAllowlist(analyzer.DefaultAllowlist()),
		Heuristics: analyzer.DefaultHeuristics(),
	})
	opts := service.DefaultOptions()
	opts.RatePerSecond = 0
	m := metrics.New()
	svc := service.New(a, st, m, logging.Nop(), opts)

	srv := httptest.NewServer(NewHandler(logging.Nop(), svc, m))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestAnalyze(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/analyze", `{"url":"http://free-iphone-scam.tk/claim-now"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "malicious", body["status"])
	assert.Equal(t, float64(95), body["confidence"])
	assert.Equal(t, false, body["aiPowered"])
	assert.Equal(t, false, body["whitelisted"])
	assert.Contains(t, body["threats"], "Scam")
	assert.Contains(t, body, "riskScore")
	assert.NotContains(t, body, "degraded")
	assert.NotContains(t, body, "Source")
}

func TestAnalyze_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		body   string
		status int
	}{
		{http.MethodGet, "", http.StatusMethodNotAllowed},
		{http.MethodPost, `{not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := do(t, tt.method, srv.URL+"/analyze", tt.body)
		assert.Equal(t, tt.status, resp.StatusCode, tt.body)
	}
}

func TestAnalyze_EmptyURLDegrades(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`{"url":"  "}`, `{}`} {
		resp := do(t, http.MethodPost, srv.URL+"/analyze", body)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		var res map[string]interface{}
		decode(t, resp, &res)
		assert.Equal(t, "safe", res["status"], body)
		assert.Equal(t, float64(0), res["confidence"], body)
		assert.Equal(t, true, res["degraded"], body)
		assert.Equal(t, "No URL provided", res["error"], body)
	}

	resp := do(t, http.MethodGet, srv.URL+"/statistics", "")
	var stats store.Statistics
	decode(t, resp, &stats)
	assert.Zero(t, stats.TotalScans)
}

func TestMessage(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/message", `{"action":"analyzeUrl","url":"https://www.google.com/search?q=x"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res map[string]interface{}
	decode(t, resp, &res)
	assert.Equal(t, true, res["whitelisted"])
	assert.Equal(t, float64(100), res["confidence"])

	resp = do(t, http.MethodPost, srv.URL+"/message", `{"action":"analyzeUrl"}`)
	res = nil
	decode(t, resp, &res)
	assert.Equal(t, "No URL provided", res["error"])
	assert.Equal(t, float64(0), res["confidence"])

	resp = do(t, http.MethodPost, srv.URL+"/message", `{"action":"getScanHistory"}`)
	var history []map[string]interface{}
	decode(t, resp, &history)
	assert.Len(t, history, 1)

	resp = do(t, http.MethodPost, srv.URL+"/message", `{"action":"selfDestruct"}`)
	res = nil
	decode(t, resp, &res)
	assert.Equal(t, map[string]interface{}{"error": "Unknown action"}, res)
}

func TestScanPage(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"url":  "https://example.org/",
		"html": `<a href="http://free-iphone-scam.tk/claim-now">win</a><a href="/ok">ok</a>`,
	})
	resp := do(t, http.MethodPost, srv.URL+"/scan-page", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report service.PageReport
	decode(t, resp, &report)
	assert.Equal(t, 2, report.Counts.Total)
	assert.Equal(t, []string{"http://free-iphone-scam.tk/claim-now"}, report.Flagged)
}

func TestScanPageStream(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"url":  "https://example.org/",
		"html": `<a href="https://a.example/">a</a><a href="https://b.example/">b</a>`,
	})
	resp := do(t, http.MethodPost, srv.URL+"/scan-page/stream", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"start", "link", "link", "complete"}, events)
}

func TestStatistics(t *testing.T) {
	srv := newTestServer(t)

	do(t, http.MethodPost, srv.URL+"/analyze", `{"url":"https://example.org/"}`)

	resp := do(t, http.MethodGet, srv.URL+"/statistics", "")
	var stats store.Statistics
	decode(t, resp, &stats)
	assert.Equal(t, int64(1), stats.TotalScans)

	resp = do(t, http.MethodDelete, srv.URL+"/statistics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats = store.Statistics{}
	decode(t, resp, &stats)
	assert.Zero(t, stats.TotalScans)
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t)

	do(t, http.MethodPost, srv.URL+"/analyze", `{"url":"https://example.org/"}`)

	resp := do(t, http.MethodGet, srv.URL+"/history", "")
	var history []store.HistoryEntry
	decode(t, resp, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "https://example.org/", history[0].URL)

	resp = do(t, http.MethodDelete, srv.URL+"/history", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/history", "")
	history = nil
	decode(t, resp, &history)
	assert.Empty(t, history)
}

func TestSettings(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/settings", `{"protectionLevel":"strict","keepScanHistory":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/settings", "")
	var settings store.Settings
	decode(t, resp, &settings)
	assert.Equal(t, "strict", settings.ProtectionLevel)
	assert.False(t, settings.KeepScanHistory)
	assert.True(t, settings.RealTimeScanning, "fields not in the request are kept")

	resp = do(t, http.MethodPost, srv.URL+"/settings", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	do(t, http.MethodPost, srv.URL+"/analyze", `{"url":"https://github.com/"}`)

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	scanner := bufio.NewScanner(resp.Body)
	found := false
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "checkurl_allowlist_hits_total 1") {
			found = true
		}
	}
	assert.True(t, found)
}

package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/checkurl/internal/analyzer"
	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/service"
	"github.com/olegrjumin/checkurl/internal/store"
)

// connect starts the tool server on an in-memory transport and returns a
// client session to it.
func connect(t *testing.T, ctx context.Context) *mcp.ClientSession {
	t.Helper()

	st := store.New(store.NewMemory())
	require.NoError(t, st.Seed())
	a := analyzer.New(analyzer.Config{
		Allowlist:  analyzer.NewAllowlist(analyzer.DefaultAllowlist()),
		Heuristics: analyzer.DefaultHeuristics(),
	})
	opts := service.DefaultOptions()
	opts.RatePerSecond = 0
	svc := service.New(a, st, nil, logging.Nop(), opts)

	srv := New(svc, logging.Nop(), "test")
	srvTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = srv.Run(ctx, srvTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callText(t *testing.T, ctx context.Context, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, res.IsError
}

func TestTools_Listed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx)

	var names []string
	for tool, err := range session.Tools(ctx, nil) {
		require.NoError(t, err)
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolAnalyzeURL, ToolScanPage, ToolScanHistory, ToolStatistics}, names)
}

func TestAnalyzeURL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx)

	text, isErr := callText(t, ctx, session, ToolAnalyzeURL, map[string]any{"url": "http://free-iphone-scam.tk/claim-now"})
	require.False(t, isErr, text)

	var result analyzer.Result
	require.NoError(t, json.Unmarshal([]byte(text), &result))
	assert.Equal(t, analyzer.StatusMalicious, result.Status)
	assert.Equal(t, 95, result.Confidence)
	assert.Contains(t, result.Threats, "Scam")

	text, _ = callText(t, ctx, session, ToolStatistics, nil)
	var stats store.Statistics
	require.NoError(t, json.Unmarshal([]byte(text), &stats))
	assert.Equal(t, int64(1), stats.TotalScans)
	assert.Equal(t, int64(1), stats.MaliciousSites)

	text, _ = callText(t, ctx, session, ToolScanHistory, nil)
	var history []store.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(text), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "http://free-iphone-scam.tk/claim-now", history[0].URL)
}

func TestAnalyzeURL_EmptyURLDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx)

	text, isErr := callText(t, ctx, session, ToolAnalyzeURL, map[string]any{"url": " "})
	require.False(t, isErr, text)

	var result analyzer.Result
	require.NoError(t, json.Unmarshal([]byte(text), &result))
	assert.Equal(t, analyzer.StatusSafe, result.Status)
	assert.Zero(t, result.Confidence)
	assert.True(t, result.Degraded)
	assert.Equal(t, "No URL provided", result.Error)
}

func TestScanPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx)

	text, isErr := callText(t, ctx, session, ToolScanPage, map[string]any{
		"url":  "https://example.org/",
		"html": `<a href="http://free-iphone-scam.tk/claim-now">win</a><a href="/about">about</a>`,
	})
	require.False(t, isErr, text)

	var report service.PageReport
	require.NoError(t, json.Unmarshal([]byte(text), &report))
	assert.Equal(t, 2, report.Counts.Total)
	assert.Equal(t, []string{"http://free-iphone-scam.tk/claim-now"}, report.Flagged)

	text, isErr = callText(t, ctx, session, ToolScanPage, map[string]any{"url": "http://[::1", "html": ""})
	assert.True(t, isErr, text)
}

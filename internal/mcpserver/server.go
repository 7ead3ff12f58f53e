// Package mcpserver exposes URL analysis as Model Context Protocol tools so
// agents can check links before following them.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/service"
)

// Tool names.
const (
	ToolAnalyzeURL  = "analyze_url"
	ToolScanPage    = "scan_page"
	ToolScanHistory = "scan_history"
	ToolStatistics  = "statistics"
)

// New creates an MCP server with the checkurl tools registered.
func New(svc *service.Service, logger *logging.Logger, version string) *mcp.Server {
	if logger == nil {
		logger = logging.Nop()
	}
	srv := mcp.NewServer(
		&mcp.Implementation{Name: "checkurl", Version: version},
		nil,
	)

	t := &tools{svc: svc, logger: logger.With("area", "mcp")}

	srv.AddTool(&mcp.Tool{
		Name:        ToolAnalyzeURL,
		Description: "Score a URL for phishing, scam and malware risk. Returns status (safe, suspicious, malicious), confidence, threats and reasoning.",
		InputSchema: objectSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute URL to analyze"},
		}, "url"),
	}, t.analyzeURL)

	srv.AddTool(&mcp.Tool{
		Name:        ToolScanPage,
		Description: "Extract every link from an HTML page and score each one.",
		InputSchema: objectSchema(map[string]any{
			"url":  map[string]any{"type": "string", "description": "URL the page was loaded from"},
			"html": map[string]any{"type": "string", "description": "Page markup"},
		}, "url", "html"),
	}, t.scanPage)

	srv.AddTool(&mcp.Tool{
		Name:        ToolScanHistory,
		Description: "List recent scans, newest first.",
		InputSchema: objectSchema(nil),
	}, t.scanHistory)

	srv.AddTool(&mcp.Tool{
		Name:        ToolStatistics,
		Description: "Return aggregate scan counters.",
		InputSchema: objectSchema(nil),
	}, t.statistics)

	return srv
}

// Handler serves srv over the streamable HTTP transport.
func Handler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return srv },
		nil,
	)
}

// RunStdio serves srv on stdin/stdout until ctx is cancelled or the peer
// disconnects.
func RunStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type tools struct {
	svc    *service.Service
	logger *logging.Logger
}

type analyzeArgs struct {
	URL string `json:"url"`
}

type scanPageArgs struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

func (t *tools) analyzeURL(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args analyzeArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	result := t.svc.AnalyzeURL(ctx, args.URL)
	t.logger.Debug("Tool call", "tool", ToolAnalyzeURL, "status", result.Status)
	return jsonResult(result)
}

func (t *tools) scanPage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args scanPageArgs
	if err := decodeArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}

	report, err := t.svc.ScanPage(ctx, args.URL, strings.NewReader(args.HTML))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	t.logger.Debug("Tool call", "tool", ToolScanPage, "links", report.Counts.Total)
	return jsonResult(report)
}

func (t *tools) scanHistory(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history, err := t.svc.History()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return jsonResult(history)
}

func (t *tools) statistics(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.svc.Statistics()
	if err != nil {
		return nil, fmt.Errorf("reading statistics: %w", err)
	}
	return jsonResult(stats)
}

func decodeArgs(req *mcp.CallToolRequest, v any) error {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

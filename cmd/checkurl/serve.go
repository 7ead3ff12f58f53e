package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegrjumin/checkurl/internal/httpapi"
	"github.com/olegrjumin/checkurl/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve URL analysis, page scanning, history, statistics and settings
over HTTP. The MCP tools are mounted at /mcp and Prometheus metrics at
/metrics when enabled.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	mcpSrv := mcpserver.New(a.service, logger, Version)
	handler := httpapi.NewHandler(logger, a.service, a.metrics,
		httpapi.Route{Pattern: "/mcp", Handler: mcpserver.Handler(mcpSrv)},
	)
	server := httpapi.NewServer(cfg.Addr(), handler)

	if cfg.Store.RulesetFile != "" && cfg.Store.RulesetRefresh > 0 {
		go a.refreshLoop(ctx, cfg.Store.RulesetFile, cfg.Store.RulesetRefresh)
	}

	// Start the server in a goroutine so it doesn't block
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Server.Port, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for an interrupt signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
	}
	logger.Info("Shutting down server...")

	// Create a context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// refreshLoop re-reads the threat database file while the autoUpdate
// setting is on.
func (a *app) refreshLoop(ctx context.Context, path string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settings, err := a.service.Settings()
			if err != nil || !settings.AutoUpdate {
				continue
			}
			if _, err := refreshRuleset(a.store, path, a.logger); err != nil {
				a.logger.Warn("Threat database refresh failed", "error", err)
			}
		}
	}
}

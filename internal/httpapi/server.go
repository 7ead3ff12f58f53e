package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/metrics"
	"github.com/olegrjumin/checkurl/internal/service"
)

// Route mounts an additional handler, such as the MCP endpoint.
type Route struct {
	Pattern string
	Handler http.Handler
}

// NewHandler builds the API routes. m may be nil to disable /metrics.
func NewHandler(logger *logging.Logger, svc *service.Service, m *metrics.Metrics, routes ...Route) http.Handler {
	// Create a new router (multiplexer) to handle different routes
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/analyze", analyzeHandler(svc))
	mux.HandleFunc("/message", messageHandler(svc))
	mux.HandleFunc("/scan-page", scanPageHandler(svc))
	mux.HandleFunc("/scan-page/stream", scanPageStreamHandler(svc))
	mux.HandleFunc("/history", historyHandler(svc))
	mux.HandleFunc("/statistics", statisticsHandler(svc))
	mux.HandleFunc("/settings", settingsHandler(svc))

	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}
	for _, route := range routes {
		mux.Handle(route.Pattern, route.Handler)
	}

	// Wrap the mux with logging middleware
	return loggingMiddleware(logger, recoverMiddleware(logger, mux))
}

// NewServer creates and configures a new HTTP server
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// healthHandler handles GET requests to /health
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "checkurl",
	})
}

// writeJSON sets the Content-Type header, writes the status and encodes data
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

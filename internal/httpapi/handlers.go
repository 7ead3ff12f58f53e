package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/olegrjumin/checkurl/internal/service"
)

// MaxPageSize bounds the HTML accepted by the page scan endpoints.
const MaxPageSize = 5 << 20

// analyzeRequest represents the JSON request body for /analyze
type analyzeRequest struct {
	URL string `json:"url"`
}

// scanPageRequest represents the JSON request body for /scan-page
type scanPageRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// analyzeHandler handles POST requests to /analyze
func analyzeHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req analyzeRequest
		if !decodeJSON(w, r, 64<<10, &req) {
			return
		}

		// An empty URL yields the degraded result, as on /message.
		writeJSON(w, http.StatusOK, svc.AnalyzeURL(r.Context(), req.URL))
	}
}

// messageHandler handles POST requests to /message using the browser
// client's {action, url} contract
func messageHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var msg service.Message
		if !decodeJSON(w, r, 64<<10, &msg) {
			return
		}

		writeJSON(w, http.StatusOK, svc.HandleMessage(r.Context(), msg))
	}
}

func readScanPageRequest(w http.ResponseWriter, r *http.Request) (scanPageRequest, bool) {
	var req scanPageRequest
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return req, false
	}
	if !decodeJSON(w, r, MaxPageSize, &req) {
		return req, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return req, false
	}
	return req, true
}

// scanPageHandler handles POST requests to /scan-page
func scanPageHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readScanPageRequest(w, r)
		if !ok {
			return
		}

		report, err := svc.ScanPage(r.Context(), req.URL, strings.NewReader(req.HTML))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// scanPageStreamHandler streams page scan progress as server-sent events
func scanPageStreamHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readScanPageRequest(w, r)
		if !ok {
			return
		}

		// Get flusher for immediate writes
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "Streaming not supported")
			return
		}

		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

		for event := range svc.ScanPageStreaming(r.Context(), req.URL, strings.NewReader(req.HTML)) {
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			writeEvent(w, event.Stage, data)
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, stage string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", stage)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// historyHandler serves GET and DELETE on /history
func historyHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			history, err := svc.History()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to read history")
				return
			}
			writeJSON(w, http.StatusOK, history)
		case http.MethodDelete:
			if err := svc.ClearHistory(); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to clear history")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// statisticsHandler serves GET and DELETE (reset) on /statistics
func statisticsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			stats, err := svc.Statistics()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to read statistics")
				return
			}
			writeJSON(w, http.StatusOK, stats)
		case http.MethodDelete:
			stats, err := svc.ResetStatistics()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to reset statistics")
				return
			}
			writeJSON(w, http.StatusOK, stats)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// settingsHandler serves GET and PUT on /settings. PUT merges the supplied
// fields into the current settings.
func settingsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			settings, err := svc.Settings()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to read settings")
				return
			}
			writeJSON(w, http.StatusOK, settings)
		case http.MethodPut:
			settings, err := svc.Settings()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to read settings")
				return
			}
			if !decodeJSON(w, r, 64<<10, &settings) {
				return
			}
			updated, err := svc.UpdateSettings(settings)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save settings")
				return
			}
			writeJSON(w, http.StatusOK, updated)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

package service

import (
	"context"
)

// Inbound message actions.
const (
	ActionAnalyzeURL     = "analyzeUrl"
	ActionGetScanHistory = "getScanHistory"
	ActionGetStatistics  = "getStatistics"
	ActionGetSettings    = "getSettings"
)

// Message is the inbound request contract shared with browser clients.
type Message struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
}

// ErrorResponse is returned for requests that cannot be served.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleMessage dispatches a message to the matching operation. Read
// failures yield empty values, matching what a fresh install would return.
func (s *Service) HandleMessage(ctx context.Context, msg Message) any {
	switch msg.Action {
	case ActionAnalyzeURL:
		return s.AnalyzeURL(ctx, msg.URL)

	case ActionGetScanHistory:
		history, err := s.History()
		if err != nil {
			s.logger.Error("Failed to read scan history", "error", err)
			return []any{}
		}
		return history

	case ActionGetStatistics:
		stats, err := s.Statistics()
		if err != nil {
			s.logger.Error("Failed to read statistics", "error", err)
			return map[string]any{}
		}
		return stats

	case ActionGetSettings:
		settings, err := s.Settings()
		if err != nil {
			s.logger.Error("Failed to read settings", "error", err)
			return map[string]any{}
		}
		return settings
	}

	s.logger.Warn("Unknown message action", "action", msg.Action)
	return ErrorResponse{Error: "Unknown action"}
}

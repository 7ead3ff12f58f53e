package service

import (
	"context"
	"fmt"
	"io"
)

// Stream stages.
const (
	StageStart    = "start"
	StageLink     = "link"
	StageComplete = "complete"
	StageError    = "error"
)

// StreamEvent represents a progressive event during a page scan
type StreamEvent struct {
	Stage   string      `json:"stage"`   // "start", "link", "complete", "error"
	Message string      `json:"message"` // Human-readable message
	Data    interface{} `json:"data"`    // Stage-specific data or final report
}

// ScanPageStreaming runs ScanPage and emits one event per link verdict as it
// completes, followed by a complete or error event. The channel is closed
// when the scan ends or ctx is cancelled.
func (s *Service) ScanPageStreaming(ctx context.Context, pageURL string, body io.Reader) <-chan StreamEvent {
	events := make(chan StreamEvent, 10)

	send := func(evt StreamEvent) bool {
		select {
		case events <- evt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)

		if !send(StreamEvent{
			Stage:   StageStart,
			Message: "Scanning page...",
			Data:    map[string]string{"url": pageURL},
		}) {
			return
		}

		report, err := s.scanPage(ctx, pageURL, body, func(v LinkVerdict) {
			send(StreamEvent{
				Stage:   StageLink,
				Message: fmt.Sprintf("%s: %s", v.URL, v.Result.Status),
				Data:    v,
			})
		})
		if err != nil {
			s.logger.Error("Streaming page scan failed", "url", pageURL, "error", err)
			send(StreamEvent{Stage: StageError, Message: err.Error()})
			return
		}

		send(StreamEvent{
			Stage:   StageComplete,
			Message: fmt.Sprintf("Scanned %d links, %d flagged", report.Counts.Total, len(report.Flagged)),
			Data:    report,
		})
	}()

	return events
}

package store

import (
	"time"

	"github.com/google/uuid"
)

// MaxHistory is the number of scan history entries kept, newest first.
const MaxHistory = 200

// Settings are the user's protection preferences.
type Settings struct {
	RealTimeScanning    bool   `json:"realTimeScanning"`
	ShowWarningPopups   bool   `json:"showWarningPopups"`
	BlockMaliciousLinks bool   `json:"blockMaliciousLinks"`
	ScanOnPageLoad      bool   `json:"scanOnPageLoad"`
	NotifyOnThreats     bool   `json:"notifyOnThreats"`
	KeepScanHistory     bool   `json:"keepScanHistory"`
	AutoUpdate          bool   `json:"autoUpdate"`
	AutoHighlightLinks  bool   `json:"autoHighlightLinks"`
	ProtectionLevel     string `json:"protectionLevel"`
}

// DefaultSettings returns the settings written at install time.
func DefaultSettings() Settings {
	return Settings{
		RealTimeScanning:    true,
		ShowWarningPopups:   true,
		BlockMaliciousLinks: true,
		ScanOnPageLoad:      true,
		NotifyOnThreats:     true,
		KeepScanHistory:     true,
		AutoUpdate:          true,
		AutoHighlightLinks:  true,
		ProtectionLevel:     "standard",
	}
}

// HistoryEntry records one completed analysis.
type HistoryEntry struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Threats   []string `json:"threats"`
	AIPowered bool     `json:"aiPowered"`
}

// NewHistoryEntry builds an entry with a fresh random ID.
func NewHistoryEntry(url, status, timestamp string, threats []string, aiPowered bool) HistoryEntry {
	if threats == nil {
		threats = []string{}
	}
	return HistoryEntry{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    status,
		Timestamp: timestamp,
		Threats:   threats,
		AIPowered: aiPowered,
	}
}

// Statistics are running counters over completed analyses.
type Statistics struct {
	TotalScans      int64     `json:"totalScans"`
	ThreatsBlocked  int64     `json:"threatsBlocked"`
	SafeSites       int64     `json:"safeSites"`
	SuspiciousSites int64     `json:"suspiciousSites"`
	MaliciousSites  int64     `json:"maliciousSites"`
	LastReset       time.Time `json:"lastReset"`
}

// NewStatistics returns zeroed counters stamped with now.
func NewStatistics(now time.Time) Statistics {
	return Statistics{LastReset: now.UTC()}
}

// Record counts one analysis with the given status. Malicious results also
// count as blocked threats.
func (s *Statistics) Record(status string) {
	s.TotalScans++
	switch status {
	case "safe":
		s.SafeSites++
	case "suspicious":
		s.SuspiciousSites++
	case "malicious":
		s.MaliciousSites++
		s.ThreatsBlocked++
	}
}

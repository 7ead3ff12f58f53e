package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Normalized verdict statuses.
const (
	StatusSafe       = "safe"
	StatusSuspicious = "suspicious"
	StatusMalicious  = "malicious"
)

// Verdict is a normalized remote classification.
type Verdict struct {
	Status     string   `json:"status"`     // safe, suspicious or malicious
	Threats    []string `json:"threats"`    // never nil
	Confidence int      `json:"confidence"` // 0-100
	Reasoning  string   `json:"reasoning,omitempty"`
}

var (
	fenceRegexNonGreedy = regexp.MustCompile(`(?s)(?:~~~|` + "```" + `)\s*(?:json)?\s*(.*?)\s*(?:~~~|` + "```" + `)`)
	fenceRegexGreedy    = regexp.MustCompile(`(?s)(?:~~~|` + "```" + `)\s*(?:json)?\s*(.*)\s*(?:~~~|` + "```" + `)`)
)

// rawVerdict accepts the loosely typed shapes models actually return.
type rawVerdict struct {
	Status     string          `json:"status"`
	Threats    json.RawMessage `json:"threats"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// ParseVerdict extracts and normalizes a verdict from free-form model output.
// Missing or unknown statuses become safe, threats are trimmed and
// de-duplicated, and confidence is clamped to [0,100].
func ParseVerdict(text string) (*Verdict, error) {
	cleaned := cleanJSONMarkdown(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return &Verdict{
		Status:     normalizeStatus(raw.Status),
		Threats:    normalizeThreats(raw.Threats),
		Confidence: normalizeConfidence(raw.Confidence),
		Reasoning:  strings.TrimSpace(raw.Reasoning),
	}, nil
}

func normalizeStatus(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case StatusSafe, StatusSuspicious, StatusMalicious:
		return s
	default:
		return StatusSafe
	}
}

func normalizeThreats(data json.RawMessage) []string {
	out := []string{}
	if len(data) == 0 {
		return out
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return out
		}
		list = []string{single}
	}

	seen := make(map[string]bool, len(list))
	for _, t := range list {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func normalizeConfidence(data json.RawMessage) int {
	if len(data) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}

	if math.IsNaN(f) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}

// cleanJSONMarkdown strips ``` or ~~~ fences and surrounding prose.
func cleanJSONMarkdown(content string) string {
	content = strings.TrimSpace(content)

	matches := fenceRegexNonGreedy.FindStringSubmatch(content)
	if len(matches) > 1 {
		candidate := strings.TrimSpace(matches[1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	matches = fenceRegexGreedy.FindStringSubmatch(content)
	if len(matches) > 1 {
		candidate := strings.TrimSpace(matches[1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		return content[start : end+1]
	}

	return content
}

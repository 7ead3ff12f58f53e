package ruleset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olegrjumin/checkurl/pkg/ahocorasick"
)

// MaxFileSize bounds how much of a ruleset file is read.
const MaxFileSize = 4 * 1024 * 1024

// Ruleset is a versioned set of known-bad URL signatures.
// It is immutable after construction and safe for concurrent use.
type Ruleset struct {
	version     string
	lastUpdated time.Time
	patterns    []string
	domains     []string

	patternMatcher *ahocorasick.Matcher
	domainMatcher  *ahocorasick.Matcher
}

// document is the serialized form stored under the threatDatabase key.
type document struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
	Patterns    []string  `json:"patterns"`
	Domains     []string  `json:"domains"`
}

// New builds a ruleset. Entries are trimmed, lower-cased and de-duplicated,
// keeping the order in which they were first listed.
func New(version string, lastUpdated time.Time, patterns, domains []string) (*Ruleset, error) {
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("ruleset version is required")
	}

	rs := &Ruleset{
		version:     version,
		lastUpdated: lastUpdated.UTC(),
		patterns:    normalize(patterns),
		domains:     normalize(domains),
	}
	rs.patternMatcher = ahocorasick.New(rs.patterns)
	rs.domainMatcher = ahocorasick.New(rs.domains)
	return rs, nil
}

func normalize(entries []string) []string {
	out := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// Version returns the ruleset version string.
func (r *Ruleset) Version() string { return r.version }

// LastUpdated returns when the ruleset was produced.
func (r *Ruleset) LastUpdated() time.Time { return r.lastUpdated }

// Patterns returns a copy of the keyword signatures.
func (r *Ruleset) Patterns() []string { return append([]string(nil), r.patterns...) }

// Domains returns a copy of the domain/TLD fragment signatures.
func (r *Ruleset) Domains() []string { return append([]string(nil), r.domains...) }

// MatchPatterns returns every keyword signature contained in text, in
// ruleset order.
func (r *Ruleset) MatchPatterns(text string) []string {
	return collect(r.patternMatcher, text)
}

// MatchDomains returns every domain fragment contained in text, in ruleset
// order.
func (r *Ruleset) MatchDomains(text string) []string {
	return collect(r.domainMatcher, text)
}

func collect(m *ahocorasick.Matcher, text string) []string {
	idx := m.MatchAll(text)
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = m.Pattern(n)
	}
	return out
}

// MarshalJSON encodes the ruleset in its stored form.
func (r *Ruleset) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{
		Version:     r.version,
		LastUpdated: r.lastUpdated,
		Patterns:    r.patterns,
		Domains:     r.domains,
	})
}

// UnmarshalJSON decodes and compiles a stored ruleset.
func (r *Ruleset) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	built, err := New(doc.Version, doc.LastUpdated, doc.Patterns, doc.Domains)
	if err != nil {
		return err
	}
	*r = *built
	return nil
}

// Decode reads a JSON ruleset from rd.
func Decode(rd io.Reader) (*Ruleset, error) {
	var rs Ruleset
	if err := json.NewDecoder(io.LimitReader(rd, MaxFileSize)).Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to decode ruleset: %w", err)
	}
	return &rs, nil
}

// LoadFile reads a JSON ruleset file.
func LoadFile(path string) (*Ruleset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ruleset file: %w", err)
	}
	defer f.Close()

	rs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

package analyzer

import "strings"

// ProtectionLevel selects how aggressively scores are turned into verdicts.
type ProtectionLevel string

const (
	LevelStrict     ProtectionLevel = "strict"
	LevelStandard   ProtectionLevel = "standard"
	LevelPermissive ProtectionLevel = "permissive"
)

// Thresholds are the inclusive score cut points for a protection level.
type Thresholds struct {
	Suspicious int `json:"suspicious"`
	Malicious  int `json:"malicious"`
}

var levelThresholds = map[ProtectionLevel]Thresholds{
	LevelStrict:     {Suspicious: 4, Malicious: 8},
	LevelStandard:   {Suspicious: 6, Malicious: 12},
	LevelPermissive: {Suspicious: 10, Malicious: 16},
}

// Confidence floors for locally scored results.
const (
	PrimaryConfidenceBase  = 70
	FallbackConfidenceBase = 50
	MaxLocalConfidence     = 95
)

// ParseProtectionLevel normalizes a level name. Unknown or empty names fall
// back to standard.
func ParseProtectionLevel(s string) ProtectionLevel {
	level := ProtectionLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelThresholds[level]; ok {
		return level
	}
	return LevelStandard
}

// Valid reports whether l names a known protection level.
func (l ProtectionLevel) Valid() bool {
	_, ok := levelThresholds[l]
	return ok
}

// ThresholdsFor returns the cut points for level, using standard for unknown
// levels.
func ThresholdsFor(level ProtectionLevel) Thresholds {
	if t, ok := levelThresholds[level]; ok {
		return t
	}
	return levelThresholds[LevelStandard]
}

// Classify maps a risk score to a status.
func Classify(riskScore int, level ProtectionLevel) Status {
	t := ThresholdsFor(level)
	switch {
	case riskScore >= t.Malicious:
		return StatusMalicious
	case riskScore >= t.Suspicious:
		return StatusSuspicious
	default:
		return StatusSafe
	}
}

// LocalConfidence is min(95, base+riskScore), floored at zero.
func LocalConfidence(base, riskScore int) int {
	c := base + riskScore
	if c > MaxLocalConfidence {
		return MaxLocalConfidence
	}
	if c < 0 {
		return 0
	}
	return c
}

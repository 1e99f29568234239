// Package emergency classifies driver utterances for safety events.
package emergency

import "strings"

// DefaultKeywords is the default trigger vocabulary. Overridable via
// EMERGENCY_KEYWORDS so dispatch can tune it without a deploy.
var DefaultKeywords = []string{
	"emergency",
	"accident",
	"blowout",
	"crash",
	"collision",
	"breakdown",
	"medical",
	"chest pain",
	"ambulance",
	"bleeding",
	"injury",
	"injured",
	"fire",
	"smoke",
	"i need help",
	"pulling over",
}

// Detector scans driver utterances for emergency keywords. A single match is
// sufficient; multiple matches do not change behavior. Detection is one-shot
// per call: once a session branches to the emergency scenario the state
// machine stops consulting the detector.
type Detector struct {
	keywords []string
}

// NewDetector creates a detector with the given vocabulary, falling back to
// DefaultKeywords when none is supplied. Matching is case-insensitive
// substring containment.
func NewDetector(keywords []string) *Detector {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Detector{keywords: lowered}
}

// Detect reports whether the utterance contains any emergency keyword.
func (d *Detector) Detect(text string) bool {
	t := strings.ToLower(text)
	for _, k := range d.keywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

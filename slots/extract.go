package slots

import (
	"regexp"
	"strings"
)

// statusWords is the spoken status vocabulary, checked in order.
var statusWords = []string{"driving", "delayed", "arrived", "dispatched", "stopped", "waiting"}

var (
	// Explicit "slot: value" form. The only form accepted when heuristic
	// extraction is disabled.
	rigidRe = regexp.MustCompile(`(?i)\b(status|location|eta|emergency[ _]type|emergency[ _]location|injuries)\s*:\s*([^,.;\n]+)`)

	// Highway and road references are more reliable than free-text places.
	highwayRe = regexp.MustCompile(`(?i)\b(I-\d+\w*|US-\d+\w*|(?:Route|Rte|Highway|Hwy)\s+\d+\w*|Exit\s+\d+\w*|mile\s+marker\s+\d+)\b`)

	// Leading-preposition place capture. The capture stops at clause
	// punctuation so a following "ETA 3pm" clause is not swallowed.
	placeRe = regexp.MustCompile(`(?i)\b(?:my\s+location\s+is|location\s+is|currently\s+in|in|at|near|around|by|on)\s+([A-Za-z][A-Za-z0-9\-\s]{2,})`)

	// Trailing filler after a place name.
	placeFillerRe = regexp.MustCompile(`(?i)\b(right\s+now|currently|for\s+now)\b\.?$`)

	etaClockRe    = regexp.MustCompile(`(?i)\b\d{1,2}\s?(?:am|pm)\b|\b\d{1,2}:\d{2}\b`)
	etaSpelledRe  = regexp.MustCompile(`(?i)\b(?:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s?(?:am|pm)\b`)
	etaRelativeRe = regexp.MustCompile(`(?i)\bin\s+(?:about\s+)?\d+\s+(?:hours?|hrs?|minutes?|mins?)\b`)
	etaDayRe      = regexp.MustCompile(`(?i)\b(?:today|tonight|tomorrow)\b`)

	// Captures that are really times, not places.
	timeLikeRe = regexp.MustCompile(`(?i)^(?:about\s+)?(?:a\s+|an\s+)?(?:few\s+)?(?:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|\d+)?\s*(?:hours?|hrs?|minutes?|mins?|am|pm|the\s+morning|the\s+afternoon|the\s+evening)\b`)

	injuriesNoRe  = regexp.MustCompile(`(?i)\bno\s+(?:one\s+(?:is\s+|was\s+)?(?:hurt|injured)|injuries|injury)\b|\bnobody\s+(?:is\s+|was\s+)?(?:hurt|injured)\b|\bnot\s+(?:hurt|injured)\b`)
	injuriesYesRe = regexp.MustCompile(`(?i)\binjur(?:y|ies|ed)\b|\bhurt\b|\bbleeding\b|\bambulance\b`)
)

// emergencyTypes maps trigger words to the canonical emergency type, checked
// in order.
var emergencyTypes = []struct {
	words []string
	typ   string
}{
	{[]string{"accident", "crash", "collision", "hit "}, "Accident"},
	{[]string{"blowout", "breakdown", "broke down", "flat tire", "engine"}, "Breakdown"},
	{[]string{"medical", "chest pain", "ambulance", "bleeding", "passed out"}, "Medical"},
	{[]string{"fire", "smoke"}, "Fire"},
}

// Extractor maps driver utterances onto slot updates.
//
// When heuristics are disabled the extractor only accepts values volunteered
// in the rigid "slot: value" form; this is an operating mode, not an error.
type Extractor struct {
	heuristics bool
}

// NewExtractor creates an extractor. heuristicsEnabled mirrors the
// SLOT_HEURISTICS_ENABLED toggle, fixed for a session's lifetime.
func NewExtractor(heuristicsEnabled bool) *Extractor {
	return &Extractor{heuristics: heuristicsEnabled}
}

// Extract applies the ordered heuristics for each requested slot to one
// driver utterance and returns an updated copy of current. Pure: the input
// set is never mutated. Each slot's update is applied independently and
// low-confidence candidates are discarded by Set.Update.
func (e *Extractor) Extract(text string, segment int, keys []string, current Set) Set {
	out := current.Clone()
	if text == "" {
		return out
	}

	for _, m := range rigidRe.FindAllStringSubmatch(text, -1) {
		key := strings.ReplaceAll(strings.ToLower(m[1]), " ", "_")
		if containsKey(keys, key) {
			out.Update(key, strings.TrimSpace(m[2]), 0.95, segment)
		}
	}
	if !e.heuristics {
		return out
	}

	lower := strings.ToLower(text)
	for _, key := range keys {
		switch key {
		case KeyStatus:
			for _, w := range statusWords {
				if strings.Contains(lower, w) {
					out.Update(KeyStatus, capitalize(w), 0.9, segment)
					break
				}
			}
		case KeyLocation, KeyEmergencyLocation:
			if v, conf := extractPlace(text); v != "" {
				out.Update(key, v, conf, segment)
			}
		case KeyETA:
			if v, conf := extractETA(lower); v != "" {
				out.Update(KeyETA, v, conf, segment)
			}
		case KeyEmergencyType:
			for _, et := range emergencyTypes {
				matched := false
				for _, w := range et.words {
					if strings.Contains(lower, w) {
						matched = true
						break
					}
				}
				if matched {
					out.Update(KeyEmergencyType, et.typ, 0.85, segment)
					break
				}
			}
		case KeyInjuries:
			if injuriesNoRe.MatchString(text) {
				out.Update(KeyInjuries, "no", 0.9, segment)
			} else if injuriesYesRe.MatchString(text) {
				out.Update(KeyInjuries, "yes", 0.8, segment)
			}
		}
	}
	return out
}

// extractPlace returns a place name and its confidence. Road references win
// over free-text captures.
func extractPlace(text string) (string, float64) {
	if m := highwayRe.FindString(text); m != "" {
		return m, 0.85
	}
	m := placeRe.FindStringSubmatch(text)
	if m == nil {
		return "", 0
	}
	loc := strings.TrimSpace(m[1])
	if timeLikeRe.MatchString(loc) {
		return "", 0
	}
	loc = placeFillerRe.ReplaceAllString(loc, "")
	loc = strings.TrimRight(strings.TrimSpace(loc), " ,.")
	if len(loc) < 2 {
		return "", 0
	}
	return loc, 0.6
}

func extractETA(lower string) (string, float64) {
	if m := etaClockRe.FindString(lower); m != "" {
		if day := etaDayRe.FindString(lower); day != "" {
			return day + " " + m, 0.9
		}
		return m, 0.9
	}
	if m := etaSpelledRe.FindString(lower); m != "" {
		if day := etaDayRe.FindString(lower); day != "" {
			return day + " " + m, 0.8
		}
		return m, 0.8
	}
	if m := etaRelativeRe.FindString(lower); m != "" {
		return m, 0.7
	}
	if m := etaDayRe.FindString(lower); m != "" {
		return m, 0.55
	}
	return "", 0
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

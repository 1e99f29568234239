// Package slots holds the structured facts collected from a driver during a
// call and the heuristics that extract them from transcribed speech.
package slots

// Slot keys for the regular check-in scenario
const (
	KeyStatus   = "status"
	KeyLocation = "location"
	KeyETA      = "eta"
)

// Slot keys for the emergency scenario
const (
	KeyEmergencyType     = "emergency_type"
	KeyEmergencyLocation = "emergency_location"
	KeyInjuries          = "injuries"
)

// Unknown is stored when a slot could not be collected before the call ended
// or the retry budget ran out.
const Unknown = "unknown"

// DefaultThreshold is the minimum confidence at which a slot counts as filled.
const DefaultThreshold = 0.5

// RegularKeys lists the regular-scenario slots in ask order.
var RegularKeys = []string{KeyStatus, KeyLocation, KeyETA}

// EmergencyKeys lists the emergency-scenario slots in ask order.
var EmergencyKeys = []string{KeyEmergencyType, KeyEmergencyLocation, KeyInjuries}

// Slot is one extracted value with its confidence and the index of the
// transcript segment it came from.
type Slot struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Segment    int     `json:"segment"`
}

// Set maps slot keys to extracted values.
type Set map[string]Slot

// NewSet returns an empty slot set.
func NewSet() Set {
	return make(Set)
}

// Clone returns a copy of the set. Extraction never mutates its input.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Value returns the stored value for key, or "" when absent.
func (s Set) Value(key string) string {
	return s[key].Value
}

// Filled reports whether key holds a real value at or above the threshold.
// A slot marked Unknown does not count as filled for questioning purposes
// but is terminal: the machine stops asking for it.
func (s Set) Filled(key string, threshold float64) bool {
	slot, ok := s[key]
	return ok && slot.Value != "" && slot.Value != Unknown && slot.Confidence >= threshold
}

// Resolved reports whether the machine is done with key, either because it
// was filled or because it was given up as Unknown.
func (s Set) Resolved(key string, threshold float64) bool {
	slot, ok := s[key]
	if !ok {
		return false
	}
	return slot.Value == Unknown || s.Filled(key, threshold)
}

// Update applies a candidate extraction. The update is discarded when its
// confidence is below the stored confidence for the slot (monotonic
// confidence invariant). Returns whether the value was stored.
func (s Set) Update(key, value string, confidence float64, segment int) bool {
	if value == "" {
		return false
	}
	existing, ok := s[key]
	if ok && existing.Value != "" && existing.Value != Unknown && confidence < existing.Confidence {
		return false
	}
	s[key] = Slot{Value: value, Confidence: confidence, Segment: segment}
	return true
}

// Confirm overwrites a slot unconditionally. Only used when the driver
// explicitly corrects a recapped value.
func (s Set) Confirm(key, value string, segment int) {
	s[key] = Slot{Value: value, Confidence: 1.0, Segment: segment}
}

// MarkUnknown records that a slot could not be collected. Real values are
// never downgraded to Unknown.
func (s Set) MarkUnknown(key string) {
	if slot, ok := s[key]; ok && slot.Value != "" && slot.Value != Unknown {
		return
	}
	s[key] = Slot{Value: Unknown}
}

// Missing returns the keys from the given list that are not yet resolved,
// preserving ask order.
func (s Set) Missing(keys []string, threshold float64) []string {
	var missing []string
	for _, k := range keys {
		if !s.Resolved(k, threshold) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Clear removes the listed keys. Used when the driver rejects the recap and
// the regular slots are re-collected.
func (s Set) Clear(keys ...string) {
	for _, k := range keys {
		delete(s, k)
	}
}

// Values flattens the set to key -> value, substituting Unknown for any of
// the requested keys that are absent, so consumers see a stable shape.
func (s Set) Values(keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v := s[k].Value
		if v == "" {
			v = Unknown
		}
		out[k] = v
	}
	return out
}

package messages

import "time"

// Speakers on a call
const (
	SpeakerDriver = "driver"
	SpeakerAgent  = "agent"
)

// Inbound event types from the voice platform
const (
	EventStart   = "call_start"
	EventSegment = "segment"
	EventPing    = "ping"
	EventEnd     = "call_end"
)

// ClientEvent represents a message from the voice platform for one call
type ClientEvent struct {
	Type    string             `json:"type"` // "call_start", "segment", "ping", "call_end"
	CallID  string             `json:"call_id,omitempty"`
	Start   *StartPayload      `json:"start,omitempty"`
	Segment *TranscriptSegment `json:"segment,omitempty"`
}

// StartPayload carries call metadata sent with the session-start event
type StartPayload struct {
	DriverName  string `json:"driver_name"`
	PhoneNumber string `json:"phone_number"`
	LoadNumber  string `json:"load_number,omitempty"`
}

// TranscriptSegment is one unit of transcribed speech.
// Immutable once created; segments are appended to a session's transcript
// in arrival order and never mutated.
type TranscriptSegment struct {
	Speaker    string    `json:"speaker"` // "agent" or "driver"
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Final      bool      `json:"final"`
	Confidence float64   `json:"confidence"` // [0,1]
}

// Equal reports whether two segments describe the same logical utterance.
// Used to deduplicate replayed final segments.
func (t TranscriptSegment) Equal(o TranscriptSegment) bool {
	return t.Speaker == o.Speaker && t.Text == o.Text && t.Timestamp.Equal(o.Timestamp)
}

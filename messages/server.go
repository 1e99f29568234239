package messages

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeSessionFailed  = "SESSION_FAILED"
	ErrCodeUnknownCall    = "UNKNOWN_CALL"
	ErrCodeCapacity       = "CAPACITY"
)

// Outbound event types
const (
	TypeSpeak    = "speak"
	TypeEndCall  = "end_call"
	TypeEscalate = "escalate"
	TypeStatus   = "status"
	TypeError    = "error"
)

// End-call reasons
const (
	ReasonComplete  = "complete"
	ReasonEscalated = "escalated"
	ReasonFailed    = "failed"
)

// ServerEvent represents a message sent back to the voice platform
type ServerEvent struct {
	Type    string      `json:"type"` // "speak", "end_call", "escalate", "status", "error"
	CallID  string      `json:"call_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// SpeakPayload contains the next agent utterance
type SpeakPayload struct {
	Text string `json:"text"`
}

// EndCallPayload carries the reason the call is being terminated
type EndCallPayload struct {
	Reason string `json:"reason"`
	Text   string `json:"text,omitempty"` // closing line spoken before hangup
}

// EscalatePayload carries the hand-off line spoken before the transfer
type EscalatePayload struct {
	Text string `json:"text,omitempty"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "pong", "disconnected"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSpeakEvent creates an outbound agent utterance
func NewSpeakEvent(callID, text string) *ServerEvent {
	return &ServerEvent{
		Type:    TypeSpeak,
		CallID:  callID,
		Payload: SpeakPayload{Text: text},
	}
}

// NewEndCallEvent creates a terminal end-call control message
func NewEndCallEvent(callID, reason, text string) *ServerEvent {
	return &ServerEvent{
		Type:    TypeEndCall,
		CallID:  callID,
		Payload: EndCallPayload{Reason: reason, Text: text},
	}
}

// NewEscalateEvent signals a hand-off to a human dispatcher
func NewEscalateEvent(callID, text string) *ServerEvent {
	return &ServerEvent{
		Type:    TypeEscalate,
		CallID:  callID,
		Payload: EscalatePayload{Text: text},
	}
}

// NewStatusEvent creates a status message
func NewStatusEvent(callID, status, message string) *ServerEvent {
	return &ServerEvent{
		Type:    TypeStatus,
		CallID:  callID,
		Payload: StatusPayload{Status: status, Message: message},
	}
}

// NewErrorEvent creates an error message
func NewErrorEvent(callID, code, message string) *ServerEvent {
	return &ServerEvent{
		Type:    TypeError,
		CallID:  callID,
		Payload: ErrorPayload{Code: code, Message: message},
	}
}

package scenario

import (
	"context"
	"fmt"

	"github.com/fleetline/haulcall/slots"
)

// QueryKind selects what kind of utterance the machine needs next.
type QueryKind int

const (
	KindOpening QueryKind = iota
	KindAsk
	KindConfirm
	KindClosing
	KindEmergencyClosing
)

// Query describes the prompt the machine needs. When templated responses are
// disabled the query is handed to the LLM collaborator instead of the fixed
// templates; the fields give it enough context to compose freeform text.
type Query struct {
	Kind          QueryKind
	Scenario      Scenario
	State         State
	Slot          string // slot being asked, for KindAsk
	Retry         int    // 0 on first ask, increments on re-asks
	Rejected      bool   // driver rejected the recap; re-collecting
	Slots         slots.Set
	DriverName    string
	LoadNumber    string
	LastUtterance string
}

// Prompter produces the agent's next utterance for a query. Implementations
// must always return usable text; failures degrade to templates internally.
type Prompter interface {
	Prompt(ctx context.Context, q Query) string
}

// askTemplates holds the first-ask and re-ask wording per slot.
var askTemplates = map[string][2]string{
	slots.KeyStatus:            {"Got it. What's your current status?", "Thanks. Could you share your current status now?"},
	slots.KeyLocation:          {"Thanks. Where are you right now?", "And where are you at the moment?"},
	slots.KeyETA:               {"Noted. What's your ETA?", "When do you expect to arrive?"},
	slots.KeyEmergencyType:     {"Understood. What type of emergency is it?", "What kind of emergency is it?"},
	slots.KeyEmergencyLocation: {"Where exactly is the emergency?", "Where exactly is the emergency happening?"},
	slots.KeyInjuries:          {"Is anyone injured?", "Are there any injuries? Please say yes or no."},
}

// TemplatePrompter selects prompt text from the fixed templates keyed by
// (scenario, state, missing slot). Used directly when templated-response mode
// is on, and as the degradation target when the LLM collaborator fails.
type TemplatePrompter struct{}

// Prompt returns the templated utterance for the query.
func (TemplatePrompter) Prompt(_ context.Context, q Query) string {
	switch q.Kind {
	case KindOpening:
		if q.LoadNumber != "" {
			return fmt.Sprintf("Hi %s, this is Dispatch calling about load %s. Can you give me a quick status update?",
				orDriver(q.DriverName), q.LoadNumber)
		}
		return fmt.Sprintf("Hi %s, this is Dispatch. Can you give me a quick status update?", orDriver(q.DriverName))

	case KindAsk:
		t, ok := askTemplates[q.Slot]
		if !ok {
			return "Okay, could you share a bit more?"
		}
		text := t[0]
		if q.Retry >= 1 {
			text = t[1]
		}
		if q.Retry >= 2 && !q.State.EmergencyBranch() {
			text = "If it's easier, just tell me one thing: your status, location, or ETA."
		}
		if q.Rejected {
			text = "No problem. " + t[0]
		}
		return text

	case KindConfirm:
		if q.Retry >= 1 {
			return "Please say yes or no to confirm."
		}
		v := q.Slots.Values(slots.KeyStatus, slots.KeyLocation, slots.KeyETA)
		return fmt.Sprintf("Just to confirm, status %s, location %s, ETA %s. Is that correct?",
			v[slots.KeyStatus], v[slots.KeyLocation], v[slots.KeyETA])

	case KindClosing:
		v := q.Slots.Values(slots.KeyStatus, slots.KeyLocation, slots.KeyETA)
		if v[slots.KeyStatus] != slots.Unknown && v[slots.KeyLocation] != slots.Unknown && v[slots.KeyETA] != slots.Unknown {
			return fmt.Sprintf("Thanks for the update: status %s, location %s, ETA %s. Drive safe.",
				v[slots.KeyStatus], v[slots.KeyLocation], v[slots.KeyETA])
		}
		return "Thanks for the details. We'll follow up if needed."

	case KindEmergencyClosing:
		v := q.Slots.Values(slots.KeyEmergencyType, slots.KeyEmergencyLocation)
		if v[slots.KeyEmergencyType] != slots.Unknown && v[slots.KeyEmergencyLocation] != slots.Unknown {
			return fmt.Sprintf("I have the emergency noted: %s at %s. A human dispatcher will call you back immediately.",
				v[slots.KeyEmergencyType], v[slots.KeyEmergencyLocation])
		}
		return "I have the emergency noted. A human dispatcher will call you back immediately."
	}
	return "Okay."
}

func orDriver(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

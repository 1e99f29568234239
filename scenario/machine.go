package scenario

import (
	"context"
	"regexp"
	"strings"

	"github.com/fleetline/haulcall/emergency"
	"github.com/fleetline/haulcall/slots"
)

// ActionType classifies what the machine wants the adapter to do next.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionSpeak
	ActionEndCall
	ActionEscalate
)

// Action is the machine's decision for one turn. Exactly one action is
// produced per processed driver utterance.
type Action struct {
	Type   ActionType
	Text   string // utterance to speak (also the closing line on end-call)
	Reason string // end-call reason
}

// Config bounds the machine's behavior. Explicit values, not magic constants:
// RetryLimit is the number of unsuccessful re-asks before a slot is marked
// unknown and the call moves on, guaranteeing termination.
type Config struct {
	RetryLimit           int
	Threshold            float64 // confidence at which a slot counts as filled
	MinSegmentConfidence float64 // below this a segment is treated as unintelligible
}

// DefaultConfig returns the bounds used in production.
func DefaultConfig() Config {
	return Config{
		RetryLimit:           2,
		Threshold:            slots.DefaultThreshold,
		MinSegmentConfidence: 0.5,
	}
}

// Confirm and reject vocabularies are matched on word boundaries so "now"
// and "know" never read as "no", nor "maybe" as "bye". Rejection is checked
// first so "incorrect" never reads as "correct".
var (
	confirmNoRe  = wordSetRe("no", "nope", "incorrect", "not correct", "wrong")
	confirmYesRe = wordSetRe("yes", "yeah", "yep", "correct", "right", "confirm", "confirmed")
	goodbyeRe    = wordSetRe("bye", "goodbye")
)

func wordSetRe(words ...string) *regexp.Regexp {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`)
}

// Machine drives one call's conversation. It is not safe for concurrent use;
// the session adapter serializes all access per call.
type Machine struct {
	cfg       Config
	extractor *slots.Extractor
	detector  *emergency.Detector
	prompter  Prompter

	driverName string
	loadNumber string

	scenario   Scenario
	state      State
	slotSet    slots.Set
	escalation Escalation
	retries    int // re-asks of the current question
}

// NewMachine creates a machine in INIT for one call.
func NewMachine(cfg Config, ex *slots.Extractor, det *emergency.Detector, p Prompter, driverName, loadNumber string) *Machine {
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = DefaultConfig().RetryLimit
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = slots.DefaultThreshold
	}
	return &Machine{
		cfg:        cfg,
		extractor:  ex,
		detector:   det,
		prompter:   p,
		driverName: driverName,
		loadNumber: loadNumber,
		scenario:   ScenarioRegular,
		state:      StateInit,
		slotSet:    slots.NewSet(),
		escalation: EscalationNone,
	}
}

// State returns the current conversational state.
func (m *Machine) State() State { return m.state }

// Scenario returns the tree the call is on.
func (m *Machine) Scenario() Scenario { return m.scenario }

// Escalation returns the call's escalation status.
func (m *Machine) Escalation() Escalation { return m.escalation }

// Slots returns a copy of the collected slot set.
func (m *Machine) Slots() slots.Set { return m.slotSet.Clone() }

// Begin moves INIT to GREETING and produces the opening utterance.
func (m *Machine) Begin(ctx context.Context) Action {
	if m.state != StateInit {
		return Action{Type: ActionNone}
	}
	m.state = StateGreeting
	return Action{Type: ActionSpeak, Text: m.prompt(ctx, Query{Kind: KindOpening})}
}

// HandleDriver processes one final driver utterance and decides the next
// action. segment is the utterance's index in the session transcript,
// recorded as each slot's source.
func (m *Machine) HandleDriver(ctx context.Context, text string, segment int, confidence float64) Action {
	if m.state.Terminal() || m.state == StateEscalating {
		return Action{Type: ActionNone}
	}

	// Unintelligible input never reaches the detector or the extractor; it
	// follows the ordinary re-prompt path so the retry bound still applies.
	if confidence < m.cfg.MinSegmentConfidence || strings.Contains(strings.ToLower(text), "[inaudible]") {
		return m.handleMiss(ctx)
	}

	// The detector runs on every driver utterance until it fires once. The
	// branch switch is one-directional: safety events must never be lost by
	// finishing the original script first.
	if m.scenario == ScenarioRegular && m.detector != nil && m.detector.Detect(text) {
		m.scenario = ScenarioEmergency
		m.escalation = EscalationDetected
		m.state = StateEmergencyDetected
		m.retries = 0
		m.slotSet = m.extractor.Extract(text, segment, slots.EmergencyKeys, m.slotSet)
		return m.advance(ctx)
	}

	if m.state == StateConfirm {
		return m.handleConfirm(ctx, text, segment)
	}

	keys := slots.RegularKeys
	if m.scenario == ScenarioEmergency {
		keys = slots.EmergencyKeys
	}
	m.slotSet = m.extractor.Extract(text, segment, keys, m.slotSet)
	return m.advance(ctx)
}

// ResolveEscalation completes the ESCALATING wait. Called by the adapter
// after the dispatcher notification acknowledged or timed out; the transition
// proceeds either way, favoring safety over waiting.
func (m *Machine) ResolveEscalation(ctx context.Context, acked bool) Action {
	if m.state != StateEscalating {
		return Action{Type: ActionNone}
	}
	m.state = StateEscalated
	m.escalation = EscalationEscalated
	return Action{
		Type:   ActionEndCall,
		Reason: "escalated",
		Text:   m.prompt(ctx, Query{Kind: KindEmergencyClosing, Slots: m.slotSet}),
	}
}

// Fail marks the call FAILED unless it already reached a terminal state.
// Returns whether the state changed.
func (m *Machine) Fail() bool {
	if m.state.Terminal() {
		return false
	}
	m.state = StateFailed
	return true
}

// advance moves to the next unresolved question of the active scenario, or to
// the scenario's closing action when nothing is missing.
func (m *Machine) advance(ctx context.Context) Action {
	// Re-ask bookkeeping: if the question we just asked is still open, burn a
	// retry; past the bound, give the slot up and move on so the call always
	// terminates.
	if key := m.state.SlotKey(); key != "" && !m.slotSet.Resolved(key, m.cfg.Threshold) {
		m.retries++
		if m.retries <= m.cfg.RetryLimit {
			return m.ask(ctx, key, false)
		}
		m.slotSet.MarkUnknown(key)
	}

	keys := slots.RegularKeys
	if m.scenario == ScenarioEmergency {
		keys = slots.EmergencyKeys
	}
	missing := m.slotSet.Missing(keys, m.cfg.Threshold)
	if len(missing) == 0 {
		if m.scenario == ScenarioEmergency {
			m.state = StateEscalating
			return Action{Type: ActionEscalate}
		}
		m.state = StateConfirm
		m.retries = 0
		return Action{Type: ActionSpeak, Text: m.prompt(ctx, Query{Kind: KindConfirm, Slots: m.slotSet})}
	}

	m.state = askStateFor(missing[0])
	m.retries = 0
	return m.ask(ctx, missing[0], false)
}

// handleConfirm interprets the driver's response to the recap.
func (m *Machine) handleConfirm(ctx context.Context, text string, segment int) Action {
	if confirmNoRe.MatchString(text) {
		// Rejected recap: clear the regular slots and re-collect.
		m.slotSet.Clear(slots.RegularKeys...)
		m.state = StateAskStatus
		m.retries = 0
		return m.ask(ctx, slots.KeyStatus, true)
	}
	if confirmYesRe.MatchString(text) {
		return m.complete(ctx)
	}
	// A goodbye during the recap counts as confirmation.
	if goodbyeRe.MatchString(text) {
		return m.complete(ctx)
	}

	// Neither: the utterance may still be a correction, so extract before
	// re-asking.
	m.slotSet = m.extractor.Extract(text, segment, slots.RegularKeys, m.slotSet)
	m.retries++
	if m.retries > m.cfg.RetryLimit {
		return m.complete(ctx)
	}
	return Action{Type: ActionSpeak, Text: m.prompt(ctx, Query{Kind: KindConfirm, Retry: m.retries, Slots: m.slotSet})}
}

// handleMiss re-asks the open question after an unintelligible segment.
func (m *Machine) handleMiss(ctx context.Context) Action {
	switch {
	case m.state == StateConfirm:
		m.retries++
		if m.retries > m.cfg.RetryLimit {
			return m.complete(ctx)
		}
		return Action{Type: ActionSpeak, Text: m.prompt(ctx, Query{Kind: KindConfirm, Retry: m.retries, Slots: m.slotSet})}
	case m.state.SlotKey() != "":
		return m.advance(ctx)
	default:
		// Greeting with nothing usable yet: start asking.
		return m.advance(ctx)
	}
}

func (m *Machine) complete(ctx context.Context) Action {
	m.state = StateComplete
	return Action{
		Type:   ActionEndCall,
		Reason: "complete",
		Text:   m.prompt(ctx, Query{Kind: KindClosing, Slots: m.slotSet}),
	}
}

func (m *Machine) ask(ctx context.Context, key string, rejected bool) Action {
	return Action{Type: ActionSpeak, Text: m.prompt(ctx, Query{
		Kind:     KindAsk,
		State:    m.state,
		Slot:     key,
		Retry:    m.retries,
		Rejected: rejected,
		Slots:    m.slotSet,
	})}
}

func (m *Machine) prompt(ctx context.Context, q Query) string {
	q.Scenario = m.scenario
	if q.State == StateInit {
		q.State = m.state
	}
	q.DriverName = m.driverName
	q.LoadNumber = m.loadNumber
	if q.Slots == nil {
		q.Slots = m.slotSet
	}
	return m.prompter.Prompt(ctx, q)
}

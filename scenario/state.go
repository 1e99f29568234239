// Package scenario owns one call's conversational state: which of the two
// conversation trees the call is on, where in the tree it is, and what the
// agent should do next.
package scenario

import (
	"fmt"

	"github.com/fleetline/haulcall/slots"
)

// Scenario identifies the conversation tree a call is following.
type Scenario string

const (
	ScenarioRegular   Scenario = "regular"
	ScenarioEmergency Scenario = "emergency"
)

// Escalation tracks the hand-off status of a call.
type Escalation string

const (
	EscalationNone      Escalation = "none"
	EscalationDetected  Escalation = "detected"
	EscalationEscalated Escalation = "escalated"
)

// State is the position within a scenario tree. The regular and emergency
// branches share one tagged type so the forced branch switch is a single
// transition instead of parallel hierarchies.
type State int

const (
	StateInit State = iota
	StateGreeting
	StateAskStatus
	StateAskLocation
	StateAskETA
	StateConfirm
	StateComplete
	StateEmergencyDetected
	StateAskEmergencyType
	StateAskEmergencyLocation
	StateAskInjuries
	StateEscalating
	StateEscalated
	StateFailed
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateGreeting:
		return "GREETING"
	case StateAskStatus:
		return "ASK_STATUS"
	case StateAskLocation:
		return "ASK_LOCATION"
	case StateAskETA:
		return "ASK_ETA"
	case StateConfirm:
		return "CONFIRM"
	case StateComplete:
		return "COMPLETE"
	case StateEmergencyDetected:
		return "EMERGENCY_DETECTED"
	case StateAskEmergencyType:
		return "ASK_EMERGENCY_TYPE"
	case StateAskEmergencyLocation:
		return "ASK_EMERGENCY_LOCATION"
	case StateAskInjuries:
		return "ASK_INJURIES"
	case StateEscalating:
		return "ESCALATING"
	case StateEscalated:
		return "ESCALATED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Terminal reports whether the state closes the session.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateEscalated || s == StateFailed
}

// EmergencyBranch reports whether the state belongs to the emergency tree.
func (s State) EmergencyBranch() bool {
	switch s {
	case StateEmergencyDetected, StateAskEmergencyType, StateAskEmergencyLocation,
		StateAskInjuries, StateEscalating, StateEscalated:
		return true
	}
	return false
}

// SlotKey returns the slot an ask-state is collecting, or "" for non-ask
// states.
func (s State) SlotKey() string {
	switch s {
	case StateAskStatus:
		return slots.KeyStatus
	case StateAskLocation:
		return slots.KeyLocation
	case StateAskETA:
		return slots.KeyETA
	case StateAskEmergencyType:
		return slots.KeyEmergencyType
	case StateAskEmergencyLocation:
		return slots.KeyEmergencyLocation
	case StateAskInjuries:
		return slots.KeyInjuries
	}
	return ""
}

// askStateFor maps a slot key to the state that asks for it.
func askStateFor(key string) State {
	switch key {
	case slots.KeyStatus:
		return StateAskStatus
	case slots.KeyLocation:
		return StateAskLocation
	case slots.KeyETA:
		return StateAskETA
	case slots.KeyEmergencyType:
		return StateAskEmergencyType
	case slots.KeyEmergencyLocation:
		return StateAskEmergencyLocation
	case slots.KeyInjuries:
		return StateAskInjuries
	}
	return StateInit
}

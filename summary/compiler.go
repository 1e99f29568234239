// Package summary folds a finished call into the versioned structured record
// stored for dispatch.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/fleetline/haulcall/slots"
)

// Version is the summary schema tag. Bumped only when the shape changes.
const Version = "v1"

// Call outcomes
const (
	OutcomeInTransit = "In-Transit Update"
	OutcomeArrival   = "Arrival Confirmation"
	OutcomeEmergency = "Emergency Detected"
	OutcomeNoReply   = "No Response"
	OutcomeUnknown   = "Unknown"
)

// CallInfo is the snapshot of a finished session the compiler consumes.
type CallInfo struct {
	CallID          string
	DriverName      string
	PhoneNumber     string
	LoadNumber      string
	Scenario        string
	Escalation      string
	Slots           slots.Set
	StartedAt       time.Time
	EndedAt         time.Time
	Segments        int
	DriverResponded bool
	Failed          bool
}

// Summary is the v1 structured call record. Every slot field is always
// present; unfilled slots are "unknown", never omitted, so downstream
// consumers see a stable schema regardless of how the call ended.
type Summary struct {
	Version           string `json:"summary_version"`
	CallID            string `json:"call_id"`
	CallOutcome       string `json:"call_outcome"`
	DriverName        string `json:"driver_name"`
	PhoneNumber       string `json:"phone_number"`
	LoadNumber        string `json:"load_number"`
	Scenario          string `json:"scenario"`
	Status            string `json:"status"`
	Location          string `json:"location"`
	ETA               string `json:"eta"`
	EmergencyType     string `json:"emergency_type"`
	EmergencyLocation string `json:"emergency_location"`
	Injuries          string `json:"injuries"`
	Escalation        string `json:"escalation_status"`
	StartedAt         string `json:"started_at"`
	EndedAt           string `json:"ended_at"`
	SegmentCount      int    `json:"segment_count"`
}

// Compile builds the summary. Pure: the same snapshot always yields the same
// summary, so a retried persistence write is byte-identical.
func Compile(info CallInfo) Summary {
	set := info.Slots
	if set == nil {
		set = slots.NewSet()
	}
	reg := set.Values(slots.KeyStatus, slots.KeyLocation, slots.KeyETA)
	emg := set.Values(slots.KeyEmergencyType, slots.KeyEmergencyLocation, slots.KeyInjuries)

	return Summary{
		Version:           Version,
		CallID:            info.CallID,
		CallOutcome:       outcome(info, reg),
		DriverName:        info.DriverName,
		PhoneNumber:       info.PhoneNumber,
		LoadNumber:        info.LoadNumber,
		Scenario:          info.Scenario,
		Status:            reg[slots.KeyStatus],
		Location:          reg[slots.KeyLocation],
		ETA:               reg[slots.KeyETA],
		EmergencyType:     emg[slots.KeyEmergencyType],
		EmergencyLocation: emg[slots.KeyEmergencyLocation],
		Injuries:          emg[slots.KeyInjuries],
		Escalation:        info.Escalation,
		StartedAt:         formatTime(info.StartedAt),
		EndedAt:           formatTime(info.EndedAt),
		SegmentCount:      info.Segments,
	}
}

// Encode serializes the summary for persistence.
func (s Summary) Encode() ([]byte, error) {
	data, err := sonic.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return data, nil
}

func outcome(info CallInfo, reg map[string]string) string {
	switch {
	case info.Escalation != "" && info.Escalation != "none":
		return OutcomeEmergency
	case !info.DriverResponded:
		return OutcomeNoReply
	case strings.EqualFold(reg[slots.KeyStatus], "arrived"):
		return OutcomeArrival
	case info.Failed && reg[slots.KeyStatus] == slots.Unknown &&
		reg[slots.KeyLocation] == slots.Unknown && reg[slots.KeyETA] == slots.Unknown:
		return OutcomeUnknown
	default:
		return OutcomeInTransit
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

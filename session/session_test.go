package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetline/haulcall/dispatch"
	"github.com/fleetline/haulcall/emergency"
	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/scenario"
	"github.com/fleetline/haulcall/slots"
	"github.com/fleetline/haulcall/store"
	"github.com/fleetline/haulcall/summary"
)

type captureNotifier struct {
	alerts []dispatch.Alert
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, a dispatch.Alert) error {
	c.alerts = append(c.alerts, a)
	return c.err
}

func newTestSession(t *testing.T) (*CallSession, *store.Memory, *captureNotifier) {
	t.Helper()
	st := store.NewMemory()
	n := &captureNotifier{}
	m := scenario.NewMachine(scenario.DefaultConfig(), slots.NewExtractor(true), emergency.NewDetector(nil), scenario.TemplatePrompter{}, "Mike", "7891-B")
	start := messages.StartPayload{DriverName: "Mike", PhoneNumber: "+15550100", LoadNumber: "7891-B"}
	return New("call-1", start, m, st, n, time.Second, zerolog.Nop()), st, n
}

func driverSays(text string, at time.Time) messages.TranscriptSegment {
	return messages.TranscriptSegment{
		Speaker:    messages.SpeakerDriver,
		Text:       text,
		Timestamp:  at,
		Final:      true,
		Confidence: 0.95,
	}
}

func TestSession_FullCheckin(t *testing.T) {
	sess, st, _ := newTestSession(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ev := sess.Begin(ctx)
	if ev == nil || ev.Type != messages.TypeSpeak {
		t.Fatalf("expected opening speak event, got %+v", ev)
	}

	ev = sess.OnSegment(ctx, driverSays("I'm driving, near Exit 42 on I-80, ETA 3pm", now))
	if ev == nil || ev.Type != messages.TypeSpeak {
		t.Fatalf("expected recap speak event, got %+v", ev)
	}

	ev = sess.OnSegment(ctx, driverSays("yes that's correct", now.Add(5*time.Second)))
	if ev == nil || ev.Type != messages.TypeEndCall {
		t.Fatalf("expected end-call event, got %+v", ev)
	}
	if !sess.Done() {
		t.Error("session should be finalized after end-call")
	}

	sum, ok, err := st.Summary(ctx, "call-1")
	if err != nil || !ok {
		t.Fatalf("summary not persisted: %v %v", ok, err)
	}
	if sum.CallOutcome != summary.OutcomeInTransit {
		t.Errorf("outcome = %q, want %q", sum.CallOutcome, summary.OutcomeInTransit)
	}
	if sum.Status != "Driving" || sum.ETA != "3pm" {
		t.Errorf("unexpected slots in summary: %+v", sum)
	}

	// Opening, driver, recap, driver, closing
	if got := st.SegmentCount("call-1"); got != 5 {
		t.Errorf("persisted segments = %d, want 5", got)
	}
}

func TestSession_DropsDuplicateFinalSegments(t *testing.T) {
	sess, st, _ := newTestSession(t)
	ctx := context.Background()
	now := time.Now().UTC()
	sess.Begin(ctx)

	seg := driverSays("I'm driving", now)
	if ev := sess.OnSegment(ctx, seg); ev == nil {
		t.Fatal("first delivery should produce a reply")
	}
	// Re-delivery of the same final segment, after the agent reply
	if ev := sess.OnSegment(ctx, seg); ev != nil {
		t.Errorf("duplicate delivery should be dropped, got %+v", ev)
	}

	// Opening, driver, ask-location; no duplicate persisted
	if got := st.SegmentCount("call-1"); got != 3 {
		t.Errorf("persisted segments = %d, want 3", got)
	}

	// Same text later with a new timestamp is a genuine new utterance
	if ev := sess.OnSegment(ctx, driverSays("I'm driving", now.Add(10*time.Second))); ev == nil {
		t.Error("same text at a new timestamp should be processed")
	}
}

func TestSession_PartialSegmentsAreNotRecorded(t *testing.T) {
	sess, st, _ := newTestSession(t)
	ctx := context.Background()
	sess.Begin(ctx)

	partial := driverSays("I'm dri", time.Now().UTC())
	partial.Final = false
	if ev := sess.OnSegment(ctx, partial); ev != nil {
		t.Errorf("partial segment should produce no reply, got %+v", ev)
	}
	// Only the opening is persisted
	if got := st.SegmentCount("call-1"); got != 1 {
		t.Errorf("persisted segments = %d, want 1", got)
	}
}

func TestSession_AgentEchoIsRecordedNotProcessed(t *testing.T) {
	sess, _, _ := newTestSession(t)
	ctx := context.Background()
	sess.Begin(ctx)

	echo := messages.TranscriptSegment{
		Speaker:   messages.SpeakerAgent,
		Text:      "platform echo",
		Timestamp: time.Now().UTC(),
		Final:     true,
	}
	if ev := sess.OnSegment(ctx, echo); ev != nil {
		t.Errorf("agent segment should produce no reply, got %+v", ev)
	}
	if n := len(sess.Transcript()); n != 2 {
		t.Errorf("transcript length = %d, want 2", n)
	}
}

func TestSession_EmergencyEscalation(t *testing.T) {
	sess, st, notifier := newTestSession(t)
	ctx := context.Background()
	now := time.Now().UTC()
	sess.Begin(ctx)

	ev := sess.OnSegment(ctx, driverSays("I just had a blowout on I-80, no injuries", now))
	if ev == nil || ev.Type != messages.TypeEscalate {
		t.Fatalf("expected escalate event, got %+v", ev)
	}

	if len(notifier.alerts) != 1 {
		t.Fatalf("expected 1 dispatcher alert, got %d", len(notifier.alerts))
	}
	alert := notifier.alerts[0]
	if alert.EmergencyType != "Breakdown" || alert.EmergencyLocation != "I-80" || alert.Injuries != "no" {
		t.Errorf("unexpected alert: %+v", alert)
	}
	if alert.DriverName != "Mike" || alert.CallID != "call-1" {
		t.Errorf("alert missing call identity: %+v", alert)
	}

	if !sess.Done() {
		t.Error("session should be finalized after escalation")
	}
	sum, ok, _ := st.Summary(ctx, "call-1")
	if !ok {
		t.Fatal("summary not persisted")
	}
	if sum.CallOutcome != summary.OutcomeEmergency {
		t.Errorf("outcome = %q, want %q", sum.CallOutcome, summary.OutcomeEmergency)
	}
	if sum.Escalation != "escalated" {
		t.Errorf("escalation = %q, want escalated", sum.Escalation)
	}
}

func TestSession_EscalationProceedsOnNotifierFailure(t *testing.T) {
	sess, st, notifier := newTestSession(t)
	notifier.err = context.DeadlineExceeded
	ctx := context.Background()
	sess.Begin(ctx)

	ev := sess.OnSegment(ctx, driverSays("accident at mile marker 7, nobody is hurt", time.Now().UTC()))
	if ev == nil || ev.Type != messages.TypeEscalate {
		t.Fatalf("escalation must proceed without an ack, got %+v", ev)
	}
	sum, ok, _ := st.Summary(ctx, "call-1")
	if !ok || sum.CallOutcome != summary.OutcomeEmergency {
		t.Errorf("expected emergency summary despite notifier failure, got %+v", sum)
	}
}

func TestSession_DisconnectMidCallWritesPartialSummary(t *testing.T) {
	sess, st, _ := newTestSession(t)
	ctx := context.Background()
	sess.Begin(ctx)
	sess.OnSegment(ctx, driverSays("I'm driving", time.Now().UTC()))

	sess.OnDisconnect(ctx)

	sum, ok, _ := st.Summary(ctx, "call-1")
	if !ok {
		t.Fatal("partial summary not persisted")
	}
	if sum.Status != "Driving" {
		t.Errorf("collected slot lost: %+v", sum)
	}
	if sum.Location != slots.Unknown || sum.ETA != slots.Unknown {
		t.Errorf("uncollected slots should read unknown: %+v", sum)
	}
	if sum.Escalation != "none" {
		t.Errorf("escalation = %q, want none", sum.Escalation)
	}
	if sum.CallOutcome != summary.OutcomeInTransit {
		t.Errorf("outcome = %q, want %q", sum.CallOutcome, summary.OutcomeInTransit)
	}
}

func TestSession_DisconnectBeforeDriverSpeaks(t *testing.T) {
	sess, st, _ := newTestSession(t)
	ctx := context.Background()
	sess.Begin(ctx)

	sess.OnDisconnect(ctx)

	sum, ok, _ := st.Summary(ctx, "call-1")
	if !ok {
		t.Fatal("summary not persisted")
	}
	if sum.CallOutcome != summary.OutcomeNoReply {
		t.Errorf("outcome = %q, want %q", sum.CallOutcome, summary.OutcomeNoReply)
	}
}

func TestSession_FinalizeIsOneShot(t *testing.T) {
	sess, st, _ := newTestSession(t)
	ctx := context.Background()
	sess.Begin(ctx)
	sess.OnDisconnect(ctx)

	first, _, _ := st.Summary(ctx, "call-1")

	// Late events and repeated disconnects change nothing
	sess.OnDisconnect(ctx)
	if ev := sess.OnSegment(ctx, driverSays("hello?", time.Now().UTC())); ev != nil {
		t.Errorf("finalized session should ignore segments, got %+v", ev)
	}

	second, _, _ := st.Summary(ctx, "call-1")
	if first != second {
		t.Errorf("summary changed after finalize:\n%+v\n%+v", first, second)
	}
}

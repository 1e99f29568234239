package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetline/haulcall/dispatch"
	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/metrics"
	"github.com/fleetline/haulcall/scenario"
	"github.com/fleetline/haulcall/slots"
	"github.com/fleetline/haulcall/store"
	"github.com/fleetline/haulcall/summary"
)

// CallSession owns one call: the conversation machine, the append-only
// transcript, and the persistence of the final summary. All event handling is
// serialized under a single mutex so the machine never sees interleaved turns.
type CallSession struct {
	ID          string
	DriverName  string
	PhoneNumber string
	LoadNumber  string

	CreatedAt time.Time

	machine    *scenario.Machine
	store      store.Store
	notifier   dispatch.Notifier
	ackTimeout time.Duration
	log        zerolog.Logger

	mu           sync.Mutex
	transcript   []messages.TranscriptSegment
	lastFinal    map[string]messages.TranscriptSegment // by speaker
	lastActivity time.Time
	endedAt      time.Time
	driverSpoke  bool
	failed       bool
	finalized    bool
}

// New creates a session for one call. The machine must be freshly built for
// this call; it is owned by the session from here on.
func New(callID string, start messages.StartPayload, m *scenario.Machine, st store.Store, n dispatch.Notifier, ackTimeout time.Duration, log zerolog.Logger) *CallSession {
	now := time.Now()
	return &CallSession{
		ID:           callID,
		DriverName:   start.DriverName,
		PhoneNumber:  start.PhoneNumber,
		LoadNumber:   start.LoadNumber,
		CreatedAt:    now,
		machine:      m,
		store:        st,
		notifier:     n,
		ackTimeout:   ackTimeout,
		log:          log.With().Str("call_id", callID).Logger(),
		lastFinal:    make(map[string]messages.TranscriptSegment),
		lastActivity: now,
	}
}

// LastActivity reports when the session last saw an event.
func (s *CallSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Done reports whether the session has been finalized.
func (s *CallSession) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// Begin produces the opening utterance. Called once, right after create.
func (s *CallSession) Begin(ctx context.Context) *messages.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := s.machine.Begin(ctx)
	if action.Type != scenario.ActionSpeak {
		return nil
	}
	s.appendAgent(ctx, action.Text)
	return messages.NewSpeakEvent(s.ID, action.Text)
}

// OnSegment processes one transcript segment from the platform and returns at
// most one outbound event. Partial segments only refresh activity; duplicate
// finals are dropped before they reach the machine.
func (s *CallSession) OnSegment(ctx context.Context, seg messages.TranscriptSegment) *messages.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now()
	if s.finalized {
		return nil
	}

	metrics.Default.SegmentsTotal.Inc()
	if !seg.Final {
		metrics.Default.SegmentsPartial.Inc()
		return nil
	}

	// The platform re-delivers final segments on reconnects. Same speaker,
	// text, and timestamp as that speaker's previous final means we already
	// have it.
	if prev, ok := s.lastFinal[seg.Speaker]; ok && prev.Equal(seg) {
		metrics.Default.SegmentsDeduped.Inc()
		s.log.Debug().Str("text", seg.Text).Msg("dropped duplicate segment")
		return nil
	}

	idx := s.append(ctx, seg)
	if seg.Speaker != messages.SpeakerDriver {
		return nil
	}
	s.driverSpoke = true

	wasEmergency := s.machine.Scenario() == scenario.ScenarioEmergency
	action := s.machine.HandleDriver(ctx, seg.Text, idx, seg.Confidence)
	if !wasEmergency && s.machine.Scenario() == scenario.ScenarioEmergency {
		metrics.Default.EmergenciesDetected.Inc()
		s.log.Warn().Str("text", seg.Text).Msg("emergency detected, branch switched")
	}

	switch action.Type {
	case scenario.ActionSpeak:
		s.appendAgent(ctx, action.Text)
		return messages.NewSpeakEvent(s.ID, action.Text)

	case scenario.ActionEndCall:
		if action.Text != "" {
			s.appendAgent(ctx, action.Text)
		}
		s.finalize(ctx)
		return messages.NewEndCallEvent(s.ID, action.Reason, action.Text)

	case scenario.ActionEscalate:
		return s.escalate(ctx)
	}
	return nil
}

// OnDisconnect finalizes an abnormally ended call. Whatever was collected so
// far is preserved in a partial summary.
func (s *CallSession) OnDisconnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return
	}
	if s.machine.Fail() {
		s.failed = true
		metrics.Default.CallsFailed.Inc()
		s.log.Warn().Msg("call ended before completion")
	}
	s.finalize(ctx)
}

// Summary compiles the call record from the current snapshot. After finalize
// this is stable: same inputs, same bytes.
func (s *CallSession) Summary() summary.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compile()
}

// escalate notifies the dispatcher, bounded by the ack timeout, then resolves
// the machine and ends the call. The call never stalls on a slow dispatcher.
func (s *CallSession) escalate(ctx context.Context) *messages.ServerEvent {
	slotValues := s.machine.Slots().Values(slots.EmergencyKeys...)
	alert := dispatch.Alert{
		CallID:            s.ID,
		DriverName:        s.DriverName,
		PhoneNumber:       s.PhoneNumber,
		LoadNumber:        s.LoadNumber,
		EmergencyType:     slotValues[slots.KeyEmergencyType],
		EmergencyLocation: slotValues[slots.KeyEmergencyLocation],
		Injuries:          slotValues[slots.KeyInjuries],
	}

	acked := true
	if s.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, s.ackTimeout)
		err := s.notifier.Notify(nctx, alert)
		cancel()
		if err != nil {
			acked = false
			s.log.Error().Err(err).Msg("dispatcher notification failed, escalating anyway")
		}
	}
	if acked {
		metrics.Default.Escalations.WithLabelValues("acked").Inc()
	} else {
		metrics.Default.Escalations.WithLabelValues("timeout").Inc()
	}

	action := s.machine.ResolveEscalation(ctx, acked)
	if action.Text != "" {
		s.appendAgent(ctx, action.Text)
	}
	s.finalize(ctx)
	return messages.NewEscalateEvent(s.ID, action.Text)
}

// append records a segment and persists it keyed by its transcript index, so
// re-delivery after a crash cannot double-write.
func (s *CallSession) append(ctx context.Context, seg messages.TranscriptSegment) int {
	idx := len(s.transcript)
	s.transcript = append(s.transcript, seg)
	s.lastFinal[seg.Speaker] = seg
	if err := s.store.AppendSegment(ctx, s.ID, idx, seg); err != nil {
		s.log.Error().Err(err).Int("seq", idx).Msg("failed to persist segment")
	}
	return idx
}

func (s *CallSession) appendAgent(ctx context.Context, text string) {
	s.append(ctx, messages.TranscriptSegment{
		Speaker:    messages.SpeakerAgent,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		Final:      true,
		Confidence: 1.0,
	})
}

// finalize freezes the session and writes the summary exactly once. A write
// failure is retried once; past that the summary stays compiled in memory and
// the error is logged for the operator.
func (s *CallSession) finalize(ctx context.Context) {
	if s.finalized {
		return
	}
	s.finalized = true
	s.endedAt = time.Now()

	sum := s.compile()
	err := s.store.WriteSummary(ctx, s.ID, sum)
	if err != nil {
		metrics.Default.SummaryRetries.Inc()
		s.log.Warn().Err(err).Msg("summary write failed, retrying")
		err = s.store.WriteSummary(ctx, s.ID, sum)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("summary write failed")
	} else {
		metrics.Default.SummariesWritten.Inc()
	}

	if err := s.store.UntrackCall(ctx, s.ID); err != nil {
		s.log.Warn().Err(err).Msg("failed to untrack call")
	}

	metrics.Default.CallDuration.Observe(s.endedAt.Sub(s.CreatedAt).Seconds())
	s.log.Info().
		Str("outcome", sum.CallOutcome).
		Int("segments", len(s.transcript)).
		Msg("call finalized")
}

func (s *CallSession) compile() summary.Summary {
	ended := s.endedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	return summary.Compile(summary.CallInfo{
		CallID:          s.ID,
		DriverName:      s.DriverName,
		PhoneNumber:     s.PhoneNumber,
		LoadNumber:      s.LoadNumber,
		Scenario:        string(s.machine.Scenario()),
		Escalation:      string(s.machine.Escalation()),
		Slots:           s.machine.Slots(),
		StartedAt:       s.CreatedAt,
		EndedAt:         ended,
		Segments:        len(s.transcript),
		DriverResponded: s.driverSpoke,
		Failed:          s.failed,
	})
}

// Transcript returns a copy of the recorded segments.
func (s *CallSession) Transcript() []messages.TranscriptSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messages.TranscriptSegment, len(s.transcript))
	copy(out, s.transcript)
	return out
}

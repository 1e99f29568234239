package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetline/haulcall/config"
	"github.com/fleetline/haulcall/dispatch"
	"github.com/fleetline/haulcall/emergency"
	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/metrics"
	"github.com/fleetline/haulcall/scenario"
	"github.com/fleetline/haulcall/slots"
	"github.com/fleetline/haulcall/store"
)

// Manager tracks active call sessions with concurrent access support
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*CallSession

	cfg      *config.Config
	store    store.Store
	notifier dispatch.Notifier
	prompter scenario.Prompter
	log      zerolog.Logger

	extractor *slots.Extractor
	detector  *emergency.Detector
}

// NewManager creates a session manager. The extractor and detector are shared
// across sessions; both are stateless after construction.
func NewManager(cfg *config.Config, st store.Store, n dispatch.Notifier, p scenario.Prompter, log zerolog.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*CallSession),
		cfg:       cfg,
		store:     st,
		notifier:  n,
		prompter:  p,
		log:       log,
		extractor: slots.NewExtractor(cfg.SlotHeuristics),
		detector:  emergency.NewDetector(cfg.EmergencyKeywords),
	}
}

// CreateSession registers a new call. An empty callID gets a generated one.
// Returns an error when the call already exists or the server is at capacity.
func (sm *Manager) CreateSession(ctx context.Context, callID string, start messages.StartPayload) (*CallSession, error) {
	if callID == "" {
		callID = uuid.New().String()
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[callID]; exists {
		return nil, fmt.Errorf("session already exists for call %s", callID)
	}
	if len(sm.sessions) >= sm.cfg.MaxSessions {
		return nil, fmt.Errorf("max sessions reached (%d)", sm.cfg.MaxSessions)
	}

	machine := scenario.NewMachine(scenario.Config{
		RetryLimit:           sm.cfg.PromptRetryLimit,
		Threshold:            slots.DefaultThreshold,
		MinSegmentConfidence: sm.cfg.MinConfidence,
	}, sm.extractor, sm.detector, sm.prompter, start.DriverName, start.LoadNumber)

	sess := New(callID, start, machine, sm.store, sm.notifier, sm.cfg.EscalationAckTimeout, sm.log)
	sm.sessions[callID] = sess

	if err := sm.store.TrackCall(ctx, callID, store.CallMeta{
		DriverName:  start.DriverName,
		PhoneNumber: start.PhoneNumber,
		LoadNumber:  start.LoadNumber,
		CreatedAt:   sess.CreatedAt,
	}); err != nil {
		sm.log.Warn().Err(err).Str("call_id", callID).Msg("failed to track call")
	}

	metrics.Default.CallsTotal.Inc()
	metrics.Default.CallsActive.Set(float64(len(sm.sessions)))
	sm.log.Info().
		Str("call_id", callID).
		Str("driver", start.DriverName).
		Str("load", start.LoadNumber).
		Int("active", len(sm.sessions)).
		Msg("session created")
	return sess, nil
}

// GetSession retrieves a session by call ID
func (sm *Manager) GetSession(callID string) (*CallSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sess, ok := sm.sessions[callID]
	return sess, ok
}

// RemoveSession drops a session from the registry. The session itself must
// already be finalized by its owner.
func (sm *Manager) RemoveSession(callID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[callID]; !ok {
		return
	}
	delete(sm.sessions, callID)
	metrics.Default.CallsActive.Set(float64(len(sm.sessions)))
	sm.log.Info().Str("call_id", callID).Int("active", len(sm.sessions)).Msg("session removed")
}

// SessionCount returns the number of active sessions
func (sm *Manager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions finalizes and removes sessions idle past the
// timeout. Each one gets a partial summary, same as a dropped connection.
func (sm *Manager) CleanupInactiveSessions(ctx context.Context, timeout time.Duration) {
	sm.mu.Lock()
	var stale []*CallSession
	for id, sess := range sm.sessions {
		if time.Since(sess.LastActivity()) > timeout {
			stale = append(stale, sess)
			delete(sm.sessions, id)
		}
	}
	metrics.Default.CallsActive.Set(float64(len(sm.sessions)))
	sm.mu.Unlock()

	for _, sess := range stale {
		sm.log.Warn().Str("call_id", sess.ID).Msg("cleaning up inactive session")
		sess.OnDisconnect(ctx)
	}
}

// StartCleanupRoutine starts a background goroutine to clean up inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.CleanupInactiveSessions(ctx, sm.cfg.SessionTimeout)
			}
		}
	}()
}

// Shutdown finalizes every remaining session. Called on server stop so no
// call ends without a summary.
func (sm *Manager) Shutdown(ctx context.Context) {
	sm.mu.Lock()
	remaining := make([]*CallSession, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		remaining = append(remaining, sess)
	}
	sm.sessions = make(map[string]*CallSession)
	metrics.Default.CallsActive.Set(0)
	sm.mu.Unlock()

	for _, sess := range remaining {
		sess.OnDisconnect(ctx)
	}
	sm.log.Info().Int("finalized", len(remaining)).Msg("session manager shut down")
}

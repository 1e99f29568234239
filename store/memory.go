package store

import (
	"context"
	"sync"

	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/summary"
)

// Memory is an in-process store used in development and tests.
type Memory struct {
	mu        sync.RWMutex
	segments  map[string]map[int]messages.TranscriptSegment
	summaries map[string]summary.Summary
	active    map[string]CallMeta
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		segments:  make(map[string]map[int]messages.TranscriptSegment),
		summaries: make(map[string]summary.Summary),
		active:    make(map[string]CallMeta),
	}
}

// AppendSegment records a segment; re-appending the same seq is a no-op.
func (m *Memory) AppendSegment(_ context.Context, callID string, seq int, seg messages.TranscriptSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, ok := m.segments[callID]
	if !ok {
		segs = make(map[int]messages.TranscriptSegment)
		m.segments[callID] = segs
	}
	if _, exists := segs[seq]; !exists {
		segs[seq] = seg
	}
	return nil
}

// WriteSummary stores the summary, keeping the first write.
func (m *Memory) WriteSummary(_ context.Context, callID string, s summary.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.summaries[callID]; !exists {
		m.summaries[callID] = s
	}
	return nil
}

// Summary returns the stored summary for a call, if any.
func (m *Memory) Summary(_ context.Context, callID string) (summary.Summary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[callID]
	return s, ok, nil
}

// TrackCall records a live session.
func (m *Memory) TrackCall(_ context.Context, callID string, meta CallMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[callID] = meta
	return nil
}

// UntrackCall removes a live session record.
func (m *Memory) UntrackCall(_ context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, callID)
	return nil
}

// SegmentCount returns how many segments are stored for a call.
func (m *Memory) SegmentCount(callID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.segments[callID])
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

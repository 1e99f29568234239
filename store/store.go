// Package store persists call transcripts and summaries. Writes are
// idempotent by call identifier so a retried write after a transient failure
// never duplicates records.
package store

import (
	"context"
	"time"

	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/summary"
)

// CallMeta mirrors a live session for operational visibility.
type CallMeta struct {
	DriverName  string    `json:"driver_name"`
	PhoneNumber string    `json:"phone_number"`
	LoadNumber  string    `json:"load_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the persistence sink consumed by the session layer.
//
// AppendSegment is keyed by (callID, seq) where seq is the segment's position
// in the session transcript; re-appending the same seq is a no-op.
// WriteSummary is write-once per call: a second write for the same call is
// accepted silently so retries are safe.
type Store interface {
	AppendSegment(ctx context.Context, callID string, seq int, seg messages.TranscriptSegment) error
	WriteSummary(ctx context.Context, callID string, s summary.Summary) error
	Summary(ctx context.Context, callID string) (summary.Summary, bool, error)

	TrackCall(ctx context.Context, callID string, meta CallMeta) error
	UntrackCall(ctx context.Context, callID string) error

	Close() error
}

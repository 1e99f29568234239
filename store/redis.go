package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/fleetline/haulcall/messages"
	"github.com/fleetline/haulcall/summary"
)

const (
	transcriptKeyPrefix = "call:transcript:"
	summaryKeyPrefix    = "call:summary:"
	sessionKeyPrefix    = "call:session:"
	activeSetKey        = "active_calls"
)

// Redis persists transcripts and summaries in Redis. Segment appends use
// HSetNX keyed by sequence number and the summary uses SetNX, which makes
// both writes idempotent by call identifier.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// AppendSegment stores a segment under its sequence number.
func (r *Redis) AppendSegment(ctx context.Context, callID string, seq int, seg messages.TranscriptSegment) error {
	data, err := sonic.Marshal(seg)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	key := transcriptKeyPrefix + callID
	if err := r.client.HSetNX(ctx, key, strconv.Itoa(seq), data).Err(); err != nil {
		return fmt.Errorf("append segment: %w", err)
	}
	if r.ttl > 0 {
		r.client.Expire(ctx, key, r.ttl)
	}
	return nil
}

// WriteSummary stores the summary once; later writes for the same call are
// silently accepted.
func (r *Redis) WriteSummary(ctx context.Context, callID string, s summary.Summary) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	key := summaryKeyPrefix + callID
	if err := r.client.SetNX(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Summary fetches a stored summary.
func (r *Redis) Summary(ctx context.Context, callID string) (summary.Summary, bool, error) {
	data, err := r.client.Get(ctx, summaryKeyPrefix+callID).Bytes()
	if err == redis.Nil {
		return summary.Summary{}, false, nil
	}
	if err != nil {
		return summary.Summary{}, false, fmt.Errorf("get summary: %w", err)
	}
	var s summary.Summary
	if err := sonic.Unmarshal(data, &s); err != nil {
		return summary.Summary{}, false, fmt.Errorf("decode summary: %w", err)
	}
	return s, true, nil
}

// TrackCall mirrors a live session into Redis.
func (r *Redis) TrackCall(ctx context.Context, callID string, meta CallMeta) error {
	key := sessionKeyPrefix + callID
	if err := r.client.HSet(ctx, key, map[string]interface{}{
		"driver_name":  meta.DriverName,
		"phone_number": meta.PhoneNumber,
		"load_number":  meta.LoadNumber,
		"created_at":   meta.CreatedAt.Format(time.RFC3339),
	}).Err(); err != nil {
		return fmt.Errorf("track call: %w", err)
	}
	r.client.SAdd(ctx, activeSetKey, callID)
	if r.ttl > 0 {
		r.client.Expire(ctx, key, r.ttl)
	}
	return nil
}

// UntrackCall removes the live-session mirror.
func (r *Redis) UntrackCall(ctx context.Context, callID string) error {
	r.client.Del(ctx, sessionKeyPrefix+callID)
	r.client.SRem(ctx, activeSetKey, callID)
	return nil
}

// Close releases the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

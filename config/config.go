package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
	MaxSessions    int
	SessionTimeout time.Duration

	RedisURL      string
	RedisPassword string
	RecordTTL     time.Duration // retention for transcripts/summaries in Redis; 0 = keep

	GeminiAPIKey       string // optional; templated-only operation when empty
	DispatchWebhookURL string // optional; escalations are log-only when empty

	// Conversation toggles, read once at session start and fixed for the
	// session's lifetime.
	SlotHeuristics    bool // heuristic slot extraction on/off
	ResponseTemplates bool // templated-response mode on/off

	PromptRetryLimit     int           // re-asks before a slot is marked unknown
	MinConfidence        float64       // below this a segment is unintelligible
	EscalationAckTimeout time.Duration // bound on the dispatcher acknowledgment wait
	EmergencyKeywords    []string      // override of the detector vocabulary

	LogLevel  string
	LogFormat string // json, console
}

// Load reads configuration from environment variables with defaults
func Load() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 8080,
		AllowedOrigins:       []string{"*"},
		MaxSessions:          100,
		SessionTimeout:       30 * time.Minute,
		RedisURL:             "localhost:6379",
		SlotHeuristics:       true,
		ResponseTemplates:    true,
		PromptRetryLimit:     2,
		MinConfidence:        0.5,
		EscalationAckTimeout: 10 * time.Second,
		LogLevel:             "info",
		LogFormat:            "json",
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DispatchWebhookURL = os.Getenv("DISPATCH_WEBHOOK_URL")

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		cfg.MaxSessions = m
	}

	// SESSION_TIMEOUT is in minutes
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		cfg.SessionTimeout = time.Duration(t) * time.Minute
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}

	// RECORD_TTL is in hours
	if ttl := os.Getenv("RECORD_TTL"); ttl != "" {
		h, err := strconv.Atoi(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid RECORD_TTL: %w", err)
		}
		cfg.RecordTTL = time.Duration(h) * time.Hour
	}

	if v := os.Getenv("SLOT_HEURISTICS_ENABLED"); v != "" {
		cfg.SlotHeuristics = parseBool(v)
	}
	if v := os.Getenv("RESPONSE_TEMPLATES_ENABLED"); v != "" {
		cfg.ResponseTemplates = parseBool(v)
	}

	if limit := os.Getenv("PROMPT_RETRY_LIMIT"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid PROMPT_RETRY_LIMIT: %q", limit)
		}
		cfg.PromptRetryLimit = n
	}

	if conf := os.Getenv("MIN_CONFIDENCE"); conf != "" {
		f, err := strconv.ParseFloat(conf, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("invalid MIN_CONFIDENCE: %q", conf)
		}
		cfg.MinConfidence = f
	}

	// ESCALATION_ACK_TIMEOUT is in seconds
	if timeout := os.Getenv("ESCALATION_ACK_TIMEOUT"); timeout != "" {
		s, err := strconv.Atoi(timeout)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("invalid ESCALATION_ACK_TIMEOUT: %q", timeout)
		}
		cfg.EscalationAckTimeout = time.Duration(s) * time.Second
	}

	if keywords := os.Getenv("EMERGENCY_KEYWORDS"); keywords != "" {
		cfg.EmergencyKeywords = strings.Split(keywords, ",")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		switch format {
		case "json", "console":
			cfg.LogFormat = format
		default:
			return nil, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'console'")
		}
	}

	return cfg, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}

// Package llm wraps the external text-generation capability used to compose
// freeform agent utterances when templated-response mode is off.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const modelName = "models/gemini-2.5-flash"

const systemPrompt = `You are a telephony dispatch agent checking in with a truck driver about a load.
Speak one short, natural sentence at a time. Never invent facts. If asked for a
question, ask only for the single missing item you are given. If asked for a
closing line, recap only the collected values you are given.
Reply with the spoken text only, no markup and no quotes.`

// Request carries the conversation context for one composed utterance.
type Request struct {
	Scenario      string
	State         string
	MissingSlot   string
	Slots         map[string]string
	DriverName    string
	LoadNumber    string
	History       []string
	LastUtterance string
}

// Client talks to the Gemini API. Treated as a fallible collaborator: callers
// retry once and fall back to templates on repeated failure.
type Client struct {
	client *genai.Client
}

// NewClient creates a Gemini-backed client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: c}, nil
}

// Compose produces the next agent utterance. One internal retry with a short
// backoff; a second failure is returned to the caller for template fallback.
func (c *Client) Compose(ctx context.Context, req Request) (string, error) {
	text, err := c.generate(ctx, req)
	if err == nil {
		return text, nil
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\nstate: %s\n", req.Scenario, req.State)
	if req.MissingSlot != "" {
		fmt.Fprintf(&b, "ask for: %s\n", req.MissingSlot)
	}
	if req.DriverName != "" {
		fmt.Fprintf(&b, "driver: %s\n", req.DriverName)
	}
	if req.LoadNumber != "" {
		fmt.Fprintf(&b, "load: %s\n", req.LoadNumber)
	}
	for k, v := range req.Slots {
		fmt.Fprintf(&b, "collected %s: %s\n", k, v)
	}
	if len(req.History) > 0 {
		fmt.Fprintf(&b, "recent turns:\n%s\n", strings.Join(req.History, "\n"))
	}
	if req.LastUtterance != "" {
		fmt.Fprintf(&b, "driver just said: %q\n", req.LastUtterance)
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelName,
		genai.Text(b.String()),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			},
		})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

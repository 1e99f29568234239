package llm

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fleetline/haulcall/metrics"
	"github.com/fleetline/haulcall/scenario"
)

// Prompter composes agent utterances with the LLM, degrading to the fixed
// templates whenever the collaborator fails. This is the only place the LLM
// is invoked.
type Prompter struct {
	client   *Client
	fallback scenario.TemplatePrompter
}

// NewPrompter wraps the client. A nil client yields pure template behavior,
// which lets callers construct one prompter regardless of configuration.
func NewPrompter(c *Client) *Prompter {
	return &Prompter{client: c}
}

// Prompt implements scenario.Prompter.
func (p *Prompter) Prompt(ctx context.Context, q scenario.Query) string {
	if p.client == nil {
		return p.fallback.Prompt(ctx, q)
	}
	text, err := p.client.Compose(ctx, requestFrom(q))
	if err != nil {
		log.Warn().Err(err).Str("state", q.State.String()).Msg("LLM prompt failed, using template")
		metrics.Default.LLMFallbacks.Inc()
		return p.fallback.Prompt(ctx, q)
	}
	return text
}

func requestFrom(q scenario.Query) Request {
	req := Request{
		Scenario:      string(q.Scenario),
		State:         q.State.String(),
		MissingSlot:   q.Slot,
		DriverName:    q.DriverName,
		LoadNumber:    q.LoadNumber,
		LastUtterance: q.LastUtterance,
	}
	if q.Slots != nil {
		req.Slots = make(map[string]string, len(q.Slots))
		for k, s := range q.Slots {
			req.Slots[k] = s.Value
		}
	}
	return req
}

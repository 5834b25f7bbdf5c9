package format

import (
	"context"
	"strings"
	"time"

	"clawrelay/internal/dashboard"
	"clawrelay/internal/logger"
	"clawrelay/internal/pkg/circuit"
	"clawrelay/internal/pkg/text"
)

// AnswerLimit bounds every query answer.
const AnswerLimit = 1900

// FallbackReply is sent when both the generative tier and the raw-data
// fallback have nothing to show. The responder never stays silent.
const FallbackReply = "⚠️ I couldn't reach the trading engine right now, so there is no portfolio data to answer from. Please try again in a minute."

// Generator is the best-effort text backend. Any error means "no result";
// the pipeline never propagates it.
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Pipeline composes the generative formatter with the deterministic
// fallback. The deterministic tier has no external dependency, so the
// pipeline as a whole cannot fail to produce a message.
type Pipeline struct {
	gen     Generator
	breaker *circuit.Breaker
}

// NewPipeline builds a pipeline. A nil generator disables the generative
// tier entirely (every call goes straight to the fallback).
func NewPipeline(gen Generator) *Pipeline {
	return &Pipeline{
		gen:     gen,
		breaker: circuit.New("generative", 3, 2*time.Minute),
	}
}

// FormatEvent returns a message for ev, at most EventMessageLimit runes.
func (p *Pipeline) FormatEvent(ctx context.Context, ev dashboard.Event) string {
	if out, ok := p.generate(ctx, "", eventPrompt(ev), eventTokenBudget); ok {
		return text.Clamp(out, EventMessageLimit)
	}
	return Render(ev)
}

// AnswerQuery returns an answer for question, at most AnswerLimit runes.
// fallback is the raw rendering of whatever context data was fetched; when
// it is empty too, the fixed FallbackReply goes out.
func (p *Pipeline) AnswerQuery(ctx context.Context, question, contextDoc, fallback string) string {
	if out, ok := p.generate(ctx, querySystemPrompt, queryPrompt(contextDoc, question), answerTokenBudget); ok {
		return text.Clamp(out, AnswerLimit)
	}
	if strings.TrimSpace(fallback) != "" {
		return text.Clamp(fallback, AnswerLimit)
	}
	return FallbackReply
}

// BreakerState exposes the generative breaker for the status endpoint.
func (p *Pipeline) BreakerState() circuit.State {
	return p.breaker.State()
}

func (p *Pipeline) generate(ctx context.Context, system, user string, maxTokens int) (string, bool) {
	if p.gen == nil {
		return "", false
	}
	if !p.breaker.Allow() {
		logger.Debugf("generative tier skipped, breaker open")
		return "", false
	}
	out, err := p.gen.Generate(ctx, system, user, maxTokens)
	if err != nil {
		p.breaker.RecordFailure()
		logger.Warnf("generative formatter failed, using fallback: %v", err)
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		p.breaker.RecordFailure()
		logger.Warnf("generative formatter returned empty output, using fallback")
		return "", false
	}
	p.breaker.RecordSuccess()
	return out, true
}

package format

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"clawrelay/internal/dashboard"
	"clawrelay/internal/pkg/circuit"
)

type fakeGenerator struct {
	out      string
	err      error
	calls    int
	lastUser string
	lastMax  int
}

func (f *fakeGenerator) Generate(_ context.Context, _, user string, maxTokens int) (string, error) {
	f.calls++
	f.lastUser = user
	f.lastMax = maxTokens
	return f.out, f.err
}

var sellEvent = dashboard.Event{
	ID:        1,
	EventType: "SELL",
	Symbol:    "BTC",
	Metadata:  map[string]any{"price": float64(65000), "pnl": 120.5, "pnl_percent": 1.8},
	CreatedAt: "2026-08-25T10:00:00Z",
}

func TestFormatEventUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{out: "🔥 BTC sold at 65k for +$120.50"}
	p := NewPipeline(gen)

	got := p.FormatEvent(context.Background(), sellEvent)
	assert.Equal(t, gen.out, got)
	assert.Equal(t, 200, gen.lastMax)
	assert.Contains(t, gen.lastUser, "Type: SELL")
	assert.Contains(t, gen.lastUser, "Symbol: BTC")
	assert.Contains(t, gen.lastUser, "Time: 2026-08-25T10:00:00Z")
}

func TestFormatEventFallsBackOnError(t *testing.T) {
	p := NewPipeline(&fakeGenerator{err: errors.New("backend down")})
	got := p.FormatEvent(context.Background(), sellEvent)
	assert.Equal(t, "🔴 **SELL** BTC @ $65000 | P&L: $120.5 (1.8%)", got)
}

func TestFormatEventFallsBackOnEmptyOutput(t *testing.T) {
	p := NewPipeline(&fakeGenerator{out: "  \n "})
	got := p.FormatEvent(context.Background(), sellEvent)
	assert.Equal(t, Render(sellEvent), got)
}

func TestFormatEventNilGeneratorEqualsDeterministic(t *testing.T) {
	p := NewPipeline(nil)
	assert.Equal(t, Render(sellEvent), p.FormatEvent(context.Background(), sellEvent))
}

func TestFormatEventBound(t *testing.T) {
	p := NewPipeline(&fakeGenerator{out: strings.Repeat("a", 2000)})
	got := p.FormatEvent(context.Background(), sellEvent)
	assert.Len(t, []rune(got), EventMessageLimit)
}

func TestAnswerQuery(t *testing.T) {
	gen := &fakeGenerator{out: "You hold 2 positions, both green."}
	p := NewPipeline(gen)

	got := p.AnswerQuery(context.Background(), "how are we doing?", "CONTEXT", "raw fallback")
	assert.Equal(t, gen.out, got)
	assert.Equal(t, 400, gen.lastMax)
	assert.Contains(t, gen.lastUser, "CONTEXT")
	assert.Contains(t, gen.lastUser, "User question: how are we doing?")
}

func TestAnswerQueryFallsBackToRawData(t *testing.T) {
	p := NewPipeline(&fakeGenerator{err: errors.New("down")})
	got := p.AnswerQuery(context.Background(), "q", "ctx", "**Portfolio:** raw dump")
	assert.Equal(t, "**Portfolio:** raw dump", got)
}

func TestAnswerQueryFinalFallbackNeverEmpty(t *testing.T) {
	p := NewPipeline(&fakeGenerator{err: errors.New("down")})
	got := p.AnswerQuery(context.Background(), "q", "", "   ")
	assert.Equal(t, FallbackReply, got)
	assert.NotEmpty(t, got)
}

func TestAnswerQueryBound(t *testing.T) {
	p := NewPipeline(&fakeGenerator{out: strings.Repeat("b", 5000)})
	got := p.AnswerQuery(context.Background(), "q", "ctx", "")
	assert.Len(t, []rune(got), AnswerLimit)

	p = NewPipeline(&fakeGenerator{err: errors.New("down")})
	got = p.AnswerQuery(context.Background(), "q", "ctx", strings.Repeat("c", 5000))
	assert.Len(t, []rune(got), AnswerLimit)
}

func TestPipelineBreakerOpensAfterRepeatedFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	p := NewPipeline(gen)

	for i := 0; i < 3; i++ {
		p.FormatEvent(context.Background(), sellEvent)
	}
	assert.Equal(t, circuit.StateOpen, p.BreakerState())

	// breaker open: generator no longer called, deterministic output returned
	before := gen.calls
	got := p.FormatEvent(context.Background(), sellEvent)
	assert.Equal(t, Render(sellEvent), got)
	assert.Equal(t, before, gen.calls)
}

package query

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clawrelay/internal/gateway/discord"
	"clawrelay/internal/logger"
	"clawrelay/internal/scheduler"
)

// API is the portfolio-state side of the dashboard client.
type API interface {
	GetPortfolioSummary(ctx context.Context) (json.RawMessage, error)
	GetPositions(ctx context.Context) (json.RawMessage, error)
	GetDecisions(ctx context.Context, limit int) (json.RawMessage, error)
}

// Chat is the bidirectional query channel.
type Chat interface {
	Messages(ctx context.Context, channelID, afterID string, limit int) ([]discord.Message, error)
	SendMessage(ctx context.Context, channelID, content string) error
	LatestMessageID(ctx context.Context, channelID string) (string, error)
}

// Answerer produces the reply text. Never fails by contract.
type Answerer interface {
	AnswerQuery(ctx context.Context, question, contextDoc, fallback string) string
}

// Responder polls the query channel for user questions and replies in place.
// Answers run on worker goroutines so a slow backend never blocks the
// dispatch of newer questions.
type Responder struct {
	api       API
	chat      Chat
	answerer  Answerer
	channelID string
	selfID    string
	pollEvery time.Duration

	// poll-loop state, touched only by the polling goroutine
	lastID string
	primed bool
}

func New(api API, chat Chat, answerer Answerer, channelID, selfID string, pollEvery time.Duration) *Responder {
	return &Responder{
		api:       api,
		chat:      chat,
		answerer:  answerer,
		channelID: channelID,
		selfID:    selfID,
		pollEvery: pollEvery,
	}
}

// Run blocks until ctx is cancelled. With no resolved channel the responder
// degrades to a no-op instead of failing the process.
func (r *Responder) Run(ctx context.Context) error {
	if r.channelID == "" {
		logger.Warnf("query channel not resolved, responder disabled")
		<-ctx.Done()
		return nil
	}
	var workers errgroup.Group
	workers.SetLimit(4)

	scheduler.Interval{
		Name:  "query",
		Every: r.pollEvery,
	}.Start(ctx, func(ctx context.Context) {
		r.poll(ctx, &workers)
	})
	return workers.Wait()
}

// poll drains new messages since the last seen id. The first successful poll
// only primes the cursor so restarts never replay channel history.
func (r *Responder) poll(ctx context.Context, workers *errgroup.Group) {
	if !r.primed {
		id, err := r.chat.LatestMessageID(ctx, r.channelID)
		if err != nil {
			logger.Warnf("query cursor init failed: %v", err)
			return
		}
		r.lastID = id
		r.primed = true
		return
	}
	msgs, err := r.chat.Messages(ctx, r.channelID, r.lastID, 50)
	if err != nil {
		logger.Warnf("query channel poll failed: %v", err)
		return
	}
	for _, msg := range msgs {
		r.lastID = msg.ID
		if msg.Author.ID == r.selfID || msg.Author.Bot {
			continue
		}
		question := strings.TrimSpace(msg.Content)
		if question == "" {
			continue
		}
		m := msg
		workers.Go(func() error {
			r.handle(ctx, m)
			return nil
		})
	}
}

func (r *Responder) handle(ctx context.Context, msg discord.Message) {
	trace := uuid.NewString()[:8]
	logger.Infof("[%s] answering question from %s", trace, msg.Author.Username)

	snap := r.fetchSnapshot(ctx, trace)
	answer := r.answerer.AnswerQuery(ctx, strings.TrimSpace(msg.Content), BuildContext(snap), RawFallback(snap))
	if err := r.chat.SendMessage(ctx, r.channelID, answer); err != nil {
		logger.Warnf("[%s] sending answer failed: %v", trace, err)
		return
	}
	logger.Infof("[%s] answered (%d chars)", trace, len(answer))
}

// fetchSnapshot runs the three portfolio fetches concurrently. Each failure
// is logged and drops only its own section.
func (r *Responder) fetchSnapshot(ctx context.Context, trace string) Snapshot {
	var snap Snapshot
	var eg errgroup.Group
	eg.Go(func() error {
		data, err := r.api.GetPortfolioSummary(ctx)
		if err != nil {
			logger.Warnf("[%s] portfolio fetch failed, section omitted: %v", trace, err)
			return nil
		}
		snap.Portfolio = data
		return nil
	})
	eg.Go(func() error {
		data, err := r.api.GetPositions(ctx)
		if err != nil {
			logger.Warnf("[%s] positions fetch failed, section omitted: %v", trace, err)
			return nil
		}
		snap.Positions = data
		return nil
	})
	eg.Go(func() error {
		data, err := r.api.GetDecisions(ctx, decisionsFetchLimit)
		if err != nil {
			logger.Warnf("[%s] decisions fetch failed, section omitted: %v", trace, err)
			return nil
		}
		snap.Decisions = data
		return nil
	})
	_ = eg.Wait()
	return snap
}

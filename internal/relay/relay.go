// Package relay runs the event pipeline: poll the dashboard for pending
// events, format each one, deliver it to the chat sink, and acknowledge the
// delivered subset upstream. Delivery is at-least-once; an id is only ever
// acknowledged after its message was confirmed delivered.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clawrelay/internal/dashboard"
	"clawrelay/internal/logger"
	"clawrelay/internal/scheduler"
)

// API is the upstream event feed.
type API interface {
	GetEvents(ctx context.Context) ([]dashboard.Event, error)
	MarkEventsPosted(ctx context.Context, ids []int64) error
}

// Sink receives formatted messages.
type Sink interface {
	Send(ctx context.Context, content string) error
}

// Formatter produces the message for one event. Must be total.
type Formatter interface {
	FormatEvent(ctx context.Context, ev dashboard.Event) string
}

// Ledger is the optional durable record of delivered ids. A nil Ledger means
// duplicate posts on a failed acknowledgment are accepted.
type Ledger interface {
	Delivered(ids []int64) (map[int64]bool, error)
	MarkDelivered(id int64) error
	MarkAcked(ids []int64) error
}

// Status is a point-in-time snapshot of relay counters for the admin API.
type Status struct {
	Cycles         int64     `json:"cycles"`
	Delivered      int64     `json:"delivered"`
	Acked          int64     `json:"acked"`
	DeliveryErrors int64     `json:"delivery_errors"`
	FetchErrors    int64     `json:"fetch_errors"`
	AckErrors      int64     `json:"ack_errors"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
}

// Relay owns the polling loop. Construct with New, then Run.
type Relay struct {
	api       API
	sink      Sink
	formatter Formatter
	ledger    Ledger
	interval  time.Duration
	immediate bool

	mu     sync.Mutex
	status Status
}

func New(api API, sink Sink, formatter Formatter, ledger Ledger, interval time.Duration, runImmediately bool) *Relay {
	return &Relay{
		api:       api,
		sink:      sink,
		formatter: formatter,
		ledger:    ledger,
		interval:  interval,
		immediate: runImmediately,
	}
}

// Run blocks until ctx is cancelled. A cycle in flight when ctx is cancelled
// finishes; anything it could not acknowledge simply reappears next start.
func (r *Relay) Run(ctx context.Context) error {
	scheduler.Interval{
		Name:           "relay",
		Every:          r.interval,
		RunImmediately: r.immediate,
	}.Start(ctx, r.runCycle)
	return nil
}

// Status returns a copy of the relay counters.
func (r *Relay) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// runCycle performs one fetch → format → deliver → acknowledge pass. Every
// failure inside a cycle is contained here; the loop is never fatal.
func (r *Relay) runCycle(ctx context.Context) {
	trace := uuid.NewString()[:8]
	r.mu.Lock()
	r.status.Cycles++
	r.status.LastCycleAt = time.Now()
	r.mu.Unlock()

	events, err := r.api.GetEvents(ctx)
	if err != nil {
		r.count(func(s *Status) { s.FetchErrors++ })
		logger.Warnf("[%s] event fetch failed, retrying next cycle: %v", trace, err)
		return
	}
	if len(events) == 0 {
		return
	}
	logger.Infof("[%s] fetched %d pending events", trace, len(events))

	prior := r.priorDeliveries(trace, events)
	acks := make([]int64, 0, len(events))
	for _, ev := range events {
		if prior[ev.ID] {
			// delivered in an earlier cycle whose acknowledgment failed:
			// re-acknowledge without posting a duplicate
			logger.Infof("[%s] event #%d already delivered, ack only", trace, ev.ID)
			acks = append(acks, ev.ID)
			continue
		}
		msg := r.formatter.FormatEvent(ctx, ev)
		if err := r.sink.Send(ctx, msg); err != nil {
			r.count(func(s *Status) { s.DeliveryErrors++ })
			logger.Warnf("[%s] delivery of event #%d failed, will retry next cycle: %v", trace, ev.ID, err)
			continue
		}
		r.count(func(s *Status) { s.Delivered++ })
		logger.Infof("[%s] posted event #%d (%s)", trace, ev.ID, ev.EventType)
		if r.ledger != nil {
			if err := r.ledger.MarkDelivered(ev.ID); err != nil {
				logger.Warnf("[%s] ledger write for event #%d failed: %v", trace, ev.ID, err)
			}
		}
		acks = append(acks, ev.ID)
	}

	if len(acks) == 0 {
		return
	}
	if err := r.api.MarkEventsPosted(ctx, acks); err != nil {
		r.count(func(s *Status) { s.AckErrors++ })
		logger.Warnf("[%s] acknowledging %d events failed, events stay pending upstream: %v", trace, len(acks), err)
		return
	}
	r.count(func(s *Status) { s.Acked += int64(len(acks)) })
	logger.Infof("[%s] marked %d events as posted", trace, len(acks))
	if r.ledger != nil {
		if err := r.ledger.MarkAcked(acks); err != nil {
			logger.Warnf("[%s] ledger ack update failed: %v", trace, err)
		}
	}
}

// priorDeliveries consults the ledger for ids already delivered in earlier
// cycles. A ledger failure degrades to "nothing known": worst case is a
// duplicate post, never a lost event.
func (r *Relay) priorDeliveries(trace string, events []dashboard.Event) map[int64]bool {
	if r.ledger == nil {
		return nil
	}
	ids := make([]int64, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	prior, err := r.ledger.Delivered(ids)
	if err != nil {
		logger.Warnf("[%s] ledger lookup failed, treating all events as undelivered: %v", trace, err)
		return nil
	}
	return prior
}

func (r *Relay) count(fn func(*Status)) {
	r.mu.Lock()
	fn(&r.status)
	r.mu.Unlock()
}

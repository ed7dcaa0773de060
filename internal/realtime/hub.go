package realtime

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

const (
	defaultBacklog       = 256
	subscriberBufferSize = 32
)

// Envelope is a change event stamped with its hub sequence number.
type Envelope struct {
	Seq   int64
	Event models.ChangeEvent
}

// EventID renders the sequence as an SSE id.
func (e Envelope) EventID() string {
	return strconv.FormatInt(e.Seq, 10)
}

// Filter selects the events a subscriber receives.
type Filter struct {
	Table    string
	Statuses []string
	// Allow is the subscriber's tenant predicate. Nil denies everything.
	Allow func(teamCode string) bool
}

// Match reports whether ev passes the filter. Update events are delivered
// even when the new status is outside Statuses so that clients can drop rows
// leaving their view.
func (f Filter) Match(ev models.ChangeEvent) bool {
	if f.Allow == nil || !f.Allow(ev.TeamCode) {
		return false
	}
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if len(f.Statuses) == 0 || ev.Type == models.ChangeUpdate {
		return true
	}
	for _, s := range f.Statuses {
		if s == ev.Status {
			return true
		}
	}
	return false
}

// SubscriberGauge tracks open subscriptions.
type SubscriberGauge interface {
	SubscriberDelta(delta int)
}

// Subscription is one live consumer of the hub.
type Subscription struct {
	C      <-chan Envelope
	ch     chan Envelope
	filter Filter
}

// Hub fans change events out to in-process subscribers. Publishers never
// block: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.Mutex
	nextSeq int64
	backlog []Envelope
	max     int
	subs    map[*Subscription]struct{}
	closed  bool
	gauge   SubscriberGauge
	logger  *zap.Logger
}

// NewHub constructs a hub keeping the last backlog events for replay.
func NewHub(backlog int, gauge SubscriberGauge, logger *zap.Logger) *Hub {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		max:    backlog,
		subs:   map[*Subscription]struct{}{},
		gauge:  gauge,
		logger: logger,
	}
}

// Publish implements the service event publisher.
func (h *Hub) Publish(_ context.Context, ev models.ChangeEvent) error {
	h.Broadcast(ev)
	return nil
}

// Broadcast stamps ev and delivers it to every matching subscriber.
func (h *Hub) Broadcast(ev models.ChangeEvent) Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return Envelope{}
	}
	h.nextSeq++
	env := Envelope{Seq: h.nextSeq, Event: ev}
	h.backlog = append(h.backlog, env)
	if len(h.backlog) > h.max {
		h.backlog = h.backlog[len(h.backlog)-h.max:]
	}
	for sub := range h.subs {
		if !sub.filter.Match(ev) {
			continue
		}
		select {
		case sub.ch <- env:
		default:
			h.logger.Debug("dropping change event for slow subscriber",
				zap.String("table", ev.Table), zap.String("id", ev.ID))
		}
	}
	return env
}

// Subscribe registers a consumer. Events newer than lastEventID that match the
// filter are queued first; an empty or unknown id skips replay.
func (h *Hub) Subscribe(filter Filter, lastEventID string) *Subscription {
	ch := make(chan Envelope, subscriberBufferSize)
	sub := &Subscription{C: ch, ch: ch, filter: filter}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	if last, err := strconv.ParseInt(lastEventID, 10, 64); err == nil {
		for _, env := range h.backlog {
			if env.Seq <= last || !filter.Match(env.Event) {
				continue
			}
			select {
			case ch <- env:
			default:
			}
		}
	}
	h.subs[sub] = struct{}{}
	if h.gauge != nil {
		h.gauge.SubscriberDelta(1)
	}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	if h.gauge != nil {
		h.gauge.SubscriberDelta(-1)
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
		if h.gauge != nil {
			h.gauge.SubscriberDelta(-1)
		}
	}
}

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KindTreeGrew marks a notification emitted after a forest mutation.
const KindTreeGrew = "tree.grew"

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 1600 * time.Millisecond

// Notification is a transient, human-readable message for the presentation layer.
type Notification struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Message   string        `json:"message"`
	NodeID    string        `json:"nodeId,omitempty"`
	ParentID  string        `json:"parentId,omitempty"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ExpiresAt is the moment a toast for n should disappear.
func (n Notification) ExpiresAt() time.Time {
	return n.CreatedAt.Add(n.Duration)
}

// Subscription receives notifications until Close is called.
type Subscription struct {
	C <-chan Notification

	ch   chan Notification
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans notifications out to subscribers. Delivery is best effort: a subscriber
// whose buffer is full misses the message.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	duration time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewHub creates a hub. A non-positive duration falls back to DefaultDuration.
func NewHub(duration time.Duration, logger *zap.Logger) *Hub {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:     make(map[*Subscription]struct{}),
		duration: duration,
		logger:   logger,
		now:      time.Now,
	}
}

// Duration reports the toast visibility applied to published notifications.
func (h *Hub) Duration() time.Duration {
	return h.duration
}

// Subscribe registers a listener with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers returns the number of attached subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish stamps n and delivers it to every subscriber.
func (h *Hub) Publish(_ context.Context, n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Kind == "" {
		n.Kind = KindTreeGrew
	}
	if n.Duration <= 0 {
		n.Duration = h.duration
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = h.now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- n:
		default:
			h.logger.Warn("dropping notification for slow subscriber", zap.String("notificationID", n.ID))
		}
	}
	return n
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

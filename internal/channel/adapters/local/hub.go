package local

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memohai/ytbot/internal/channel"
)

const subscriberBuffer = 64

// Event is one outbound message delivered to local subscribers.
type Event struct {
	ID        string          `json:"id"`
	Target    string          `json:"target"`
	Message   channel.Message `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
}

// RouteHub fans outbound local-channel messages out to subscribers by target.
type RouteHub struct {
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event
}

// NewRouteHub creates an empty hub.
func NewRouteHub(log *slog.Logger) *RouteHub {
	if log == nil {
		log = slog.Default()
	}
	return &RouteHub{
		logger:      log.With(slog.String("component", "route_hub")),
		subscribers: map[string]map[string]chan Event{},
	}
}

// Subscribe registers a listener for target. The returned cancel func
// unregisters it and closes the stream.
func (h *RouteHub) Subscribe(target string) (string, <-chan Event, func()) {
	target = strings.TrimSpace(target)
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[target] == nil {
		h.subscribers[target] = map[string]chan Event{}
	}
	h.subscribers[target][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subscribers[target]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(h.subscribers, target)
				}
			}
			close(ch)
		})
	}
	return id, ch, cancel
}

// Publish delivers msg to every subscriber of target and returns how many
// received it. Slow subscribers whose buffer is full miss the event.
func (h *RouteHub) Publish(target string, msg channel.Message) int {
	target = strings.TrimSpace(target)
	event := Event{
		ID:        uuid.NewString(),
		Target:    target,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for id, ch := range h.subscribers[target] {
		select {
		case ch <- event:
			delivered++
		default:
			h.logger.Warn("subscriber buffer full, event dropped",
				slog.String("target", target),
				slog.String("subscriber", id))
		}
	}
	return delivered
}

// Subscribers reports the number of listeners for target.
func (h *RouteHub) Subscribers(target string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[strings.TrimSpace(target)])
}

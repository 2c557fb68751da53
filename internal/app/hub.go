package service

import (
	"sync"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/types"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/metrics"
)

// subscriberBuffer is how many messages a slow subscriber may fall behind
// before messages to it are dropped.
const subscriberBuffer = 8

// hub fans refit messages out to an event's live subscribers.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan types.StreamMessage
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan types.StreamMessage)}
}

// subscribe registers a subscriber. The returned cancel func is idempotent.
func (h *hub) subscribe() (<-chan types.StreamMessage, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan types.StreamMessage, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	metrics.AddStreamClients(1)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
				metrics.AddStreamClients(-1)
			}
		})
	}
}

// publish delivers msg to every subscriber without blocking.
func (h *hub) publish(msg types.StreamMessage) { //nolint:gocritic // hugeParam
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// count returns the number of live subscribers.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close ends every subscription.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
		metrics.AddStreamClients(-1)
	}
}

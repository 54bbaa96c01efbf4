package service

import (
	"sync"

	"co2_monitor/internal/models"
)

const subscriberBuffer = 4

// hub fans snapshots out to subscribers. Slow subscribers lose the oldest
// pending snapshot rather than blocking the agent.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan models.Snapshot
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan models.Snapshot)}
}

func (h *hub) subscribe() (<-chan models.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan models.Snapshot, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *hub) publish(s models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

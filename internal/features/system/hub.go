package system

import (
	"sync"

	common_models "contacts-sync/internal/common/models"

	"go.uber.org/zap"
)

const subscriberBuffer = 32

type subscriber struct {
	events chan common_models.Event
}

// Hub fans events out to the websocket subscribers of each customer.
// A subscriber whose buffer is full is dropped instead of blocking Publish.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	log         *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		log:         log.Named("realtime"),
	}
}

// Subscribe returns the event stream for one customer and a cancel func.
// The channel is closed on cancel or when the subscriber is dropped.
func (h *Hub) Subscribe(customerID string) (<-chan common_models.Event, func()) {
	sub := &subscriber{events: make(chan common_models.Event, subscriberBuffer)}

	h.mu.Lock()
	if h.subscribers[customerID] == nil {
		h.subscribers[customerID] = make(map[*subscriber]struct{})
	}
	h.subscribers[customerID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.events, func() {
		once.Do(func() { h.remove(customerID, sub) })
	}
}

func (h *Hub) remove(customerID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[customerID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.events)
	if len(subs) == 0 {
		delete(h.subscribers, customerID)
	}
}

func (h *Hub) Publish(customerID string, event common_models.Event) {
	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.subscribers[customerID] {
		select {
		case sub.events <- event:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.log.Warn("dropping slow subscriber", zap.String("customerId", customerID))
		h.remove(customerID, sub)
	}
}

func (h *Hub) Subscribers(customerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[customerID])
}

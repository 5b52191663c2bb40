package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"leaselane/pkg/agreement"
)

// Hub fans committed agreement events out to websocket subscribers. Delivery
// is best effort: a slow subscriber is dropped rather than allowed to stall
// the publisher, and the durable trail stays in the events table.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan agreement.Event]struct{}

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		subs: map[string]map[chan agreement.Event]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (h *Hub) Subscribe(agreementID string) chan agreement.Event {
	ch := make(chan agreement.Event, 64)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[agreementID] == nil {
		h.subs[agreementID] = map[chan agreement.Event]struct{}{}
	}
	h.subs[agreementID][ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(agreementID string, ch chan agreement.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[agreementID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, agreementID)
		}
	}
}

func (h *Hub) Publish(agreementID string, events []agreement.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[agreementID] {
		dropped := false
		for _, e := range events {
			select {
			case ch <- e:
			default:
				// Buffer full: disconnect rather than block.
				dropped = true
			}
			if dropped {
				delete(h.subs[agreementID], ch)
				close(ch)
				break
			}
		}
	}
}

// Handler upgrades the request and streams events for one agreement until
// the client goes away.
func (h *Hub) Handler(agreementIDFromRequest func(r *http.Request) string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		agreementID := agreementIDFromRequest(r)
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ch := h.Subscribe(agreementID)
		defer h.Unsubscribe(agreementID, ch)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(e); err != nil {
					return
				}
			}
		}
	}
}

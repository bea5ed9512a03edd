package server

import (
	"sync/atomic"

	"volume-tracker/src/logger"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
//
// Subscribers attach to exactly one channel ("all", "stock_<SYM>",
// "correlations_<slug>", "slope_table_<slug>"). Publications fan out to the
// channel's subscribers only; slow consumers are pruned so the hub loop
// never blocks.
// -----------------------------------------------------------------------------

type publication struct {
	channel string
	payload []byte
}

type Hub struct {
	Logger *logger.Logger

	channels map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	publish    chan publication

	clientCount int64
}

// -----------------------------------------------------------------------------

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Logger:   log.Named("hub"),
		channels: make(map[string]map[*Client]struct{}),
		register: make(chan *Client),
		// Buffered queue so publishers are not coupled to fan-out speed
		publish:    make(chan publication, 256),
		unregister: make(chan *Client),
	}
}

// -----------------------------------------------------------------------------

// Run is the hub loop; it owns the channel map.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			subscribers, ok := h.channels[client.channel]
			if !ok {
				subscribers = make(map[*Client]struct{})
				h.channels[client.channel] = subscribers
			}
			subscribers[client] = struct{}{}
			atomic.AddInt64(&h.clientCount, 1)

		case client := <-h.unregister:
			h.drop(client)

		case p := <-h.publish:
			for client := range h.channels[p.channel] {
				select {
				case client.send <- p.payload:
				default:
					// Client too slow; prune to keep the loop moving
					h.drop(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) drop(client *Client) {
	subscribers, ok := h.channels[client.channel]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}

	delete(subscribers, client)
	close(client.send)
	atomic.AddInt64(&h.clientCount, -1)
	if len(subscribers) == 0 {
		delete(h.channels, client.channel)
	}
}

// -----------------------------------------------------------------------------

// Publish queues a payload for one channel's subscribers.
func (h *Hub) Publish(channel string, payload []byte) {
	h.publish <- publication{channel: channel, payload: payload}
}

// -----------------------------------------------------------------------------

func (h *Hub) ClientCount() int64 {
	return atomic.LoadInt64(&h.clientCount)
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sol-erda/tracker/internal/logger"
)

// UpdateChannel carries a message each time a newer snapshot shows up
const UpdateChannel = "ocr:updates"

// UpdateEvent is the payload published on UpdateChannel and streamed over SSE
type UpdateEvent struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ItemCount int       `json:"item_count"`
	Origin    string    `json:"origin"`
}

// PriceStreamHub multiplexes update messages to many SSE clients without spawning
// a Redis subscription per HTTP request.
type PriceStreamHub struct {
	redis       *redis.Client
	channelName string
	origin      string

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	onRemote    func(UpdateEvent)
}

// NewPriceStreamHub creates a hub; rdb may be nil for a single-process setup
func NewPriceStreamHub(rdb *redis.Client, channel, origin string) *PriceStreamHub {
	return &PriceStreamHub{
		redis:       rdb,
		channelName: channel,
		origin:      origin,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// OnRemoteUpdate registers fn for events published by other processes
func (h *PriceStreamHub) OnRemoteUpdate(fn func(UpdateEvent)) {
	h.mu.Lock()
	h.onRemote = fn
	h.mu.Unlock()
}

// Run relays the Redis channel into the hub until ctx is done
func (h *PriceStreamHub) Run(ctx context.Context) {
	if h.redis == nil {
		return
	}

	for {
		pubsub := h.redis.Subscribe(ctx, h.channelName)
		h.consume(ctx, pubsub.Channel(redis.WithChannelSize(256)))
		_ = pubsub.Close()

		// Avoid tight loop if Redis connection drops
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (h *PriceStreamHub) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handle([]byte(msg.Payload))
		}
	}
}

func (h *PriceStreamHub) handle(payload []byte) {
	h.Broadcast(payload)

	var ev UpdateEvent
	if err := sonic.Unmarshal(payload, &ev); err != nil {
		logger.Warn("PriceStreamHub: undecodable update: %v", err)
		return
	}

	h.mu.RLock()
	fn := h.onRemote
	h.mu.RUnlock()

	if fn != nil && ev.Origin != h.origin {
		fn(ev)
	}
}

// Broadcast delivers payload to every subscriber
func (h *PriceStreamHub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- payload:
		default:
			// Subscriber is too slow; drop the oldest message to keep the hub responsive
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- payload:
			default:
			}
		}
	}
}

// Subscribe registers a new listener and returns a channel plus cleanup function.
func (h *PriceStreamHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// SubscriberCount reports connected listeners
func (h *PriceStreamHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

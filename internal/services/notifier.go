package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sol-erda/tracker/internal/models"
)

// NewOrigin returns an identifier for this process in update events
func NewOrigin(role string) string {
	return fmt.Sprintf("%s-%s", role, uuid.NewString())
}

// UpdateNotifier announces a newer snapshot once per snapshot id.
// With Redis it publishes on the shared channel, otherwise straight into the local hub.
type UpdateNotifier struct {
	Redis   *redis.Client
	Hub     *PriceStreamHub
	Channel string
	Origin  string

	mu     sync.Mutex
	lastID int64
}

func NewUpdateNotifier(rdb *redis.Client, hub *PriceStreamHub, origin string) *UpdateNotifier {
	return &UpdateNotifier{
		Redis:   rdb,
		Hub:     hub,
		Channel: UpdateChannel,
		Origin:  origin,
	}
}

// Notify publishes an event when latest differs from the last announced snapshot
func (n *UpdateNotifier) Notify(ctx context.Context, latest *models.OcrSnapshot) (bool, error) {
	if latest == nil {
		return false, nil
	}

	n.mu.Lock()
	prev := n.lastID
	if latest.ID == prev {
		n.mu.Unlock()
		return false, nil
	}
	n.lastID = latest.ID
	n.mu.Unlock()

	payload, err := sonic.Marshal(UpdateEvent{
		ID:        latest.ID,
		CreatedAt: latest.CreatedAt,
		ItemCount: len(latest.Items),
		Origin:    n.Origin,
	})
	if err != nil {
		n.rollback(latest.ID, prev)
		return false, fmt.Errorf("encode update event: %w", err)
	}

	if n.Redis != nil {
		if err := n.Redis.Publish(ctx, n.Channel, payload).Err(); err != nil {
			n.rollback(latest.ID, prev)
			return false, fmt.Errorf("publish update event: %w", err)
		}
		return true, nil
	}

	if n.Hub != nil {
		n.Hub.Broadcast(payload)
	}
	return true, nil
}

// rollback lets the next Notify retry a snapshot whose announcement failed
func (n *UpdateNotifier) rollback(id, prev int64) {
	n.mu.Lock()
	if n.lastID == id {
		n.lastID = prev
	}
	n.mu.Unlock()
}

// MarkAnnounced records id as already announced, e.g. after another process
// published it
func (n *UpdateNotifier) MarkAnnounced(id int64) {
	n.mu.Lock()
	n.lastID = id
	n.mu.Unlock()
}

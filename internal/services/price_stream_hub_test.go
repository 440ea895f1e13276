package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sol-erda/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastAndUnsubscribe(t *testing.T) {
	hub := NewPriceStreamHub(nil, UpdateChannel, "api-test")

	ch, unsubscribe := hub.Subscribe()
	assert.Equal(t, 1, hub.SubscriberCount())

	hub.Broadcast([]byte("hello"))
	assert.Equal(t, "hello", string(<-ch))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.SubscriberCount())
	_, open := <-ch
	assert.False(t, open)
}

func TestHubDropsOldestForSlowSubscribers(t *testing.T) {
	hub := NewPriceStreamHub(nil, UpdateChannel, "api-test")
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		hub.Broadcast([]byte{byte(i)})
	}

	var last byte
	for len(ch) > 0 {
		last = (<-ch)[0]
	}
	assert.EqualValues(t, 19, last)
}

func TestNotifierPublishesOncePerSnapshot(t *testing.T) {
	_, client := newTestRedis(t)

	hub := NewPriceStreamHub(client, UpdateChannel, "api-a")
	var remote int32
	hub.OnRemoteUpdate(func(ev UpdateEvent) {
		atomic.AddInt32(&remote, 1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sub, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	// Wait for the hub's Redis subscription before publishing
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, UpdateChannel).Result()
		return err == nil && n[UpdateChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	worker := NewUpdateNotifier(client, nil, "worker-b")
	snap := &models.OcrSnapshot{ID: 7, Items: models.PriceArray{1, 2, 3}, CreatedAt: t0}

	sent, err := worker.Notify(ctx, snap)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = worker.Notify(ctx, snap)
	require.NoError(t, err)
	assert.False(t, sent)

	select {
	case payload := <-sub:
		var ev UpdateEvent
		require.NoError(t, sonic.Unmarshal(payload, &ev))
		assert.EqualValues(t, 7, ev.ID)
		assert.Equal(t, 3, ev.ItemCount)
		assert.Equal(t, "worker-b", ev.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update event")
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&remote) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Events from our own origin are streamed but do not count as remote
	self := NewUpdateNotifier(client, nil, "api-a")
	_, err = self.Notify(ctx, &models.OcrSnapshot{ID: 8, CreatedAt: t0})
	require.NoError(t, err)

	select {
	case <-sub:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for own update event")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&remote))
}

func TestNotifierWithoutRedisUsesHub(t *testing.T) {
	hub := NewPriceStreamHub(nil, UpdateChannel, "api")
	sub, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	n := NewUpdateNotifier(nil, hub, "api")
	sent, err := n.Notify(context.Background(), &models.OcrSnapshot{ID: 1, CreatedAt: t0})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Contains(t, string(<-sub), `"id":1`)

	sent, err = n.Notify(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestNotifierRetriesAfterPublishFailure(t *testing.T) {
	mr, client := newTestRedis(t)
	n := NewUpdateNotifier(client, nil, "worker")
	snap := &models.OcrSnapshot{ID: 5, CreatedAt: t0}

	mr.SetError("ERR injected failure")
	_, err := n.Notify(context.Background(), snap)
	require.Error(t, err)

	mr.SetError("")
	sent, err := n.Notify(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestNewOrigin(t *testing.T) {
	a, b := NewOrigin("api"), NewOrigin("api")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "api-")
}

func TestNotifierSkipsSnapshotsAnnouncedElsewhere(t *testing.T) {
	hub := NewPriceStreamHub(nil, UpdateChannel, "api")
	n := NewUpdateNotifier(nil, hub, "api")

	n.MarkAnnounced(9)
	sent, err := n.Notify(context.Background(), &models.OcrSnapshot{ID: 9, CreatedAt: t0})
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = n.Notify(context.Background(), &models.OcrSnapshot{ID: 10, CreatedAt: t0})
	require.NoError(t, err)
	assert.True(t, sent)
}

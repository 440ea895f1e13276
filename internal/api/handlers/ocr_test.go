package handlers

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sol-erda/tracker/internal/models"
	"github.com/sol-erda/tracker/internal/services"
)

func TestStreamUpdates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hub := services.NewPriceStreamHub(redisClient, services.UpdateChannel, "api-test")
	go hub.Run(hubCtx)

	handler := NewOcrHandler(nil, hub)
	app := fiber.New()
	app.Get("/api/v1/ocr/stream", handler.StreamUpdates)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()
	srvURL := "http://" + ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	worker := services.NewUpdateNotifier(redisClient, nil, "worker-test")
	go func() {
		// Publish once the hub listens on Redis and the SSE client is registered
		for {
			n, err := redisClient.PubSubNumSub(ctx, services.UpdateChannel).Result()
			if err == nil && n[services.UpdateChannel] > 0 && hub.SubscriberCount() > 0 {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		_, _ = worker.Notify(context.Background(), &models.OcrSnapshot{
			ID:        42,
			Items:     models.PriceArray{1, 2},
			CreatedAt: time.Now(),
		})
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srvURL+"/api/v1/ocr/stream", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to call SSE endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for SSE data")
		default:
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read SSE line: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				if !strings.Contains(line, `"id":42`) || !strings.Contains(line, `"origin":"worker-test"`) {
					t.Fatalf("unexpected SSE payload: %s", line)
				}
				return
			}
		}
	}
}

func TestStreamUpdatesWithoutHub(t *testing.T) {
	handler := NewOcrHandler(nil, nil)
	app := fiber.New()
	app.Get("/api/v1/ocr/stream", handler.StreamUpdates)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ocr/stream", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}
}

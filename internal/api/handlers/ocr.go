/**
 * @description
 * OCR price API Handlers.
 * JSON views of the latest snapshot and bucketed history, plus an SSE stream of
 * update notifications.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/chart
 */

package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/api/middleware"
	"github.com/sol-erda/tracker/internal/chart"
	"github.com/sol-erda/tracker/internal/models"
	"github.com/sol-erda/tracker/internal/services"
)

// keepAliveInterval keeps idle SSE connections open through proxies
const keepAliveInterval = 25 * time.Second

type OcrHandler struct {
	Service *services.DashboardService
	Hub     *services.PriceStreamHub
}

func NewOcrHandler(service *services.DashboardService, hub *services.PriceStreamHub) *OcrHandler {
	return &OcrHandler{Service: service, Hub: hub}
}

type latestResponse struct {
	Snapshot  *models.OcrSnapshot `json:"snapshot"`
	Stats     aggregate.Stats     `json:"stats"`
	Status    services.Status     `json:"status"`
	Stale     bool                `json:"stale"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

type bucketResponse struct {
	aggregate.Bucket
	Stats aggregate.Stats `json:"stats"`
}

type historyResponse struct {
	Unit    aggregate.Unit   `json:"unit"`
	Label   string           `json:"label"`
	Total   int              `json:"total"`
	Buckets []bucketResponse `json:"buckets"`
	Chart   *chart.Series    `json:"chart"`
	Status  services.Status  `json:"status"`
	Stale   bool             `json:"stale"`
}

func fetchFailed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": services.ErrFetchFailed.Error(),
	})
}

func updatedAt(fs services.FetchState) *time.Time {
	if fs.UpdatedAt.IsZero() {
		return nil
	}
	t := fs.UpdatedAt
	return &t
}

// GetLatest returns the newest snapshot with its statistics
// GET /api/v1/ocr/latest
func (h *OcrHandler) GetLatest(c *fiber.Ctx) error {
	res := h.Service.LatestSnapshot(c.UserContext())
	if res.Err != nil && res.Snapshot == nil {
		return fetchFailed(c)
	}
	if res.Snapshot == nil {
		res.Stats = aggregate.Compute(nil)
	}

	return c.JSON(latestResponse{
		Snapshot:  res.Snapshot,
		Stats:     res.Stats,
		Status:    res.Status,
		Stale:     res.Err != nil,
		UpdatedAt: updatedAt(res.FetchState),
	})
}

// GetHistory returns the most recent buckets for a unit, ascending
// GET /api/v1/ocr/history?unit=&limit=
func (h *OcrHandler) GetHistory(c *fiber.Ctx) error {
	unit := aggregate.Minute
	if raw := c.Query("unit"); raw != "" {
		parsed, err := aggregate.ParseUnit(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		unit = parsed
	}

	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must not be negative",
		})
	}

	res := h.Service.BucketHistory(c.UserContext(), unit, limit)
	if res.Err != nil && len(res.Buckets) == 0 {
		return fetchFailed(c)
	}

	buckets := make([]bucketResponse, len(res.Windowed))
	for i, b := range res.Windowed {
		buckets[i] = bucketResponse{Bucket: b, Stats: b.Stats()}
	}

	return c.JSON(historyResponse{
		Unit:    unit,
		Label:   unit.Label(),
		Total:   len(res.Buckets),
		Buckets: buckets,
		Chart:   chart.BuildSeries(res.Windowed, middleware.ThemeFrom(c)),
		Status:  res.Status,
		Stale:   res.Err != nil,
	})
}

// StreamUpdates streams snapshot update events over SSE
// GET /api/v1/ocr/stream
func (h *OcrHandler) StreamUpdates(c *fiber.Ctx) error {
	if h.Hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Live updates are not available",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()
	ch, unsubscribe := h.Hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		requestDone := requestCtx.Done()
		for {
			select {
			case <-requestDone:
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg)
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})

	return nil
}

// Health reports liveness and the state of the pollers
// GET /api/v1/health
func (h *OcrHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "ok",
		"service": "erda-tracker",
		"queries": fiber.Map{
			h.Service.History.Name(): h.Service.History.State().Status,
			h.Service.Latest.Name():  h.Service.Latest.State().Status,
		},
	}
	if h.Hub != nil {
		body["stream_clients"] = h.Hub.SubscriberCount()
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

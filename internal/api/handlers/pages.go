/**
 * @description
 * Dashboard page handlers.
 * Serves the server-rendered landing, price, history and stats pages plus the
 * manual refresh and theme toggle actions.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/views
 *
 * @notes
 * - A failed fetch still renders the page (HTTP 200) with the error banner.
 * - Unknown history units fall back to minute.
 */

package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/api/middleware"
	"github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/services"
	"github.com/sol-erda/tracker/internal/views"
)

type PageHandler struct {
	Service *services.DashboardService
	Views   *views.Renderer
	Now     func() time.Time
}

func NewPageHandler(service *services.DashboardService, renderer *views.Renderer) *PageHandler {
	return &PageHandler{Service: service, Views: renderer, Now: time.Now}
}

func (h *PageHandler) page(c *fiber.Ctx, title string) views.Page {
	return views.NewPage(title, c.Path(), c.OriginalURL(), middleware.ThemeFrom(c), h.Now().In(h.Service.Location()))
}

func (h *PageHandler) render(c *fiber.Ctx, name string, data any) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	if err := h.Views.Render(c, name, data); err != nil {
		logger.Error("Failed to render %s page: %v", name, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	return nil
}

// Landing renders the introduction page
// GET /
func (h *PageHandler) Landing(c *fiber.Ctx) error {
	return h.render(c, views.PageLanding, views.LandingPage{Page: h.page(c, "")})
}

// Price renders the newest snapshot
// GET /erda/price
func (h *PageHandler) Price(c *fiber.Ctx) error {
	res := h.Service.LatestSnapshot(c.UserContext())
	return h.render(c, views.PagePrice, views.BuildPricePage(h.page(c, "가격 정보"), res, h.Service.Location()))
}

// History renders the bucketed chart and list
// GET /erda/history?unit=&expanded=
func (h *PageHandler) History(c *fiber.Ctx) error {
	unit, err := aggregate.ParseUnit(c.Query("unit"))
	if err != nil {
		unit = aggregate.Minute
	}
	expanded := int64(c.QueryInt("expanded", 0))

	res := h.Service.BucketHistory(c.UserContext(), unit, 0)
	page, err := views.BuildHistoryPage(h.page(c, "히스토리"), res, expanded, middleware.ThemeFrom(c), h.Service.Location())
	if err != nil {
		logger.Error("Failed to build history page: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	return h.render(c, views.PageHistory, page)
}

// Stats renders the overall and daily summary
// GET /erda/stats
func (h *PageHandler) Stats(c *fiber.Ctx) error {
	res := h.Service.Overview(c.UserContext())
	return h.render(c, views.PageStats, views.BuildStatsPage(h.page(c, "통계"), res, h.Service.Location()))
}

// Refresh refetches every query and returns to the page it came from
// POST /erda/refresh?next=
func (h *PageHandler) Refresh(c *fiber.Ctx) error {
	h.Service.RefetchAll(c.UserContext())
	return c.Redirect(safeNext(c), fiber.StatusSeeOther)
}

// ToggleTheme flips the persisted theme
// POST /theme/toggle?next=
func (h *PageHandler) ToggleTheme(c *fiber.Ctx) error {
	middleware.PersistTheme(c, middleware.ThemeFrom(c).Toggle())
	return c.Redirect(safeNext(c), fiber.StatusSeeOther)
}

// safeNext reads the redirect target from the query or form, allowing only
// local paths
func safeNext(c *fiber.Ctx) string {
	next := c.Query("next")
	if next == "" {
		next = c.FormValue("next")
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

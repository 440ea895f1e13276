/**
 * @description
 * Route definitions.
 * Mounts the server-rendered dashboard pages and the /api/v1 JSON endpoints.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 * - backend/internal/views
 */

package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sol-erda/tracker/internal/api/handlers"
	"github.com/sol-erda/tracker/internal/api/middleware"
	"github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/services"
	"github.com/sol-erda/tracker/internal/views"
)

// Deps are the long-lived components the routes need
type Deps struct {
	Dashboard *services.DashboardService
	Hub       *services.PriceStreamHub
	Views     *views.Renderer
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, deps Deps) {
	pageHandler := handlers.NewPageHandler(deps.Dashboard, deps.Views)
	ocrHandler := handlers.NewOcrHandler(deps.Dashboard, deps.Hub)

	app.Use(middleware.Theme())

	// Pages
	app.Get("/", pageHandler.Landing)
	erda := app.Group("/erda")
	erda.Get("/price", pageHandler.Price)
	erda.Get("/history", pageHandler.History)
	erda.Get("/stats", pageHandler.Stats)
	erda.Post("/refresh", pageHandler.Refresh)
	app.Post("/theme/toggle", pageHandler.ToggleTheme)

	// JSON API
	v1 := app.Group("/api").Group("/v1")
	v1.Get("/health", ocrHandler.Health)

	ocr := v1.Group("/ocr")
	ocr.Get("/latest", ocrHandler.GetLatest)
	ocr.Get("/history", ocrHandler.GetHistory)
	ocr.Get("/stream", ocrHandler.StreamUpdates)
}

// ErrorHandler answers /api requests with JSON and everything else with plain text
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Method(), c.Path(), err)
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(message)
}

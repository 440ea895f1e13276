/**
 * @description
 * Main entry point for the Sol Erda price tracker web server.
 * Loads configuration, connects to Postgres and Redis, starts the polling caches
 * and serves the dashboard pages and JSON API.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - backend/internal/config: Config loader
 * - backend/internal/db: Database connections
 * - backend/internal/services: Polling caches and live updates
 *
 * @notes
 * - Redis is optional. Without it reads go straight to Postgres and the live stream
 *   only carries updates observed by this process.
 * - Updates published by the worker trigger an immediate refetch here.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sol-erda/tracker/internal/api"
	"github.com/sol-erda/tracker/internal/config"
	"github.com/sol-erda/tracker/internal/db"
	applog "github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/models"
	"github.com/sol-erda/tracker/internal/services"
	"github.com/sol-erda/tracker/internal/views"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		applog.Fatal("Failed to load config: %v", err)
	}
	applog.Setup(cfg.IsDevelopment())
	defer applog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Database Connections
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		applog.Fatal("Failed to connect to Postgres: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = db.ConnectRedis(ctx, cfg)
		if err != nil {
			// Degrade to direct reads instead of refusing to serve
			applog.Error("Redis unavailable, continuing without shared cache: %v", err)
			redisClient = nil
		}
	}

	// 3. Initialize Services
	origin := services.NewOrigin("api")
	source := services.NewSnapshotCache(services.NewOcrService(pgDB), redisClient, cfg.Polling.Interval)
	dashboard := services.NewDashboardService(source, services.DashboardOptions{
		Location:    cfg.Display.Location,
		ChartLimits: cfg.Display.ChartLimits,
		StatsDays:   cfg.Display.StatsDays,
		Polling: services.PollerOptions{
			Interval:  cfg.Polling.Interval,
			StaleTime: cfg.Polling.StaleTime,
		},
	})

	hub := services.NewPriceStreamHub(redisClient, services.UpdateChannel, origin)
	notifier := services.NewUpdateNotifier(redisClient, hub, origin)
	hub.OnRemoteUpdate(func(ev services.UpdateEvent) {
		applog.Info("Snapshot %d announced by %s, refetching", ev.ID, ev.Origin)
		notifier.MarkAnnounced(ev.ID)
		go dashboard.RefetchAll(ctx)
	})
	go hub.Run(ctx)

	dashboard.Latest.Subscribe(func(latest *models.OcrSnapshot) {
		if _, err := notifier.Notify(ctx, latest); err != nil {
			applog.Error("Failed to announce snapshot: %v", err)
		}
	})
	dashboard.Start(ctx)

	renderer, err := views.NewRenderer()
	if err != nil {
		applog.Fatal("Failed to parse templates: %v", err)
	}

	// 4. Initialize Fiber App
	app := api.NewApp("Sol Erda Price Tracker")

	// 5. Global Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(logger.New())  // Request logging
	app.Use("/api", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, OPTIONS",
	}))

	// 6. Routes
	api.SetupRoutes(app, api.Deps{Dashboard: dashboard, Hub: hub, Views: renderer})

	// 7. Start Server
	go func() {
		applog.Info("🚀 Starting Sol Erda tracker on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			applog.Fatal("Failed to start server: %v", err)
		}
	}()

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	applog.Info("Shutting down server...")
	cancel()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		applog.Error("Server shutdown failed: %v", err)
	}
	dashboard.Stop()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	applog.Info("Server exited.")
}

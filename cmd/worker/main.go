/**
 * @description
 * Worker Service Entry Point.
 * Refreshes the shared Redis snapshot cache on a cron schedule and announces newer
 * snapshots on the ocr:updates channel so API processes refetch right away.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/services
 * - github.com/robfig/cron/v3
 * - golang.org/x/sync/errgroup
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sol-erda/tracker/internal/config"
	"github.com/sol-erda/tracker/internal/db"
	"github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	logger.Setup(cfg.IsDevelopment())
	defer logger.Sync()

	logger.Info("🔥 Starting Sol Erda Worker...")

	if !cfg.Redis.Enabled() {
		logger.Fatal("REDIS_URL is required: the worker only feeds the shared cache and update channel")
	}

	// 2. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect DBs
	var (
		pgDB        *gorm.DB
		redisClient *redis.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pgDB, err = db.ConnectPostgres(cfg)
		return err
	})
	g.Go(func() error {
		var err error
		redisClient, err = db.ConnectRedis(gctx, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Fatal("Database connection failed: %v", err)
	}
	defer redisClient.Close()

	// 4. Initialize Services
	cache := services.NewSnapshotCache(services.NewOcrService(pgDB), redisClient, cfg.Polling.Interval)
	notifier := services.NewUpdateNotifier(redisClient, nil, services.NewOrigin("worker"))
	job := services.NewRefreshJob(cache, notifier, cfg.Polling.Interval)

	runJob := func() {
		if err := job.Run(ctx); err != nil {
			logger.Error("❌ Snapshot refresh failed: %v", err)
		}
	}

	// 5. Schedule
	cronLog := cron.PrintfLogger(zap.NewStdLog(logger.L()))
	scheduler := cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	if _, err := scheduler.AddFunc(cfg.Polling.WorkerSchedule, runJob); err != nil {
		logger.Fatal("Invalid WORKER_SCHEDULE %q: %v", cfg.Polling.WorkerSchedule, err)
	}

	// Initial sync
	runJob()
	scheduler.Start()
	logger.Info("⏱️ Refresh scheduled with %q", cfg.Polling.WorkerSchedule)

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-scheduler.Stop().Done():
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for the running refresh")
	}
	logger.Info("Worker exited.")
}

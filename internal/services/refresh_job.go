package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sol-erda/tracker/internal/logger"
)

// RefreshJob rewrites the shared snapshot cache and announces a newer snapshot.
// It is what cmd/worker runs on its schedule.
type RefreshJob struct {
	Cache    *SnapshotCache
	Notifier *UpdateNotifier
	Timeout  time.Duration
}

func NewRefreshJob(cache *SnapshotCache, notifier *UpdateNotifier, timeout time.Duration) *RefreshJob {
	return &RefreshJob{Cache: cache, Notifier: notifier, Timeout: timeout}
}

// Run performs one refresh; the error is already wrapped for logging
func (j *RefreshJob) Run(ctx context.Context) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	latest, err := j.Cache.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh snapshot cache: %w", err)
	}

	sent, err := j.Notifier.Notify(ctx, latest)
	if err != nil {
		return err
	}
	if sent {
		logger.Info("📣 Announced snapshot %d (%d items) in %s", latest.ID, len(latest.Items), time.Since(start).Round(time.Millisecond))
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDashboard(t *testing.T, src SnapshotSource) *DashboardService {
	t.Helper()
	svc := NewDashboardService(src, DashboardOptions{
		Location:    time.UTC,
		ChartLimits: map[aggregate.Unit]int{aggregate.Minute: 2, aggregate.Hour: 0},
		StatsDays:   2,
		Polling:     PollerOptions{Interval: time.Hour, StaleTime: time.Minute},
	})
	t.Cleanup(svc.Stop)
	return svc
}

func TestDashboardLatestSnapshot(t *testing.T) {
	svc := newTestDashboard(t, &fakeSource{history: sampleHistory()})

	res := svc.LatestSnapshot(context.Background())
	require.NotNil(t, res.Snapshot)
	assert.EqualValues(t, 3, res.Snapshot.ID)
	assert.EqualValues(t, 300, res.Stats.Min)
	assert.EqualValues(t, 305, res.Stats.Average)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestDashboardLatestSnapshotEmptyTable(t *testing.T) {
	svc := newTestDashboard(t, &fakeSource{})

	res := svc.LatestSnapshot(context.Background())
	assert.Nil(t, res.Snapshot)
	assert.NoError(t, res.Err)
}

func TestDashboardBucketHistoryWindows(t *testing.T) {
	svc := newTestDashboard(t, &fakeSource{history: sampleHistory()})

	res := svc.BucketHistory(context.Background(), aggregate.Minute, 0)
	require.Len(t, res.Buckets, 3)
	require.Len(t, res.Windowed, 2)
	assert.Equal(t, "2024-03-05 13:48", res.Windowed[0].GroupKey)
	assert.Equal(t, "2024-03-05 13:49", res.Windowed[1].GroupKey)

	res = svc.BucketHistory(context.Background(), aggregate.Minute, 10)
	assert.Len(t, res.Windowed, 3)

	res = svc.BucketHistory(context.Background(), aggregate.Hour, 0)
	require.Len(t, res.Buckets, 1)
	assert.Equal(t, []int64{300, 310, 200, 100}, res.Buckets[0].Items)
}

func TestDashboardHistoryError(t *testing.T) {
	src := &fakeSource{err: fetchFailed("history", errors.New("timeout"))}
	svc := newTestDashboard(t, src)

	res := svc.BucketHistory(context.Background(), aggregate.Day, 0)
	assert.ErrorIs(t, res.Err, ErrFetchFailed)
	assert.Empty(t, res.Buckets)
	assert.Equal(t, StatusError, res.Status)
}

func TestDashboardRefetchAll(t *testing.T) {
	src := &fakeSource{history: sampleHistory()}
	svc := newTestDashboard(t, src)

	svc.BucketHistory(context.Background(), aggregate.Day, 0)
	svc.LatestSnapshot(context.Background())

	src.set(append([]models.OcrSnapshot{{ID: 4, Items: models.PriceArray{1}, CreatedAt: t0.Add(time.Hour)}}, sampleHistory()...), nil)
	svc.RefetchAll(context.Background())

	assert.EqualValues(t, 4, svc.LatestSnapshot(context.Background()).Snapshot.ID)
	assert.Len(t, svc.BucketHistory(context.Background(), aggregate.Minute, 100).Buckets, 4)
}

func TestDashboardRefetchAllBypassesSharedCache(t *testing.T) {
	mr, client := newTestRedis(t)
	src := &fakeSource{history: sampleHistory()}
	svc := newTestDashboard(t, NewSnapshotCache(src, client, time.Hour))
	ctx := context.Background()

	require.EqualValues(t, 3, svc.LatestSnapshot(ctx).Snapshot.ID)
	require.Len(t, svc.BucketHistory(ctx, aggregate.Minute, 100).Buckets, 3)
	require.True(t, mr.Exists(CacheKeyLatest))

	src.set(append([]models.OcrSnapshot{{ID: 4, Items: models.PriceArray{1}, CreatedAt: t0.Add(time.Hour)}}, sampleHistory()...), nil)
	svc.RefetchAll(ctx)

	assert.EqualValues(t, 4, svc.LatestSnapshot(ctx).Snapshot.ID)
	assert.Len(t, svc.BucketHistory(ctx, aggregate.Minute, 100).Buckets, 4)
	assert.Equal(t, 2, src.latestCalls)
	assert.Equal(t, 2, src.historyCalls)

	cached, err := mr.Get(CacheKeyLatest)
	require.NoError(t, err)
	assert.Contains(t, cached, `"id":4`)
}

func TestDashboardOverview(t *testing.T) {
	history := []models.OcrSnapshot{
		{ID: 4, Items: models.PriceArray{50, 70}, CreatedAt: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)},
		{ID: 3, Items: models.PriceArray{60}, CreatedAt: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)},
		{ID: 2, Items: models.PriceArray{40}, CreatedAt: time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)},
		{ID: 1, Items: models.PriceArray{}, CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)},
	}
	svc := newTestDashboard(t, &fakeSource{history: history})

	res := svc.Overview(context.Background())
	assert.Equal(t, 4, res.Snapshots)
	assert.EqualValues(t, 40, res.Overall.Min)
	assert.EqualValues(t, 70, res.Overall.Max)
	assert.EqualValues(t, 55, res.Overall.Average)
	assert.True(t, res.First.Equal(history[3].CreatedAt))
	assert.True(t, res.Last.Equal(history[0].CreatedAt))

	require.Len(t, res.Daily, 2)
	assert.Equal(t, "2024-03-07", res.Daily[0].Day)
	assert.Equal(t, 1, res.Daily[0].Snapshots)
	assert.Equal(t, "2024-03-06", res.Daily[1].Day)
	assert.Equal(t, 2, res.Daily[1].Snapshots)
	assert.EqualValues(t, 40, res.Daily[1].Stats.Min)
}

func TestDashboardOverviewEmpty(t *testing.T) {
	svc := newTestDashboard(t, &fakeSource{})

	res := svc.Overview(context.Background())
	assert.Zero(t, res.Snapshots)
	assert.True(t, res.Overall.Empty)
	assert.Empty(t, res.Daily)
}

/**
 * @description
 * Service layer behind the dashboard pages and JSON API.
 * Owns one polling cache per query and turns the cached snapshots into
 * buckets, statistics and the daily overview.
 *
 * @dependencies
 * - backend/internal/aggregate
 * - backend/internal/models
 * - golang.org/x/sync/errgroup
 */

package services

import (
	"context"
	"time"

	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/models"
	"golang.org/x/sync/errgroup"
)

// DashboardOptions carries the display settings from config
type DashboardOptions struct {
	Location    *time.Location
	ChartLimits map[aggregate.Unit]int
	StatsDays   int
	Polling     PollerOptions
}

// SnapshotRefresher is a SnapshotSource that can skip its cache on demand
type SnapshotRefresher interface {
	SnapshotSource
	RefreshHistory(ctx context.Context) ([]models.OcrSnapshot, error)
	RefreshLatest(ctx context.Context) (*models.OcrSnapshot, error)
}

type DashboardService struct {
	History *Poller[[]models.OcrSnapshot]
	Latest  *Poller[*models.OcrSnapshot]
	opts    DashboardOptions
}

func NewDashboardService(source SnapshotSource, opts DashboardOptions) *DashboardService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	s := &DashboardService{
		History: NewPoller[[]models.OcrSnapshot]("ocrHistory", source.FetchHistory, opts.Polling),
		Latest:  NewPoller[*models.OcrSnapshot]("latestOcrData", source.FetchLatest, opts.Polling),
		opts:    opts,
	}
	// A refetch must reach the database, not a cached copy
	if r, ok := source.(SnapshotRefresher); ok {
		s.History.SetRefetch(r.RefreshHistory)
		s.Latest.SetRefetch(r.RefreshLatest)
	}
	return s
}

// Location is the time zone used for bucket keys and timestamps
func (s *DashboardService) Location() *time.Location {
	return s.opts.Location
}

// Start launches both background pollers
func (s *DashboardService) Start(ctx context.Context) {
	s.History.Start(ctx)
	s.Latest.Start(ctx)
}

// Stop halts both pollers
func (s *DashboardService) Stop() {
	s.History.Stop()
	s.Latest.Stop()
}

// RefetchAll forces both queries to reload
func (s *DashboardService) RefetchAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.History.Refetch(gctx)
		return nil
	})
	g.Go(func() error {
		s.Latest.Refetch(gctx)
		return nil
	})
	_ = g.Wait()
}

// FetchState is the loading/error part shared by every view
type FetchState struct {
	Status       Status
	IsLoading    bool
	IsRefetching bool
	Err          error
	UpdatedAt    time.Time
}

func fetchStateOf[T any](st QueryState[T]) FetchState {
	return FetchState{
		Status:       st.Status,
		IsLoading:    st.IsLoading(),
		IsRefetching: st.IsRefetching(),
		Err:          st.Err,
		UpdatedAt:    st.UpdatedAt,
	}
}

// LatestResult backs the price page
type LatestResult struct {
	FetchState
	Snapshot *models.OcrSnapshot
	Stats    aggregate.Stats
}

// LatestSnapshot returns the newest snapshot and its statistics
func (s *DashboardService) LatestSnapshot(ctx context.Context) LatestResult {
	st := s.Latest.Get(ctx)
	res := LatestResult{FetchState: fetchStateOf(st), Snapshot: st.Data}
	if st.Data != nil {
		res.Stats = aggregate.Compute(st.Data.Items)
	}
	return res
}

// HistoryResult backs the history page and the history API
type HistoryResult struct {
	FetchState
	Unit aggregate.Unit
	// Buckets are ascending and complete
	Buckets []aggregate.Bucket
	// Windowed is the chart's slice of Buckets, most recent ChartLimit entries
	Windowed []aggregate.Bucket
}

// ChartLimit returns the configured chart window for unit
func (s *DashboardService) ChartLimit(unit aggregate.Unit) int {
	return s.opts.ChartLimits[unit]
}

// BucketHistory groups the cached history by unit. limit overrides the configured
// chart window when positive.
func (s *DashboardService) BucketHistory(ctx context.Context, unit aggregate.Unit, limit int) HistoryResult {
	st := s.History.Get(ctx)
	if limit <= 0 {
		limit = s.ChartLimit(unit)
	}

	buckets := aggregate.Group(st.Data, unit, s.opts.Location)
	return HistoryResult{
		FetchState: fetchStateOf(st),
		Unit:       unit,
		Buckets:    buckets,
		Windowed:   aggregate.Window(buckets, limit),
	}
}

// DailyRow is one line of the stats page's daily table
type DailyRow struct {
	Day       string
	Snapshots int
	Stats     aggregate.Stats
}

// OverviewResult backs the stats page
type OverviewResult struct {
	FetchState
	Snapshots int
	Overall   aggregate.Stats
	First     time.Time
	Last      time.Time
	// Daily is newest first, at most StatsDays rows
	Daily []DailyRow
}

// Overview summarises the entire history
func (s *DashboardService) Overview(ctx context.Context) OverviewResult {
	st := s.History.Get(ctx)
	res := OverviewResult{FetchState: fetchStateOf(st), Snapshots: len(st.Data)}
	if len(st.Data) == 0 {
		res.Overall = aggregate.Compute(nil)
		return res
	}

	var all []int64
	res.First, res.Last = st.Data[0].CreatedAt, st.Data[0].CreatedAt
	perDay := make(map[string]int)
	for _, snap := range st.Data {
		all = append(all, snap.Items...)
		if snap.CreatedAt.Before(res.First) {
			res.First = snap.CreatedAt
		}
		if snap.CreatedAt.After(res.Last) {
			res.Last = snap.CreatedAt
		}
		perDay[aggregate.FormatGroupKey(snap.CreatedAt.In(s.opts.Location), aggregate.Day)]++
	}
	res.Overall = aggregate.Compute(all)

	days := aggregate.Reverse(aggregate.Window(aggregate.Group(st.Data, aggregate.Day, s.opts.Location), s.opts.StatsDays))
	for _, b := range days {
		res.Daily = append(res.Daily, DailyRow{
			Day:       b.GroupKey,
			Snapshots: perDay[b.GroupKey],
			Stats:     b.Stats(),
		})
	}
	return res
}

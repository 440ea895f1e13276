package aggregate

import (
	"sort"
	"time"

	"github.com/sol-erda/tracker/internal/models"
)

// Bucket is a time-windowed aggregation of one or more snapshots
type Bucket struct {
	GroupKey  string    `json:"group_key"`
	ID        int64     `json:"id"`
	Items     []int64   `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats computes the bucket's statistics over all merged items
func (b Bucket) Stats() Stats {
	return Compute(b.Items)
}

// Group partitions records by their truncated timestamp and merges each partition
// into a single bucket. Items keep input order, the representative timestamp is
// the latest one in the partition and the representative id is the first record seen.
// The result is sorted ascending by representative timestamp.
func Group(records []models.OcrSnapshot, unit Unit, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.Local
	}

	index := make(map[string]int)
	buckets := make([]Bucket, 0)

	for _, record := range records {
		key := FormatGroupKey(record.CreatedAt.In(loc), unit)

		i, ok := index[key]
		if !ok {
			index[key] = len(buckets)
			buckets = append(buckets, Bucket{
				GroupKey:  key,
				ID:        record.ID,
				Items:     append([]int64{}, record.Items...),
				CreatedAt: record.CreatedAt,
			})
			continue
		}

		b := &buckets[i]
		b.Items = append(b.Items, record.Items...)
		if record.CreatedAt.After(b.CreatedAt) {
			b.CreatedAt = record.CreatedAt
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].CreatedAt.Equal(buckets[j].CreatedAt) {
			return buckets[i].GroupKey < buckets[j].GroupKey
		}
		return buckets[i].CreatedAt.Before(buckets[j].CreatedAt)
	})

	return buckets
}

// Window keeps the most recent limit buckets of an ascending slice.
// A non-positive limit disables windowing.
func Window(buckets []Bucket, limit int) []Bucket {
	if limit <= 0 || len(buckets) <= limit {
		return buckets
	}
	return buckets[len(buckets)-limit:]
}

// Reverse returns a descending copy for "most recent first" lists
func Reverse(buckets []Bucket) []Bucket {
	out := make([]Bucket, len(buckets))
	for i, b := range buckets {
		out[len(buckets)-1-i] = b
	}
	return out
}

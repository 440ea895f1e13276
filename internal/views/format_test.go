package views

import (
	"testing"
	"time"

	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/stretchr/testify/assert"
)

func TestStatText(t *testing.T) {
	s := aggregate.Compute([]int64{1000000, 2000000, 3000000})

	assert.Equal(t, "1,000,000", StatText(s, "min", false))
	assert.Equal(t, "3,000,000 메소", StatText(s, "max", true))
	assert.Equal(t, "2,000,000 메소", StatText(s, "avg", true))
	assert.Equal(t, "2,000,000 메소", StatText(s, "spread", true))
	assert.Equal(t, "200.0%", SpreadPercentText(s))
	assert.Equal(t, NotAvailable, StatText(s, "median", false))
}

func TestStatTextEmptyBucket(t *testing.T) {
	s := aggregate.Compute([]int64{})

	for _, field := range []string{"min", "max", "avg", "spread"} {
		assert.Equal(t, NotAvailable, StatText(s, field, true), field)
	}
	assert.Equal(t, NotAvailable, SpreadPercentText(s))
}

func TestSpreadPercentZeroMin(t *testing.T) {
	assert.Equal(t, NotAvailable, SpreadPercentText(aggregate.Compute([]int64{0, 10})))
}

func TestDateTime(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	ts := time.Date(2024, 3, 5, 4, 47, 5, 0, time.UTC)

	assert.Equal(t, "2024. 3. 5. 오후 1:47:05", DateTime(ts, seoul))
	assert.Equal(t, "2024. 3. 5.", Date(ts, seoul))
	assert.Equal(t, "2024. 3. 5. 오전 12:00:00", DateTime(time.Date(2024, 3, 5, 0, 0, 0, 0, seoul), seoul))
}

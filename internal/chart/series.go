/**
 * @description
 * Chart presenter for the price history.
 * Turns ascending buckets into a Chart.js line chart configuration with one dataset
 * each for the minimum, maximum and average price.
 *
 * @dependencies
 * - backend/internal/aggregate
 * - backend/internal/theme
 *
 * @notes
 * - Empty buckets become null points so the line breaks instead of dropping to zero.
 * - Interaction mode "index" keeps the crosshair and tooltip in sync across datasets.
 */

package chart

import (
	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/theme"
)

const Title = "가격 변동 차트"

// Dataset is one line of the chart
type Dataset struct {
	Label           string   `json:"label"`
	Data            []*int64 `json:"data"`
	BorderColor     string   `json:"borderColor"`
	BackgroundColor string   `json:"backgroundColor"`
	Tension         float64  `json:"tension"`
}

// Data is the labels plus datasets
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Legend struct {
	Position string `json:"position"`
	Labels   struct {
		Color string `json:"color"`
	} `json:"labels"`
}

type TitleOptions struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
	Color   string `json:"color"`
}

type Tooltip struct {
	Mode            string `json:"mode"`
	Intersect       bool   `json:"intersect"`
	BackgroundColor string `json:"backgroundColor"`
	TitleColor      string `json:"titleColor"`
	BodyColor       string `json:"bodyColor"`
}

type Interaction struct {
	Mode      string `json:"mode"`
	Intersect bool   `json:"intersect"`
	Axis      string `json:"axis"`
}

type Ticks struct {
	Color string `json:"color"`
	// Format names the client-side tick formatter ("thousands")
	Format string `json:"format,omitempty"`
}

type Grid struct {
	Color string `json:"color"`
}

type Scale struct {
	Ticks Ticks `json:"ticks"`
	Grid  Grid  `json:"grid"`
}

type Plugins struct {
	Legend  Legend       `json:"legend"`
	Title   TitleOptions `json:"title"`
	Tooltip Tooltip      `json:"tooltip"`
}

// Options mirrors the subset of Chart.js options the page uses
type Options struct {
	Responsive          bool             `json:"responsive"`
	MaintainAspectRatio bool             `json:"maintainAspectRatio"`
	Interaction         Interaction      `json:"interaction"`
	Plugins             Plugins          `json:"plugins"`
	Scales              map[string]Scale `json:"scales"`
}

// Series is a complete line chart configuration
type Series struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// palette holds the per-theme colours
type palette struct {
	text, grid, tooltipBg, tooltipText string
}

var palettes = map[theme.Theme]palette{
	theme.Light: {text: "#374151", grid: "rgba(0, 0, 0, 0.08)", tooltipBg: "rgba(255, 255, 255, 0.95)", tooltipText: "#111827"},
	theme.Dark:  {text: "#e5e7eb", grid: "rgba(255, 255, 255, 0.12)", tooltipBg: "rgba(17, 24, 39, 0.95)", tooltipText: "#f9fafb"},
}

type line struct {
	label string
	rgb   string
	pick  func(aggregate.Stats) int64
}

var lines = []line{
	{label: "최저가", rgb: "59, 130, 246", pick: func(s aggregate.Stats) int64 { return s.Min }},
	{label: "최고가", rgb: "34, 197, 94", pick: func(s aggregate.Stats) int64 { return s.Max }},
	{label: "평균가", rgb: "168, 85, 247", pick: func(s aggregate.Stats) int64 { return s.Average }},
}

// BuildSeries maps buckets to a chart; nil when there is nothing to draw
func BuildSeries(buckets []aggregate.Bucket, t theme.Theme) *Series {
	if len(buckets) == 0 {
		return nil
	}

	labels := make([]string, len(buckets))
	stats := make([]aggregate.Stats, len(buckets))
	for i, b := range buckets {
		labels[i] = b.GroupKey
		stats[i] = b.Stats()
	}

	datasets := make([]Dataset, 0, len(lines))
	for _, l := range lines {
		points := make([]*int64, len(stats))
		for i, s := range stats {
			if s.Empty {
				continue
			}
			v := l.pick(s)
			points[i] = &v
		}
		datasets = append(datasets, Dataset{
			Label:           l.label,
			Data:            points,
			BorderColor:     "rgb(" + l.rgb + ")",
			BackgroundColor: "rgba(" + l.rgb + ", 0.2)",
			Tension:         0.2,
		})
	}

	return &Series{
		Type:    "line",
		Data:    Data{Labels: labels, Datasets: datasets},
		Options: buildOptions(t),
	}
}

func buildOptions(t theme.Theme) Options {
	p, ok := palettes[t]
	if !ok {
		p = palettes[theme.Light]
	}

	legend := Legend{Position: "top"}
	legend.Labels.Color = p.text

	return Options{
		Responsive:          true,
		MaintainAspectRatio: false,
		Interaction:         Interaction{Mode: "index", Intersect: false, Axis: "x"},
		Plugins: Plugins{
			Legend: legend,
			Title:  TitleOptions{Display: true, Text: Title, Color: p.text},
			Tooltip: Tooltip{
				Mode:            "index",
				Intersect:       false,
				BackgroundColor: p.tooltipBg,
				TitleColor:      p.tooltipText,
				BodyColor:       p.tooltipText,
			},
		},
		Scales: map[string]Scale{
			"x": {Ticks: Ticks{Color: p.text}, Grid: Grid{Color: p.grid}},
			"y": {Ticks: Ticks{Color: p.text, Format: "thousands"}, Grid: Grid{Color: p.grid}},
		},
	}
}

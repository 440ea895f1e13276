/**
 * @description
 * View models for the dashboard pages.
 * Builders turn service results into flat, pre-formatted structs so the
 * templates contain no decision logic beyond showing or hiding sections.
 *
 * @dependencies
 * - backend/internal/services
 * - backend/internal/aggregate
 * - backend/internal/chart
 * - github.com/bytedance/sonic (chart configuration for the page script)
 */

package views

import (
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sol-erda/tracker/internal/aggregate"
	"github.com/sol-erda/tracker/internal/chart"
	"github.com/sol-erda/tracker/internal/services"
	"github.com/sol-erda/tracker/internal/theme"
)

// NavLink is one entry of the navigation dropdown
type NavLink struct {
	Href   string
	Label  string
	Active bool
}

var navLinks = []NavLink{
	{Href: "/erda/price", Label: "가격 정보"},
	{Href: "/erda/history", Label: "히스토리"},
	{Href: "/erda/stats", Label: "통계"},
}

// Page holds what the layout needs on every page
type Page struct {
	Title        string
	Path         string
	Theme        theme.Theme
	Nav          []NavLink
	Year         int
	ErrorMessage string
	// RefreshTarget is where the refresh form redirects back to
	RefreshTarget string
	Loading       bool
	Refetching    bool
}

// RefreshLabel is the text of the manual refresh button
func (p Page) RefreshLabel() string {
	if p.Loading || p.Refetching {
		return "로딩중..."
	}
	return "새로고침"
}

// NewPage builds the shared layout data for a request
func NewPage(title, path, requestURI string, th theme.Theme, now time.Time) Page {
	links := make([]NavLink, len(navLinks))
	for i, l := range navLinks {
		l.Active = l.Href == path
		links[i] = l
	}
	return Page{
		Title:         title,
		Path:          path,
		Theme:         th,
		Nav:           links,
		Year:          now.Year(),
		RefreshTarget: requestURI,
	}
}

func (p *Page) applyFetch(fs services.FetchState) {
	p.Loading = fs.IsLoading
	p.Refetching = fs.IsRefetching
	p.ErrorMessage = services.UserMessage(fs.Err)
}

// LandingPage is "/"
type LandingPage struct {
	Page
}

// StatCard is one of the min/max/avg tiles
type StatCard struct {
	Label string
	Value string
	Tone  string
}

// ItemCell is one listing price on the price page
type ItemCell struct {
	Index int
	Price string
}

// PricePage is "/erda/price"
type PricePage struct {
	Page
	HasData     bool
	Cards       []StatCard
	Items       []ItemCell
	UpdatedText string
}

// BuildPricePage renders the newest snapshot
func BuildPricePage(base Page, res services.LatestResult, loc *time.Location) PricePage {
	base.applyFetch(res.FetchState)
	page := PricePage{Page: base}
	if res.Snapshot == nil {
		return page
	}

	page.HasData = true
	page.Cards = []StatCard{
		{Label: "최저가 (메소)", Value: StatText(res.Stats, "min", false), Tone: "blue"},
		{Label: "최고가 (메소)", Value: StatText(res.Stats, "max", false), Tone: "green"},
		{Label: "평균가 (메소)", Value: StatText(res.Stats, "avg", false), Tone: "purple"},
	}
	for i, price := range res.Snapshot.Items {
		page.Items = append(page.Items, ItemCell{Index: i + 1, Price: Meso(price)})
	}
	page.UpdatedText = DateTime(res.Snapshot.CreatedAt, loc)
	return page
}

// UnitButton is one granularity selector on the history page
type UnitButton struct {
	Label  string
	Href   string
	Active bool
}

// HistoryRow is one bucket in the descending list
type HistoryRow struct {
	ID              int64
	GroupKey        string
	CreatedText     string
	CreatedDateText string
	Min             string
	Max             string
	MinMeso         string
	MaxMeso         string
	AvgMeso         string
	SpreadMeso      string
	SpreadPercent   string
	Expanded        bool
	ToggleHref      string
}

// HistoryPage is "/erda/history"
type HistoryPage struct {
	Page
	Unit      aggregate.Unit
	Units     []UnitButton
	Rows      []HistoryRow
	ChartJSON template.JS
	HasChart  bool
}

// Empty reports whether there is nothing to list
func (p HistoryPage) Empty() bool {
	return len(p.Rows) == 0
}

// BuildHistoryPage renders buckets newest first with the expanded bucket opened
func BuildHistoryPage(base Page, res services.HistoryResult, expandedID int64, th theme.Theme, loc *time.Location) (HistoryPage, error) {
	base.applyFetch(res.FetchState)
	page := HistoryPage{Page: base, Unit: res.Unit}

	for _, u := range aggregate.Units {
		page.Units = append(page.Units, UnitButton{
			Label:  u.Label(),
			Href:   historyHref(u, 0),
			Active: u == res.Unit,
		})
	}

	if series := chart.BuildSeries(res.Windowed, th); series != nil {
		data, err := sonic.ConfigStd.Marshal(series)
		if err != nil {
			return page, fmt.Errorf("encode chart: %w", err)
		}
		page.ChartJSON = template.JS(data)
		page.HasChart = true
	}

	for _, b := range aggregate.Reverse(res.Buckets) {
		s := b.Stats()
		expanded := expandedID != 0 && b.ID == expandedID
		toggle := b.ID
		if expanded {
			toggle = 0
		}
		page.Rows = append(page.Rows, HistoryRow{
			ID:              b.ID,
			GroupKey:        b.GroupKey,
			CreatedText:     DateTime(b.CreatedAt, loc),
			CreatedDateText: Date(b.CreatedAt, loc),
			Min:             StatText(s, "min", false),
			Max:             StatText(s, "max", false),
			MinMeso:         StatText(s, "min", true),
			MaxMeso:         StatText(s, "max", true),
			AvgMeso:         StatText(s, "avg", true),
			SpreadMeso:      StatText(s, "spread", true),
			SpreadPercent:   SpreadPercentText(s),
			Expanded:        expanded,
			ToggleHref:      historyHref(res.Unit, toggle),
		})
	}
	return page, nil
}

func historyHref(unit aggregate.Unit, expanded int64) string {
	q := url.Values{}
	q.Set("unit", string(unit))
	if expanded != 0 {
		q.Set("expanded", fmt.Sprint(expanded))
	}
	return "/erda/history?" + q.Encode()
}

// DailyLine is one row of the stats page table
type DailyLine struct {
	Day       string
	Snapshots int
	Min       string
	Max       string
	Avg       string
	Spread    string
}

// StatsPage is "/erda/stats"
type StatsPage struct {
	Page
	HasData       bool
	SnapshotCount string
	Cards         []StatCard
	SpreadPercent string
	FirstText     string
	LastText      string
	Daily         []DailyLine
}

// BuildStatsPage renders the overall summary and the daily table
func BuildStatsPage(base Page, res services.OverviewResult, loc *time.Location) StatsPage {
	base.applyFetch(res.FetchState)
	page := StatsPage{Page: base, SnapshotCount: Price(int64(res.Snapshots))}
	if res.Snapshots == 0 {
		return page
	}

	page.HasData = true
	page.Cards = []StatCard{
		{Label: "전체 최저가", Value: StatText(res.Overall, "min", true), Tone: "blue"},
		{Label: "전체 최고가", Value: StatText(res.Overall, "max", true), Tone: "green"},
		{Label: "전체 평균가", Value: StatText(res.Overall, "avg", true), Tone: "purple"},
	}
	page.SpreadPercent = SpreadPercentText(res.Overall)
	page.FirstText = DateTime(res.First, loc)
	page.LastText = DateTime(res.Last, loc)

	for _, d := range res.Daily {
		page.Daily = append(page.Daily, DailyLine{
			Day:       d.Day,
			Snapshots: d.Snapshots,
			Min:       StatText(d.Stats, "min", false),
			Max:       StatText(d.Stats, "max", false),
			Avg:       StatText(d.Stats, "avg", false),
			Spread:    SpreadPercentText(d.Stats),
		})
	}
	return page
}

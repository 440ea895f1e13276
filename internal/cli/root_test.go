package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/sol-erda/tracker/internal/models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	rows []models.OcrSnapshot
	err  error
}

func (m memSource) FetchHistory(ctx context.Context) ([]models.OcrSnapshot, error) {
	return m.rows, m.err
}

func (m memSource) FetchLatest(ctx context.Context) (*models.OcrSnapshot, error) {
	if m.err != nil || len(m.rows) == 0 {
		return nil, m.err
	}
	latest := m.rows[0]
	return &latest, nil
}

func sampleRows() []models.OcrSnapshot {
	base := time.Date(2024, 3, 5, 13, 47, 0, 0, time.UTC)
	return []models.OcrSnapshot{
		{ID: 3, Items: models.PriceArray{1200000, 1300000}, CreatedAt: base.Add(26 * time.Hour)},
		{ID: 2, Items: models.PriceArray{1100000}, CreatedAt: base.Add(time.Hour)},
		{ID: 1, Items: models.PriceArray{1000000}, CreatedAt: base},
	}
}

func execute(t *testing.T, src memSource, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(func(cmd *cobra.Command) (*Env, error) {
		return &Env{Source: src, Location: time.UTC}, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLatestCommand(t *testing.T) {
	out, err := execute(t, memSource{rows: sampleRows()}, "latest")
	require.NoError(t, err)

	assert.Contains(t, out, "기록 시간: 2024. 3. 6. 오후 3:47:00")
	assert.Contains(t, out, "평균가: 1,250,000 메소")
	assert.Contains(t, out, "1번")
	assert.Contains(t, out, "1,300,000")
}

func TestLatestCommandEmpty(t *testing.T) {
	out, err := execute(t, memSource{}, "latest")
	require.NoError(t, err)
	assert.Contains(t, out, "데이터가 없습니다.")
}

func TestHistoryCommand(t *testing.T) {
	out, err := execute(t, memSource{rows: sampleRows()}, "history", "--unit", "day", "--limit", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "일당"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-03-06"))
	assert.Contains(t, lines[2], "8.3%")
}

func TestHistoryCommandJSON(t *testing.T) {
	out, err := execute(t, memSource{rows: sampleRows()}, "history", "-u", "hour", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"unit": "hour"`)
	assert.Contains(t, out, `"group_key": "2024-03-06 15"`)
}

func TestHistoryCommandRejectsUnknownUnit(t *testing.T) {
	_, err := execute(t, memSource{rows: sampleRows()}, "history", "--unit", "week")
	assert.Error(t, err)
}

func TestCommandPropagatesSourceErrors(t *testing.T) {
	_, err := execute(t, memSource{err: errors.New("db down")}, "latest")
	assert.EqualError(t, err, "db down")
}

func TestTableAlignsWideRunes(t *testing.T) {
	table := NewTable("시간", "가격").AlignRight(1)
	table.Append("a", "1,000")
	table.Append("bb", "10")

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	width := runewidth.StringWidth(lines[0])
	for _, l := range lines[1:] {
		assert.Equal(t, width, runewidth.StringWidth(l), l)
	}
	assert.True(t, strings.HasSuffix(lines[3], "   10"))
}

package cli

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table prints aligned columns. Widths are measured in terminal cells so Hangul
// headers line up with ASCII numbers.
type Table struct {
	Headers []string
	// RightAlign marks numeric columns
	RightAlign []bool
	rows       [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{Headers: headers, RightAlign: make([]bool, len(headers))}
}

// AlignRight right-aligns the given column indexes
func (t *Table) AlignRight(cols ...int) *Table {
	for _, c := range cols {
		if c >= 0 && c < len(t.RightAlign) {
			t.RightAlign[c] = true
		}
	}
	return t
}

func (t *Table) Append(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if cw := runewidth.StringWidth(row[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var b strings.Builder
	t.writeRow(&b, t.Headers, widths)
	sep := make([]string, len(widths))
	for i, cw := range widths {
		sep[i] = strings.Repeat("-", cw)
	}
	b.WriteString(strings.Join(sep, "  "))
	b.WriteByte('\n')
	for _, row := range t.rows {
		t.writeRow(&b, row, widths)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Table) writeRow(b *strings.Builder, row []string, widths []int) {
	cells := make([]string, len(widths))
	for i, cw := range widths {
		var v string
		if i < len(row) {
			v = row[i]
		}
		if t.RightAlign[i] {
			cells[i] = runewidth.FillLeft(v, cw)
		} else {
			cells[i] = runewidth.FillRight(v, cw)
		}
	}
	b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	b.WriteByte('\n')
}

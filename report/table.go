package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a query Result
// ============================================================================
// Headers are localized, cells formatted by column kind, text cells masked
// and clipped. Oversized results are cut to MaxRows x MaxCols and the cut
// is reported in a footnote.
// ============================================================================

const (
	DefaultMaxTableRows = 20
	DefaultMaxTableCols = 12
	defaultCellClip     = 180
)

// TableData is a rendered result table.
type TableData struct {
	Columns   []Column   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"totalRows"`
	TotalCols int        `json:"totalCols"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  Kind   `json:"type"`
	Align string `json:"align"` // "left", "right"
}

// Truncated reports whether rows or columns were cut.
func (t *TableData) Truncated() bool {
	return t.TotalRows > len(t.Rows) || t.TotalCols > len(t.Columns)
}

// BuildTable formats res for display. mask is applied to text cells and
// may be nil.
func BuildTable(res *store.Result, maxRows, maxCols int, mask func(string) string) *TableData {
	if res == nil {
		return &TableData{Columns: []Column{}, Rows: [][]string{}}
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxTableRows
	}
	if maxCols <= 0 {
		maxCols = DefaultMaxTableCols
	}

	ncols := min(len(res.Columns), maxCols)
	columns := make([]Column, 0, ncols)
	for _, name := range res.Columns[:ncols] {
		kind := Classify(name)
		align := "right"
		if kind == KindDate {
			align = "left"
		}
		columns = append(columns, Column{Key: name, Label: Localize(name), Type: kind, Align: align})
	}

	nrows := min(len(res.Rows), maxRows)
	rows := make([][]string, 0, nrows)
	for _, src := range res.Rows[:nrows] {
		row := make([]string, ncols)
		for j := 0; j < ncols && j < len(src); j++ {
			v := src[j]
			if s, ok := v.(string); ok && mask != nil {
				v = mask(s)
			}
			row[j] = FormatCell(res.Columns[j], v)
		}
		rows = append(rows, row)
	}

	// Text columns align left.
	for j := range columns {
		if columns[j].Type == KindNumber && !numericColumn(res, j, nrows) {
			columns[j].Type = KindText
			columns[j].Align = "left"
		}
	}

	return &TableData{
		Columns:   columns,
		Rows:      rows,
		TotalRows: len(res.Rows),
		TotalCols: len(res.Columns),
	}
}

func numericColumn(res *store.Result, j, nrows int) bool {
	seen := false
	for _, row := range res.Rows[:nrows] {
		if j >= len(row) || row[j] == nil {
			continue
		}
		if _, isText := row[j].(string); isText {
			return false
		}
		seen = true
	}
	return seen
}

// Markdown renders the table with padded cells.
func (t *TableData) Markdown() string {
	if len(t.Columns) == 0 {
		return "(empty table)"
	}
	widths := make([]int, len(t.Columns))
	for j, c := range t.Columns {
		widths[j] = max(3, utf8.RuneCountInString(c.Label))
	}
	for _, row := range t.Rows {
		for j, cell := range row {
			widths[j] = max(widths[j], utf8.RuneCountInString(cell))
		}
	}

	var sb strings.Builder
	header := make([]string, len(t.Columns))
	divider := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = pad(c.Label, widths[j])
		divider[j] = strings.Repeat("-", widths[j])
	}
	writeRow(&sb, header)
	writeRow(&sb, divider)
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j := range t.Columns {
			cells[j] = pad(row[j], widths[j])
		}
		writeRow(&sb, cells)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Footnote describes any truncation, or returns "".
func (t *TableData) Footnote() string {
	var notes []string
	if t.TotalRows > len(t.Rows) {
		notes = append(notes, fmt.Sprintf("표시는 상위 %d행입니다. (전체 %d행)", len(t.Rows), t.TotalRows))
	}
	if t.TotalCols > len(t.Columns) {
		notes = append(notes, fmt.Sprintf("열은 %d개만 표시했습니다. (전체 %d열)", len(t.Columns), t.TotalCols))
	}
	if len(notes) == 0 {
		return ""
	}
	return "_" + strings.Join(notes, " ") + "_"
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("| ")
	sb.WriteString(strings.Join(cells, " | "))
	sb.WriteString(" |\n")
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// clip compacts whitespace and cuts to limit runes with a "..." suffix.
func clip(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "/")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func toText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

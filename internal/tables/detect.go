// Package tables finds column-aligned blocks in page text and exports them.
package tables

import (
	"regexp"
	"strings"
)

// Table is a block of consecutive rows with the same number of cells.
// The first row is treated as the header.
type Table struct {
	Page  int        `json:"page"`
	Index int        `json:"index"`
	Rows  [][]string `json:"rows"`
}

// Header returns the first row.
func (t Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// Body returns every row after the header.
func (t Table) Body() [][]string {
	if len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// Columns returns the cell count shared by every row.
func (t Table) Columns() int {
	return len(t.Header())
}

// Detector finds tables in the layout lines of a document, pages[i] being page i+1.
type Detector interface {
	Detect(pages [][]string) []Table
}

// LineDetector treats runs of column-aligned lines as tables.
type LineDetector struct{}

// Detect implements Detector.
func (LineDetector) Detect(pages [][]string) []Table {
	return Detect(pages)
}

var cellSeparator = regexp.MustCompile(`\t+| {2,}`)

// SplitRow splits a layout line into cells. Lines with fewer than two cells are not rows.
func SplitRow(line string) ([]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	parts := cellSeparator.Split(line, -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	if len(cells) < 2 {
		return nil, false
	}
	return cells, true
}

// Detect scans the layout lines of each page, pages[i] being page i+1.
func Detect(pages [][]string) []Table {
	var out []Table
	for i, lines := range pages {
		out = append(out, DetectPage(i+1, lines)...)
	}
	return out
}

// DetectPage finds tables on a single page.
func DetectPage(page int, lines []string) []Table {
	var tables []Table
	var run [][]string

	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, Table{Page: page, Index: len(tables) + 1, Rows: run})
		}
		run = nil
	}

	for _, line := range lines {
		cells, ok := SplitRow(line)
		if !ok {
			flush()
			continue
		}
		if len(run) > 0 && len(run[0]) != len(cells) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

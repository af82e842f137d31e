package tables

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/timmy/lexpdf/internal/domain"
)

// Content types of the rendered outputs.
const (
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeCSV      = "text/csv; charset=utf-8"
	ContentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Render encodes tables in the requested format.
func Render(tables []Table, format domain.TableFormat) ([]byte, string, error) {
	switch format {
	case domain.TableMarkdown, "":
		return []byte(Markdown(tables)), ContentTypeMarkdown, nil
	case domain.TableCSV:
		b, err := CSV(tables)
		return b, ContentTypeCSV, err
	case domain.TableXLSX:
		b, err := XLSX(tables)
		return b, ContentTypeXLSX, err
	default:
		return nil, "", fmt.Errorf("unsupported table format %q", format)
	}
}

// Extension returns the file extension for format.
func Extension(format domain.TableFormat) string {
	switch format {
	case domain.TableCSV:
		return ".csv"
	case domain.TableXLSX:
		return ".xlsx"
	default:
		return ".md"
	}
}

// Markdown renders one pipe table per detected table.
func Markdown(tables []Table) string {
	if len(tables) == 0 {
		return "*Nenhuma tabela encontrada.*\n"
	}

	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### Página %d, tabela %d\n\n", t.Page, t.Index)
		writeMarkdownRow(&b, t.Header())
		sep := make([]string, t.Columns())
		for j := range sep {
			sep[j] = "---"
		}
		writeMarkdownRow(&b, sep)
		for _, row := range t.Body() {
			writeMarkdownRow(&b, row)
		}
	}
	return b.String()
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

// CSV writes each table as a CSV block; blocks are separated by a blank line.
func CSV(tables []Table) ([]byte, error) {
	var buf bytes.Buffer
	for i, t := range tables {
		if i > 0 {
			buf.WriteString("\n")
		}
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(t.Rows); err != nil {
			return nil, fmt.Errorf("csv table %d: %w", i+1, err)
		}
	}
	return buf.Bytes(), nil
}

// XLSX writes one sheet per table with a bold header row.
func XLSX(tables []Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	const defaultSheet = "Sheet1"
	for i, t := range tables {
		sheet := SheetName(t)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return nil, fmt.Errorf("xlsx rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("xlsx new sheet: %w", err)
		}

		for r, row := range t.Rows {
			for c, value := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return nil, fmt.Errorf("xlsx cell %s: %w", cell, err)
				}
			}
		}
		last, _ := excelize.CoordinatesToCellName(t.Columns(), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName names the sheet holding t, e.g. "Pagina 3 - Tabela 1".
func SheetName(t Table) string {
	return fmt.Sprintf("Pagina %d - Tabela %d", t.Page, t.Index)
}

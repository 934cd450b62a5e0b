package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Delimited reads CSV or TSV. The first row is the header.
type Delimited struct {
	Comma rune
}

func (d Delimited) ExtractText(_ context.Context, data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = d.Comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read delimited: %w", err)
	}
	return renderColumns(rows), nil
}

// renderColumns emits, per column in order, a header marker followed by
// every cell of that column. Work is linear in the number of cells.
func renderColumns(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	cols := make([][]string, width)
	for _, row := range rows[1:] {
		for c, cell := range row {
			cols[c] = append(cols[c], strings.TrimSpace(cell))
		}
	}

	header := rows[0]
	var b strings.Builder
	for c, cells := range cols {
		name := ""
		if c < len(header) {
			name = strings.TrimSpace(header[c])
		}
		if name == "" {
			name = "column " + strconv.Itoa(c+1)
		}
		fmt.Fprintf(&b, "## %s\n", name)
		for _, cell := range cells {
			b.WriteString(cell)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// maxSheetCells bounds the cells read across all worksheets of one
// workbook. Column references past XFD are rejected by excelize.
const maxSheetCells = 1 << 20

var errTooManyCells = errors.New("xlsx exceeds cell limit")

// XLSX reads every worksheet of an OOXML workbook in tab order.
type XLSX struct{}

func (XLSX) ExtractText(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		UnzipSizeLimit:    256 << 20,
		UnzipXMLSizeLimit: 64 << 20,
	})
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("xlsx has no worksheets")
	}

	budget := maxSheetCells
	var b strings.Builder
	for _, name := range sheets {
		rows, err := sheetRows(ctx, f, name, &budget)
		if err != nil {
			return "", err
		}
		if len(sheets) > 1 {
			fmt.Fprintf(&b, "# %s\n", name)
		}
		b.WriteString(renderColumns(rows))
	}
	return b.String(), nil
}

// sheetRows streams the non-empty rows of one sheet, charging every cell
// against budget.
func sheetRows(ctx context.Context, f *excelize.File, sheet string, budget *int) ([][]string, error) {
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	defer it.Close()

	var rows [][]string
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := it.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(cols) == 0 {
			continue
		}
		if *budget -= len(cols); *budget < 0 {
			return nil, errTooManyCells
		}
		rows = append(rows, cols)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

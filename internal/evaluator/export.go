package evaluator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is an export format for the comparison table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath picks the export format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

// Write exports the table in format f.
func (t *ComparisonTable) Write(w io.Writer, f Format) error {
	switch f {
	case FormatCSV:
		return t.WriteCSV(w)
	case FormatJSON:
		return t.WriteJSON(w)
	case FormatXLSX:
		return t.WriteXLSX(w)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// FormatValue renders a cell the way every text export does.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header row followed by one line per table row.
func (t *ComparisonTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = FormatValue(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// UnmarshalJSON restores the cell types JSON loses: index and length cells
// come back as int rather than float64.
func (t *ComparisonTable) UnmarshalJSON(data []byte) error {
	type plain ComparisonTable
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	for _, row := range p.Rows {
		for col, v := range row {
			if f, ok := v.(float64); ok && (col == ColumnIndex || strings.HasSuffix(col, "_answer_len")) {
				row[col] = int(f)
			}
		}
	}
	*t = ComparisonTable(p)
	return nil
}

func (t *ComparisonTable) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(t)
}

// WriteXLSX writes a single "comparison" sheet with native cell types.
func (t *ComparisonTable) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "comparison"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for c, col := range t.Columns {
		if err := setCell(f, sheet, c, 0, col); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for c, col := range t.Columns {
			if err := setCell(f, sheet, c, r+1, row[col]); err != nil {
				return err
			}
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, name, v)
}

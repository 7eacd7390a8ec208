// Package tabular reads and writes the delimited-text and spreadsheet files the
// analysis consumes and produces. It knows nothing about column meaning; the
// residual and group packages map named columns onto typed records.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a supported file format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// ErrEmpty is returned when a file has no header row.
var ErrEmpty = errors.New("table has no header row")

// Table is a header plus string records. Every record has len(Header) cells.
type Table struct {
	Header  []string
	Records [][]string
}

// Index returns the position of the named column (case-insensitive, trimmed) or -1.
func (t *Table) Index(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// ResolveFormat determines the file format. For "auto" (or empty) the file
// extension decides and unknown extensions fall back to CSV.
func ResolveFormat(path string, format string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	switch f {
	case "", FormatAuto:
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx", ".xlsm":
			return FormatXLSX, nil
		case ".tsv", ".tab":
			return FormatTSV, nil
		default:
			return FormatCSV, nil
		}
	case FormatCSV, FormatTSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported table format: %q", format)
	}
}

// Read loads a table from path. sheet selects the spreadsheet sheet for xlsx
// files; empty means the first sheet.
func Read(path string, format string, sheet string) (*Table, error) {
	f, err := ResolveFormat(path, format)
	if err != nil {
		return nil, err
	}
	logf(path, "read format=%s", f)

	var rows [][]string
	switch f {
	case FormatXLSX:
		rows, err = readXLSX(path, sheet)
	default:
		rows, err = readDelimited(path, delimiter(f))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fromRows(rows)
}

// Decode reads a delimited table from r.
func Decode(r io.Reader, format Format) (*Table, error) {
	rows, err := decodeDelimited(r, delimiter(format))
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func delimiter(f Format) rune {
	if f == FormatTSV {
		return '\t'
	}
	return ','
}

func readDelimited(path string, comma rune) ([][]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return decodeDelimited(fh, comma)
}

func decodeDelimited(r io.Reader, comma rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	return cr.ReadAll()
}

func readXLSX(path string, sheet string) ([][]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if strings.TrimSpace(sheet) == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmpty
		}
		sheet = sheets[0]
	}
	return wb.GetRows(sheet)
}

func fromRows(rows [][]string) (*Table, error) {
	// skip leading blank lines
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Header: header, Records: make([][]string, 0, len(rows)-1)}
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("line %d: %d cells, header has %d", n+2, len(row), len(header))
		}
		// spreadsheets drop trailing empty cells
		rec := make([]string, len(header))
		for i, c := range row {
			rec[i] = strings.TrimSpace(c)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Write stores t at path in the given format ("auto" picks by extension).
func Write(path string, format string, t *Table) error {
	f, err := ResolveFormat(path, format)
	if err != nil {
		return err
	}
	logf(path, "write format=%s records=%d", f, len(t.Records))

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if f == FormatXLSX {
		return writeXLSX(path, t)
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	if err := Encode(fh, f, t); err != nil {
		return err
	}
	return fh.Close()
}

// Encode writes t as delimited text to w.
func Encode(w io.Writer, format Format, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter(format)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(path string, t *Table) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	rows := append([][]string{t.Header}, t.Records...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := wb.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return wb.SaveAs(path)
}

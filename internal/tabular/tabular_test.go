package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		path, format string
		want         Format
		wantErr      bool
	}{
		{"a.csv", "", FormatCSV, false},
		{"a.XLSX", "auto", FormatXLSX, false},
		{"a.tsv", "auto", FormatTSV, false},
		{"a.txt", "auto", FormatCSV, false},
		{"a.csv", "xlsx", FormatXLSX, false},
		{"a.csv", "parquet", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveFormat(tt.path, tt.format)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ResolveFormat(%q,%q) err=%v wantErr=%v", tt.path, tt.format, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ResolveFormat(%q,%q) = %q, want %q", tt.path, tt.format, got, tt.want)
		}
	}
}

func TestDecode_HeaderIndexAndPadding(t *testing.T) {
	in := "\ufeffScenario, Sensor ,leak\n\ns1,n1,1\ns1,n2\n"
	tbl, err := Decode(strings.NewReader(in), FormatCSV)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := tbl.Index("sensor"); got != 1 {
		t.Fatalf("Index(sensor) = %d, want 1", got)
	}
	if got := tbl.Index("scenario"); got != 0 {
		t.Fatalf("Index(scenario) = %d, want 0 (BOM must be stripped)", got)
	}
	if tbl.Index("missing") != -1 {
		t.Fatalf("expected -1 for a missing column")
	}
	if len(tbl.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(tbl.Records))
	}
	if tbl.Records[1][2] != "" {
		t.Fatalf("short record must be padded, got %q", tbl.Records[1])
	}
}

func TestDecode_TooManyCells(t *testing.T) {
	_, err := Decode(strings.NewReader("a,b\n1,2,3\n"), FormatCSV)
	if err == nil {
		t.Fatalf("expected error for record wider than header")
	}
}

func TestDecode_Empty(t *testing.T) {
	if _, err := Decode(strings.NewReader("\n\n"), FormatCSV); err != ErrEmpty {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestWriteRead_CSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "table.tsv")
	in := &Table{Header: []string{"a", "b"}, Records: [][]string{{"1", "x"}, {"2", "y,z"}}}

	if err := Write(path, "auto", in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Contains(raw, []byte("2\ty,z")) {
		t.Fatalf("expected tab separated output, got %q", raw)
	}

	got, err := Read(path, "auto", "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Records) != 2 || got.Records[1][1] != "y,z" {
		t.Fatalf("unexpected records %v", got.Records)
	}
}

func TestWriteRead_XLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.xlsx")
	in := &Table{Header: []string{"sensor", "value"}, Records: [][]string{{"n1", "0.5"}, {"n2", ""}}}

	if err := Write(path, "auto", in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path, "auto", "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Header) != 2 || got.Header[0] != "sensor" {
		t.Fatalf("header = %v", got.Header)
	}
	if len(got.Records) != 2 || got.Records[0][1] != "0.5" || got.Records[1][1] != "" {
		t.Fatalf("records = %v", got.Records)
	}
}

func TestRead_MissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.csv"), "", ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

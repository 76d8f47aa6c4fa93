package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintTable(t *testing.T) {
	table := NewTableData("Name", "CID")
	table.AddRow("docs", "AAAAAAhkb2NzLWNpZA")

	var buf bytes.Buffer
	if err := PrintTable(&buf, table); err != nil {
		t.Fatalf("PrintTable: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "NAME") || !strings.Contains(got, "CID") {
		t.Errorf("headers missing from output: %q", got)
	}
	if !strings.Contains(got, "docs") {
		t.Errorf("row missing from output: %q", got)
	}
}

func TestSimpleTableHasNoHeader(t *testing.T) {
	var buf bytes.Buffer
	err := SimpleTable(&buf, [][2]string{
		{"CID", "AAAAAAhkb2NzLWNpZA"},
		{"Size", "42"},
	})
	if err != nil {
		t.Fatalf("SimpleTable: %v", err)
	}
	got := buf.String()
	if strings.Contains(got, "CID  CID") {
		t.Errorf("key column duplicated as header: %q", got)
	}
	if !strings.Contains(got, "Size") {
		t.Errorf("row missing from output: %q", got)
	}
}

func TestPrintDispatch(t *testing.T) {
	data := map[string]int{"aliases": 3}

	var buf bytes.Buffer
	if err := Print(&buf, FormatJSON, data); err != nil {
		t.Fatalf("Print json: %v", err)
	}
	if !strings.Contains(buf.String(), `"aliases": 3`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	if err := Print(&buf, FormatYAML, data); err != nil {
		t.Fatalf("Print yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "aliases: 3") {
		t.Errorf("yaml output = %q", buf.String())
	}

	// Table format falls back to JSON when data cannot render itself.
	buf.Reset()
	if err := Print(&buf, FormatTable, data); err != nil {
		t.Fatalf("Print table fallback: %v", err)
	}
	if !strings.Contains(buf.String(), `"aliases": 3`) {
		t.Errorf("fallback output = %q", buf.String())
	}
}

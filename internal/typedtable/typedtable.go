// Package typedtable defines the in-pipeline representation shared by
// the Operation Executor and the declarative result transforms: a
// typed, header-addressed table that keeps both the coerced value and
// the original string of every cell.
package typedtable

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/opencitations/ramose/internal/coerce"
)

// Cell pairs a coerced value with the original string it was parsed
// from, so lossless serialization is always possible.
type Cell struct {
	Value    coerce.Value
	Original string
}

// Table is a header row plus data rows of Cells. Every row has exactly
// len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// ColumnIndex returns the position of a column name in Header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// FromCSV parses a CSV body into a Table, typing each column per kindOf
// (a function from column name to coercion kind; columns it doesn't
// recognize default to str within kindOf's own contract).
func FromCSV(r io.Reader, kindOf func(column string) coerce.Kind) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("typedtable: reading csv: %w", err)
	}
	// Normalize line endings to "\n" before splitting into records, per
	// spec.md §9, rather than relying on encoding/csv's own handling.
	normalized := strings.ReplaceAll(string(raw), "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	cr := csv.NewReader(bytes.NewReader([]byte(normalized)))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("typedtable: parsing csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	header := records[0]
	table := &Table{Header: header}
	for _, rec := range records[1:] {
		row := make([]Cell, len(header))
		for i, col := range header {
			var raw string
			if i < len(rec) {
				raw = rec[i]
			}
			v, err := coerce.Coerce(kindOf(col), raw)
			if err != nil {
				return nil, fmt.Errorf("typedtable: column %q: %w", col, err)
			}
			row[i] = Cell{Value: v, Original: raw}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Retype recomputes every Cell's Value from its Original string, using
// kindOf for column types, for use after cells' Original strings have
// been rewritten in place.
func (t *Table) Retype(kindOf func(column string) coerce.Kind) error {
	for r, row := range t.Rows {
		for c, cell := range row {
			v, err := coerce.Coerce(kindOf(t.Header[c]), cell.Original)
			if err != nil {
				return fmt.Errorf("typedtable: retype column %q: %w", t.Header[c], err)
			}
			t.Rows[r][c].Value = v
		}
	}
	return nil
}

// ToCSV serializes the table's original strings back to CSV.
func (t *Table) ToCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			rec[i] = cell.Original
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToObjects converts the table to a slice of maps keyed by header name,
// using each cell's original string — the representation consumed by
// JSON serialization and the json=array/dict restructuring rules.
func (t *Table) ToObjects() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(map[string]any, len(t.Header))
		for i, h := range t.Header {
			obj[h] = row[i].Original
		}
		out = append(out, obj)
	}
	return out
}

// FromObjects rebuilds a Table from a postprocess-returned slice of
// row maps, re-typing every cell via kindOf. Extra keys not present in
// header are ignored; missing keys become empty strings.
func FromObjects(header []string, objects []map[string]any, kindOf func(column string) coerce.Kind) (*Table, error) {
	table := &Table{Header: header}
	for _, obj := range objects {
		row := make([]Cell, len(header))
		for i, col := range header {
			raw := stringify(obj[col])
			v, err := coerce.Coerce(kindOf(col), raw)
			if err != nil {
				return nil, fmt.Errorf("typedtable: column %q: %w", col, err)
			}
			row[i] = Cell{Value: v, Original: raw}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one row, keyed by column name.
type Record map[string]any

// Table is an ordered set of records with a stable column order.
type Table struct {
	Columns []string
	Records []Record
}

// New returns an empty table.
func New() *Table {
	return &Table{Columns: []string{}, Records: []Record{}}
}

// FromRecords builds a table; columns follow first appearance, keys within
// one record are sorted since map order is not meaningful.
func FromRecords(records []Record) *Table {
	t := New()
	seen := make(map[string]bool)
	for _, r := range records {
		for _, k := range sortedKeys(r) {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Records = append(t.Records, r)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether name is a column.
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of name in row order (nil where absent).
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Records))
	for i, r := range t.Records {
		out[i] = r[name]
	}
	return out
}

// Strings returns the values of name formatted as strings, skipping nils.
func (t *Table) Strings(name string) []string {
	var out []string
	for _, r := range t.Records {
		if v, ok := r[name]; ok && v != nil {
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

// Set assigns a value in every row and registers the column.
func (t *Table) Set(name string, value any) {
	t.addColumn(name)
	for _, r := range t.Records {
		r[name] = value
	}
}

func (t *Table) addColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Concat stacks tables; columns are the ordered union.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			out.addColumn(c)
		}
		out.Records = append(out.Records, t.Records...)
	}
	return out
}

// Explode returns a table with one row per element of the list in column.
// Empty lists yield a single row with a nil value; non-list values pass
// through unchanged.
func (t *Table) Explode(column string) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Records {
		items, ok := asList(r[column])
		if !ok {
			out.Records = append(out.Records, r)
			continue
		}
		if len(items) == 0 {
			row := cloneRecord(r)
			row[column] = nil
			out.Records = append(out.Records, row)
			continue
		}
		for _, item := range items {
			row := cloneRecord(r)
			row[column] = item
			out.Records = append(out.Records, row)
		}
	}
	return out
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the table as an array of objects in column order.
// Missing values are written as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range t.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(c)
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(r[c])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

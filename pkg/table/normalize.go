package table

import (
	"fmt"
)

// Normalize flattens a nested list: every element of each record's
// recordPath list becomes a row, with its keys prefixed by prefix and the
// meta fields of the parent copied alongside. Records without the list
// contribute no rows.
func Normalize(t *Table, recordPath string, meta []string, prefix string) (*Table, error) {
	out := New()
	for i, parent := range t.Records {
		raw, ok := parent[recordPath]
		if !ok || raw == nil {
			continue
		}

		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d: %s is %T, not a list", ErrMalformedPage, i, recordPath, raw)
		}

		for j, item := range items {
			child, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: row %d: %s[%d] is %T, not an object", ErrMalformedPage, i, recordPath, j, item)
			}

			row := make(Record, len(child)+len(meta))
			for _, k := range sortedKeys(child) {
				row[prefix+k] = child[k]
				out.addColumn(prefix + k)
			}
			for _, m := range meta {
				row[m] = parent[m]
				out.addColumn(m)
			}
			out.Records = append(out.Records, row)
		}
	}
	return out, nil
}

// MetaExcept returns every column of t except the listed ones.
func MetaExcept(t *Table, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	var meta []string
	for _, c := range t.Columns {
		if !skip[c] {
			meta = append(meta, c)
		}
	}
	return meta
}

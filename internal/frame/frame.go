// Package frame provides the column-ordered string table the pipeline
// stages pass between each other. Cells are strings and the empty string
// is the null value: parsers that fail write "", filters treat "" as
// missing. Column presence is explicit, so stages declare which columns
// they require and tolerate the rest being absent.
package frame

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
)

// Frame is a table with named, ordered columns and string cells.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// New creates an empty frame with the given column order.
func New(cols ...string) *Frame {
	f := &Frame{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range f.cols {
		f.index[c] = i
	}
	return f
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// HasColumns reports whether every named column exists.
func (f *Frame) HasColumns(names ...string) bool {
	for _, n := range names {
		if !f.HasColumn(n) {
			return false
		}
	}
	return true
}

// Append adds a row, padding or truncating it to the column count.
func (f *Frame) Append(row []string) {
	r := make([]string, len(f.cols))
	copy(r, row)
	f.rows = append(f.rows, r)
}

// Value returns the cell at row i for the named column, or "" when the
// column does not exist.
func (f *Frame) Value(i int, col string) string {
	j, ok := f.index[col]
	if !ok {
		return ""
	}
	return f.rows[i][j]
}

// Set writes the cell at row i for the named column. Unknown columns are
// ignored.
func (f *Frame) Set(i int, col, v string) {
	if j, ok := f.index[col]; ok {
		f.rows[i][j] = v
	}
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []string {
	return append([]string(nil), f.rows[i]...)
}

// Rename changes a column name in place. Missing columns are ignored.
func (f *Frame) Rename(old, new string) {
	j, ok := f.index[old]
	if !ok || old == new {
		return
	}
	f.cols[j] = new
	delete(f.index, old)
	f.index[new] = j
}

// Drop removes the named columns. Missing names are ignored.
func (f *Frame) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := make([]int, 0, len(f.cols))
	for j, c := range f.cols {
		if !drop[c] {
			kept = append(kept, j)
		}
	}
	if len(kept) == len(f.cols) {
		return
	}
	cols := make([]string, len(kept))
	for i, j := range kept {
		cols[i] = f.cols[j]
	}
	for ri, row := range f.rows {
		nr := make([]string, len(kept))
		for i, j := range kept {
			nr[i] = row[j]
		}
		f.rows[ri] = nr
	}
	f.cols = cols
	f.index = make(map[string]int, len(cols))
	for i, c := range cols {
		f.index[c] = i
	}
}

// Select returns a new frame holding only the named columns that exist,
// in the requested order.
func (f *Frame) Select(names ...string) *Frame {
	var cols []string
	for _, n := range names {
		if f.HasColumn(n) {
			cols = append(cols, n)
		}
	}
	out := New(cols...)
	for i := range f.rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = f.Value(i, c)
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// Filter keeps only rows for which keep returns true, preserving order.
func (f *Frame) Filter(keep func(i int) bool) {
	out := f.rows[:0]
	for i, row := range f.rows {
		if keep(i) {
			out = append(out, row)
		}
	}
	f.rows = out
}

// AddColumn appends a column filled by value(i). If the column already
// exists its cells are overwritten instead.
func (f *Frame) AddColumn(name string, value func(i int) string) {
	if j, ok := f.index[name]; ok {
		for i := range f.rows {
			f.rows[i][j] = value(i)
		}
		return
	}
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, name)
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], value(i))
	}
}

// Dedupe removes duplicate rows by the given key columns, keeping the
// first or last occurrence. Nil keys mean the whole row is the key.
// Returns the number of rows removed.
func (f *Frame) Dedupe(keys []string, keepLast bool) int {
	if keys == nil {
		keys = f.cols
	}
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		if j, ok := f.index[k]; ok {
			idx = append(idx, j)
		}
	}
	if len(idx) == 0 {
		return 0
	}
	chosen := make(map[string]int, len(f.rows))
	var buf bytes.Buffer
	keyOf := func(row []string) string {
		buf.Reset()
		for _, j := range idx {
			buf.WriteString(row[j])
			buf.WriteByte('\x1f')
		}
		return buf.String()
	}
	for i, row := range f.rows {
		k := keyOf(row)
		if _, seen := chosen[k]; !seen || keepLast {
			chosen[k] = i
		}
	}
	before := len(f.rows)
	f.Filter(func(i int) bool {
		return chosen[keyOf(f.rows[i])] == i
	})
	return before - len(f.rows)
}

// Union concatenates frames over the sorted union of their columns,
// padding cells for columns a frame lacks.
func Union(frames ...*Frame) *Frame {
	set := make(map[string]bool)
	for _, fr := range frames {
		for _, c := range fr.cols {
			set[c] = true
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	out := New(cols...)
	for _, fr := range frames {
		for i := 0; i < fr.Len(); i++ {
			row := make([]string, len(cols))
			for j, c := range cols {
				if fr.HasColumn(c) {
					row[j] = fr.Value(i, c)
				}
			}
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// InnerJoin joins left and right on equality of the key column. Right
// columns that clash with left ones are suffixed; the key appears once.
// Rows with an empty key never match. Output preserves left row order,
// then right match order.
func InnerJoin(left, right *Frame, key, suffix string) *Frame {
	leftHas := make(map[string]bool, len(left.cols))
	for _, c := range left.cols {
		leftHas[c] = true
	}
	cols := append([]string(nil), left.cols...)
	rightCols := make([]string, 0, len(right.cols))
	outNames := make([]string, 0, len(right.cols))
	for _, c := range right.cols {
		if c == key {
			continue
		}
		name := c
		if leftHas[c] {
			name = c + suffix
		}
		rightCols = append(rightCols, c)
		outNames = append(outNames, name)
	}
	cols = append(cols, outNames...)
	out := New(cols...)

	byKey := make(map[string][]int)
	for i := 0; i < right.Len(); i++ {
		k := right.Value(i, key)
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], i)
	}
	for i := 0; i < left.Len(); i++ {
		k := left.Value(i, key)
		if k == "" {
			continue
		}
		for _, ri := range byKey[k] {
			row := make([]string, 0, len(cols))
			row = append(row, left.rows[i]...)
			for _, c := range rightCols {
				row = append(row, right.Value(ri, c))
			}
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// EncodeCSV serializes the frame as CSV with a header row.
func (f *Frame) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(f.cols); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range f.rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionPadsAndSortsColumns(t *testing.T) {
	a := New("Receipt No", "Date")
	a.Append([]string{"R1", "2024-01-01"})

	b := New("Date", "Qty")
	b.Append([]string{"2024-01-02", "3"})

	u := Union(a, b)

	assert.Equal(t, []string{"Date", "Qty", "Receipt No"}, u.Columns())
	require.Equal(t, 2, u.Len())
	assert.Equal(t, "R1", u.Value(0, "Receipt No"))
	assert.Equal(t, "", u.Value(0, "Qty")) // padded
	assert.Equal(t, "3", u.Value(1, "Qty"))
	assert.Equal(t, "", u.Value(1, "Receipt No"))
}

func TestDedupeKeepFirstAndLast(t *testing.T) {
	f := New("k", "v")
	f.Append([]string{"a", "1"})
	f.Append([]string{"a", "2"})
	f.Append([]string{"b", "3"})

	first := f.Select("k", "v")
	removed := first.Dedupe([]string{"k"}, false)
	assert.Equal(t, 1, removed)
	require.Equal(t, 2, first.Len())
	assert.Equal(t, "1", first.Value(0, "v"))

	last := f.Select("k", "v")
	removed = last.Dedupe([]string{"k"}, true)
	assert.Equal(t, 1, removed)
	require.Equal(t, 2, last.Len())
	assert.Equal(t, "2", last.Value(0, "v"))
	assert.Equal(t, "3", last.Value(1, "v"))
}

func TestDedupeWholeRowAndMissingKey(t *testing.T) {
	f := New("a", "b")
	f.Append([]string{"x", "y"})
	f.Append([]string{"x", "y"})
	f.Append([]string{"x", "z"})

	assert.Equal(t, 1, f.Dedupe(nil, false))
	assert.Equal(t, 2, f.Len())

	// key columns that do not exist must not collapse the frame
	assert.Equal(t, 0, f.Dedupe([]string{"nope"}, false))
	assert.Equal(t, 2, f.Len())
}

func TestInnerJoinSuffixesAndDropsEmptyKeys(t *testing.T) {
	left := New("Receipt No", "Time")
	left.Append([]string{"R1", "10:00"})
	left.Append([]string{"", "11:00"})
	left.Append([]string{"R2", "12:00"})

	right := New("Receipt No", "Time", "Qty")
	right.Append([]string{"R1", "10:01", "2"})
	right.Append([]string{"R1", "10:02", "5"})
	right.Append([]string{"R3", "13:00", "9"})

	j := InnerJoin(left, right, "Receipt No", "_product")

	assert.Equal(t, []string{"Receipt No", "Time", "Time_product", "Qty"}, j.Columns())
	require.Equal(t, 2, j.Len()) // R1 matches twice, empty key and R2/R3 drop out
	assert.Equal(t, "10:00", j.Value(0, "Time"))
	assert.Equal(t, "10:01", j.Value(0, "Time_product"))
	assert.Equal(t, "5", j.Value(1, "Qty"))
}

func TestDropRenameAddColumn(t *testing.T) {
	f := New("A", "B", "C")
	f.Append([]string{"1", "2", "3"})

	f.Drop("B", "missing")
	assert.Equal(t, []string{"A", "C"}, f.Columns())
	assert.Equal(t, "3", f.Value(0, "C"))

	f.Rename("A", "a")
	assert.True(t, f.HasColumn("a"))
	assert.False(t, f.HasColumn("A"))

	f.AddColumn("D", func(i int) string { return "d" })
	assert.Equal(t, "d", f.Value(0, "D"))

	// overwrite semantics when the column already exists
	f.AddColumn("D", func(i int) string { return "e" })
	assert.Equal(t, []string{"a", "C", "D"}, f.Columns())
	assert.Equal(t, "e", f.Value(0, "D"))
}

func TestEncodeCSV(t *testing.T) {
	f := New("a", "b")
	f.Append([]string{"1", "with,comma"})

	data, err := f.EncodeCSV()
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"with,comma\"\n", string(data))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-01-15", "01/15/2024", "1/15/2024", "2024-01-15 00:00:00"} {
		d, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, "2024-01-15", FormatDate(d))
	}

	// Excel serial: 25569 is the Unix epoch
	d, ok := ParseDate("25569")
	require.True(t, ok)
	assert.Equal(t, "1970-01-01", FormatDate(d))

	for _, s := range []string{"", "n/a", "Total", "123"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		h, m   int
		wantOK bool
	}{
		{"10:30", 10, 30, true},
		{"10:30:45", 10, 30, true},
		{"1:05 PM", 13, 5, true},
		{"12:01 AM", 0, 1, true},
		{"0930", 9, 30, true},
		{"2460", 0, 0, false},
		{"", 0, 0, false},
		{"noon", 0, 0, false},
	}
	for _, c := range cases {
		h, m, ok := ParseClock(c.in)
		assert.Equal(t, c.wantOK, ok, c.in)
		if c.wantOK {
			assert.Equal(t, c.h, h, c.in)
			assert.Equal(t, c.m, m, c.in)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	dt, ok := ParseDateTime("2024-01-15 10:30:45")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15 10:30:45", FormatDateTime(dt))

	dt, ok = ParseDateTime("2024-01-15 1:05 PM")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15 13:05:00", FormatDateTime(dt))

	_, ok = ParseDateTime("2024-01-15")
	assert.False(t, ok)
}

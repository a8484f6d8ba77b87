package extract

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSource struct {
	files map[string][]byte
}

func (s *fakeSource) ListBatchFiles(_ context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range s.files {
		if strings.HasPrefix(name, prefix+"/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeSource) GetLandingObject(_ context.Context, name string) ([]byte, error) {
	return s.files[name], nil
}

func salesCSV(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestHeaderSniffingSkipsBannerRows(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.csv": salesCSV(
			"Some Store Inc.",
			"Sales Transaction List",
			"",
			"Date,Receipt#,Time,Total",
			"2024-01-15,R-1,10:30,100",
			"2024-01-16,R-2,11:00,200",
		),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, product, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, product.Len())
	require.Equal(t, 2, sales.Len())
	// union sorts columns alphabetically
	assert.Equal(t, []string{"Date", "Receipt#", "Time", "Total"}, sales.Columns())
	assert.Equal(t, "2024-01-15", sales.Value(0, "Date"))
	assert.Equal(t, "R-2", sales.Value(1, "Receipt#"))
}

func TestHeaderFallbackRow(t *testing.T) {
	// no sentinel cell anywhere: row index 4 is promoted
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.csv": salesCSV(
			"banner",
			"banner",
			"banner",
			"banner",
			"ColA,ColB",
			"1,2",
		),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sales.Len())
	assert.Equal(t, []string{"ColA", "ColB"}, sales.Columns())
}

func TestFileTooShortYieldsEmptyTable(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.csv": salesCSV("banner", "banner"),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sales.Len())
}

func TestUnionPadsMissingColumnsAcrossFiles(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.csv": salesCSV(
			"Date,Receipt#,Time",
			"2024-01-01,R-1,09:00",
		),
		"raw_sales/b.csv": salesCSV(
			"Date,Receipt#,Time,Cashier",
			"2024-02-01,R-2,09:30,anna",
		),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sales.Len())
	assert.Equal(t, []string{"Cashier", "Date", "Receipt#", "Time"}, sales.Columns())
	assert.Equal(t, "", sales.Value(0, "Cashier")) // padded null
	assert.Equal(t, "anna", sales.Value(1, "Cashier"))
}

func TestOverlapDiagnosticKeepsAllRows(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.csv": salesCSV(
			"Date,Receipt#,Time",
			"2024-01-01,R-1,09:00",
			"2024-01-20,R-2,09:00",
		),
		"raw_sales/b.csv": salesCSV(
			"Date,Receipt#,Time",
			"2024-01-15,R-3,10:00",
			"2024-02-01,R-4,10:00",
		),
	}}
	core, logs := observer.New(zap.WarnLevel)
	e := New(src, "raw_sales", "raw_product")
	e.logger = zap.New(core)

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)

	// diagnostic only: every row survives
	assert.Equal(t, 4, sales.Len())
	overlaps := logs.FilterMessage("Date range overlap between batch files").All()
	require.Len(t, overlaps, 1)
	ctx := overlaps[0].ContextMap()
	assert.Equal(t, "2024-01-15", ctx["overlap_from"])
	assert.Equal(t, "2024-01-20", ctx["overlap_to"])
}

func TestUnparsableDatesBecomeNull(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.csv": salesCSV(
			"Date,Receipt#,Time",
			"not a date,R-1,09:00",
			"2024-03-05,R-2,09:10",
		),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", sales.Value(0, "Date"))
	assert.Equal(t, "2024-03-05", sales.Value(1, "Date"))
}

func TestTakeOutNormalization(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_product/a.csv": salesCSV(
			"Date,Receipt#,Product ID,Take Out",
			"2024-01-01,R-1,P1,Y",
			"2024-01-01,R-2,P2,",
			"2024-01-01,R-3,P3,Maybe",
		),
	}}
	e := New(src, "raw_sales", "raw_product")

	_, product, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "True", product.Value(0, "Take Out"))
	assert.Equal(t, "False", product.Value(1, "Take Out"))
	assert.Equal(t, "Maybe", product.Value(2, "Take Out"))
}

func TestReadsXLSXWorkbooks(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"Sales Transaction List"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"Date", "Receipt#", "Time"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{"2024-01-15", "R-9", "14:00"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	src := &fakeSource{files: map[string][]byte{
		"raw_sales/a.xlsx": buf.Bytes(),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sales.Len())
	assert.Equal(t, "R-9", sales.Value(0, "Receipt#"))
	assert.Equal(t, "2024-01-15", sales.Value(0, "Date"))
}

func TestUnsupportedFilesAreSkipped(t *testing.T) {
	src := &fakeSource{files: map[string][]byte{
		"raw_sales/notes.txt": []byte("not a table"),
		"raw_sales/a.csv": salesCSV(
			"Date,Receipt#,Time",
			"2024-01-01,R-1,09:00",
		),
	}}
	e := New(src, "raw_sales", "raw_product")

	sales, _, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sales.Len())
}

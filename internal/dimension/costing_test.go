package dimension

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestScoreSheetMatch(t *testing.T) {
	cases := []struct {
		product string
		sheet   string
		want    int
	}{
		// three long words, shared size, matching temperature
		{"ICED CARAMEL LATTE 16OZ", "CARAMEL LATTE 16OZ ICED", 8},
		// hot on both sides
		{"HOT MOCHA 12OZ", "MOCHA 12OZ HOT", 4},
		// cold matches an iced sheet
		{"COLD BREW 16OZ", "BREW 16OZ ICED", 4},
		// no overlap at all
		{"SISIG", "CARAMEL LATTE", 0},
		// short tokens score nothing
		{"TEA 8OZ", "TEA 8OZ", 1},
	}
	for _, tc := range cases {
		got := scoreSheetMatch(normalizeDrinkTokens(tc.product), normalizeDrinkName(tc.product), normalizeDrinkName(tc.sheet))
		assert.Equal(t, tc.want, got, "product %q sheet %q", tc.product, tc.sheet)
	}
}

func TestNormalizeDrinkName(t *testing.T) {
	assert.Equal(t, "CARAMELLATTE16", normalizeDrinkName("CAR LATTE 16OZ"))
	assert.Equal(t, "HOTCHOCOLATELATE12", normalizeDrinkName("HOT CHOCOLATE 12OZ"))
	assert.Equal(t, "ICEDCHOCOLATE12", normalizeDrinkName("ICED CHOCO 12OZ"))
}

func TestCostFromRows(t *testing.T) {
	rows := [][]string{
		{"RECIPE", ""},
		{"COST PER CUP", "", "abc", "41.305"},
	}
	got := costFromRows(rows, 1)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("41.31")))

	// row index beyond the sheet
	assert.False(t, costFromRows(rows, 5).Valid)
	// no numeric cell after the label
	assert.False(t, costFromRows([][]string{{"X", "n/a", ""}}, 0).Valid)
}

func TestDrinkCostPicksBestSheet(t *testing.T) {
	table := &CostingTable{sheets: []costSheet{
		{name: "HOT CARAMEL LATTE 12OZ", norm: normalizeDrinkName("HOT CARAMEL LATTE 12OZ"),
			cost: decimal.NullDecimal{Decimal: decimal.RequireFromString("39.50"), Valid: true}},
		{name: "ICED CARAMEL LATTE 16OZ", norm: normalizeDrinkName("ICED CARAMEL LATTE 16OZ"),
			cost: decimal.NullDecimal{Decimal: decimal.RequireFromString("44.25"), Valid: true}},
	}}

	cost, ok := table.DrinkCost("ICED CAR LATTE 16OZ")
	require.True(t, ok)
	assert.True(t, cost.Equal(decimal.RequireFromString("44.25")))

	cost, ok = table.DrinkCost("HOT CARAMEL LATTE 12OZ")
	require.True(t, ok)
	assert.True(t, cost.Equal(decimal.RequireFromString("39.50")))

	// nothing resembling the sheets
	_, ok = table.DrinkCost("GRILLED CHICKEN")
	assert.False(t, ok)
}

func TestDrinkCostRequiresCost(t *testing.T) {
	table := &CostingTable{sheets: []costSheet{
		{name: "CARAMEL LATTE", norm: normalizeDrinkName("CARAMEL LATTE")},
	}}
	_, ok := table.DrinkCost("CARAMEL LATTE 16OZ")
	assert.False(t, ok)
}

func TestLoadCostingTable(t *testing.T) {
	dir := t.TempDir()

	// no workbook present is a soft miss
	table, err := LoadCostingTable(dir, 2)
	require.NoError(t, err)
	_, ok := table.DrinkCost("CARAMEL LATTE")
	assert.False(t, ok)

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "CARAMEL LATTE 16OZ"))
	require.NoError(t, wb.SetSheetRow("CARAMEL LATTE 16OZ", "A3", &[]interface{}{"COST PER CUP", 44.25}))
	require.NoError(t, wb.SaveAs(filepath.Join(dir, "costing.xlsx")))

	table, err = LoadCostingTable(dir, 2)
	require.NoError(t, err)
	cost, ok := table.DrinkCost("ICED CARAMEL LATTE 16OZ")
	require.True(t, ok)
	assert.True(t, cost.Equal(decimal.RequireFromString("44.25")))
}

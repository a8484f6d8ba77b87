package dimension

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"ingest-service/internal/models"
)

func TestParentSKU(t *testing.T) {
	cases := []struct {
		name     string
		expected string
	}{
		{"ICED CARAMEL LATTE 16OZ", "CARAMEL-LATTE"},
		{"HOT CARAMEL LATTE 8OZ", "CARAMEL-LATTE"},
		{"HOT CHOCOLATE 12 OZ", "CHOCOLATE"},
		{"ICED LATTE 120Z", "LATTE"},
		{"latte. iced 12oz", "LATTE"},
		{"GRILLED CHICKEN SANDWICH", "GRILLED-CHICKEN-SANDWICH"},
		{"WAFFLE 2", "WAFFLE"},
		{"ICED TEA 1", "TEA"},
		{"ICED 16OZ", "ICED-16OZ"},
		{"  ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, ParentSKU(tc.name), "name %q", tc.name)
	}
}

func TestCategory(t *testing.T) {
	cases := []struct {
		name      string
		productID string
		expected  string
	}{
		{"BOTTLED WATER", "FDS-2017-0001", models.CategoryExtra},
		{"HOT MOCHA 12OZ", "DKS-2017-0002", models.CategoryDrink},
		{"GRILLED CHICKEN", "FDS-2017-0003", models.CategoryFood},
		{"CHARGING FEE", "MISC-01", models.CategoryOthers},
		{"TAKE OUT BOX", "MISC-02", models.CategoryOthers},
		{"PLAIN RICE", "FDS-2017-0004", models.CategoryExtra},
		{"EXTRA GRAVY", "FDS-2017-0005", models.CategoryExtra},
		{"EGG SANDWICH", "FDS-2017-0006", models.CategoryExtra},
		{"SCRAMBLED EGGS", "FDS-2017-0007", models.CategoryFood},
		{"CARAMEL FRAPPE", "FDS-2017-0008", models.CategoryDrink},
		{"SISIG", "DRNKS-2017-0009", models.CategoryDrink},
		{"sisig", "2024drnks1", models.CategoryDrink},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, Category(tc.name, tc.productID), "name %q id %q", tc.name, tc.productID)
	}
}

// TestCategoryOverrideOrder verifies the drink id override never rescues a
// product already classified as OTHERS or EXTRA.
func TestCategoryOverrideOrder(t *testing.T) {
	assert.Equal(t, models.CategoryOthers, Category("TAKE OUT CUP", "DKS-2017-0010"))
	assert.Equal(t, models.CategoryExtra, Category("EXTRA SHOT", "DRNKS-2017-0011"))
}

type stubCosting struct {
	costs map[string]decimal.Decimal
}

func (s stubCosting) DrinkCost(name string) (decimal.Decimal, bool) {
	c, ok := s.costs[name]
	return c, ok
}

func TestProductCost(t *testing.T) {
	costing := stubCosting{costs: map[string]decimal.Decimal{
		"HOT MOCHA 12OZ": decimal.RequireFromString("52.75"),
		"FREE REFILL":    decimal.Zero,
	}}
	price := decimal.NullDecimal{Decimal: decimal.RequireFromString("100"), Valid: true}

	// drink with a costing hit uses the sheet cost
	got := productCost(costing, "HOT MOCHA 12OZ", models.CategoryDrink, price)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("52.75")))

	// a zero sheet cost falls back to the price ratio
	got = productCost(costing, "FREE REFILL", models.CategoryDrink, price)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("60")))

	// non-drinks never consult the costing reference
	got = productCost(costing, "HOT MOCHA 12OZ", models.CategoryFood, price)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("60")))

	// ratio rounds to cents
	oddPrice := decimal.NullDecimal{Decimal: decimal.RequireFromString("99.99"), Valid: true}
	got = productCost(nil, "SISIG", models.CategoryFood, oddPrice)
	assert.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("59.99")))

	// null price yields null cost
	got = productCost(costing, "MYSTERY", models.CategoryFood, decimal.NullDecimal{})
	assert.False(t, got.Valid)
}

// Package dimension builds the product dimension. It selects between a
// full rebuild and an incremental reconciliation against stored history,
// and derives the product attributes (parent SKU, category, cost) both
// modes stamp onto their rows.
package dimension

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"ingest-service/internal/models"
)

var (
	// sizeZeroTypo fixes exports that spell the ounce suffix with a zero.
	sizeZeroTypo = regexp.MustCompile(`\b(8|12|16)0Z\b`)
	sizePattern  = regexp.MustCompile(`\b(8|12|16)\s*[O0]Z\b`)

	tempTriggers = map[string]bool{"ICED": true, "ICE": true, "HOT": true, "COLD": true}
	sizeTokens   = map[string]bool{"8": true, "12": true, "16": true}

	drinkKeywords = map[string]bool{
		"ICED": true, "ICE": true, "HOT": true, "8OZ": true, "12OZ": true, "16OZ": true,
		"COLD": true, "TEA": true, "LATTE": true, "SHAKE": true, "FRAPPE": true,
		"MOCHA": true, "GLASS": true, "PITCHER": true, "WATER": true,
	}
	wordPattern      = regexp.MustCompile(`[A-Z0-9]+`)
	othersWordRegex  = regexp.MustCompile(`\bTAKE\b`)
	extraWordRegexes = []*regexp.Regexp{
		regexp.MustCompile(`\bEGG\b`),
		regexp.MustCompile(`\bDIJON\b`),
		regexp.MustCompile(`\bEXTRA\b`),
	}
	othersTriggers      = []string{"CHARGING"}
	extraPhraseTriggers = []string{"BOTTLED WATER", "PLAIN RICE"}
)

// ParentSKU collapses size and temperature variants of a product name into
// one family key, so ICED CARAMEL LATTE 16OZ and HOT CARAMEL LATTE 8OZ roll
// up together. Trailing ordinal tokens (1, 2, 3) are stripped as well.
func ParentSKU(name string) string {
	original := strings.ToUpper(strings.TrimSpace(name))
	if original == "" {
		return ""
	}
	work := strings.ReplaceAll(original, ".", " ")
	work = sizeZeroTypo.ReplaceAllString(work, "${1}OZ")

	hasTrigger := sizePattern.MatchString(work)
	if !hasTrigger {
		for _, tok := range strings.Fields(work) {
			if tempTriggers[tok] {
				hasTrigger = true
				break
			}
		}
	}

	var tokens []string
	if hasTrigger {
		work = sizePattern.ReplaceAllString(work, "")
		for _, tok := range strings.Fields(work) {
			if tempTriggers[tok] || tok == "OZ" || sizeTokens[tok] {
				continue
			}
			tokens = append(tokens, tok)
		}
		if len(tokens) == 0 {
			tokens = strings.Fields(original)
		}
	} else {
		tokens = strings.Fields(original)
	}

	for len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if last != "1" && last != "2" && last != "3" {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, "-")
}

// Category classifies a product by its name, with an id override for the
// drink SKU families. Rule order matters: OTHERS, then EXTRA, then the
// drink keyword check, else FOOD.
func Category(productName, productID string) string {
	upper := strings.ToUpper(productName)

	for _, trig := range othersTriggers {
		if strings.Contains(upper, trig) {
			return models.CategoryOthers
		}
	}
	if othersWordRegex.MatchString(upper) {
		return models.CategoryOthers
	}

	for _, phrase := range extraPhraseTriggers {
		if strings.Contains(upper, phrase) {
			return models.CategoryExtra
		}
	}
	for _, rgx := range extraWordRegexes {
		if rgx.MatchString(upper) {
			return models.CategoryExtra
		}
	}

	category := models.CategoryFood
	for _, tok := range wordPattern.FindAllString(upper, -1) {
		if drinkKeywords[tok] {
			category = models.CategoryDrink
			break
		}
	}

	upid := strings.ToUpper(productID)
	if strings.Contains(upid, "DRNKS") || strings.Contains(upid, "DKS") {
		category = models.CategoryDrink
	}
	return category
}

// costRatio is the fallback cost estimate for products without a costing
// reference: sixty percent of the selling price.
var costRatio = decimal.NewFromFloat(0.60)

// productCost resolves a product's unit cost. Drinks consult the costing
// reference first; everything else, and drinks the reference cannot match,
// fall back to the price ratio. A null price yields a null cost.
func productCost(costing Costing, name, category string, price decimal.NullDecimal) decimal.NullDecimal {
	if category == models.CategoryDrink && costing != nil {
		if cost, ok := costing.DrinkCost(name); ok && !cost.IsZero() {
			return decimal.NullDecimal{Decimal: cost, Valid: true}
		}
	}
	if !price.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{
		Decimal: price.Decimal.Mul(costRatio).Round(2),
		Valid:   true,
	}
}

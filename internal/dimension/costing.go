package dimension

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ingest-service/internal/util"
)

// Costing resolves a drink's unit cost from the recipe costing reference.
type Costing interface {
	DrinkCost(name string) (decimal.Decimal, bool)
}

// costSheet is one recipe sheet of the costing workbook: its normalized
// name for matching plus the cost extracted from the fixed summary row.
type costSheet struct {
	name string
	norm string
	cost decimal.NullDecimal
}

// CostingTable is the costing workbook loaded once per process. Sheets are
// matched fuzzily against product names; the summary row index is fixed by
// configuration because the recipe sheets all share one layout.
type CostingTable struct {
	sheets []costSheet
	logger *zap.Logger
}

// LoadCostingTable reads the first workbook under dir. A missing directory
// or workbook is not an error: lookups simply never match and product
// costs fall back to the price ratio.
func LoadCostingTable(dir string, costRow int) (*CostingTable, error) {
	t := &CostingTable{logger: util.GetLogger()}

	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("scan costing dir: %w", err)
	}
	if len(matches) == 0 {
		t.logger.Info("No costing workbook found, drink costs will use the price ratio",
			zap.String("dir", dir))
		return t, nil
	}
	sort.Strings(matches)

	wb, err := excelize.OpenFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("open costing workbook %s: %w", matches[0], err)
	}
	defer wb.Close()

	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read costing sheet %s: %w", sheet, err)
		}
		t.sheets = append(t.sheets, costSheet{
			name: sheet,
			norm: normalizeDrinkName(sheet),
			cost: costFromRows(rows, costRow),
		})
	}
	t.logger.Info("Loaded costing workbook",
		zap.String("file", filepath.Base(matches[0])),
		zap.Int("sheets", len(t.sheets)))
	return t, nil
}

// costFromRows pulls the first numeric cell after the label column of the
// summary row.
func costFromRows(rows [][]string, costRow int) decimal.NullDecimal {
	if costRow >= len(rows) {
		return decimal.NullDecimal{}
	}
	row := rows[costRow]
	for col := 1; col < len(row); col++ {
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v).Round(2), Valid: true}
		}
	}
	return decimal.NullDecimal{}
}

// DrinkCost matches the product name against the recipe sheets and returns
// the best-scoring sheet's cost. Misses and costless sheets report false.
func (t *CostingTable) DrinkCost(name string) (decimal.Decimal, bool) {
	if len(t.sheets) == 0 {
		return decimal.Decimal{}, false
	}
	productNorm := normalizeDrinkName(name)
	productTokens := normalizeDrinkTokens(name)

	best := -1
	bestScore := 0
	for i, sheet := range t.sheets {
		score := scoreSheetMatch(productTokens, productNorm, sheet.norm)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 || bestScore < 2 || !t.sheets[best].cost.Valid {
		return decimal.Decimal{}, false
	}
	return t.sheets[best].cost.Decimal, true
}

// scoreSheetMatch scores how well a recipe sheet name fits a product name:
// two points per product word (four letters or longer) contained in the
// sheet name, one point for a shared size, one for a matching temperature.
// Scores below two are treated as no match by the caller.
func scoreSheetMatch(productTokens []string, productNorm, sheetNorm string) int {
	score := 0
	for _, word := range productTokens {
		if len(word) >= 4 && strings.Contains(sheetNorm, word) {
			score += 2
		}
	}
	for _, size := range []string{"8", "12", "16"} {
		if strings.Contains(productNorm, size) && strings.Contains(sheetNorm, size) {
			score++
			break
		}
	}
	if strings.Contains(productNorm, "HOT") && strings.Contains(sheetNorm, "HOT") {
		score++
	} else if (strings.Contains(productNorm, "ICED") || strings.Contains(productNorm, "COLD")) &&
		strings.Contains(sheetNorm, "ICED") {
		score++
	}
	return score
}

// normalizeDrinkName canonicalizes a name for sheet matching: the CAR
// abbreviation expanded, uppercased, spaces and the ounce suffix stripped,
// CHOCO expanded.
func normalizeDrinkName(name string) string {
	s := strings.ReplaceAll(name, "CAR ", "CARAMEL ")
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "OZ", "")
	return strings.ReplaceAll(s, "CHOCO", "CHOCOLATE")
}

// normalizeDrinkTokens applies the same canonicalization word by word,
// keeping token boundaries for the overlap score.
func normalizeDrinkTokens(name string) []string {
	s := strings.ReplaceAll(name, "CAR ", "CARAMEL ")
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "OZ", "")
	s = strings.ReplaceAll(s, "CHOCO", "CHOCOLATE")
	return strings.Fields(s)
}

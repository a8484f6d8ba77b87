// Package transform cleans the two canonical export tables, reconciles
// product identity drift, and joins them into the combined transaction
// line table the dimension builder and load orchestrator work from.
package transform

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ingest-service/internal/frame"
	"ingest-service/internal/util"
)

// Administrative columns the warehouse never consumes.
var salesDropColumns = []string{
	"Posted", "Price Level", "Branch", "TM#", "Customer ID", "Customer Name",
	"Cashier", "Serviced By", "Dine In", "Take Out", "Local Tax", "Amusement Tax",
	"EWT", "NAC", "Solo Parent", "Service", "Feedback Rating", "Diplomat",
}

var productDropColumns = []string{
	"Lot/Serial", "Posted", "TM#", "Unit", "Discount ID", "Discount",
	"% Discount", "Price ID", "Branch", "Customer ID", "Customer",
}

// maxReasonablePrice bounds the product-table outlier filter.
const maxReasonablePrice = 50000

type Transformer struct {
	logger *zap.Logger
}

func New() *Transformer {
	return &Transformer{logger: util.GetLogger()}
}

// Run cleans both tables in place and returns the combined table joined on
// Receipt No. A missing join key on either side yields an empty table and
// a warning instead of an error.
func (t *Transformer) Run(sales, product *frame.Frame) *frame.Frame {
	t.cleanSales(sales)
	t.cleanProduct(product)

	addDateTime(sales)
	addDateTime(product)

	t.standardizeProducts(product)
	t.canonicalizeProductIDs(product)
	upperProductNames(product)

	sales.Rename("Receipt#", "Receipt No")
	t.dedupeSales(sales)

	combined := t.join(sales, product)
	t.logger.Info("Transform completed", zap.Int("combined_rows", combined.Len()))
	return combined
}

func (t *Transformer) cleanSales(f *frame.Frame) {
	f.Drop(salesDropColumns...)
	dropBlank(f, "Date")
	dropBlank(f, "Time")
}

func (t *Transformer) cleanProduct(f *frame.Frame) {
	f.Drop(productDropColumns...)
	dropBlank(f, "Date")
	dropBlank(f, "Time")

	if f.HasColumn("Price") {
		f.Filter(func(i int) bool {
			v, ok := parseNumber(f.Value(i, "Price"))
			return ok && v >= 0 && v <= maxReasonablePrice
		})
	}
	for _, col := range []string{"Qty", "Line Total", "Net Total", "Price"} {
		if !f.HasColumn(col) {
			continue
		}
		col := col
		f.Filter(func(i int) bool {
			v, ok := parseNumber(f.Value(i, col))
			return ok && v >= 0
		})
	}
}

// dropBlank removes rows whose cell in the named column is empty. Tables
// without the column are left alone.
func dropBlank(f *frame.Frame, col string) {
	if !f.HasColumn(col) {
		return
	}
	f.Filter(func(i int) bool {
		return strings.TrimSpace(f.Value(i, col)) != ""
	})
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

// addDateTime derives a DateTime column from Date and Time. Cells that do
// not combine into a valid timestamp stay null; the row survives.
func addDateTime(f *frame.Frame) {
	if !f.HasColumns("Date", "Time") {
		return
	}
	f.AddColumn("DateTime", func(i int) string {
		dt, ok := frame.ParseDateTime(f.Value(i, "Date") + " " + f.Value(i, "Time"))
		if !ok {
			return ""
		}
		return frame.FormatDateTime(dt)
	})
}

// standardizeProducts rewrites known renamed or re-SKUed products to their
// canonical identity. A row matches a rule by exact id or by
// case-insensitive trimmed name.
func (t *Transformer) standardizeProducts(f *frame.Frame) {
	if !f.HasColumns("Product ID", "Product Name") {
		return
	}
	rewritten := 0
	for i := 0; i < f.Len(); i++ {
		id := f.Value(i, "Product ID")
		name := strings.ToUpper(strings.TrimSpace(f.Value(i, "Product Name")))
		for _, rule := range standardizationRules {
			if rule.matches(id, name) {
				f.Set(i, "Product ID", rule.toID)
				f.Set(i, "Product Name", rule.toName)
				rewritten++
				break
			}
		}
	}
	if rewritten > 0 {
		t.logger.Info("Standardized product identities", zap.Int("rows", rewritten))
	}
}

// canonicalizeProductIDs maps every product name to the id of its first
// occurrence, so one name never carries two ids within a batch.
func (t *Transformer) canonicalizeProductIDs(f *frame.Frame) {
	if !f.HasColumns("Product ID", "Product Name") {
		return
	}
	firstID := make(map[string]string)
	for i := 0; i < f.Len(); i++ {
		name := normName(f.Value(i, "Product Name"))
		id := f.Value(i, "Product ID")
		if name == "" || id == "" {
			continue
		}
		if _, ok := firstID[name]; !ok {
			firstID[name] = id
		}
	}
	for i := 0; i < f.Len(); i++ {
		if id, ok := firstID[normName(f.Value(i, "Product Name"))]; ok {
			f.Set(i, "Product ID", id)
		}
	}
}

func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func upperProductNames(f *frame.Frame) {
	if !f.HasColumn("Product Name") {
		return
	}
	for i := 0; i < f.Len(); i++ {
		f.Set(i, "Product Name", strings.ToUpper(strings.TrimSpace(f.Value(i, "Product Name"))))
	}
}

// dedupeSales removes re-uploaded receipts, keyed by (Date, Receipt No,
// Time), keeping the first occurrence.
func (t *Transformer) dedupeSales(f *frame.Frame) {
	keys := []string{"Date", "Receipt No", "Time"}
	if !f.HasColumns(keys...) {
		t.logger.Info("Skipping sales dedup, key columns not found")
		return
	}
	before := f.Len()
	removed := f.Dedupe(keys, false)
	if removed > 0 {
		t.logger.Info("Removed duplicate sales records",
			zap.Int("removed", removed),
			zap.Float64("percent", float64(removed)/float64(before)*100))
	} else {
		t.logger.Info("No duplicate sales records found", zap.Int("records", before))
	}
}

func (t *Transformer) join(sales, product *frame.Frame) *frame.Frame {
	if !sales.HasColumn("Receipt No") || !product.HasColumn("Receipt No") {
		t.logger.Warn("Receipt No column missing from one or both tables, nothing to combine")
		return frame.New()
	}
	combined := frame.InnerJoin(sales, product, "Receipt No", "_product")
	combined.Drop("Date_product")
	return combined
}

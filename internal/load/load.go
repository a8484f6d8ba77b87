// Package load turns the combined transaction table and the dimension
// result into staged CSV artifacts and merges them into the warehouse in
// dependency order.
package load

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ingest-service/internal/dimension"
	"ingest-service/internal/frame"
	"ingest-service/internal/models"
	"ingest-service/internal/util"
)

// Staging is the run-scoped buffer folder artifacts pass through between
// computation and merge.
type Staging interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context) error
	Prefix() string
}

// Merger loads one staged artifact into its warehouse table.
type Merger interface {
	MergeArtifact(ctx context.Context, art models.StagingArtifact, data []byte) (int, error)
}

// Merge order. Dimensions land before the rows that reference them.
var mergeOrder = []string{
	"time_dimension",
	"current_product_dimension",
	"history_product_dimension",
	"transaction_records",
	"fact_transaction_dimension",
}

var artifactKeys = map[string][]string{
	"time_dimension":             {"time_id"},
	"current_product_dimension":  {"product_id"},
	"history_product_dimension":  {"product_id", "record_version"},
	"transaction_records":        {"receipt_no"},
	"fact_transaction_dimension": {"receipt_no", "date", "product_id"},
}

// Fact columns are taken from whatever the batch carries, so the set is
// gated against the warehouse table shape. Anything else is dropped with
// a warning instead of failing the merge.
var factAllowedColumns = map[string]bool{
	"receipt_no": true, "date": true, "product_id": true, "time_id": true,
	"product_name": true, "qty": true, "price": true, "line_total": true,
	"net_total": true, "total": true, "discount": true, "take_out": true,
	"time_product": true, "date_time_product": true, "net_total_product": true,
}

// factPriorityColumns lead the fact artifact; remaining batch columns
// follow in their existing order.
var factPriorityColumns = []string{
	"Date", "time_id", "Receipt No", "Product ID", "Product Name",
	"Qty", "Price", "Line Total", "Net Total",
}

type Loader struct {
	merger Merger
	logger *zap.Logger
}

func New(merger Merger) *Loader {
	return &Loader{merger: merger, logger: util.GetLogger()}
}

// Run stages the five artifacts and merges them. On success the staging
// folder is deleted; on a merge failure it is retained for inspection and
// the error propagates. Returns merged row counts per table.
func (l *Loader) Run(ctx context.Context, combined *frame.Frame, dims *dimension.Result, staging Staging) (map[string]int, error) {
	if combined == nil || combined.Len() == 0 {
		l.logger.Warn("Combined table is empty, no warehouse writes performed")
		return nil, nil
	}

	frames := make(map[string]*frame.Frame, len(mergeOrder))

	if combined.HasColumn("Date") {
		frames["time_dimension"] = TimeDimension()
	}

	parentSKUs := map[string]string{}
	if dims != nil {
		frames["current_product_dimension"] = productFrame(dims.Current)
		frames["history_product_dimension"] = productFrame(dims.History)
		for _, v := range dims.Current {
			parentSKUs[v.ProductID] = v.ParentSKU
		}
	}

	lines := l.prepareLines(combined)
	frames["transaction_records"] = bridgeFrame(lines, parentSKUs)
	frames["fact_transaction_dimension"] = l.factFrame(lines)

	var artifacts []models.StagingArtifact
	for _, table := range mergeOrder {
		f := frames[table]
		if f == nil || f.Len() == 0 {
			continue
		}
		keys := artifactKeys[table]
		f.Dedupe(keys, true)

		data, err := f.EncodeCSV()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", table, err)
		}
		name := table + ".csv"
		path, err := staging.Put(ctx, name, data)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", table, err)
		}
		l.logger.Info("Staged artifact",
			zap.String("object", path), zap.Int("rows", f.Len()))
		artifacts = append(artifacts, models.StagingArtifact{
			Name:       name,
			Table:      table,
			Columns:    f.Columns(),
			KeyColumns: keys,
			Path:       path,
			RowCount:   f.Len(),
		})
	}

	merged, err := l.mergeAll(ctx, artifacts, staging)
	if err != nil {
		l.logger.Error("Bulk load failed, buffer retained for inspection",
			zap.String("prefix", staging.Prefix()), zap.Error(err))
		return merged, err
	}

	l.logger.Info("Bulk upsert complete, cleaning buffer")
	if err := staging.Delete(ctx); err != nil {
		return merged, fmt.Errorf("clear staging buffer: %w", err)
	}
	l.logger.Info("Buffer cleared", zap.String("prefix", staging.Prefix()))
	return merged, nil
}

func (l *Loader) mergeAll(ctx context.Context, artifacts []models.StagingArtifact, staging Staging) (map[string]int, error) {
	merged := make(map[string]int, len(artifacts))
	for _, art := range artifacts {
		n, err := l.mergeOne(ctx, art, staging)
		if err != nil {
			util.MergeFailuresTotal.WithLabelValues(art.Table).Inc()
			return merged, err
		}
		merged[art.Table] = n
		util.RowsStagedTotal.WithLabelValues(art.Table).Add(float64(n))
		l.logger.Info("Merged artifact",
			zap.String("table", art.Table), zap.Int("rows", n))
	}
	return merged, nil
}

func (l *Loader) mergeOne(ctx context.Context, art models.StagingArtifact, staging Staging) (int, error) {
	ctx, span := util.StartSpan(ctx, "merge."+art.Table)
	defer span.End()

	data, err := staging.Get(ctx, art.Name)
	if err != nil {
		return 0, fmt.Errorf("read staged %s: %w", art.Name, err)
	}
	return l.merger.MergeArtifact(ctx, art, data)
}

// prepareLines shapes the combined table into the fact layout: a time_id
// bucket derived from Time, priority columns first, Time and DateTime
// dropped, and full-row duplicates removed.
func (l *Loader) prepareLines(combined *frame.Frame) *frame.Frame {
	work := combined.Select(combined.Columns()...)

	hasTime := work.HasColumn("Time")
	work.AddColumn("time_id", func(i int) string {
		if !hasTime {
			return ""
		}
		h, m, ok := frame.ParseClock(work.Value(i, "Time"))
		if !ok {
			return ""
		}
		return fmt.Sprintf("H%02dM%02d", h, m)
	})

	var final []string
	for _, c := range factPriorityColumns {
		if work.HasColumn(c) {
			final = append(final, c)
		}
	}
	seen := make(map[string]bool, len(final))
	for _, c := range final {
		seen[c] = true
	}
	for _, c := range work.Columns() {
		if !seen[c] && c != "Time" && c != "DateTime" {
			final = append(final, c)
		}
	}

	lines := work.Select(final...)
	lines.Dedupe(nil, false)
	return lines
}

// factFrame filters the prepared lines down to the publishable months and
// warehouse columns. The most recent calendar month is withheld because it
// is still accumulating.
func (l *Loader) factFrame(lines *frame.Frame) *frame.Frame {
	fact := lines.Select(lines.Columns()...)

	if fact.HasColumn("Date") {
		latest := ""
		for i := 0; i < fact.Len(); i++ {
			if m, ok := dateMonth(fact.Value(i, "Date")); ok && m > latest {
				latest = m
			}
		}
		if latest != "" {
			before := fact.Len()
			fact.Filter(func(i int) bool {
				m, ok := dateMonth(fact.Value(i, "Date"))
				return !ok || m != latest
			})
			l.logger.Info("Withheld in-progress month from fact table",
				zap.String("month", latest), zap.Int("rows", before-fact.Len()))
		}
	}

	renameSnake(fact)
	for _, col := range fact.Columns() {
		if !factAllowedColumns[col] {
			l.logger.Warn("Dropping unexpected fact column", zap.String("column", col))
			fact.Drop(col)
		}
	}
	return fact
}

// bridgeFrame rolls the prepared lines up to one row per receipt with the
// comma-joined parent SKUs of its items, for basket mining. Products with
// no dimension row fall back to their raw id.
func bridgeFrame(lines *frame.Frame, parentSKUs map[string]string) *frame.Frame {
	out := frame.New("receipt_no", "sku")
	if !lines.HasColumns("Receipt No", "Product ID") {
		return out
	}

	skus := make(map[string][]string)
	for i := 0; i < lines.Len(); i++ {
		receipt := lines.Value(i, "Receipt No")
		pid := lines.Value(i, "Product ID")
		sku, ok := parentSKUs[pid]
		if !ok {
			sku = pid
		}
		skus[receipt] = append(skus[receipt], sku)
	}

	receipts := make([]string, 0, len(skus))
	for r := range skus {
		receipts = append(receipts, r)
	}
	sort.Strings(receipts)
	for _, r := range receipts {
		out.Append([]string{r, strings.Join(skus[r], ",")})
	}
	return out
}

// productFrame serializes dimension rows in the warehouse column order.
func productFrame(rows []models.ProductVersion) *frame.Frame {
	f := frame.New("product_id", "product_name", "price", "product_cost",
		"last_transaction_datetime", "record_version", "is_current",
		"parent_sku", "category")
	for _, v := range rows {
		f.Append([]string{
			v.ProductID,
			v.ProductName,
			nullDecimalCell(v.Price),
			nullDecimalCell(v.ProductCost),
			timestampCell(v.LastTransactionAt),
			strconv.Itoa(v.RecordVersion),
			boolCell(v.IsCurrent),
			v.ParentSKU,
			v.Category,
		})
	}
	return f
}

// dateMonth extracts the YYYY-MM bucket of an ISO date cell.
func dateMonth(s string) (string, bool) {
	t, ok := frame.ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

func nullDecimalCell(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func timestampCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return frame.FormatDateTime(*t)
}

func boolCell(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

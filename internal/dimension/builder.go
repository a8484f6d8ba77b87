package dimension

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ingest-service/internal/frame"
	"ingest-service/internal/models"
	"ingest-service/internal/util"
)

// HistorySource reports whether stored product history exists and fetches
// the versions kept for a set of products.
type HistorySource interface {
	HasProductHistory(ctx context.Context) (bool, error)
	FetchProductHistory(ctx context.Context, productIDs []string) ([]models.ProductVersion, error)
}

// Build modes
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Result carries the rows both dimension artifacts are staged from.
// Current holds exactly one row per product; History holds the rows to be
// upserted into the version history, which in incremental mode includes
// the demoted prior version of re-priced products.
type Result struct {
	Mode    string
	Current []models.ProductVersion
	History []models.ProductVersion
}

type Builder struct {
	hist    HistorySource
	costing Costing
	logger  *zap.Logger
}

func NewBuilder(hist HistorySource, costing Costing) *Builder {
	return &Builder{hist: hist, costing: costing, logger: util.GetLogger()}
}

// Run builds the product dimension from the combined table. The mode is
// chosen by warehouse state: no stored history means a full rebuild,
// otherwise the batch is reconciled against the stored versions.
func (b *Builder) Run(ctx context.Context, combined *frame.Frame) (*Result, error) {
	has, err := b.hist.HasProductHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("check product history: %w", err)
	}
	if !has {
		b.logger.Info("No stored product history, running full dimension rebuild")
		current, history := b.buildFull(combined)
		return &Result{Mode: ModeFull, Current: current, History: history}, nil
	}

	b.logger.Info("Stored product history found, reconciling incrementally")
	current, history, err := b.buildIncremental(ctx, combined)
	if err != nil {
		return nil, err
	}
	return &Result{Mode: ModeIncremental, Current: current, History: history}, nil
}

// buildFull derives the whole dimension from the batch alone. Current rows
// are the last-seen state per product, all at record_version 1. History
// rows are the distinct (product, name, price) states in first-appearance
// order, versioned per product, with only the newest state current.
func (b *Builder) buildFull(f *frame.Frame) (current, history []models.ProductVersion) {
	if !f.HasColumns("Product ID", "Product Name") {
		b.logger.Warn("Product columns missing, skipping dimension build")
		return nil, nil
	}
	timeCol := pickTimeColumn(f)
	hasPrice := f.HasColumn("Price")

	type lastState struct {
		name  string
		price decimal.NullDecimal
		at    *time.Time
	}
	last := make(map[string]lastState)
	versions := make(map[string]int)
	type stateKey struct{ pid, name, price string }
	seen := make(map[stateKey]bool)

	for i := 0; i < f.Len(); i++ {
		pid := strings.TrimSpace(f.Value(i, "Product ID"))
		if pid == "" {
			continue
		}
		name := f.Value(i, "Product Name")
		var price decimal.NullDecimal
		if hasPrice {
			price = parsePrice(f.Value(i, "Price"))
		}
		at := parseWhen(f.Value(i, timeCol))

		last[pid] = lastState{name: name, price: price, at: at}

		key := stateKey{pid: pid, name: name, price: priceKey(price)}
		if seen[key] {
			continue
		}
		seen[key] = true
		versions[pid]++
		history = append(history, b.newVersion(pid, name, price, versions[pid], false, at))
	}

	// only the newest state of each product is current
	for i := range history {
		history[i].IsCurrent = history[i].RecordVersion == versions[history[i].ProductID]
	}

	for _, pid := range sortedKeys(last) {
		st := last[pid]
		current = append(current, b.newVersion(pid, st.name, st.price, 1, true, st.at))
	}

	b.logger.Info("Full dimension rebuild complete",
		zap.Int("products", len(current)), zap.Int("history_rows", len(history)))
	return current, history
}

// buildIncremental reconciles the batch-latest state of each product with
// its stored history. Unchanged prices only advance the last transaction
// timestamp; changed prices demote the stored current row and append the
// next version.
func (b *Builder) buildIncremental(ctx context.Context, f *frame.Frame) (current, history []models.ProductVersion, err error) {
	if !f.HasColumns("Product ID", "Product Name", "Price") {
		b.logger.Warn("Product columns missing, skipping incremental dimension build")
		return nil, nil, nil
	}
	timeCol := pickTimeColumn(f)

	type batchState struct {
		name  string
		price decimal.Decimal
		at    *time.Time
	}
	latest := make(map[string]batchState)
	for i := 0; i < f.Len(); i++ {
		pid := strings.TrimSpace(f.Value(i, "Product ID"))
		if pid == "" {
			continue
		}
		price := parsePrice(f.Value(i, "Price"))
		if !price.Valid {
			continue
		}
		st := batchState{
			name:  f.Value(i, "Product Name"),
			price: price.Decimal,
			at:    parseWhen(f.Value(i, timeCol)),
		}
		prev, ok := latest[pid]
		if !ok || laterOrSame(st.at, prev.at) {
			latest[pid] = st
		}
	}
	if len(latest) == 0 {
		return nil, nil, nil
	}

	pids := sortedKeys(latest)
	stored, err := b.hist.FetchProductHistory(ctx, pids)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch product history: %w", err)
	}
	byProduct := make(map[string][]models.ProductVersion)
	for _, v := range stored {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}

	var newProducts, rolled, refreshed int
	for _, pid := range pids {
		batch := latest[pid]
		versions := byProduct[pid]
		price := decimal.NullDecimal{Decimal: batch.price, Valid: true}

		// brand new product
		if len(versions) == 0 {
			row := b.newVersion(pid, batch.name, price, 1, true, batch.at)
			history = append(history, row)
			current = append(current, row)
			newProducts++
			continue
		}

		cur := currentVersion(versions)
		maxRV := maxVersion(versions)

		// price unchanged: keep the version, advance the timestamp when
		// the batch saw a newer transaction
		if cur.Price.Valid && batch.price.Equal(cur.Price.Decimal) {
			at := cur.LastTransactionAt
			if batch.at != nil && (at == nil || batch.at.After(*at)) {
				at = batch.at
			}
			kept := cur
			kept.LastTransactionAt = at
			kept.IsCurrent = true
			history = append(history, kept)

			kept.ProductName = batch.name
			current = append(current, kept)
			refreshed++
			continue
		}

		// price changed: demote the stored current, append the next version
		demoted := cur
		demoted.IsCurrent = false
		history = append(history, demoted)

		next := b.newVersion(pid, batch.name, price, maxRV+1, true, batch.at)
		history = append(history, next)
		current = append(current, next)
		rolled++
	}

	b.logger.Info("Incremental dimension reconciliation complete",
		zap.Int("new_products", newProducts),
		zap.Int("version_rollovers", rolled),
		zap.Int("timestamp_refreshes", refreshed))
	return current, history, nil
}

// newVersion stamps the derived attributes onto a dimension row.
func (b *Builder) newVersion(pid, name string, price decimal.NullDecimal, version int, isCurrent bool, at *time.Time) models.ProductVersion {
	category := Category(name, pid)
	return models.ProductVersion{
		ProductID:         pid,
		ProductName:       name,
		Price:             price,
		ProductCost:       productCost(b.costing, name, category, price),
		LastTransactionAt: at,
		RecordVersion:     version,
		IsCurrent:         isCurrent,
		ParentSKU:         ParentSKU(name),
		Category:          category,
	}
}

// currentVersion returns the stored row flagged current, falling back to
// the highest version when the flag is missing.
func currentVersion(versions []models.ProductVersion) models.ProductVersion {
	for _, v := range versions {
		if v.IsCurrent {
			return v
		}
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if v.RecordVersion > best.RecordVersion {
			best = v
		}
	}
	return best
}

func maxVersion(versions []models.ProductVersion) int {
	max := 0
	for _, v := range versions {
		if v.RecordVersion > max {
			max = v.RecordVersion
		}
	}
	return max
}

// laterOrSame reports whether a beats b as the batch-latest candidate.
// Dated rows beat undated ones; among dated rows the newer wins with ties
// going to the later row; among undated rows the later row wins.
func laterOrSame(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return !a.Before(*b)
	}
}

func pickTimeColumn(f *frame.Frame) string {
	if f.HasColumn("DateTime") {
		return "DateTime"
	}
	if f.HasColumn("Date") {
		return "Date"
	}
	return ""
}

// parseWhen reads a timestamp cell, accepting date-only values.
func parseWhen(s string) *time.Time {
	if t, ok := frame.ParseDateTime(s); ok {
		return &t
	}
	if t, ok := frame.ParseDate(s); ok {
		return &t
	}
	return nil
}

func parsePrice(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func priceKey(p decimal.NullDecimal) string {
	if !p.Valid {
		return ""
	}
	return p.Decimal.String()
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

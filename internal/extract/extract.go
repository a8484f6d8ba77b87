// Package extract reads raw POS export files from the landing area and
// produces one canonical table per export category. Exports arrive with
// banner rows above the real header and inconsistent column sets between
// files, so the stage sniffs the header, unions the columns and pads what
// a file lacks.
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ingest-service/internal/frame"
	"ingest-service/internal/util"
)

// Source lists and fetches raw batch files from the landing area.
type Source interface {
	ListBatchFiles(ctx context.Context, prefix string) ([]string, error)
	GetLandingObject(ctx context.Context, name string) ([]byte, error)
}

// Header sentinels per export category. A leading row containing any of
// these cell values (case-insensitively) is taken as the header row.
var (
	salesSentinels   = []string{"date", "receipt", "time"}
	productSentinels = []string{"date", "receipt", "product", "item"}
)

const (
	headerScanRows    = 10
	headerFallbackRow = 4
)

type Extractor struct {
	src           Source
	salesPrefix   string
	productPrefix string
	logger        *zap.Logger
}

func New(src Source, salesPrefix, productPrefix string) *Extractor {
	return &Extractor{
		src:           src,
		salesPrefix:   salesPrefix,
		productPrefix: productPrefix,
		logger:        util.GetLogger(),
	}
}

// Run extracts both export categories and returns the canonical sales and
// sales-by-product tables. Unreadable files and unparsable cells degrade to
// warnings and nulls; only the object store failing is an error.
func (e *Extractor) Run(ctx context.Context) (*frame.Frame, *frame.Frame, error) {
	sales, err := e.extractCategory(ctx, e.salesPrefix, salesSentinels)
	if err != nil {
		return nil, nil, err
	}
	product, err := e.extractCategory(ctx, e.productPrefix, productSentinels)
	if err != nil {
		return nil, nil, err
	}

	normalizeDates(sales)
	normalizeDates(product)
	normalizeTakeOut(product)

	e.logger.Info("Extract completed",
		zap.Int("sales_rows", sales.Len()),
		zap.Int("product_rows", product.Len()))
	return sales, product, nil
}

func (e *Extractor) extractCategory(ctx context.Context, prefix string, sentinels []string) (*frame.Frame, error) {
	names, err := e.src.ListBatchFiles(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list batch files under %s: %w", prefix, err)
	}

	type fileRange struct {
		file     string
		min, max time.Time
	}
	var (
		frames []*frame.Frame
		ranges []fileRange
	)
	for _, name := range names {
		base := path.Base(name)
		data, err := e.src.GetLandingObject(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("fetch batch file %s: %w", name, err)
		}
		rows, err := readTable(base, data)
		if err != nil {
			e.logger.Warn("Skipping unreadable batch file", zap.String("file", base), zap.Error(err))
			continue
		}
		f := e.promoteHeader(rows, sentinels, base)
		frames = append(frames, f)

		if min, max, ok := dateRange(f); ok {
			ranges = append(ranges, fileRange{file: base, min: min, max: max})
			e.logger.Info("Batch file date range",
				zap.String("file", base),
				zap.String("from", frame.FormatDate(min)),
				zap.String("to", frame.FormatDate(max)))
		}
	}

	// Overlapping date ranges between files usually mean the same export
	// was uploaded twice. Diagnostic only; dedup later keeps one copy.
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			r1, r2 := ranges[i], ranges[j]
			if !r1.min.After(r2.max) && !r2.min.After(r1.max) {
				start, end := r1.min, r1.max
				if r2.min.After(start) {
					start = r2.min
				}
				if r2.max.Before(end) {
					end = r2.max
				}
				e.logger.Warn("Date range overlap between batch files",
					zap.String("file1", r1.file),
					zap.String("file2", r2.file),
					zap.String("overlap_from", frame.FormatDate(start)),
					zap.String("overlap_to", frame.FormatDate(end)))
			}
		}
	}

	return frame.Union(frames...), nil
}

// readTable parses a raw export into rows of cells, by file extension.
func readTable(name string, data []byte) ([][]string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		wb, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer wb.Close()
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		rows, err := wb.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
		return rows, nil
	case ".csv":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported file type %s", path.Ext(name))
	}
}

// promoteHeader locates the header row, promotes it to column names, drops
// everything above it and any column with a blank header.
func (e *Extractor) promoteHeader(rows [][]string, sentinels []string, file string) *frame.Frame {
	headerRow := -1
	scan := len(rows)
	if scan > headerScanRows {
		scan = headerScanRows
	}
scanning:
	for i := 0; i < scan; i++ {
		for _, cell := range rows[i] {
			v := strings.ToLower(strings.TrimSpace(cell))
			for _, s := range sentinels {
				if v == s {
					headerRow = i
					break scanning
				}
			}
		}
	}
	if headerRow == -1 {
		headerRow = headerFallbackRow
	}
	if headerRow >= len(rows) {
		e.logger.Warn("Batch file too short to contain a header row",
			zap.String("file", file), zap.Int("rows", len(rows)))
		return frame.New()
	}

	var cols []string
	keep := make([]int, 0, len(rows[headerRow]))
	seen := make(map[string]bool)
	for j, cell := range rows[headerRow] {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		if seen[name] {
			e.logger.Debug("Dropping duplicate column", zap.String("file", file), zap.String("column", name))
			continue
		}
		seen[name] = true
		cols = append(cols, name)
		keep = append(keep, j)
	}

	f := frame.New(cols...)
	for _, raw := range rows[headerRow+1:] {
		row := make([]string, len(keep))
		for i, j := range keep {
			if j < len(raw) {
				row[i] = strings.TrimSpace(raw[j])
			}
		}
		f.Append(row)
	}
	return f
}

// dateRange returns the min and max parsable Date cell of a file table.
func dateRange(f *frame.Frame) (time.Time, time.Time, bool) {
	if !f.HasColumn("Date") {
		return time.Time{}, time.Time{}, false
	}
	var min, max time.Time
	found := false
	for i := 0; i < f.Len(); i++ {
		d, ok := frame.ParseDate(f.Value(i, "Date"))
		if !ok {
			continue
		}
		if !found || d.Before(min) {
			min = d
		}
		if !found || d.After(max) {
			max = d
		}
		found = true
	}
	return min, max, found
}

// normalizeDates rewrites every Date cell in canonical ISO form, blanking
// cells that do not parse.
func normalizeDates(f *frame.Frame) {
	if !f.HasColumn("Date") {
		return
	}
	for i := 0; i < f.Len(); i++ {
		if d, ok := frame.ParseDate(f.Value(i, "Date")); ok {
			f.Set(i, "Date", frame.FormatDate(d))
		} else {
			f.Set(i, "Date", "")
		}
	}
}

// normalizeTakeOut maps the flag to literal True/False strings so the
// column serializes consistently downstream.
func normalizeTakeOut(f *frame.Frame) {
	if !f.HasColumn("Take Out") {
		return
	}
	for i := 0; i < f.Len(); i++ {
		v := f.Value(i, "Take Out")
		switch {
		case strings.EqualFold(strings.TrimSpace(v), "Y"):
			f.Set(i, "Take Out", "True")
		case strings.TrimSpace(v) == "":
			f.Set(i, "Take Out", "False")
		}
	}
}

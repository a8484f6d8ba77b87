package warehouse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"ingest-service/internal/models"
)

// MergeArtifact loads a staged CSV into its warehouse table: the rows are
// copied into a temp table shaped like the target, then upserted in one
// statement keyed on the artifact's key columns. Empty cells become NULL.
// Returns the number of rows merged.
func (s *Store) MergeArtifact(ctx context.Context, art models.StagingArtifact, data []byte) (int, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s csv: %w", art.Name, err)
	}
	if len(records) < 2 {
		return 0, nil
	}
	rows := records[1:]

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tempTable := fmt.Sprintf("temp_%s_%d", art.Table, time.Now().UnixMilli())
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS)",
		pq.QuoteIdentifier(tempTable), pq.QuoteIdentifier(art.Table)))
	if err != nil {
		return 0, fmt.Errorf("failed to create temp table for %s: %w", art.Table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(tempTable, art.Columns...))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy for %s: %w", art.Table, err)
	}
	for _, rec := range rows {
		args := make([]interface{}, len(rec))
		for j, cell := range rec {
			if cell == "" {
				args[j] = nil
			} else {
				args[j] = cell
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to copy row into %s: %w", art.Table, err)
		}
	}
	// flush the copy buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush copy into %s: %w", art.Table, err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close copy into %s: %w", art.Table, err)
	}

	if _, err := tx.ExecContext(ctx, buildUpsertSQL(art.Table, tempTable, art.Columns, art.KeyColumns)); err != nil {
		return 0, fmt.Errorf("failed to upsert %s: %w", art.Table, err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+pq.QuoteIdentifier(tempTable)); err != nil {
		return 0, fmt.Errorf("failed to drop temp table for %s: %w", art.Table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s merge: %w", art.Table, err)
	}
	return len(rows), nil
}

// buildUpsertSQL renders the temp-to-target statement. Key columns become
// the conflict target; when every column is a key there is nothing to
// update, and without keys the insert is unconditional.
func buildUpsertSQL(table, tempTable string, columns, keyColumns []string) string {
	collist := quoteJoin(columns)
	target := pq.QuoteIdentifier(table)
	source := pq.QuoteIdentifier(tempTable)

	if len(keyColumns) == 0 {
		return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			target, collist, collist, source)
	}

	keys := make(map[string]bool, len(keyColumns))
	for _, k := range keyColumns {
		keys[k] = true
	}
	var updates []string
	for _, c := range columns {
		if !keys[c] {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s",
				pq.QuoteIdentifier(c), pq.QuoteIdentifier(c)))
		}
	}

	if len(updates) == 0 {
		return fmt.Sprintf(
			"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING",
			target, collist, collist, source, quoteJoin(keyColumns))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		target, collist, collist, source, quoteJoin(keyColumns), strings.Join(updates, ", "))
}

func quoteJoin(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

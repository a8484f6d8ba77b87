package load

import (
	"regexp"
	"strings"

	"ingest-service/internal/frame"
)

var (
	nonAlnumRun = regexp.MustCompile(`[^0-9a-zA-Z]+`)
	camelBreak  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	underRun    = regexp.MustCompile(`_+`)
)

// SnakeCase converts an export header to a warehouse column name:
// "Receipt No" to receipt_no, "DateTime" to date_time, "TM#" to tm.
func SnakeCase(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	name = nonAlnumRun.ReplaceAllString(name, "_")
	name = camelBreak.ReplaceAllString(name, "${1}_${2}")
	name = underRun.ReplaceAllString(name, "_")
	return strings.ToLower(strings.Trim(name, "_"))
}

func renameSnake(f *frame.Frame) {
	for _, col := range f.Columns() {
		f.Rename(col, SnakeCase(col))
	}
}

package frame

import (
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for raw export cells. POS exports are inconsistent
// between ISO and US-style dates, and clock cells switch between 24h and
// AM/PM depending on the register that produced the file.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"01-02-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04:05 PM",
	"2006-01-02 3:04 PM",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 3:04:05 PM",
	"01/02/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
}

// ParseDate parses a date cell. Bare 5-digit numbers are treated as Excel
// serial dates, which unformatted spreadsheet cells surface as.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 20000 && n <= 80000 {
		return excelEpoch.AddDate(0, 0, n), true
	}
	return time.Time{}, false
}

// excelEpoch is day zero of the 1900 date system, offset for the
// spreadsheet leap-year quirk so that serial 25569 is 1970-01-01.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDateTime parses a combined date and time cell.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClock parses a time-of-day cell into hour and minute. Both "HH:MM"
// style values (with optional seconds or AM/PM) and bare 4-digit "HHMM"
// values are accepted.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	if len(s) == 4 {
		if n, err := strconv.Atoi(s); err == nil {
			h, m := n/100, n%100
			if h >= 0 && h <= 23 && m >= 0 && m <= 59 {
				return h, m, true
			}
		}
	}
	return 0, 0, false
}

// FormatDate renders a date cell in the canonical ISO form.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDateTime renders a timestamp cell in the canonical warehouse form.
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// Package dates converts between the canonical YYYY-MM-DD storage form
// and the YYYY.MM.DD display form shown to users.
package dates

import (
	"strconv"
	"strings"
	"time"
)

const (
	minYear = 1900
	maxYear = 2100
)

// Parse normalizes a user-typed date into the canonical YYYY-MM-DD form.
// `.`, `-` and `/` are accepted as separators; any other character is
// stripped. A false return means the input is not a real calendar date;
// callers decide what to do with the previously committed value. Empty
// input is a caller-level "clear the field" action and never reaches here
// as a success case.
func Parse(input string) (string, bool) {
	cleaned := strings.NewReplacer("-", ".", "/", ".").Replace(input)
	cleaned = strings.Map(func(r rune) rune {
		if r == '.' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, cleaned)

	parts := strings.Split(cleaned, ".")
	if len(parts) != 3 {
		return "", false
	}
	if len(parts[0]) != 4 || len(parts[1]) > 2 || len(parts[2]) > 2 {
		return "", false
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", false
	}

	if year < minYear || year > maxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}

	// time.Date normalizes out-of-range days (Feb 30 becomes Mar 1/2), so
	// the reconstructed date must round-trip exactly to be accepted.
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return "", false
	}

	return d.Format("2006-01-02"), true
}

// FormatDisplay renders a stored canonical date in the dotted display form.
// Anything that does not look like YYYY-MM-DD passes through unchanged so
// malformed stored data stays visible instead of disappearing.
func FormatDisplay(iso string) string {
	if iso == "" {
		return ""
	}
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return strings.Join(parts, ".")
}

// Today returns the current date in the canonical storage form.
func Today() string {
	return time.Now().Format("2006-01-02")
}

package sqlite

import (
	"regexp"
	"strconv"
	"time"
)

var (
	lastRe    = regexp.MustCompile(`^last_(\d+)_(day|week|month|quarter|year)s?$`)
	quarterRe = regexp.MustCompile(`^Q([1-4])_(\d{4})$`)
	yearRe    = regexp.MustCompile(`^(\d{4})$`)
)

// WindowRange resolves a time window token to a date range. Relative
// windows anchor on latest rather than the wall clock so a fixed corpus
// resolves the same way on every run. Unrecognized tokens return zero
// times, which Series treats as unbounded.
func WindowRange(window string, latest time.Time) (time.Time, time.Time) {
	if m := lastRe.FindStringSubmatch(window); m != nil {
		n, _ := strconv.Atoi(m[1])
		var from time.Time
		switch m[2] {
		case "day":
			from = latest.AddDate(0, 0, -n)
		case "week":
			from = latest.AddDate(0, 0, -7*n)
		case "month":
			from = latest.AddDate(0, -n, 0)
		case "quarter":
			from = latest.AddDate(0, -3*n, 0)
		case "year":
			from = latest.AddDate(-n, 0, 0)
		}
		return from, latest
	}

	if m := quarterRe.FindStringSubmatch(window); m != nil {
		q, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		startMonth := time.Month((q-1)*3 + 1)
		from := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 3, -1)
		return from, to
	}

	if m := yearRe.FindStringSubmatch(window); m != nil {
		year, _ := strconv.Atoi(m[1])
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		return from, to
	}

	return time.Time{}, time.Time{}
}

package core

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Date is a calendar date with no time component. The zero value is the zero
// date. Dates are normalized to midnight UTC so they compare and hash
// consistently.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// After and Before are inherited from time.Time.

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal: %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysInMonth returns the number of days in the given month, accounting for
// leap years.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateRange returns every date from start to end inclusive, ascending.
func DateRange(start, end Date) ([]Date, error) {
	if start.After(end.Time) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}
	out := make([]Date, 0, int(end.Sub(start.Time).Hours()/24)+1)
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out, nil
}

// DateSet is a set of calendar dates keyed by their ISO form.
type DateSet map[string]struct{}

// NewDateSet builds a set from the given dates.
func NewDateSet(dates ...Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

func (s DateSet) Add(d Date)           { s[d.String()] = struct{}{} }
func (s DateSet) Contains(d Date) bool { _, ok := s[d.String()]; return ok }

// CalculateStreaks computes the current and longest streaks over allDates.
// allDates is the universe of dates to evaluate and is sorted ascending
// before use. A date absent from completed breaks any streak: no record means
// not completed. The current streak counts backward from the last date until
// the first miss. Both values are zero for an empty universe.
func CalculateStreaks(completed DateSet, allDates []Date) (current, longest int) {
	if len(allDates) == 0 {
		return 0, 0
	}

	sorted := make([]Date, len(allDates))
	copy(sorted, allDates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j].Time) })

	run := 0
	for _, d := range sorted {
		if completed.Contains(d) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		if !completed.Contains(sorted[i]) {
			break
		}
		current++
	}

	return current, longest
}

// CompletionRate returns completedDays/totalDays rounded to 4 decimal places.
// A zero-day range yields exactly 0.0 rather than a division error.
func CompletionRate(completedDays, totalDays int) float64 {
	if totalDays == 0 {
		return 0.0
	}
	return math.Round(float64(completedDays)/float64(totalDays)*10000) / 10000
}

/*
period.go - Calendar date ranges and range filtering

PURPOSE:
  A DateRange is a pair of YYYY-MM-DD bounds, either of which may be empty.
  Every list view filters through FilterByDateRange, and every default
  range comes from the month helpers here.

KEY CONCEPTS:
  - Both bounds are inclusive
  - An empty bound is unbounded on that side
  - Once any bound is set, a record whose date cannot be normalized is
    excluded; with no bounds every record passes

EXAMPLE:
  r := generic.PreviousMonthRange(time.Now())
  recent := generic.FilterByDateRange(txs, r.From, r.To, func(t finance.Transaction) any {
      return t.Date
  })

SEE ALSO:
  - time.go: NormalizeDate
  - aggregate.go: BucketByMonth uses the same bounds
*/
package generic

import (
	"strings"
	"time"
)

// =============================================================================
// DATE RANGE
// =============================================================================

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MonthRange bounds the first and last day of a calendar month.
func MonthRange(year int, month time.Month) DateRange {
	return DateRange{
		From: StartOfMonth(year, month).Format(DateLayout),
		To:   EndOfMonth(year, month).Format(DateLayout),
	}
}

func ThisMonthRange(now time.Time) DateRange {
	return MonthRange(now.Year(), now.Month())
}

// PreviousMonthRange is the default filter for every list view.
func PreviousMonthRange(now time.Time) DateRange {
	prev := StartOfMonth(now.Year(), now.Month()).AddDate(0, -1, 0)
	return MonthRange(prev.Year(), prev.Month())
}

// IsUnbounded is true when neither bound is set.
func (r DateRange) IsUnbounded() bool {
	return strings.TrimSpace(r.From) == "" && strings.TrimSpace(r.To) == ""
}

// Validate rejects unreadable bounds and ranges that end before they start.
func (r DateRange) Validate() error {
	from, to := strings.TrimSpace(r.From), strings.TrimSpace(r.To)
	if from != "" && NormalizeDate(from) == "" {
		return &ValidationError{Field: "from", Message: "unreadable date " + from}
	}
	if to != "" && NormalizeDate(to) == "" {
		return &ValidationError{Field: "to", Message: "unreadable date " + to}
	}
	if from != "" && to != "" && NormalizeDate(from) > NormalizeDate(to) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether the date falls inside the range.
func (r DateRange) Contains(date any) bool {
	if r.IsUnbounded() {
		return true
	}
	d := NormalizeDate(date)
	if d == "" {
		return false
	}
	if from := NormalizeDate(r.From); from != "" && d < from {
		return false
	}
	if to := NormalizeDate(r.To); to != "" && d > to {
		return false
	}
	return true
}

// FilterByDateRange keeps the items whose date falls in [from, to].
func FilterByDateRange[T any](items []T, from, to string, date func(T) any) []T {
	r := DateRange{From: from, To: to}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if r.Contains(date(item)) {
			out = append(out, item)
		}
	}
	return out
}

/*
aggregate.go - Month bucketing and grouped totals

PURPOSE:
  The dashboard and summary views never read stored totals; they derive
  everything from the raw record lists. This file holds the two shapes of
  derivation they need:

  BucketByMonth: one value per calendar month across a window, for charts
  GroupTotals:   one value per label (broker, project), sorted by label

MONTH WINDOW:
  - from..to inclusive, by calendar month
  - no bounds at all: the twelve months of the current year
  - only one bound: the window runs to the end (or from the start) of
    that bound's year
  - Labels are short month names ("Jan"). If the window crosses a year
    boundary every label carries a two-digit year ("Dec '23", "Jan '24").

FAILURE SEMANTICS:
  Aggregation never fails. A record with an unreadable date is skipped; a
  record whose month is outside the window is skipped; a malformed amount
  arrives here already coerced to zero by the caller's amount function.

SEE ALSO:
  - period.go: DateRange
  - finance/totals.go: Broker, project and monthly totals
*/
package generic

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTH BUCKETS
// =============================================================================

// MonthSeries holds parallel label/value arrays.
type MonthSeries struct {
	Keys   []string          `json:"keys"`
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

// Floats converts the values for charting.
func (s MonthSeries) Floats() []float64 {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		out[i] = v.InexactFloat64()
	}
	return out
}

// MaxWindowMonths bounds the months a dashboard range may cover.
const MaxWindowMonths = 120

// windowBounds resolves the first and last month a range covers. An empty
// bound takes the year boundary of the other one, or of now.
func windowBounds(r DateRange, now time.Time) (time.Time, time.Time) {
	from, okFrom := ParseDate(r.From)
	to, okTo := ParseDate(r.To)

	switch {
	case !okFrom && !okTo:
		from = StartOfMonth(now.Year(), time.January)
		to = StartOfMonth(now.Year(), time.December)
	case !okFrom:
		from = StartOfMonth(to.Year(), time.January)
	case !okTo:
		to = StartOfMonth(from.Year(), time.December)
	}
	return StartOfMonth(from.Year(), from.Month()), StartOfMonth(to.Year(), to.Month())
}

// WindowMonths counts the months MonthWindow returns without building them.
func WindowMonths(r DateRange, now time.Time) int {
	start, end := windowBounds(r, now)
	n := (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
	if n < 0 {
		return 0
	}
	return n
}

// ValidateWindow is DateRange.Validate plus the MaxWindowMonths cap.
func ValidateWindow(r DateRange, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if n := WindowMonths(r, now); n > MaxWindowMonths {
		return Invalid("to", fmt.Sprintf("range covers %d months, at most %d allowed", n, MaxWindowMonths))
	}
	return nil
}

// MonthWindow returns the first day of every month the range covers.
func MonthWindow(r DateRange, now time.Time) []time.Time {
	start, end := windowBounds(r, now)
	var months []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// BucketByMonth sums amount(record) into the month of date(record).
func BucketByMonth[T any](
	records []T,
	r DateRange,
	now time.Time,
	amount func(T) decimal.Decimal,
	date func(T) any,
) MonthSeries {
	months := MonthWindow(r, now)
	series := MonthSeries{
		Keys:   make([]string, len(months)),
		Labels: make([]string, len(months)),
		Values: make([]decimal.Decimal, len(months)),
	}
	if len(months) == 0 {
		return series
	}

	crossYear := months[0].Year() != months[len(months)-1].Year()
	index := make(map[string]int, len(months))
	for i, m := range months {
		key := m.Format("2006-01")
		index[key] = i
		series.Keys[i] = key
		series.Labels[i] = m.Format("Jan")
		if crossYear {
			series.Labels[i] += " '" + m.Format("06")
		}
		series.Values[i] = decimal.Zero
	}

	for _, rec := range records {
		d := NormalizeDate(date(rec))
		if d == "" {
			continue
		}
		i, ok := index[d[:7]]
		if !ok {
			continue
		}
		series.Values[i] = series.Values[i].Add(amount(rec))
	}
	return series
}

// =============================================================================
// GROUP TOTALS
// =============================================================================

type GroupTotal struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// GroupTotals sums amount(record) per label(record), sorted by label.
func GroupTotals[T any](records []T, label func(T) string, amount func(T) decimal.Decimal) []GroupTotal {
	byLabel := make(map[string]*GroupTotal)
	for _, rec := range records {
		l := label(rec)
		g, ok := byLabel[l]
		if !ok {
			g = &GroupTotal{Label: l, Total: decimal.Zero}
			byLabel[l] = g
		}
		g.Total = g.Total.Add(amount(rec))
		g.Count++
	}

	out := make([]GroupTotal, 0, len(byLabel))
	for _, g := range byLabel {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

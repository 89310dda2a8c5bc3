package generic

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format used by every record.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE VALUE - Tagged union over the shapes a stored date can take
// =============================================================================

// DateKind tags which representation a DateValue holds.
type DateKind int

const (
	DateUnset DateKind = iota
	DateISO
	DateEpochSeconds
	DateNative
)

// DateValue is a date as it was written by whichever path produced the
// record: an ISO-ish string, a {seconds} timestamp, or a native time.
type DateValue struct {
	Kind    DateKind
	ISO     string
	Seconds int64
	Time    time.Time
}

// ToDater is implemented by timestamp wrappers that can convert themselves.
type ToDater interface {
	ToDate() time.Time
}

func ISODate(s string) DateValue      { return DateValue{Kind: DateISO, ISO: s} }
func EpochDate(sec int64) DateValue   { return DateValue{Kind: DateEpochSeconds, Seconds: sec} }
func NativeDate(t time.Time) DateValue { return DateValue{Kind: DateNative, Time: t} }

// DateOf classifies an arbitrary value. Unknown shapes are DateUnset.
func DateOf(v any) DateValue {
	switch x := v.(type) {
	case DateValue:
		return x
	case *DateValue:
		if x == nil {
			return DateValue{}
		}
		return *x
	case string:
		return ISODate(x)
	case time.Time:
		if x.IsZero() {
			return DateValue{}
		}
		return NativeDate(x)
	case *time.Time:
		if x == nil || x.IsZero() {
			return DateValue{}
		}
		return NativeDate(*x)
	case ToDater:
		return NativeDate(x.ToDate())
	case map[string]any:
		for _, k := range []string{"seconds", "_seconds"} {
			if raw, ok := x[k]; ok {
				if n, ok := parseNumber(raw); ok {
					return EpochDate(int64(n))
				}
			}
		}
	}
	return DateValue{}
}

var isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 02 2006",
}

// Normalize returns the date as YYYY-MM-DD, or "" when it cannot be read.
func (d DateValue) Normalize() string {
	switch d.Kind {
	case DateISO:
		return normalizeString(d.ISO)
	case DateEpochSeconds:
		return time.Unix(d.Seconds, 0).UTC().Format(DateLayout)
	case DateNative:
		if d.Time.IsZero() {
			return ""
		}
		return d.Time.Format(DateLayout)
	}
	return ""
}

func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isoPrefix.MatchString(s) {
		day := s[:10]
		if _, err := time.Parse(DateLayout, day); err != nil {
			return ""
		}
		return day
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return ""
}

// NormalizeDate is DateOf(v).Normalize(). Apply it before any comparison.
func NormalizeDate(v any) string {
	return DateOf(v).Normalize()
}

// UnmarshalJSON accepts a string, a {"seconds": n} object or a bare number
// of epoch seconds.
func (d *DateValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*d = DateValue{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = ISODate(s)
	case b[0] == '{':
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		*d = DateOf(m)
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*d = EpochDate(int64(n))
	}
	return nil
}

// MarshalJSON always writes the normalized form.
func (d DateValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Normalize())
}

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================

// ParseDate reads a normalized date. ok is false for anything unparseable.
func ParseDate(v any) (time.Time, bool) {
	s := NormalizeDate(v)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

func StartOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

func DaysIn(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

// AddMonths moves t by n calendar months, clamping the day to the last day
// of the target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped is AddMonths over YYYY-MM-DD strings. Unparseable input
// is returned unchanged.
func AddMonthsClamped(date string, n int) string {
	t, ok := ParseDate(date)
	if !ok {
		return date
	}
	return AddMonths(t, n).Format(DateLayout)
}

// Instant returns the moment the value denotes. Date-only strings are
// midnight UTC. ok is false when nothing can be read.
func (d DateValue) Instant() (time.Time, bool) {
	switch d.Kind {
	case DateEpochSeconds:
		return time.Unix(d.Seconds, 0).UTC(), true
	case DateNative:
		return d.Time.UTC(), !d.Time.IsZero()
	case DateISO:
		s := strings.TrimSpace(d.ISO)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
		if t, ok := ParseDate(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

/*
Package generic provides the domain-agnostic core of the finance engine.

PURPOSE:
  This package contains the pieces every record type shares: loose numeric
  coercion, money formatting, calendar-date normalization, date-range
  filtering, the pending/approved approval state machine, month bucketing
  and running fund ledgers. Domain packages (finance, impactfund) build on
  it and never re-implement these rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - ToNumber / ToDecimal: tolerant coercion of stored values
  - FormatMoney: display rendering ("$120", "$120.50", "-")
  - NewID: opaque record identifiers

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, floats only at the display edge
  2. Tolerance: malformed stored values coerce to zero, they never panic
  3. Purity: every function here is deterministic given its inputs

USAGE:
  amount := generic.ToDecimal("1250.50")
  label := generic.FormatMoney(amount) // "$1250.50"

SEE ALSO:
  - time.go: DateValue and month arithmetic
  - approval.go: Approval state machine
  - aggregate.go: Month buckets and grouped totals
*/
package generic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NewID returns a fresh opaque record identifier.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// NUMERIC COERCION
// =============================================================================

// ToNumber parses v as a float64. Nil, non-numeric and non-finite input
// yield 0.
func ToNumber(v any) float64 {
	n, ok := parseNumber(v)
	if !ok {
		return 0
	}
	return n
}

// ToDecimal is ToNumber for money: strings and decimals keep their exact
// value, everything unparseable becomes zero.
func ToDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		return ToDecimal(string(x))
	}
	n, ok := parseNumber(v)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(n)
}

// IsFinite reports whether v coerces to a finite number.
func IsFinite(v any) bool {
	_, ok := parseNumber(v)
	return ok
}

func parseNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint64:
		n = float64(x)
	case bool:
		if x {
			n = 1
		}
	case decimal.Decimal:
		n = x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return 0, false
		}
		n = x.InexactFloat64()
	case json.Number:
		return parseNumber(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// =============================================================================
// MONEY
// =============================================================================

// FormatMoney renders a value for display: "$" plus an integer for whole
// amounts, two decimals otherwise, "-" when v is not a finite number.
func FormatMoney(v any) string {
	n, ok := parseNumber(v)
	if !ok {
		return "-"
	}
	if math.Abs(n-math.Trunc(n)) < 1e-9 {
		return fmt.Sprintf("$%d", int64(math.Round(n)))
	}
	return fmt.Sprintf("$%.2f", n)
}

// Round2 rounds to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SumDecimals adds up values.
func SumDecimals(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

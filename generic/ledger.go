/*
ledger.go - Derived running fund ledger

PURPOSE:
  A fund ledger is never stored. Its balance is recomputed from two lists:
  credits (derived from other records) and debits (recorded withdrawals).

  remaining = sum(credits) - sum(debits)

DEBIT CHECK:
  A debit must be positive and may not exceed what remains. When an
  existing debit is being edited, its current amount is given back to the
  balance before the check, so lowering or keeping a withdrawal never fails.

  Balance 10, existing withdrawal 4 (remaining 6):
    edit that withdrawal to 9  -> ok   (9 <= 6 + 4)
    edit that withdrawal to 11 -> InsufficientFundError

SEE ALSO:
  - impactfund/ledger.go: Impact Fund contributions and withdrawals
  - errors.go: InsufficientFundError
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// LEDGER SUMMARY
// =============================================================================

type LedgerSummary struct {
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// Summarize totals both sides of the ledger.
func Summarize(credits, debits []decimal.Decimal) LedgerSummary {
	c := SumDecimals(credits)
	d := SumDecimals(debits)
	return LedgerSummary{
		TotalCredits: c,
		TotalDebits:  d,
		Remaining:    c.Sub(d),
	}
}

// CheckDebit validates a debit against the remaining balance. reclaimed is
// the amount of the debit being replaced, or zero for a new one.
func CheckDebit(remaining, amount, reclaimed decimal.Decimal) error {
	if !amount.IsPositive() {
		return Invalid("amount", "must be greater than 0")
	}
	available := remaining.Add(reclaimed)
	if amount.GreaterThan(available) {
		return &InsufficientFundError{Available: available, Requested: amount}
	}
	return nil
}

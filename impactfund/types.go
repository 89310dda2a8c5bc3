/*
Package impactfund tracks the Impact Fund: two percent of every
transaction's net, set aside and spent through recorded withdrawals.

PURPOSE:
  The fund has no stored balance. Contributions are derived from the
  transaction list each time, withdrawals are the only records of this
  package, and the remaining balance is their difference.

KEY DIFFERENCES FROM FINANCE RECORDS:
  1. No approval: withdrawals are effective on create
  2. A ceiling: a withdrawal may never exceed what remains
  3. Newest first: lists are ordered by createdAt, descending

EXAMPLE FLOW:
  1. Transaction nets $1000 before the fund: contribution $20
  2. Transaction nets $500: contribution $10
  3. Withdrawal of $25 for a donation: remaining $5
  4. A second withdrawal of $6 is refused

SEE ALSO:
  - ledger.go: Contributions and the withdrawal check
  - finance/brokerage.go: ImpactFundContribution
*/
package impactfund

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finhub/generic"
)

// =============================================================================
// WITHDRAWAL
// =============================================================================

type Withdrawal struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

func (w Withdrawal) RecordID() string { return w.ID }

var _ generic.Record = Withdrawal{}

type WithdrawalInput struct {
	Amount      decimal.Decimal
	Description string
}

func (in *WithdrawalInput) Normalize() {
	in.Description = strings.TrimSpace(in.Description)
}

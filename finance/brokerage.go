/*
brokerage.go - Brokerage, net total and Impact Fund derivations

PURPOSE:
  The three numbers every transaction view shows are derived, not typed:

    brokerageAmount = percentage ? amount * value / 100 : value
    totalAmount     = amount - brokerageAmount - additionalCharges
    netAfterIF      = totalAmount * 0.98

  totalAmount is the "net before Impact Fund". Two percent of it goes to
  the Impact Fund, the remaining 98% is what the business keeps.

STORED VS COMPUTED:
  Records written by the form carry brokerageAmount and totalAmount.
  Older or imported records may not. Every derivation prefers the stored
  value and falls back to computing it, so old and new records agree.

NEGATIVE VALUES:
  Stored negatives are preserved here. Only DisplayAmount clamps, and only
  for rendering.

SEE ALSO:
  - impactfund/ledger.go: Sums ImpactFundContribution
  - totals.go: Broker and project totals use ComputeNetAfterImpactFund
*/
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/warp/finhub/generic"
)

var (
	// ImpactFundRate is the share of every net total set aside.
	ImpactFundRate = decimal.New(2, -2)

	// ImpactFundRetention is what remains after the contribution.
	ImpactFundRetention = decimal.New(98, -2)

	hundred = decimal.NewFromInt(100)
)

// ComputeBrokerageAmount returns amount*value/100 for percentage brokerage
// and value itself for anything else.
func ComputeBrokerageAmount(amount decimal.Decimal, typ BrokerageType, value decimal.Decimal) decimal.Decimal {
	if typ == BrokeragePercentage {
		return amount.Mul(value).Div(hundred)
	}
	return value
}

// BrokerageAmountOf prefers the stored brokerage amount.
func BrokerageAmountOf(t Transaction) decimal.Decimal {
	if t.BrokerageAmount != nil {
		return *t.BrokerageAmount
	}
	return ComputeBrokerageAmount(t.Amount, t.BrokerageType, t.BrokerageValue)
}

// ComputeNetTotal is the net before Impact Fund.
func ComputeNetTotal(t Transaction) decimal.Decimal {
	return t.Amount.Sub(BrokerageAmountOf(t)).Sub(t.AdditionalCharges)
}

// NetBeforeImpactFund prefers the stored total.
func NetBeforeImpactFund(t Transaction) decimal.Decimal {
	if t.TotalAmount != nil {
		return *t.TotalAmount
	}
	return ComputeNetTotal(t)
}

func ComputeNetAfterImpactFund(t Transaction) decimal.Decimal {
	return NetBeforeImpactFund(t).Mul(ImpactFundRetention)
}

// ImpactFundContribution is the 2% share of the net before Impact Fund.
func ImpactFundContribution(t Transaction) decimal.Decimal {
	return NetBeforeImpactFund(t).Mul(ImpactFundRate)
}

// Derive recomputes the stored brokerage amount and total from the
// submitted fields, rounded to cents.
func (t *Transaction) Derive() {
	brokerage := ComputeBrokerageAmount(t.Amount, t.BrokerageType, t.BrokerageValue)
	total := generic.Round2(t.Amount.Sub(brokerage).Sub(t.AdditionalCharges))
	brokerage = generic.Round2(brokerage)
	t.BrokerageAmount = &brokerage
	t.TotalAmount = &total
}

// DisplayAmount clamps negatives to zero and formats for display.
func DisplayAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		d = decimal.Zero
	}
	return generic.FormatMoney(d)
}

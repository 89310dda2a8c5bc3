package finance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finhub/generic"
)

// BrokerTotals sums net after Impact Fund per broker.
func BrokerTotals(txs []Transaction) []generic.GroupTotal {
	return generic.GroupTotals(txs,
		func(t Transaction) string { return strings.TrimSpace(t.Broker) },
		ComputeNetAfterImpactFund,
	)
}

// ProjectTotals sums net after Impact Fund per "broker / project".
func ProjectTotals(txs []Transaction) []generic.GroupTotal {
	return generic.GroupTotals(txs,
		func(t Transaction) string {
			return strings.TrimSpace(t.Broker) + " / " + strings.TrimSpace(t.Project)
		},
		ComputeNetAfterImpactFund,
	)
}

// Overview is the dashboard's month-by-month inward vs expense comparison.
type Overview struct {
	Range        generic.DateRange   `json:"range"`
	Inward       generic.MonthSeries `json:"inward"`
	Expense      generic.MonthSeries `json:"expense"`
	TotalInward  decimal.Decimal     `json:"totalInward"`
	TotalExpense decimal.Decimal     `json:"totalExpense"`
	Net          decimal.Decimal     `json:"net"`
}

// MonthlyOverview buckets inward money (net before Impact Fund) and
// expenses over the same month window.
func MonthlyOverview(txs []Transaction, exps []Expense, r generic.DateRange, now time.Time) Overview {
	inward := generic.BucketByMonth(txs, r, now,
		NetBeforeImpactFund,
		func(t Transaction) any { return t.Date },
	)
	expense := generic.BucketByMonth(exps, r, now,
		func(e Expense) decimal.Decimal { return e.Amount },
		func(e Expense) any { return e.Date },
	)
	totalIn := generic.SumDecimals(inward.Values)
	totalOut := generic.SumDecimals(expense.Values)
	return Overview{
		Range:        r,
		Inward:       inward,
		Expense:      expense,
		TotalInward:  totalIn,
		TotalExpense: totalOut,
		Net:          totalIn.Sub(totalOut),
	}
}

// SumNetAfterImpactFund totals a (usually filtered) transaction list.
func SumNetAfterImpactFund(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(ComputeNetAfterImpactFund(t))
	}
	return total
}

func SumExpenses(exps []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range exps {
		total = total.Add(e.Amount)
	}
	return total
}

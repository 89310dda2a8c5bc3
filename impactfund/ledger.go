package impactfund

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
)

// Contribution is one transaction's share of the fund.
type Contribution struct {
	TransactionID string          `json:"transactionId"`
	Broker        string          `json:"client"`
	Project       string          `json:"project"`
	Date          string          `json:"date"`
	NetTotal      decimal.Decimal `json:"netTotal"`
	Amount        decimal.Decimal `json:"amount"`
}

type Ledger struct {
	Contributions      []Contribution  `json:"contributions"`
	TotalContributions decimal.Decimal `json:"totalContributions"`
	TotalWithdrawn     decimal.Decimal `json:"totalWithdrawn"`
	Remaining          decimal.Decimal `json:"remaining"`
}

// BuildLedger derives the fund from the transactions and withdrawals.
// Transactions whose net is zero or negative contribute nothing and are
// left out of the contribution list.
func BuildLedger(txs []finance.Transaction, withdrawals []Withdrawal) Ledger {
	contributions := make([]Contribution, 0, len(txs))
	credits := make([]decimal.Decimal, 0, len(txs))
	for _, t := range txs {
		amount := finance.ImpactFundContribution(t)
		if !amount.IsPositive() {
			continue
		}
		contributions = append(contributions, Contribution{
			TransactionID: t.ID,
			Broker:        strings.TrimSpace(t.Broker),
			Project:       strings.TrimSpace(t.Project),
			Date:          generic.NormalizeDate(t.Date),
			NetTotal:      finance.NetBeforeImpactFund(t),
			Amount:        amount,
		})
		credits = append(credits, amount)
	}

	debits := make([]decimal.Decimal, len(withdrawals))
	for i, w := range withdrawals {
		debits[i] = w.Amount
	}

	summary := generic.Summarize(credits, debits)
	return Ledger{
		Contributions:      contributions,
		TotalContributions: summary.TotalCredits,
		TotalWithdrawn:     summary.TotalDebits,
		Remaining:          summary.Remaining,
	}
}

// CheckWithdrawal validates an amount against the remaining balance.
// editingAmount is the current amount of the withdrawal being edited, or
// zero for a new one.
func CheckWithdrawal(l Ledger, amount, editingAmount decimal.Decimal) error {
	return generic.CheckDebit(l.Remaining, amount, editingAmount)
}

// FilterContributionsByBroker keeps one broker's contributions. An empty
// broker keeps everything.
func FilterContributionsByBroker(contributions []Contribution, broker string) []Contribution {
	broker = strings.TrimSpace(broker)
	if broker == "" {
		return contributions
	}
	out := make([]Contribution, 0)
	for _, c := range contributions {
		if strings.EqualFold(c.Broker, broker) {
			out = append(out, c)
		}
	}
	return out
}

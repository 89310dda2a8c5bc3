/*
finance_test.go - Calculators, recurring expansion, autofill and totals

Covers:
- Brokerage percentage vs fixed, stored values preferred over computed
- Net after Impact Fund is exactly 98% of net before
- Recurring expansion with month-end clamping
- Latest-project autofill and broker options
- Broker / project / monthly totals
*/
package finance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func tx(broker, project, date, amount string, typ finance.BrokerageType, value string) finance.Transaction {
	return finance.Transaction{
		Broker:         broker,
		Project:        project,
		Date:           date,
		Amount:         dec(amount),
		BrokerageType:  typ,
		BrokerageValue: dec(value),
	}
}

// =============================================================================
// BROKERAGE
// =============================================================================

func TestComputeBrokerageAmount(t *testing.T) {
	assert.True(t, dec("150").Equal(
		finance.ComputeBrokerageAmount(dec("1000"), finance.BrokeragePercentage, dec("15"))))
	assert.True(t, dec("0.333").Equal(
		finance.ComputeBrokerageAmount(dec("3.33"), finance.BrokeragePercentage, dec("10"))))
	assert.True(t, dec("75").Equal(
		finance.ComputeBrokerageAmount(dec("1000"), finance.BrokerageFixed, dec("75"))))
}

func TestComputeNetTotal_PrefersStoredBrokerage(t *testing.T) {
	// GIVEN: 10% brokerage would be 100, but the record stored 80
	t1 := tx("Acme", "Site", "2024-03-01", "1000", finance.BrokeragePercentage, "10")
	t1.AdditionalCharges = dec("20")
	t1.BrokerageAmount = decPtr("80")

	// THEN: 1000 - 80 - 20
	assert.True(t, dec("900").Equal(finance.ComputeNetTotal(t1)))

	t1.BrokerageAmount = nil
	assert.True(t, dec("880").Equal(finance.ComputeNetTotal(t1)))
}

func TestComputeNetAfterImpactFund(t *testing.T) {
	t1 := tx("Acme", "Site", "2024-03-01", "1000", finance.BrokerageFixed, "0")
	assert.True(t, dec("980").Equal(finance.ComputeNetAfterImpactFund(t1)))
	assert.True(t, dec("20").Equal(finance.ImpactFundContribution(t1)))

	// Stored total wins
	t1.TotalAmount = decPtr("500")
	assert.True(t, dec("490").Equal(finance.ComputeNetAfterImpactFund(t1)))
	assert.True(t, dec("10").Equal(finance.ImpactFundContribution(t1)))
}

func TestComputeNetAfterImpactFund_PreservesNegatives(t *testing.T) {
	t1 := tx("Acme", "", "2024-03-01", "100", finance.BrokerageFixed, "150")

	net := finance.ComputeNetAfterImpactFund(t1)

	assert.True(t, dec("-49").Equal(net))
	assert.Equal(t, "$0", finance.DisplayAmount(net))
}

func TestDerive_RoundsToCents(t *testing.T) {
	t1 := tx("Acme", "", "2024-03-01", "333.33", finance.BrokeragePercentage, "12.5")
	t1.AdditionalCharges = dec("0.5")

	t1.Derive()

	require.NotNil(t, t1.BrokerageAmount)
	require.NotNil(t, t1.TotalAmount)
	// 333.33 * 12.5 / 100 = 41.66625
	assert.Equal(t, "41.67", t1.BrokerageAmount.StringFixed(2))
	// 333.33 - 41.66625 - 0.5 = 291.16375
	assert.Equal(t, "291.16", t1.TotalAmount.StringFixed(2))
}

// =============================================================================
// RECURRING EXPANSION
// =============================================================================

func TestExpandRecurring_ClampsMonthEnd(t *testing.T) {
	// GIVEN: a 3-month recurring expense starting Jan 31 of a leap year
	base := finance.Expense{Name: "Office", Date: "2024-01-31", Amount: dec("900"), Recurring: true, RecurringMonths: 3}

	// WHEN
	out := finance.ExpandRecurring(base)

	// THEN: Feb clamps to the 29th, March returns to the 31st
	require.Len(t, out, 3)
	assert.Equal(t, "2024-01-31", out[0].Date)
	assert.Equal(t, "2024-02-29", out[1].Date)
	assert.Equal(t, "2024-03-31", out[2].Date)
	for _, e := range out {
		assert.True(t, e.Recurring)
		assert.Equal(t, 3, e.RecurringMonths)
		assert.Equal(t, "Office", e.Name)
	}
}

func TestExpandRecurring_CrossesYear(t *testing.T) {
	base := finance.Expense{Date: "2024-11-15", Recurring: true, RecurringMonths: 6}

	out := finance.ExpandRecurring(base)

	require.Len(t, out, 6)
	assert.Equal(t, "2025-04-15", out[5].Date)
}

func TestExpandRecurring_UnsupportedPeriodIsSingle(t *testing.T) {
	for _, months := range []int{0, 1, 5, 48} {
		out := finance.ExpandRecurring(finance.Expense{Date: "2024-01-10", Recurring: true, RecurringMonths: months})
		require.Len(t, out, 1, "months=%d", months)
		assert.False(t, out[0].Recurring)
		assert.Zero(t, out[0].RecurringMonths)
	}

	out := finance.ExpandRecurring(finance.Expense{Date: "2024-01-10", Recurring: false, RecurringMonths: 12})
	require.Len(t, out, 1)
	assert.Zero(t, out[0].RecurringMonths)
}

// =============================================================================
// PROJECT AUTOFILL
// =============================================================================

func projectsFixture() []finance.Project {
	jan := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	return []finance.Project{
		{ID: "p1", Broker: "Acme ", Name: "Portal", Type: finance.ProjectContract, HourlyRate: dec("50"),
			BrokerageType: finance.BrokerageFixed, BrokerageValue: dec("100"), CreatedAt: jan},
		{ID: "p2", Broker: "acme", Name: "Billing", Type: finance.ProjectFullTime, HourlyRate: dec("60"),
			RecruiterName: "Dana", BrokerageValue: dec("12"), CreatedAt: mar},
		{ID: "p3", Broker: "Beta", Name: "Portal", Date: "2024-02-01"},
	}
}

func TestProjectAutofill_UsesLatestForBroker(t *testing.T) {
	defaults, ok := finance.ProjectAutofill(projectsFixture(), "  ACME")

	require.True(t, ok)
	assert.Equal(t, finance.ProjectFullTime, defaults.Type)
	assert.Equal(t, "Dana", defaults.RecruiterName)
	assert.True(t, dec("60").Equal(defaults.HourlyRate))
	// Missing brokerage type defaults to percentage
	assert.Equal(t, finance.BrokeragePercentage, defaults.BrokerageType)
}

func TestTransactionAutofill_MatchesBrokerAndProject(t *testing.T) {
	defaults, ok := finance.TransactionAutofill(projectsFixture(), "acme", "portal")

	require.True(t, ok)
	assert.Equal(t, finance.BrokerageFixed, defaults.BrokerageType)
	assert.True(t, dec("100").Equal(defaults.BrokerageValue))

	_, ok = finance.TransactionAutofill(projectsFixture(), "acme", "")
	assert.False(t, ok)
	_, ok = finance.ProjectAutofill(projectsFixture(), "Nobody")
	assert.False(t, ok)
}

func TestBrokerAndProjectOptions(t *testing.T) {
	projects := projectsFixture()

	assert.Equal(t, []string{"Acme", "Beta", "acme"}, finance.BrokerOptions(projects))
	assert.Equal(t, []string{"Billing", "Portal"}, finance.ProjectOptions(projects, "ACME"))
	assert.Empty(t, finance.ProjectOptions(projects, "Gamma"))
}

func TestProjectInput_DefaultsContractEnding(t *testing.T) {
	now := time.Date(2024, 8, 31, 12, 0, 0, 0, time.UTC)
	in := finance.ProjectInput{Broker: "Acme", Name: "Portal", Date: "2024-08-31"}

	require.NoError(t, in.Normalize(now))

	assert.Equal(t, "2025-02-28", in.ContractEnding)
	assert.Equal(t, finance.BrokeragePercentage, in.BrokerageType)
}

// =============================================================================
// TOTALS
// =============================================================================

func TestBrokerAndProjectTotals(t *testing.T) {
	txs := []finance.Transaction{
		tx("Acme", "Portal", "2024-03-01", "1000", finance.BrokerageFixed, "0"),
		tx(" Acme", "Portal", "2024-03-02", "500", finance.BrokerageFixed, "0"),
		tx("Beta", "Site", "2024-03-03", "100", finance.BrokeragePercentage, "10"),
	}

	brokers := finance.BrokerTotals(txs)
	require.Len(t, brokers, 2)
	assert.Equal(t, "Acme", brokers[0].Label)
	assert.True(t, dec("1470").Equal(brokers[0].Total))
	assert.Equal(t, 2, brokers[0].Count)
	assert.True(t, dec("88.2").Equal(brokers[1].Total))

	projects := finance.ProjectTotals(txs)
	require.Len(t, projects, 2)
	assert.Equal(t, "Acme / Portal", projects[0].Label)
	assert.Equal(t, "Beta / Site", projects[1].Label)
}

func TestMonthlyOverview(t *testing.T) {
	// GIVEN: a March transaction, a March and an April expense, and one
	// record with an unreadable date
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	txs := []finance.Transaction{
		tx("Acme", "", "2024-03-05", "1000", finance.BrokerageFixed, "100"),
		tx("Acme", "", "not a date", "1000", finance.BrokerageFixed, "0"),
	}
	exps := []finance.Expense{
		{Date: "2024-03-01", Amount: dec("300")},
		{Date: "2024-04-01", Amount: dec("50")},
	}

	// WHEN: no range is given
	ov := finance.MonthlyOverview(txs, exps, generic.DateRange{}, now)

	// THEN: twelve months of 2024, inward is net before Impact Fund
	require.Len(t, ov.Inward.Values, 12)
	assert.Equal(t, "Mar", ov.Inward.Labels[2])
	assert.True(t, dec("900").Equal(ov.Inward.Values[2]))
	assert.True(t, dec("300").Equal(ov.Expense.Values[2]))
	assert.True(t, dec("50").Equal(ov.Expense.Values[3]))
	assert.True(t, dec("900").Equal(ov.TotalInward))
	assert.True(t, dec("550").Equal(ov.Net))
}

// =============================================================================
// ENUMS
// =============================================================================

func TestParseExpenseType_AcceptsLabels(t *testing.T) {
	typ, err := finance.ParseExpenseType("Software Tool")
	require.NoError(t, err)
	assert.Equal(t, finance.ExpenseSoftwareTool, typ)
	assert.Equal(t, "FH", finance.ExpenseFH.Label())

	_, err = finance.ParseExpenseType("travel")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

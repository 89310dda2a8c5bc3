package impactfund_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/events/mocks"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/generic/store"
	"github.com/warp/finhub/impactfund"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type staticTransactions []finance.Transaction

func (s staticTransactions) ListTransactions(context.Context, generic.DateRange) ([]finance.Transaction, error) {
	return s, nil
}

func fixed(id, broker, amount string) finance.Transaction {
	return finance.Transaction{
		ID:            id,
		Broker:        broker,
		Date:          "2024-03-01",
		Amount:        dec(amount),
		BrokerageType: finance.BrokerageFixed,
	}
}

// Contributions: 20 + 10 = 30
func fundTransactions() staticTransactions {
	return staticTransactions{
		fixed("t1", "Acme", "1000"),
		fixed("t2", "Beta", "500"),
		fixed("t3", "Acme", "0"),
	}
}

func newTestService(t *testing.T, pub events.Publisher) *impactfund.Service {
	t.Helper()
	return impactfund.NewService(store.NewMemory[impactfund.Withdrawal]("withdrawal"), fundTransactions(), pub, nil)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestBuildLedger(t *testing.T) {
	l := impactfund.BuildLedger(fundTransactions(), []impactfund.Withdrawal{{Amount: dec("12.5")}})

	require.Len(t, l.Contributions, 2)
	assert.True(t, dec("20").Equal(l.Contributions[0].Amount))
	assert.True(t, dec("1000").Equal(l.Contributions[0].NetTotal))
	assert.True(t, dec("30").Equal(l.TotalContributions))
	assert.True(t, dec("12.5").Equal(l.TotalWithdrawn))
	assert.True(t, dec("17.5").Equal(l.Remaining))
}

func TestCheckWithdrawal(t *testing.T) {
	l := impactfund.Ledger{Remaining: dec("6")}

	assert.NoError(t, impactfund.CheckWithdrawal(l, dec("6"), decimal.Zero))
	assert.ErrorIs(t, impactfund.CheckWithdrawal(l, dec("0"), decimal.Zero), generic.ErrValidation)

	err := impactfund.CheckWithdrawal(l, dec("6.01"), decimal.Zero)
	var fundErr *generic.InsufficientFundError
	require.ErrorAs(t, err, &fundErr)
	assert.True(t, dec("6").Equal(fundErr.Available))

	// Editing a withdrawal of 4 gives it back first
	assert.NoError(t, impactfund.CheckWithdrawal(l, dec("10"), dec("4")))
	assert.Error(t, impactfund.CheckWithdrawal(l, dec("10.01"), dec("4")))
}

func TestFilterContributionsByBroker(t *testing.T) {
	l := impactfund.BuildLedger(fundTransactions(), nil)

	acme := impactfund.FilterContributionsByBroker(l.Contributions, " ACME ")
	require.Len(t, acme, 1)
	assert.Equal(t, "t1", acme[0].TransactionID)
	assert.Len(t, impactfund.FilterContributionsByBroker(l.Contributions, ""), 2)
}

// =============================================================================
// SERVICE
// =============================================================================

func TestService_EnforcesCeiling(t *testing.T) {
	// GIVEN: a fund holding 30
	svc := newTestService(t, nil)
	ctx := context.Background()

	// WHEN: 25 is withdrawn, then 6 more
	first, err := svc.Create(ctx, "alice", impactfund.WithdrawalInput{Amount: dec("25"), Description: " Donation "})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", impactfund.WithdrawalInput{Amount: dec("6")})

	// THEN: the second is refused and nothing was stored for it
	assert.ErrorIs(t, err, generic.ErrInsufficientFund)
	assert.Equal(t, "Donation", first.Description)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Raising the first to the full balance is fine
	updated, err := svc.Update(ctx, "alice", first.ID, impactfund.WithdrawalInput{Amount: dec("30")})
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(updated.Amount))

	l, err := svc.Ledger(ctx)
	require.NoError(t, err)
	assert.True(t, l.Remaining.IsZero())
}

func TestService_ListNewestFirst(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, amount := range []string{"1", "2", "3"} {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.SetClock(func() time.Time { return at })
		_, err := svc.Create(ctx, "", impactfund.WithdrawalInput{Amount: dec(amount)})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "3", list[0].Amount.String())
	assert.Equal(t, "1", list[2].Amount.String())
}

func TestService_DeletePublishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	svc := newTestService(t, pub)
	ctx := context.Background()

	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
			assert.Equal(t, events.WithdrawalCreated, e.Type)
			return nil
		}),
		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
			assert.Equal(t, events.WithdrawalDeleted, e.Type)
			return nil
		}),
	)

	w, err := svc.Create(ctx, "alice", impactfund.WithdrawalInput{Amount: dec("5")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "alice", w.ID))

	err = svc.Delete(ctx, "alice", w.ID)
	assert.True(t, generic.IsNotFound(err))
}

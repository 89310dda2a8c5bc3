package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/warp/finhub/accounts"
	"github.com/warp/finhub/app"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/events/mocks"
	"github.com/warp/finhub/factory"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/generic/store"
	"github.com/warp/finhub/impactfund"
	"github.com/warp/finhub/store/sqlite"
)

var fixedNow = time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)

func memoryDeps() app.Deps {
	return app.Deps{
		Transactions: store.NewMemory[finance.Transaction](events.KindTransaction),
		Expenses:     store.NewMemory[finance.Expense](events.KindExpense),
		Projects:     store.NewMemory[finance.Project](events.KindProject),
		Withdrawals:  store.NewMemory[impactfund.Withdrawal](events.KindWithdrawal),
		Accounts:     accounts.NewMemoryStore(),
		BcryptCost:   4,
		Now:          func() time.Time { return fixedNow },
	}
}

func TestInit_LoadsEveryCollection(t *testing.T) {
	// GIVEN: Stored records in two collections
	ctx := context.Background()
	deps := memoryDeps()
	require.NoError(t, deps.Transactions.Create(ctx, finance.Transaction{
		ID: "t1", Broker: "Acme", Date: "2024-03-01",
		Amount: decimal.NewFromInt(1000), BrokerageType: finance.BrokerageFixed,
	}))
	require.NoError(t, deps.Projects.Create(ctx, finance.Project{ID: "p1", Broker: "Acme"}))

	// WHEN: Initializing
	a := app.New(deps)
	require.NoError(t, a.Init(ctx))

	// THEN: The snapshot holds them and the ledger is built
	snap := a.Snapshot()
	assert.Len(t, snap.Transactions, 1)
	assert.Len(t, snap.Projects, 1)
	assert.Empty(t, snap.Expenses)
	assert.Equal(t, "20.00", snap.Ledger.TotalContributions.StringFixed(2))
	assert.Equal(t, fixedNow, snap.LoadedAt)
}

func TestRefresh_OnlyReloadsNamedKinds(t *testing.T) {
	// GIVEN: An initialized app
	ctx := context.Background()
	a := app.New(memoryDeps())
	require.NoError(t, a.Init(ctx))

	// WHEN: Creating an expense and a project but refreshing only expenses
	_, _, err := a.Finance.CreateExpense(ctx, "alice", finance.ExpenseInput{
		Name: "Office", Date: "2024-04-01", Type: finance.ExpenseRent,
		Amount: decimal.NewFromInt(900), Recurring: true, RecurringMonths: 3,
	})
	require.NoError(t, err)
	_, err = a.Finance.CreateProject(ctx, "alice", finance.ProjectInput{
		Broker: "Acme", Name: "Portal", Date: "2024-04-01",
	})
	require.NoError(t, err)
	require.NoError(t, a.Refresh(ctx, events.KindExpense))

	// THEN: Expenses are current, projects still show the old state
	snap := a.Snapshot()
	assert.Len(t, snap.Expenses, 3)
	assert.Empty(t, snap.Projects)

	require.NoError(t, a.Refresh(ctx))
	assert.Len(t, a.Snapshot().Projects, 1)
}

type failingCollection struct {
	generic.Collection[finance.Expense]
}

func (failingCollection) List(context.Context) ([]finance.Expense, error) {
	return nil, errors.New("disk on fire")
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	// GIVEN: A loaded app whose expense collection starts failing
	ctx := context.Background()
	deps := memoryDeps()
	require.NoError(t, deps.Transactions.Create(ctx, finance.Transaction{ID: "t1", Date: "2024-03-01"}))
	a := app.New(deps)
	require.NoError(t, a.Init(ctx))

	broken := deps
	broken.Expenses = failingCollection{}
	b := app.New(broken)

	// WHEN: Refreshing
	err := b.Refresh(ctx)

	// THEN: The error names the collection and nothing is swapped in
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load expense")
	assert.Empty(t, b.Snapshot().Transactions)
	assert.Len(t, a.Snapshot().Transactions, 1)
}

func TestImport_StoresAndReloads(t *testing.T) {
	ctx := context.Background()
	a := app.New(memoryDeps())
	require.NoError(t, a.Init(ctx))

	report, err := a.Import(ctx, factory.Records{
		Transactions: []finance.Transaction{{ID: "t1", Date: "2024-03-01", Amount: decimal.NewFromInt(100)}},
		Withdrawals:  []impactfund.Withdrawal{{ID: "w1", Amount: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Transactions)
	assert.Equal(t, 1, report.Withdrawals)

	snap := a.Snapshot()
	assert.Len(t, snap.Transactions, 1)
	assert.Len(t, snap.Withdrawals, 1)
}

func TestReplace_MemoryCollectionsDropOldRecords(t *testing.T) {
	// GIVEN: an app with one stored transaction
	ctx := context.Background()
	deps := memoryDeps()
	require.NoError(t, deps.Transactions.Create(ctx, finance.Transaction{ID: "old", Date: "2024-01-01", Amount: decimal.NewFromInt(5)}))
	a := app.New(deps)
	require.NoError(t, a.Init(ctx))

	// WHEN: replacing with an export holding a different transaction
	report, err := a.Replace(ctx, factory.Records{
		Transactions: []finance.Transaction{{ID: "new", Date: "2024-03-01", Amount: decimal.NewFromInt(100)}},
	})

	// THEN: only the imported record remains
	require.NoError(t, err)
	assert.Equal(t, 1, report.Transactions)
	snap := a.Snapshot()
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "new", snap.Transactions[0].ID)
}

func sqliteDeps(t *testing.T) (app.Deps, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	return app.Deps{
		Transactions: st.Transactions(),
		Expenses:     st.Expenses(),
		Projects:     st.Projects(),
		Withdrawals:  st.Withdrawals(),
		Accounts:     st,
		Store:        st,
		BcryptCost:   4,
		Now:          func() time.Time { return fixedNow },
	}, st
}

func TestReplace_SQLiteStoreKeepsAccounts(t *testing.T) {
	// GIVEN: a SQLite-backed app with a user and an expense
	ctx := context.Background()
	deps, _ := sqliteDeps(t)
	a := app.New(deps)
	t.Cleanup(func() { a.Close() })
	require.NoError(t, a.Init(ctx))
	_, _, err := a.Accounts.Signup(ctx, "alice@example.com", "Secret123", "Secret123")
	require.NoError(t, err)
	require.NoError(t, deps.Expenses.Create(ctx, finance.Expense{ID: "e-old", Name: "Rent", Date: "2024-01-01", Amount: decimal.NewFromInt(10)}))

	// WHEN: replacing with a withdrawal-only export
	_, err = a.Replace(ctx, factory.Records{
		Withdrawals: []impactfund.Withdrawal{{ID: "w1", Amount: decimal.NewFromInt(1)}},
	})

	// THEN: records are swapped and the account survives
	require.NoError(t, err)
	snap := a.Snapshot()
	assert.Empty(t, snap.Expenses)
	assert.Len(t, snap.Withdrawals, 1)
	_, _, err = a.Accounts.Login(ctx, "alice@example.com", "Secret123")
	assert.NoError(t, err)
}

func TestPing_ReportsStoreState(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, app.New(memoryDeps()).Ping(ctx))

	deps, st := sqliteDeps(t)
	a := app.New(deps)
	assert.NoError(t, a.Ping(ctx))

	require.NoError(t, st.Close())
	assert.Error(t, a.Ping(ctx))
}

func TestClose_ClosesPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Close().Return(nil)

	deps := memoryDeps()
	deps.Publisher = pub
	a := app.New(deps)

	assert.NoError(t, a.Close())
}

// =============================================================================
// SESSION SWEEPER
// =============================================================================

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) PurgeSessions(context.Context) (int, error) {
	p.calls.Add(1)
	return 2, nil
}

func TestSessionSweeper_PurgesOnStart(t *testing.T) {
	// GIVEN: A sweeper with a long interval
	p := &countingPurger{}
	sw := app.NewSessionSweeper(p, nil)
	sw.Interval = time.Hour

	// WHEN: Starting it
	sw.Start()

	// THEN: The first purge runs right away
	assert.Eventually(t, func() bool { return p.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
	sw.Stop()
	sw.Stop()
}

func TestSessionSweeper_DisabledDoesNothing(t *testing.T) {
	p := &countingPurger{}
	sw := app.NewSessionSweeper(p, nil)
	sw.Enabled = false

	sw.Start()
	sw.Stop()

	assert.Equal(t, int32(0), p.calls.Load())
	assert.Equal(t, 2, sw.RunNow())
}

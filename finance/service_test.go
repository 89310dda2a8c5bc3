package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/events/mocks"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/generic/store"
)

var fixedNow = time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...finance.Option) *finance.Service {
	t.Helper()
	opts = append([]finance.Option{finance.WithClock(func() time.Time { return fixedNow })}, opts...)
	return finance.NewService(
		store.NewMemory[finance.Transaction]("transaction"),
		store.NewMemory[finance.Expense]("expense"),
		store.NewMemory[finance.Project]("project"),
		opts...,
	)
}

func txInput(amount string) finance.TransactionInput {
	return finance.TransactionInput{
		Broker:         " Acme ",
		Project:        "Portal",
		Date:           "2024-03-10",
		Amount:         dec(amount),
		BrokerageType:  finance.BrokeragePercentage,
		BrokerageValue: dec("10"),
	}
}

// =============================================================================
// CREATE / UPDATE
// =============================================================================

func TestCreateTransaction_DerivesAndStartsPending(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, "alice", txInput("1000"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acme", created.Broker)
	assert.Equal(t, generic.StatusPending, created.Status)
	assert.Equal(t, "alice", created.CreatedBy)
	assert.Equal(t, "100.00", created.BrokerageAmount.StringFixed(2))
	assert.Equal(t, "900.00", created.TotalAmount.StringFixed(2))
	assert.Equal(t, fixedNow, created.CreatedAt)
}

func TestCreateTransaction_WithoutCreatorIsApproved(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateTransaction(context.Background(), "", txInput("1000"))

	require.NoError(t, err)
	assert.Equal(t, generic.StatusApproved, created.Status)
	assert.True(t, created.IsApproved())
}

func TestCreateTransaction_RejectsBadInputBeforeStore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string]func(*finance.TransactionInput){
		"zero amount":    func(in *finance.TransactionInput) { in.Amount = dec("0") },
		"missing broker": func(in *finance.TransactionInput) { in.Broker = "  " },
		"bad date":       func(in *finance.TransactionInput) { in.Date = "someday" },
		"bad type":       func(in *finance.TransactionInput) { in.BrokerageType = "flat" },
		"negative fee":   func(in *finance.TransactionInput) { in.AdditionalCharges = dec("-1") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := txInput("1000")
			mutate(&in)
			_, err := svc.CreateTransaction(ctx, "alice", in)
			assert.True(t, generic.IsClientError(err), "got %v", err)
		})
	}

	all, err := svc.ListTransactions(ctx, generic.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateTransaction_KeepsApprovalBlock(t *testing.T) {
	// GIVEN: an approved transaction
	svc := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateTransaction(ctx, "alice", txInput("1000"))
	require.NoError(t, err)
	_, err = svc.ApproveTransaction(ctx, "bob", created.ID)
	require.NoError(t, err)

	// WHEN: alice edits the amount
	updated, err := svc.UpdateTransaction(ctx, "alice", created.ID, txInput("2000"))
	require.NoError(t, err)

	// THEN: still approved by bob, derived values recomputed
	assert.Equal(t, generic.StatusApproved, updated.Status)
	assert.Equal(t, "bob", updated.ApprovedBy)
	assert.Equal(t, "alice", updated.CreatedBy)
	assert.Equal(t, "1800.00", updated.TotalAmount.StringFixed(2))
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdateTransaction_UnknownID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateTransaction(context.Background(), "alice", "missing", txInput("10"))

	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// APPROVAL
// =============================================================================

func TestApproveTransaction_Preconditions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pending, err := svc.CreateTransaction(ctx, "alice", txInput("1000"))
	require.NoError(t, err)
	legacy, err := svc.CreateTransaction(ctx, "", txInput("1000"))
	require.NoError(t, err)

	_, err = svc.ApproveTransaction(ctx, "alice", pending.ID)
	assert.ErrorIs(t, err, generic.ErrSelfApproval)

	_, err = svc.ApproveTransaction(ctx, "", pending.ID)
	assert.ErrorIs(t, err, generic.ErrApproverRequired)

	_, err = svc.ApproveTransaction(ctx, "bob", legacy.ID)
	assert.ErrorIs(t, err, generic.ErrNotPending)

	approved, err := svc.ApproveTransaction(ctx, "bob", pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, fixedNow, *approved.ApprovedAt)

	_, err = svc.ApproveTransaction(ctx, "bob", pending.ID)
	assert.ErrorIs(t, err, generic.ErrNotPending)
}

func TestApproveAllTransactions_SkipsOwnRecords(t *testing.T) {
	// GIVEN: two pending by alice, one pending by bob
	svc := newTestService(t)
	ctx := context.Background()
	for _, actor := range []string{"alice", "bob", "alice"} {
		_, err := svc.CreateTransaction(ctx, actor, txInput("100"))
		require.NoError(t, err)
	}

	// WHEN: bob approves all
	n, err := svc.ApproveAllTransactions(ctx, "bob")

	// THEN: only alice's two are approved
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	pending, err := svc.PendingTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].CreatedBy)
}

// =============================================================================
// EXPENSES
// =============================================================================

func TestCreateExpense_RecurringStoresEachMonth(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	firstID, created, err := svc.CreateExpense(ctx, "alice", finance.ExpenseInput{
		Name:            "Office",
		Date:            "2024-01-31",
		Type:            "Rent",
		Amount:          dec("900"),
		Recurring:       true,
		RecurringMonths: 12,
	})
	require.NoError(t, err)

	require.Len(t, created, 12)
	assert.Equal(t, created[0].ID, firstID)
	assert.Equal(t, finance.ExpenseRent, created[0].Type)
	assert.Equal(t, "2024-02-29", created[1].Date)
	assert.Equal(t, "2024-12-31", created[11].Date)

	ids := map[string]bool{}
	for _, e := range created {
		ids[e.ID] = true
		assert.Equal(t, generic.StatusPending, e.Status)
	}
	assert.Len(t, ids, 12)

	march, err := svc.ListExpenses(ctx, generic.MonthRange(2024, time.March))
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "2024-03-31", march[0].Date)
}

func TestListExpenses_RejectsInvertedRange(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ListExpenses(context.Background(), generic.DateRange{From: "2024-05-01", To: "2024-04-01"})

	assert.ErrorIs(t, err, generic.ErrInvalidRange)
}

// =============================================================================
// PROJECTS
// =============================================================================

func TestProjects_CreateApproveDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, "alice", finance.ProjectInput{
		Broker: "Acme", Name: "Portal", Date: "2024-04-01", Type: "full time",
	})
	require.NoError(t, err)
	assert.Equal(t, finance.ProjectFullTime, p.Type)
	assert.Equal(t, "2024-10-15", p.ContractEnding)

	n, err := svc.ApproveAllProjects(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.DeleteProject(ctx, "bob", p.ID))
	_, err = svc.GetProject(ctx, p.ID)
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// EVENTS
// =============================================================================

func TestService_PublishesLifecycleEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	svc := newTestService(t, finance.WithPublisher(pub))
	ctx := context.Background()

	var seen []events.Type
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		assert.Equal(t, events.KindTransaction, e.Kind)
		return nil
	}).Times(3)

	created, err := svc.CreateTransaction(ctx, "alice", txInput("100"))
	require.NoError(t, err)
	_, err = svc.ApproveTransaction(ctx, "bob", created.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTransaction(ctx, "bob", created.ID))

	assert.Equal(t, []events.Type{events.RecordPending, events.RecordApproved, events.RecordDeleted}, seen)
}

func TestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(assert.AnError)
	svc := newTestService(t, finance.WithPublisher(pub))

	created, err := svc.CreateTransaction(context.Background(), "alice", txInput("100"))

	require.NoError(t, err)
	_, err = svc.GetTransaction(context.Background(), created.ID)
	assert.NoError(t, err)
}

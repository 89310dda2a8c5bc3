/*
service.go - Transaction, expense and project operations

PURPOSE:
  The Service validates form input, derives stored values, assigns ids and
  approval state, persists through generic.Collection and publishes an
  event for every committed change.

FLOW (create):
  input ──▶ Normalize ──▶ derive ──▶ NewApproval(actor) ──▶ Create ──▶ publish
               │
               └─ ValidationError: nothing is stored

EDITS:
  Update replaces the editable fields and keeps id, createdAt and the
  whole Approval block. Editing an approved record does not send it back
  to pending.

APPROVAL:
  Approve* load the record, run the Approval transition and save it.
  ApproveAll* walk the stored list in order and stop at the first failure;
  approvals already saved stay saved.

EVENTS:
  A publish failure is logged and swallowed. The write already happened.

SEE ALSO:
  - generic/approval.go: Approval transition and ApproveAll
  - recurring.go: ExpandRecurring
  - brokerage.go: Derive
*/
package finance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/logging"
)

type Service struct {
	transactions generic.Collection[Transaction]
	expenses     generic.Collection[Expense]
	projects     generic.Collection[Project]
	publisher    events.Publisher
	logger       *logging.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = events.OrNop(p) }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l).WithComponent(logging.ComponentFinance) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	transactions generic.Collection[Transaction],
	expenses generic.Collection[Expense],
	projects generic.Collection[Project],
	opts ...Option,
) *Service {
	s := &Service{
		transactions: transactions,
		expenses:     expenses,
		projects:     projects,
		publisher:    events.Nop{},
		logger:       logging.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish failed",
			zap.Error(err),
			zap.String(logging.FieldEvent, string(e.Type)),
			zap.String(logging.FieldRecordID, e.RecordID),
		)
	}
}

func createdEvent(kind, id, actor, summary string, a generic.Approval) events.Event {
	typ := events.RecordCreated
	if a.Status == generic.StatusPending {
		typ = events.RecordPending
	}
	return events.New(typ, kind, id, actor, summary)
}

func transactionSummary(t Transaction) string {
	return fmt.Sprintf("%s / %s %s", t.Broker, t.Project, generic.FormatMoney(t.Amount))
}

func expenseSummary(e Expense) string {
	return fmt.Sprintf("%s %s", e.Name, generic.FormatMoney(e.Amount))
}

func projectSummary(p Project) string {
	return fmt.Sprintf("%s / %s", p.Broker, p.Name)
}

// =============================================================================
// SHARED HELPERS - One implementation for all three record types
// =============================================================================

func listInRange[T generic.Record](ctx context.Context, c generic.Collection[T], r generic.DateRange, date func(T) any) ([]T, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return generic.FilterByDateRange(items, r.From, r.To, date), nil
}

func pendingIn[T generic.Approvable](ctx context.Context, c generic.Collection[T]) ([]T, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return generic.PendingOnly(items), nil
}

func approveIn[T generic.Approvable](
	ctx context.Context,
	s *Service,
	c generic.Collection[T],
	kind, id, approverID string,
	state func(*T) *generic.Approval,
	summary func(T) string,
) (T, error) {
	var zero T
	rec, err := c.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := state(&rec).Approve(approverID, s.now()); err != nil {
		return zero, &generic.ApprovalError{RecordID: id, ApproverID: approverID, Err: err}
	}
	if err := c.Update(ctx, rec); err != nil {
		return zero, fmt.Errorf("save approval of %s %s: %w", kind, id, err)
	}
	s.logger.Info("record approved",
		zap.String(logging.FieldKind, kind),
		zap.String(logging.FieldRecordID, id),
		zap.String(logging.FieldActor, approverID),
	)
	s.publish(ctx, events.New(events.RecordApproved, kind, id, approverID, summary(rec)))
	return rec, nil
}

func approveAllIn[T generic.Approvable](
	ctx context.Context,
	c generic.Collection[T],
	approverID string,
	approve func(ctx context.Context, id string) error,
) (int, error) {
	if approverID == "" {
		return 0, generic.ErrApproverRequired
	}
	items, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	return generic.ApproveAll(ctx, items, approverID, func(ctx context.Context, item T) error {
		return approve(ctx, item.RecordID())
	})
}

func (s *Service) deleteIn(ctx context.Context, kind, id, actorID string, del func(context.Context, string) error) error {
	if err := del(ctx, id); err != nil {
		return err
	}
	s.logger.Info("record deleted",
		zap.String(logging.FieldKind, kind),
		zap.String(logging.FieldRecordID, id),
		zap.String(logging.FieldActor, actorID),
	)
	s.publish(ctx, events.New(events.RecordDeleted, kind, id, actorID, ""))
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// ListTransactions returns the transactions dated inside r.
func (s *Service) ListTransactions(ctx context.Context, r generic.DateRange) ([]Transaction, error) {
	return listInRange(ctx, s.transactions, r, func(t Transaction) any { return t.Date })
}

func (s *Service) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return s.transactions.Get(ctx, id)
}

func (s *Service) PendingTransactions(ctx context.Context) ([]Transaction, error) {
	return pendingIn(ctx, s.transactions)
}

func (s *Service) CreateTransaction(ctx context.Context, actorID string, in TransactionInput) (Transaction, error) {
	if err := in.Normalize(); err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		ID:        generic.NewID(),
		Approval:  generic.NewApproval(actorID),
		CreatedAt: s.now().UTC(),
	}
	t.apply(in)
	if err := s.transactions.Create(ctx, t); err != nil {
		return Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.logger.Info("transaction created",
		zap.String(logging.FieldRecordID, t.ID),
		zap.String(logging.FieldActor, actorID),
		zap.String("status", string(t.Status)),
	)
	s.publish(ctx, createdEvent(events.KindTransaction, t.ID, actorID, transactionSummary(t), t.Approval))
	return t, nil
}

func (s *Service) UpdateTransaction(ctx context.Context, actorID, id string, in TransactionInput) (Transaction, error) {
	if err := in.Normalize(); err != nil {
		return Transaction{}, err
	}
	t, err := s.transactions.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	t.apply(in)
	updated := s.now().UTC()
	t.UpdatedAt = &updated
	if err := s.transactions.Update(ctx, t); err != nil {
		return Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	s.publish(ctx, events.New(events.RecordUpdated, events.KindTransaction, id, actorID, transactionSummary(t)))
	return t, nil
}

func (t *Transaction) apply(in TransactionInput) {
	t.Broker = in.Broker
	t.Project = in.Project
	t.Date = in.Date
	t.Amount = in.Amount
	t.BrokerageType = in.BrokerageType
	t.BrokerageValue = in.BrokerageValue
	t.AdditionalCharges = in.AdditionalCharges
	t.Derive()
}

func (s *Service) DeleteTransaction(ctx context.Context, actorID, id string) error {
	return s.deleteIn(ctx, events.KindTransaction, id, actorID, s.transactions.Delete)
}

func (s *Service) ApproveTransaction(ctx context.Context, approverID, id string) (Transaction, error) {
	return approveIn(ctx, s, s.transactions, events.KindTransaction, id, approverID,
		func(t *Transaction) *generic.Approval { return &t.Approval }, transactionSummary)
}

// ApproveAllTransactions approves every transaction approverID may approve.
func (s *Service) ApproveAllTransactions(ctx context.Context, approverID string) (int, error) {
	return approveAllIn(ctx, s.transactions, approverID, func(ctx context.Context, id string) error {
		_, err := s.ApproveTransaction(ctx, approverID, id)
		return err
	})
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Service) ListExpenses(ctx context.Context, r generic.DateRange) ([]Expense, error) {
	return listInRange(ctx, s.expenses, r, func(e Expense) any { return e.Date })
}

func (s *Service) GetExpense(ctx context.Context, id string) (Expense, error) {
	return s.expenses.Get(ctx, id)
}

func (s *Service) PendingExpenses(ctx context.Context) ([]Expense, error) {
	return pendingIn(ctx, s.expenses)
}

// CreateExpense stores the expense, expanded into one record per month when
// it is recurring, and returns the id of the first record with all of them.
// A store failure part way leaves the earlier months stored.
func (s *Service) CreateExpense(ctx context.Context, actorID string, in ExpenseInput) (string, []Expense, error) {
	if err := in.Normalize(); err != nil {
		return "", nil, err
	}
	base := Expense{
		Name:            in.Name,
		Date:            in.Date,
		Type:            in.Type,
		Amount:          in.Amount,
		Comment:         in.Comment,
		Recurring:       in.Recurring,
		RecurringMonths: in.RecurringMonths,
	}
	created := s.now().UTC()
	expanded := ExpandRecurring(base)
	for i := range expanded {
		expanded[i].ID = generic.NewID()
		expanded[i].Approval = generic.NewApproval(actorID)
		expanded[i].CreatedAt = created
		if err := s.expenses.Create(ctx, expanded[i]); err != nil {
			return "", expanded[:i], fmt.Errorf("create expense %d of %d: %w", i+1, len(expanded), err)
		}
	}

	first := expanded[0]
	s.logger.Info("expense created",
		zap.String(logging.FieldRecordID, first.ID),
		zap.String(logging.FieldActor, actorID),
		zap.Int(logging.FieldCount, len(expanded)),
	)
	summary := expenseSummary(first)
	if len(expanded) > 1 {
		summary = fmt.Sprintf("%s x %d months", summary, len(expanded))
	}
	s.publish(ctx, createdEvent(events.KindExpense, first.ID, actorID, summary, first.Approval))
	return first.ID, expanded, nil
}

// UpdateExpense edits one stored month. It never re-expands a series.
func (s *Service) UpdateExpense(ctx context.Context, actorID, id string, in ExpenseInput) (Expense, error) {
	if err := in.Normalize(); err != nil {
		return Expense{}, err
	}
	e, err := s.expenses.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	e.Name = in.Name
	e.Date = in.Date
	e.Type = in.Type
	e.Amount = in.Amount
	e.Comment = in.Comment
	updated := s.now().UTC()
	e.UpdatedAt = &updated
	if err := s.expenses.Update(ctx, e); err != nil {
		return Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	s.publish(ctx, events.New(events.RecordUpdated, events.KindExpense, id, actorID, expenseSummary(e)))
	return e, nil
}

func (s *Service) DeleteExpense(ctx context.Context, actorID, id string) error {
	return s.deleteIn(ctx, events.KindExpense, id, actorID, s.expenses.Delete)
}

func (s *Service) ApproveExpense(ctx context.Context, approverID, id string) (Expense, error) {
	return approveIn(ctx, s, s.expenses, events.KindExpense, id, approverID,
		func(e *Expense) *generic.Approval { return &e.Approval }, expenseSummary)
}

func (s *Service) ApproveAllExpenses(ctx context.Context, approverID string) (int, error) {
	return approveAllIn(ctx, s.expenses, approverID, func(ctx context.Context, id string) error {
		_, err := s.ApproveExpense(ctx, approverID, id)
		return err
	})
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Service) ListProjects(ctx context.Context, r generic.DateRange) ([]Project, error) {
	return listInRange(ctx, s.projects, r, func(p Project) any { return p.Date })
}

func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	return s.projects.Get(ctx, id)
}

func (s *Service) PendingProjects(ctx context.Context) ([]Project, error) {
	return pendingIn(ctx, s.projects)
}

func (s *Service) CreateProject(ctx context.Context, actorID string, in ProjectInput) (Project, error) {
	if err := in.Normalize(s.now()); err != nil {
		return Project{}, err
	}
	p := Project{
		ID:        generic.NewID(),
		Approval:  generic.NewApproval(actorID),
		CreatedAt: s.now().UTC(),
	}
	p.apply(in)
	if err := s.projects.Create(ctx, p); err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info("project created",
		zap.String(logging.FieldRecordID, p.ID),
		zap.String(logging.FieldActor, actorID),
	)
	s.publish(ctx, createdEvent(events.KindProject, p.ID, actorID, projectSummary(p), p.Approval))
	return p, nil
}

func (s *Service) UpdateProject(ctx context.Context, actorID, id string, in ProjectInput) (Project, error) {
	if err := in.Normalize(s.now()); err != nil {
		return Project{}, err
	}
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p.apply(in)
	updated := s.now().UTC()
	p.UpdatedAt = &updated
	if err := s.projects.Update(ctx, p); err != nil {
		return Project{}, fmt.Errorf("update project %s: %w", id, err)
	}
	s.publish(ctx, events.New(events.RecordUpdated, events.KindProject, id, actorID, projectSummary(p)))
	return p, nil
}

func (p *Project) apply(in ProjectInput) {
	p.Broker = in.Broker
	p.Date = in.Date
	p.Name = in.Name
	p.Type = in.Type
	p.TotalMonthlyHours = in.TotalMonthlyHours
	p.HourlyRate = in.HourlyRate
	p.RecruiterName = in.RecruiterName
	p.ContractEnding = in.ContractEnding
	p.BrokerageType = in.BrokerageType
	p.BrokerageValue = in.BrokerageValue
}

func (s *Service) DeleteProject(ctx context.Context, actorID, id string) error {
	return s.deleteIn(ctx, events.KindProject, id, actorID, s.projects.Delete)
}

func (s *Service) ApproveProject(ctx context.Context, approverID, id string) (Project, error) {
	return approveIn(ctx, s, s.projects, events.KindProject, id, approverID,
		func(p *Project) *generic.Approval { return &p.Approval }, projectSummary)
}

func (s *Service) ApproveAllProjects(ctx context.Context, approverID string) (int, error) {
	return approveAllIn(ctx, s.projects, approverID, func(ctx context.Context, id string) error {
		_, err := s.ApproveProject(ctx, approverID, id)
		return err
	})
}

// AllProjects returns every project, for autofill and broker options.
func (s *Service) AllProjects(ctx context.Context) ([]Project, error) {
	return s.projects.List(ctx)
}

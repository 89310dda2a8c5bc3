package sqlite

import (
	"database/sql"

	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/impactfund"
)

// =============================================================================
// APPROVAL COLUMNS - Shared by transactions, expenses and projects
// =============================================================================

var approvalColumns = []string{"created_by", "status", "approved_by", "approved_at"}

func approvalValues(a generic.Approval) []any {
	return []any{nullString(a.CreatedBy), nullString(string(a.Status)), nullString(a.ApprovedBy), nullTime(a.ApprovedAt)}
}

type approvalRow struct {
	createdBy, status, approvedBy, approvedAt sql.NullString
}

func (r *approvalRow) dest() []any {
	return []any{&r.createdBy, &r.status, &r.approvedBy, &r.approvedAt}
}

func (r *approvalRow) approval() generic.Approval {
	return generic.Approval{
		CreatedBy:  r.createdBy.String,
		Status:     generic.Status(r.status.String),
		ApprovedBy: r.approvedBy.String,
		ApprovedAt: parseNullTime(r.approvedAt),
	}
}

func withApproval(cols ...string) []string {
	out := append([]string{}, cols...)
	out = append(out, approvalColumns...)
	return append(out, "created_at", "updated_at")
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Transactions returns the transaction collection.
func (s *Store) Transactions() generic.Collection[finance.Transaction] {
	return &table[finance.Transaction]{
		s:    s,
		kind: "transaction",
		name: "transactions",
		columns: withApproval("id", "client", "project", "date", "amount", "brokerage_type",
			"brokerage_value", "brokerage_amount", "additional_charges", "total_amount"),
		values: func(t finance.Transaction) []any {
			v := []any{t.ID, t.Broker, t.Project, t.Date, t.Amount.String(), string(t.BrokerageType),
				t.BrokerageValue.String(), nullDecimal(t.BrokerageAmount), t.AdditionalCharges.String(), nullDecimal(t.TotalAmount)}
			v = append(v, approvalValues(t.Approval)...)
			return append(v, formatTime(t.CreatedAt), nullTime(t.UpdatedAt))
		},
		scan: scanTransaction,
	}
}

func scanTransaction(row scanner) (finance.Transaction, error) {
	var t finance.Transaction
	var amount, brokerageType, brokerageValue, charges, createdAt string
	var brokerageAmount, totalAmount, updatedAt sql.NullString
	var ar approvalRow

	dest := []any{&t.ID, &t.Broker, &t.Project, &t.Date, &amount, &brokerageType,
		&brokerageValue, &brokerageAmount, &charges, &totalAmount}
	dest = append(dest, ar.dest()...)
	dest = append(dest, &createdAt, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return finance.Transaction{}, err
	}

	t.Amount = generic.ToDecimal(amount)
	t.BrokerageType = finance.BrokerageType(brokerageType)
	t.BrokerageValue = generic.ToDecimal(brokerageValue)
	t.BrokerageAmount = parseNullDecimal(brokerageAmount)
	t.AdditionalCharges = generic.ToDecimal(charges)
	t.TotalAmount = parseNullDecimal(totalAmount)
	t.Approval = ar.approval()
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseNullTime(updatedAt)
	return t, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) Expenses() generic.Collection[finance.Expense] {
	return &table[finance.Expense]{
		s:    s,
		kind: "expense",
		name: "expenses",
		columns: withApproval("id", "expense_name", "date", "expense_type", "amount",
			"comment", "recurring", "recurring_months"),
		values: func(e finance.Expense) []any {
			v := []any{e.ID, e.Name, e.Date, string(e.Type), e.Amount.String(),
				e.Comment, e.Recurring, e.RecurringMonths}
			v = append(v, approvalValues(e.Approval)...)
			return append(v, formatTime(e.CreatedAt), nullTime(e.UpdatedAt))
		},
		scan: scanExpense,
	}
}

func scanExpense(row scanner) (finance.Expense, error) {
	var e finance.Expense
	var expenseType, amount, createdAt string
	var updatedAt sql.NullString
	var ar approvalRow

	dest := []any{&e.ID, &e.Name, &e.Date, &expenseType, &amount,
		&e.Comment, &e.Recurring, &e.RecurringMonths}
	dest = append(dest, ar.dest()...)
	dest = append(dest, &createdAt, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return finance.Expense{}, err
	}

	e.Type = finance.ExpenseType(expenseType)
	e.Amount = generic.ToDecimal(amount)
	e.Approval = ar.approval()
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseNullTime(updatedAt)
	return e, nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (s *Store) Projects() generic.Collection[finance.Project] {
	return &table[finance.Project]{
		s:    s,
		kind: "project",
		name: "projects",
		columns: withApproval("id", "client", "date", "project", "project_type", "total_monthly_hours",
			"hourly_rate", "recruiter_name", "contract_ending", "brokerage_type", "brokerage_value"),
		values: func(p finance.Project) []any {
			v := []any{p.ID, p.Broker, p.Date, p.Name, string(p.Type), p.TotalMonthlyHours.String(),
				p.HourlyRate.String(), p.RecruiterName, p.ContractEnding, string(p.BrokerageType), p.BrokerageValue.String()}
			v = append(v, approvalValues(p.Approval)...)
			return append(v, formatTime(p.CreatedAt), nullTime(p.UpdatedAt))
		},
		scan: scanProject,
	}
}

func scanProject(row scanner) (finance.Project, error) {
	var p finance.Project
	var projectType, hours, rate, brokerageType, brokerageValue, createdAt string
	var updatedAt sql.NullString
	var ar approvalRow

	dest := []any{&p.ID, &p.Broker, &p.Date, &p.Name, &projectType, &hours,
		&rate, &p.RecruiterName, &p.ContractEnding, &brokerageType, &brokerageValue}
	dest = append(dest, ar.dest()...)
	dest = append(dest, &createdAt, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return finance.Project{}, err
	}

	p.Type = finance.ProjectType(projectType)
	p.TotalMonthlyHours = generic.ToDecimal(hours)
	p.HourlyRate = generic.ToDecimal(rate)
	p.BrokerageType = finance.BrokerageType(brokerageType)
	p.BrokerageValue = generic.ToDecimal(brokerageValue)
	p.Approval = ar.approval()
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseNullTime(updatedAt)
	return p, nil
}

// =============================================================================
// IMPACT FUND WITHDRAWALS
// =============================================================================

func (s *Store) Withdrawals() generic.Collection[impactfund.Withdrawal] {
	return &table[impactfund.Withdrawal]{
		s:       s,
		kind:    "withdrawal",
		name:    "impact_fund_withdrawals",
		columns: []string{"id", "amount", "description", "created_at", "updated_at"},
		values: func(w impactfund.Withdrawal) []any {
			return []any{w.ID, w.Amount.String(), w.Description, formatTime(w.CreatedAt), nullTime(w.UpdatedAt)}
		},
		scan: func(row scanner) (impactfund.Withdrawal, error) {
			var w impactfund.Withdrawal
			var amount, createdAt string
			var updatedAt sql.NullString
			if err := row.Scan(&w.ID, &amount, &w.Description, &createdAt, &updatedAt); err != nil {
				return impactfund.Withdrawal{}, err
			}
			w.Amount = generic.ToDecimal(amount)
			w.CreatedAt = parseTime(createdAt)
			w.UpdatedAt = parseNullTime(updatedAt)
			return w, nil
		},
	}
}

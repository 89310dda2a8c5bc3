/*
Package factory converts exported JSON documents into typed records.

PURPOSE:
  The tracker's data used to live in a document store where every field
  was loosely typed: amounts were numbers or numeric strings, dates were
  "YYYY-MM-DD" strings, {"seconds": n} timestamps or full ISO instants.
  The factory reads such an export and produces finance and impactfund
  records the services can store, so historical data can be imported
  without a conversion script.

JSON SCHEMA:
  {
    "transactions": [
      {"id": "abc", "client": "Acme", "project": "Portal",
       "date": "2024-03-10", "amount": "1200", "brokerageType": "percentage",
       "brokerageValue": 10, "totalAmount": 1080,
       "createdBy": "uid-1", "status": "approved",
       "createdAt": {"seconds": 1710064800}}
    ],
    "expenses":              [...],
    "projects":              [...],
    "impactFundWithdrawals": [...]
  }

KEY FEATURES:
  - Numbers are decoded exactly (json.Number into decimal)
  - Stored brokerageAmount/totalAmount are kept only when present
  - Missing status stays empty (legacy: counts as approved)
  - Missing ids are assigned, duplicates within an export are dropped
  - Unreadable dates are kept as written and reported as warnings

USAGE:
  export, err := factory.ParseExport(r)
  records, warnings := export.Records()
  report, err := factory.Import(ctx, records, sinks)

SEE ALSO:
  - generic/time.go: DateValue
  - api/dashboard.go: POST /api/import
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/impactfund"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type ExportJSON struct {
	Transactions []TransactionDoc `json:"transactions"`
	Expenses     []ExpenseDoc     `json:"expenses"`
	Projects     []ProjectDoc     `json:"projects"`
	Withdrawals  []WithdrawalDoc  `json:"impactFundWithdrawals"`
}

// ApprovalDoc is the approval block as the documents stored it.
type ApprovalDoc struct {
	CreatedBy  string            `json:"createdBy"`
	Status     string            `json:"status"`
	ApprovedBy string            `json:"approvedBy"`
	ApprovedAt generic.DateValue `json:"approvedAt"`
}

type TimestampsDoc struct {
	CreatedAt generic.DateValue `json:"createdAt"`
	UpdatedAt generic.DateValue `json:"updatedAt"`
}

type TransactionDoc struct {
	ID                string            `json:"id"`
	Client            string            `json:"client"`
	Project           string            `json:"project"`
	Date              generic.DateValue `json:"date"`
	Amount            any               `json:"amount"`
	BrokerageType     string            `json:"brokerageType"`
	BrokerageValue    any               `json:"brokerageValue"`
	BrokerageAmount   any               `json:"brokerageAmount"`
	AdditionalCharges any               `json:"additionalCharges"`
	TotalAmount       any               `json:"totalAmount"`
	ApprovalDoc
	TimestampsDoc
}

type ExpenseDoc struct {
	ID              string            `json:"id"`
	ExpenseName     string            `json:"expenseName"`
	Date            generic.DateValue `json:"date"`
	ExpenseType     string            `json:"expenseType"`
	Amount          any               `json:"amount"`
	Comment         string            `json:"comment"`
	Recurring       bool              `json:"recurring"`
	RecurringMonths any               `json:"recurringMonths"`
	ApprovalDoc
	TimestampsDoc
}

type ProjectDoc struct {
	ID                string            `json:"id"`
	Client            string            `json:"client"`
	Date              generic.DateValue `json:"date"`
	Project           string            `json:"project"`
	ProjectType       string            `json:"projectType"`
	TotalMonthlyHours any               `json:"totalMonthlyHours"`
	HourlyRate        any               `json:"hourlyRate"`
	RecruiterName     string            `json:"recruiterName"`
	ContractEnding    generic.DateValue `json:"contractEnding"`
	BrokerageType     string            `json:"brokerageType"`
	BrokerageValue    any               `json:"brokerageValue"`
	ApprovalDoc
	TimestampsDoc
}

type WithdrawalDoc struct {
	ID          string `json:"id"`
	Amount      any    `json:"amount"`
	Description string `json:"description"`
	TimestampsDoc
}

// ParseExport decodes an export, keeping numbers exact.
func ParseExport(r io.Reader) (*ExportJSON, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var export ExportJSON
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("invalid export JSON: %w", err)
	}
	return &export, nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// Records is an export converted to typed records.
type Records struct {
	Transactions []finance.Transaction
	Expenses     []finance.Expense
	Projects     []finance.Project
	Withdrawals  []impactfund.Withdrawal
}

type converter struct {
	now      time.Time
	seen     map[string]bool
	warnings []string
}

func (c *converter) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// id returns the document id, a new one when missing, or "" when the id
// was already used in this export.
func (c *converter) id(kind, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return generic.NewID()
	}
	key := kind + "/" + id
	if c.seen[key] {
		c.warn("%s %s: duplicate id, skipped", kind, id)
		return ""
	}
	c.seen[key] = true
	return id
}

func (c *converter) date(kind, id string, v generic.DateValue) string {
	if d := v.Normalize(); d != "" {
		return d
	}
	c.warn("%s %s: unreadable date", kind, id)
	return strings.TrimSpace(v.ISO)
}

func (c *converter) timestamps(ts TimestampsDoc) (time.Time, *time.Time) {
	created, ok := ts.CreatedAt.Instant()
	if !ok {
		created = c.now
	}
	var updated *time.Time
	if t, ok := ts.UpdatedAt.Instant(); ok {
		updated = &t
	}
	return created, updated
}

func approvalOf(a ApprovalDoc) generic.Approval {
	out := generic.Approval{
		CreatedBy:  strings.TrimSpace(a.CreatedBy),
		Status:     generic.Status(strings.ToLower(strings.TrimSpace(a.Status))),
		ApprovedBy: strings.TrimSpace(a.ApprovedBy),
	}
	if t, ok := a.ApprovedAt.Instant(); ok {
		out.ApprovedAt = &t
	}
	return out
}

// amount coerces a loose money value. Unreadable values become zero with
// a warning.
func (c *converter) amount(kind, id, field string, v any) decimal.Decimal {
	if v != nil && !generic.IsFinite(v) {
		c.warn("%s %s: unreadable %s %v, stored as 0", kind, id, field, v)
	}
	return generic.ToDecimal(v)
}

// optionalAmount is nil for absent or unreadable values, so the derived
// value is used instead.
func (c *converter) optionalAmount(kind, id, field string, v any) *decimal.Decimal {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	if !generic.IsFinite(v) {
		c.warn("%s %s: unreadable %s %v, ignored", kind, id, field, v)
		return nil
	}
	d := generic.ToDecimal(v)
	return &d
}

func brokerageTypeOf(s string) finance.BrokerageType {
	b, err := finance.ParseBrokerageType(s)
	if err != nil {
		return finance.BrokerageType(s)
	}
	return b
}

// Records converts every document. Problems that do not prevent a record
// from being stored are returned as warnings.
func (e *ExportJSON) Records() (Records, []string) {
	return e.RecordsAt(time.Now().UTC())
}

// RecordsAt is Records with createdAt defaulting to now.
func (e *ExportJSON) RecordsAt(now time.Time) (Records, []string) {
	c := &converter{now: now, seen: make(map[string]bool)}
	var out Records

	for _, d := range e.Transactions {
		id := c.id(events.KindTransaction, d.ID)
		if id == "" {
			continue
		}
		created, updated := c.timestamps(d.TimestampsDoc)
		out.Transactions = append(out.Transactions, finance.Transaction{
			ID:                id,
			Broker:            strings.TrimSpace(d.Client),
			Project:           strings.TrimSpace(d.Project),
			Date:              c.date(events.KindTransaction, id, d.Date),
			Amount:            c.amount(events.KindTransaction, id, "amount", d.Amount),
			BrokerageType:     brokerageTypeOf(d.BrokerageType),
			BrokerageValue:    generic.ToDecimal(d.BrokerageValue),
			BrokerageAmount:   c.optionalAmount(events.KindTransaction, id, "brokerageAmount", d.BrokerageAmount),
			AdditionalCharges: generic.ToDecimal(d.AdditionalCharges),
			TotalAmount:       c.optionalAmount(events.KindTransaction, id, "totalAmount", d.TotalAmount),
			Approval:          approvalOf(d.ApprovalDoc),
			CreatedAt:         created,
			UpdatedAt:         updated,
		})
	}

	for _, d := range e.Expenses {
		id := c.id(events.KindExpense, d.ID)
		if id == "" {
			continue
		}
		typ, err := finance.ParseExpenseType(d.ExpenseType)
		if err != nil {
			c.warn("expense %s: %v", id, err)
			typ = finance.ExpenseType(strings.TrimSpace(d.ExpenseType))
		}
		months := int(generic.ToNumber(d.RecurringMonths))
		created, updated := c.timestamps(d.TimestampsDoc)
		out.Expenses = append(out.Expenses, finance.Expense{
			ID:              id,
			Name:            strings.TrimSpace(d.ExpenseName),
			Date:            c.date(events.KindExpense, id, d.Date),
			Type:            typ,
			Amount:          c.amount(events.KindExpense, id, "amount", d.Amount),
			Comment:         d.Comment,
			Recurring:       d.Recurring && months > 0,
			RecurringMonths: months,
			Approval:        approvalOf(d.ApprovalDoc),
			CreatedAt:       created,
			UpdatedAt:       updated,
		})
	}

	for _, d := range e.Projects {
		id := c.id(events.KindProject, d.ID)
		if id == "" {
			continue
		}
		typ, err := finance.ParseProjectType(d.ProjectType)
		if err != nil {
			c.warn("project %s: %v", id, err)
			typ = finance.ProjectType(strings.TrimSpace(d.ProjectType))
		}
		created, updated := c.timestamps(d.TimestampsDoc)
		out.Projects = append(out.Projects, finance.Project{
			ID:                id,
			Broker:            strings.TrimSpace(d.Client),
			Date:              c.date(events.KindProject, id, d.Date),
			Name:              strings.TrimSpace(d.Project),
			Type:              typ,
			TotalMonthlyHours: generic.ToDecimal(d.TotalMonthlyHours),
			HourlyRate:        generic.ToDecimal(d.HourlyRate),
			RecruiterName:     strings.TrimSpace(d.RecruiterName),
			ContractEnding:    d.ContractEnding.Normalize(),
			BrokerageType:     brokerageTypeOf(d.BrokerageType),
			BrokerageValue:    generic.ToDecimal(d.BrokerageValue),
			Approval:          approvalOf(d.ApprovalDoc),
			CreatedAt:         created,
			UpdatedAt:         updated,
		})
	}

	for _, d := range e.Withdrawals {
		id := c.id(events.KindWithdrawal, d.ID)
		if id == "" {
			continue
		}
		created, updated := c.timestamps(d.TimestampsDoc)
		out.Withdrawals = append(out.Withdrawals, impactfund.Withdrawal{
			ID:          id,
			Amount:      c.amount(events.KindWithdrawal, id, "amount", d.Amount),
			Description: strings.TrimSpace(d.Description),
			CreatedAt:   created,
			UpdatedAt:   updated,
		})
	}

	return out, c.warnings
}

// =============================================================================
// IMPORT
// =============================================================================

// Sinks are the collections an import writes to.
type Sinks struct {
	Transactions generic.Collection[finance.Transaction]
	Expenses     generic.Collection[finance.Expense]
	Projects     generic.Collection[finance.Project]
	Withdrawals  generic.Collection[impactfund.Withdrawal]
}

type ImportReport struct {
	Transactions int      `json:"transactions"`
	Expenses     int      `json:"expenses"`
	Projects     int      `json:"projects"`
	Withdrawals  int      `json:"withdrawals"`
	Skipped      []string `json:"skipped,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Import stores every record. Records whose id already exists are skipped
// and reported; any other store error stops the import.
func Import(ctx context.Context, recs Records, sinks Sinks) (ImportReport, error) {
	var report ImportReport
	var err error
	if report.Transactions, err = importAll(ctx, sinks.Transactions, recs.Transactions, events.KindTransaction, &report); err != nil {
		return report, err
	}
	if report.Expenses, err = importAll(ctx, sinks.Expenses, recs.Expenses, events.KindExpense, &report); err != nil {
		return report, err
	}
	if report.Projects, err = importAll(ctx, sinks.Projects, recs.Projects, events.KindProject, &report); err != nil {
		return report, err
	}
	if report.Withdrawals, err = importAll(ctx, sinks.Withdrawals, recs.Withdrawals, events.KindWithdrawal, &report); err != nil {
		return report, err
	}
	return report, nil
}

func importAll[T generic.Record](ctx context.Context, c generic.Collection[T], recs []T, kind string, report *ImportReport) (int, error) {
	n := 0
	for _, rec := range recs {
		if err := c.Create(ctx, rec); err != nil {
			if errors.Is(err, generic.ErrConflict) {
				report.Skipped = append(report.Skipped, kind+" "+rec.RecordID())
				continue
			}
			return n, fmt.Errorf("import %s %s: %w", kind, rec.RecordID(), err)
		}
		n++
	}
	return n, nil
}

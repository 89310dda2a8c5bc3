// Package finance implements transaction, expense and project records.
// It uses the generic engine for dates, approval and aggregation.
package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finhub/generic"
)

// =============================================================================
// ENUMS
// =============================================================================

type BrokerageType string

const (
	BrokeragePercentage BrokerageType = "percentage"
	BrokerageFixed      BrokerageType = "fixed"
)

func (b BrokerageType) Valid() bool {
	return b == BrokeragePercentage || b == BrokerageFixed
}

// ParseBrokerageType defaults an empty value to percentage.
func ParseBrokerageType(s string) (BrokerageType, error) {
	b := BrokerageType(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BrokeragePercentage, nil
	}
	if !b.Valid() {
		return "", generic.Invalid("brokerageType", fmt.Sprintf("unknown brokerage type %q", s))
	}
	return b, nil
}

type ExpenseType string

const (
	ExpenseRent         ExpenseType = "rent"
	ExpenseSalaries     ExpenseType = "salaries"
	ExpenseGeneral      ExpenseType = "general"
	ExpenseFH           ExpenseType = "fh"
	ExpenseSoftwareTool ExpenseType = "software_tool"
)

var expenseTypes = []ExpenseType{ExpenseRent, ExpenseSalaries, ExpenseGeneral, ExpenseFH, ExpenseSoftwareTool}

var expenseLabels = map[ExpenseType]string{
	ExpenseRent:         "Rent",
	ExpenseSalaries:     "Salaries",
	ExpenseGeneral:      "General",
	ExpenseFH:           "FH",
	ExpenseSoftwareTool: "Software Tool",
}

// ExpenseTypes lists the types in display order.
func ExpenseTypes() []ExpenseType {
	return append([]ExpenseType(nil), expenseTypes...)
}

// Label is the display name; unknown types display as stored.
func (e ExpenseType) Label() string {
	if l, ok := expenseLabels[e]; ok {
		return l
	}
	return string(e)
}

// ParseExpenseType accepts a stored value or a display label, any case.
func ParseExpenseType(s string) (ExpenseType, error) {
	s = strings.TrimSpace(s)
	for _, t := range expenseTypes {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, expenseLabels[t]) {
			return t, nil
		}
	}
	return "", generic.Invalid("expenseType", fmt.Sprintf("unknown expense type %q", s))
}

type ProjectType string

const (
	ProjectFullTime ProjectType = "Full time"
	ProjectPartTime ProjectType = "Part time"
	ProjectContract ProjectType = "Contract"
)

func ProjectTypes() []ProjectType {
	return []ProjectType{ProjectFullTime, ProjectPartTime, ProjectContract}
}

// ParseProjectType matches case-insensitively; empty is allowed.
func ParseProjectType(s string) (ProjectType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, t := range ProjectTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", generic.Invalid("projectType", fmt.Sprintf("unknown project type %q", s))
}

// =============================================================================
// RECORDS
// =============================================================================

// Transaction is money received through a broker. Broker is serialized as
// "client", the name every stored document uses.
type Transaction struct {
	ID                string           `json:"id"`
	Broker            string           `json:"client"`
	Project           string           `json:"project"`
	Date              string           `json:"date"`
	Amount            decimal.Decimal  `json:"amount"`
	BrokerageType     BrokerageType    `json:"brokerageType"`
	BrokerageValue    decimal.Decimal  `json:"brokerageValue"`
	BrokerageAmount   *decimal.Decimal `json:"brokerageAmount,omitempty"`
	AdditionalCharges decimal.Decimal  `json:"additionalCharges"`
	TotalAmount       *decimal.Decimal `json:"totalAmount,omitempty"`
	generic.Approval
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (t Transaction) RecordID() string { return t.ID }

type Expense struct {
	ID              string          `json:"id"`
	Name            string          `json:"expenseName"`
	Date            string          `json:"date"`
	Type            ExpenseType     `json:"expenseType"`
	Amount          decimal.Decimal `json:"amount"`
	Comment         string          `json:"comment"`
	Recurring       bool            `json:"recurring"`
	RecurringMonths int             `json:"recurringMonths,omitempty"`
	generic.Approval
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (e Expense) RecordID() string { return e.ID }

type Project struct {
	ID                string          `json:"id"`
	Broker            string          `json:"client"`
	Date              string          `json:"date"`
	Name              string          `json:"project"`
	Type              ProjectType     `json:"projectType"`
	TotalMonthlyHours decimal.Decimal `json:"totalMonthlyHours"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	RecruiterName     string          `json:"recruiterName"`
	ContractEnding    string          `json:"contractEnding"`
	BrokerageType     BrokerageType   `json:"brokerageType"`
	BrokerageValue    decimal.Decimal `json:"brokerageValue"`
	generic.Approval
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (p Project) RecordID() string { return p.ID }

// Compile-time checks
var (
	_ generic.Approvable = Transaction{}
	_ generic.Approvable = Expense{}
	_ generic.Approvable = Project{}
)

// =============================================================================
// INPUTS - What a form submits
// =============================================================================

type TransactionInput struct {
	Broker            string
	Project           string
	Date              string
	Amount            decimal.Decimal
	BrokerageType     BrokerageType
	BrokerageValue    decimal.Decimal
	AdditionalCharges decimal.Decimal
}

type ExpenseInput struct {
	Name            string
	Date            string
	Type            ExpenseType
	Amount          decimal.Decimal
	Comment         string
	Recurring       bool
	RecurringMonths int
}

type ProjectInput struct {
	Broker            string
	Date              string
	Name              string
	Type              ProjectType
	TotalMonthlyHours decimal.Decimal
	HourlyRate        decimal.Decimal
	RecruiterName     string
	ContractEnding    string
	BrokerageType     BrokerageType
	BrokerageValue    decimal.Decimal
}

// =============================================================================
// VALIDATION
// =============================================================================

func requireDate(field, v string) (string, error) {
	d := generic.NormalizeDate(v)
	if d == "" {
		return "", generic.Invalid(field, "a valid date is required")
	}
	return d, nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return generic.Invalid(field, "must be greater than 0")
	}
	return nil
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return generic.Invalid(field, "must not be negative")
	}
	return nil
}

// Normalize trims, defaults and validates the input in place.
func (in *TransactionInput) Normalize() error {
	in.Broker = strings.TrimSpace(in.Broker)
	in.Project = strings.TrimSpace(in.Project)
	if in.Broker == "" {
		return generic.Invalid("client", "broker is required")
	}
	date, err := requireDate("date", in.Date)
	if err != nil {
		return err
	}
	in.Date = date
	if err := requirePositive("amount", in.Amount); err != nil {
		return err
	}
	if in.BrokerageType, err = ParseBrokerageType(string(in.BrokerageType)); err != nil {
		return err
	}
	if err := requireNonNegative("brokerageValue", in.BrokerageValue); err != nil {
		return err
	}
	return requireNonNegative("additionalCharges", in.AdditionalCharges)
}

func (in *ExpenseInput) Normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Name == "" {
		return generic.Invalid("expenseName", "name is required")
	}
	date, err := requireDate("date", in.Date)
	if err != nil {
		return err
	}
	in.Date = date
	if in.Type, err = ParseExpenseType(string(in.Type)); err != nil {
		return err
	}
	return requirePositive("amount", in.Amount)
}

// Normalize fills contractEnding with six months after now when empty.
func (in *ProjectInput) Normalize(now time.Time) error {
	in.Broker = strings.TrimSpace(in.Broker)
	in.Name = strings.TrimSpace(in.Name)
	in.RecruiterName = strings.TrimSpace(in.RecruiterName)
	if in.Broker == "" {
		return generic.Invalid("client", "broker is required")
	}
	if in.Name == "" {
		return generic.Invalid("project", "project name is required")
	}
	date, err := requireDate("date", in.Date)
	if err != nil {
		return err
	}
	in.Date = date
	if in.Type, err = ParseProjectType(string(in.Type)); err != nil {
		return err
	}
	if in.BrokerageType, err = ParseBrokerageType(string(in.BrokerageType)); err != nil {
		return err
	}
	if err := requireNonNegative("totalMonthlyHours", in.TotalMonthlyHours); err != nil {
		return err
	}
	if err := requireNonNegative("hourlyRate", in.HourlyRate); err != nil {
		return err
	}
	if err := requireNonNegative("brokerageValue", in.BrokerageValue); err != nil {
		return err
	}
	if strings.TrimSpace(in.ContractEnding) == "" {
		in.ContractEnding = DefaultContractEnding(now)
	} else if in.ContractEnding, err = requireDate("contractEnding", in.ContractEnding); err != nil {
		return err
	}
	return nil
}

// DefaultContractEnding is six months after now.
func DefaultContractEnding(now time.Time) string {
	return generic.AddMonths(now, 6).Format(generic.DateLayout)
}

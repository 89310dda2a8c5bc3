/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow the
  stored documents (camelCase, "client" for the broker) so exported data
  and API payloads read the same.

NAMING CONVENTION:
  - *Request: Request body types from clients, validated with struct tags
  - *Response: Response wrappers
  - Records themselves (finance.Transaction, ...) are returned as-is

VALIDATION:
  Struct tags are checked by go-playground/validator before a request
  reaches a service. Domain rules (amount > 0, known enum values, date
  shapes) are enforced again by the services.

SEE ALSO:
  - handlers.go: Uses these types
  - finance/types.go: Record types
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/finhub/accounts"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/impactfund"
)

// =============================================================================
// AUTH
// =============================================================================

type SignupRequest struct {
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type SessionResponse struct {
	User    accounts.User    `json:"user"`
	Session accounts.Session `json:"session"`
}

type AuthConfigResponse struct {
	accounts.AppConfig
	SignupOpen bool `json:"signupOpen"`
}

// TargetRequest carries the raw field value, a number or a string. Null or
// empty clears the target.
type TargetRequest struct {
	TargetAmount any `json:"targetAmount"`
}

func (r TargetRequest) Raw() string {
	if r.TargetAmount == nil {
		return ""
	}
	return fmt.Sprint(r.TargetAmount)
}

type TargetResponse struct {
	TargetAmount *decimal.Decimal `json:"targetAmount"`
}

type PasswordCheckRequest struct {
	Password string `json:"password"`
}

type PasswordCheckResponse struct {
	Requirements []accounts.Requirement `json:"requirements"`
	Valid        bool                   `json:"valid"`
	Message      string                 `json:"message,omitempty"`
}

// =============================================================================
// RECORDS
// =============================================================================

type TransactionRequest struct {
	Client            string          `json:"client" validate:"required"`
	Project           string          `json:"project"`
	Date              string          `json:"date" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	BrokerageType     string          `json:"brokerageType" validate:"omitempty,oneof=percentage fixed"`
	BrokerageValue    decimal.Decimal `json:"brokerageValue"`
	AdditionalCharges decimal.Decimal `json:"additionalCharges"`
}

func (r TransactionRequest) Input() finance.TransactionInput {
	return finance.TransactionInput{
		Broker:            r.Client,
		Project:           r.Project,
		Date:              r.Date,
		Amount:            r.Amount,
		BrokerageType:     finance.BrokerageType(r.BrokerageType),
		BrokerageValue:    r.BrokerageValue,
		AdditionalCharges: r.AdditionalCharges,
	}
}

type ExpenseRequest struct {
	ExpenseName     string          `json:"expenseName" validate:"required"`
	Date            string          `json:"date" validate:"required"`
	ExpenseType     string          `json:"expenseType" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Comment         string          `json:"comment"`
	Recurring       bool            `json:"recurring"`
	RecurringMonths int             `json:"recurringMonths"`
}

func (r ExpenseRequest) Input() finance.ExpenseInput {
	return finance.ExpenseInput{
		Name:            r.ExpenseName,
		Date:            r.Date,
		Type:            finance.ExpenseType(r.ExpenseType),
		Amount:          r.Amount,
		Comment:         r.Comment,
		Recurring:       r.Recurring,
		RecurringMonths: r.RecurringMonths,
	}
}

type ProjectRequest struct {
	Client            string          `json:"client" validate:"required"`
	Date              string          `json:"date" validate:"required"`
	Project           string          `json:"project" validate:"required"`
	ProjectType       string          `json:"projectType"`
	TotalMonthlyHours decimal.Decimal `json:"totalMonthlyHours"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	RecruiterName     string          `json:"recruiterName"`
	ContractEnding    string          `json:"contractEnding"`
	BrokerageType     string          `json:"brokerageType" validate:"omitempty,oneof=percentage fixed"`
	BrokerageValue    decimal.Decimal `json:"brokerageValue"`
}

func (r ProjectRequest) Input() finance.ProjectInput {
	return finance.ProjectInput{
		Broker:            r.Client,
		Date:              r.Date,
		Name:              r.Project,
		Type:              finance.ProjectType(r.ProjectType),
		TotalMonthlyHours: r.TotalMonthlyHours,
		HourlyRate:        r.HourlyRate,
		RecruiterName:     r.RecruiterName,
		ContractEnding:    r.ContractEnding,
		BrokerageType:     finance.BrokerageType(r.BrokerageType),
		BrokerageValue:    r.BrokerageValue,
	}
}

type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

func (r WithdrawalRequest) Input() impactfund.WithdrawalInput {
	return impactfund.WithdrawalInput{Amount: r.Amount, Description: r.Description}
}

// =============================================================================
// RESPONSES
// =============================================================================

// ListResponse wraps a filtered list with the range that produced it.
type ListResponse[T any] struct {
	Range generic.DateRange `json:"range"`
	Items []T               `json:"items"`
	Total *decimal.Decimal  `json:"total,omitempty"`
	Count int               `json:"count"`
}

type ExpenseCreatedResponse struct {
	ID      string            `json:"id"`
	Created []finance.Expense `json:"created"`
}

type ApproveAllResponse struct {
	Approved int `json:"approved"`
}

type OptionsResponse struct {
	Options []string `json:"options"`
}

type AutofillResponse struct {
	Found       bool                         `json:"found"`
	Project     *finance.ProjectDefaults     `json:"project,omitempty"`
	Transaction *finance.TransactionDefaults `json:"transaction,omitempty"`
}

type FundResponse struct {
	impactfund.Ledger
	Withdrawals []impactfund.Withdrawal `json:"withdrawals"`
}

type DashboardResponse struct {
	Overview      finance.Overview     `json:"overview"`
	BrokerTotals  []generic.GroupTotal `json:"brokerTotals"`
	ProjectTotals []generic.GroupTotal `json:"projectTotals"`
	NetAfterFund  decimal.Decimal      `json:"netAfterImpactFund"`
	FundRemaining decimal.Decimal      `json:"impactFundRemaining"`
	PendingCount  int                  `json:"pendingCount"`
}

// ErrorResponse is the standard error format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldError is one failed struct-tag check.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

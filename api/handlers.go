/*
handlers.go - HTTP API handlers for the finance tracker

PURPOSE:
  Exposes the finance, impact fund and account services via a JSON API.
  Handles HTTP request/response, JSON serialization and validation, and
  delegates to the services held by app.App.

ENDPOINTS:
  Records (transactions, expenses, projects share the same shape):
    GET    /api/{kind}                 List, filtered by ?from&to
    POST   /api/{kind}                 Create (starts pending)
    GET    /api/{kind}/pending         Records awaiting approval
    POST   /api/{kind}/approve-all     Approve every record the caller may
    GET    /api/{kind}/{id}            Get one record
    PUT    /api/{kind}/{id}            Edit
    DELETE /api/{kind}/{id}            Delete
    POST   /api/{kind}/{id}/approve    Approve one record

  Projects:
    GET    /api/projects/brokers       Broker names for pickers
    GET    /api/projects/options       Project names for ?client=
    GET    /api/projects/autofill      Defaults for ?client=[&project=]

  See auth.go and dashboard.go for the remaining groups.

REQUEST FLOW:
  1. Decode JSON and check struct tags
  2. Call the service with the authenticated user as actor
  3. Refresh the app snapshot for the kinds the call touched
  4. Serialize response

ERROR HANDLING:
  Errors are returned as ErrorResponse with the status from statusFor:
  - 400: Validation errors, bad ranges, withdrawal above the fund
  - 401/403/429: Account errors (see auth.go)
  - 404: Record not found
  - 409: Approval preconditions, duplicate ids
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/finhub/accounts"
	"github.com/warp/finhub/app"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/logging"
)

// maxBodyBytes bounds every JSON body except imports.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	App *app.App

	validate *validator.Validate
	logger   *logging.Logger
}

func NewHandler(a *app.App, logger *logging.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		App:      a,
		validate: v,
		logger:   logging.OrNop(logger).WithComponent(logging.ComponentHTTP),
	}
}

func (h *Handler) log(r *http.Request) *logging.Logger {
	return logging.FromContext(r.Context(), h.logger)
}

// refresh reloads the snapshot after a write. The write already succeeded,
// so a failure is only logged.
func (h *Handler) refresh(r *http.Request, kinds ...string) {
	if err := h.App.Refresh(r.Context(), kinds...); err != nil {
		h.log(r).Warn("snapshot refresh failed", zap.Error(err), zap.Strings("kinds", kinds))
	}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	rng := h.rangeFromQuery(r)
	txs, err := h.App.Finance.ListTransactions(r.Context(), rng)
	if err != nil {
		h.respondError(w, r, err, "Failed to list transactions")
		return
	}
	total := finance.SumNetAfterImpactFund(txs)
	writeJSON(w, http.StatusOK, ListResponse[finance.Transaction]{
		Range: rng, Items: nonNil(txs), Total: &total, Count: len(txs),
	})
}

func (h *Handler) PendingTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.App.Finance.PendingTransactions(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to list pending transactions")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.App.Finance.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "Failed to get transaction")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.App.Finance.CreateTransaction(r.Context(), actorID(r), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to create transaction")
		return
	}
	h.refresh(r, events.KindTransaction)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.App.Finance.UpdateTransaction(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to update transaction")
		return
	}
	h.refresh(r, events.KindTransaction)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.App.Finance.DeleteTransaction(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err, "Failed to delete transaction")
		return
	}
	h.refresh(r, events.KindTransaction)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.App.Finance.ApproveTransaction(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "Failed to approve transaction")
		return
	}
	h.refresh(r, events.KindTransaction)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) ApproveAllTransactions(w http.ResponseWriter, r *http.Request) {
	h.approveAll(w, r, events.KindTransaction, h.App.Finance.ApproveAllTransactions)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	rng := h.rangeFromQuery(r)
	exps, err := h.App.Finance.ListExpenses(r.Context(), rng)
	if err != nil {
		h.respondError(w, r, err, "Failed to list expenses")
		return
	}
	total := finance.SumExpenses(exps)
	writeJSON(w, http.StatusOK, ListResponse[finance.Expense]{
		Range: rng, Items: nonNil(exps), Total: &total, Count: len(exps),
	})
}

func (h *Handler) PendingExpenses(w http.ResponseWriter, r *http.Request) {
	exps, err := h.App.Finance.PendingExpenses(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to list pending expenses")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(exps))
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.App.Finance.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "Failed to get expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateExpense answers with every stored month of a recurring expense.
// When a store write fails part way the months already stored are
// reported in the error details.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, created, err := h.App.Finance.CreateExpense(r.Context(), actorID(r), req.Input())
	if len(created) > 0 {
		h.refresh(r, events.KindExpense)
	}
	if err != nil {
		if len(created) > 0 {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:   "Failed to create every month of the expense",
				Details: created,
			})
			return
		}
		h.respondError(w, r, err, "Failed to create expense")
		return
	}
	writeJSON(w, http.StatusCreated, ExpenseCreatedResponse{ID: id, Created: created})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.App.Finance.UpdateExpense(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to update expense")
		return
	}
	h.refresh(r, events.KindExpense)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.App.Finance.DeleteExpense(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err, "Failed to delete expense")
		return
	}
	h.refresh(r, events.KindExpense)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.App.Finance.ApproveExpense(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "Failed to approve expense")
		return
	}
	h.refresh(r, events.KindExpense)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) ApproveAllExpenses(w http.ResponseWriter, r *http.Request) {
	h.approveAll(w, r, events.KindExpense, h.App.Finance.ApproveAllExpenses)
}

// ExpenseTypes lists the expense types with their display labels.
func (h *Handler) ExpenseTypes(w http.ResponseWriter, r *http.Request) {
	type option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	types := finance.ExpenseTypes()
	out := make([]option, len(types))
	for i, t := range types {
		out[i] = option{Value: string(t), Label: t.Label()}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	rng := h.rangeFromQuery(r)
	projs, err := h.App.Finance.ListProjects(r.Context(), rng)
	if err != nil {
		h.respondError(w, r, err, "Failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[finance.Project]{
		Range: rng, Items: nonNil(projs), Count: len(projs),
	})
}

func (h *Handler) PendingProjects(w http.ResponseWriter, r *http.Request) {
	projs, err := h.App.Finance.PendingProjects(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to list pending projects")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(projs))
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.App.Finance.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "Failed to get project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.App.Finance.CreateProject(r.Context(), actorID(r), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to create project")
		return
	}
	h.refresh(r, events.KindProject)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.App.Finance.UpdateProject(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to update project")
		return
	}
	h.refresh(r, events.KindProject)
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.App.Finance.DeleteProject(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err, "Failed to delete project")
		return
	}
	h.refresh(r, events.KindProject)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApproveProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.App.Finance.ApproveProject(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err, "Failed to approve project")
		return
	}
	h.refresh(r, events.KindProject)
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ApproveAllProjects(w http.ResponseWriter, r *http.Request) {
	h.approveAll(w, r, events.KindProject, h.App.Finance.ApproveAllProjects)
}

// BrokerOptions lists the distinct broker names of all projects.
func (h *Handler) BrokerOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OptionsResponse{
		Options: finance.BrokerOptions(h.App.Snapshot().Projects),
	})
}

// ProjectOptions lists the project names used with ?client=.
func (h *Handler) ProjectOptions(w http.ResponseWriter, r *http.Request) {
	broker := r.URL.Query().Get("client")
	writeJSON(w, http.StatusOK, OptionsResponse{
		Options: finance.ProjectOptions(h.App.Snapshot().Projects, broker),
	})
}

// Autofill returns project defaults for ?client=, or transaction defaults
// when ?project= is also given.
func (h *Handler) Autofill(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	broker, name := q.Get("client"), q.Get("project")
	if strings.TrimSpace(broker) == "" {
		writeError(w, http.StatusBadRequest, "client is required", nil)
		return
	}
	projects := h.App.Snapshot().Projects

	if strings.TrimSpace(name) != "" {
		d, ok := finance.TransactionAutofill(projects, broker, name)
		resp := AutofillResponse{Found: ok}
		if ok {
			resp.Transaction = &d
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	d, ok := finance.ProjectAutofill(projects, broker)
	resp := AutofillResponse{Found: ok}
	if ok {
		resp.Project = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SHARED
// =============================================================================

func (h *Handler) approveAll(w http.ResponseWriter, r *http.Request, kind string,
	approve func(ctx context.Context, approverID string) (int, error)) {
	n, err := approve(r.Context(), actorID(r))
	if n > 0 {
		h.refresh(r, kind)
	}
	if err != nil {
		h.respondError(w, r, err, fmt.Sprintf("Failed to approve all (%d approved)", n))
		return
	}
	writeJSON(w, http.StatusOK, ApproveAllResponse{Approved: n})
}

// rangeFromQuery reads ?from&to. With neither parameter present the
// previous calendar month is used; present but empty means unbounded.
func (h *Handler) rangeFromQuery(r *http.Request) generic.DateRange {
	q := r.URL.Query()
	if !q.Has("from") && !q.Has("to") {
		return generic.PreviousMonthRange(h.App.Now())
	}
	return generic.DateRange{From: q.Get("from"), To: q.Get("to")}
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]FieldError, len(verrs))
			for i, fe := range verrs {
				details[i] = FieldError{Field: fe.Field(), Rule: fe.Tag()}
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_failed",
				Details: details,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status and a short code.
func statusFor(err error) (int, string) {
	if code := accounts.CodeOf(err); code != "" {
		return authStatus(code), string(code)
	}
	var fund *generic.InsufficientFundError
	switch {
	case errors.As(err, &fund):
		return http.StatusBadRequest, "insufficient_fund"
	case errors.Is(err, generic.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, generic.ErrApproverRequired):
		return http.StatusBadRequest, "approver_required"
	case generic.IsClientError(err):
		return http.StatusBadRequest, "validation_failed"
	case generic.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrSelfApproval):
		return http.StatusConflict, "self_approval"
	case errors.Is(err, generic.ErrNotPending):
		return http.StatusConflict, "not_pending"
	case errors.Is(err, generic.ErrNoCreator):
		return http.StatusConflict, "no_creator"
	case generic.IsConflict(err):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, ""
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: message, Code: code, Details: err.Error()}

	var ve *generic.ValidationError
	var fund *generic.InsufficientFundError
	switch {
	case errors.As(err, &ve):
		resp.Error = ve.Error()
		resp.Details = ve.Field
	case errors.As(err, &fund):
		resp.Error = fmt.Sprintf("Amount exceeds the available balance (%s).", generic.FormatMoney(fund.Available))
		resp.Details = map[string]decimal.Decimal{
			"available": fund.Available,
			"requested": fund.Requested,
		}
	}
	if status >= http.StatusInternalServerError {
		h.log(r).Error(message, zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

/*
dashboard.go - Impact fund, dashboard, chart and import endpoints

ENDPOINTS:
  Impact fund:
    GET    /api/impact-fund                 Ledger and withdrawals (?client= filters contributions)
    GET    /api/impact-fund/withdrawals     Withdrawals, newest first
    POST   /api/impact-fund/withdrawals     Withdraw (400 above the remaining balance)
    PUT    /api/impact-fund/withdrawals/{id}
    DELETE /api/impact-fund/withdrawals/{id}

  Dashboard:
    GET    /api/dashboard                   Monthly overview and totals for ?from&to
    GET    /api/dashboard/chart.png         The overview as a bar chart

  Import:
    POST   /api/import                      Load a legacy JSON export (?mode=replace wipes records first)

Dashboard reads come from the app snapshot, not the store.
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/finhub/chart"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/factory"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/impactfund"
	"github.com/warp/finhub/logging"
)

// maxImportBytes bounds an export upload.
const maxImportBytes = 32 << 20

// =============================================================================
// IMPACT FUND HANDLERS
// =============================================================================

func (h *Handler) GetFund(w http.ResponseWriter, r *http.Request) {
	snap := h.App.Snapshot()
	ledger := snap.Ledger
	if broker := r.URL.Query().Get("client"); broker != "" {
		ledger.Contributions = impactfund.FilterContributionsByBroker(ledger.Contributions, broker)
	}
	ledger.Contributions = nonNil(ledger.Contributions)
	writeJSON(w, http.StatusOK, FundResponse{Ledger: ledger, Withdrawals: nonNil(snap.Withdrawals)})
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	ws, err := h.App.Fund.List(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Failed to list withdrawals")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ws))
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if !h.decode(w, r, &req) {
		return
	}
	wd, err := h.App.Fund.Create(r.Context(), actorID(r), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to create withdrawal")
		return
	}
	h.refresh(r, events.KindWithdrawal)
	writeJSON(w, http.StatusCreated, wd)
}

func (h *Handler) UpdateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawalRequest
	if !h.decode(w, r, &req) {
		return
	}
	wd, err := h.App.Fund.Update(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Input())
	if err != nil {
		h.respondError(w, r, err, "Failed to update withdrawal")
		return
	}
	h.refresh(r, events.KindWithdrawal)
	writeJSON(w, http.StatusOK, wd)
}

func (h *Handler) DeleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	if err := h.App.Fund.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err, "Failed to delete withdrawal")
		return
	}
	h.refresh(r, events.KindWithdrawal)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// dashboardRange reads ?from&to without the previous-month default: with
// no bounds the overview covers the current year. Ranges wider than
// generic.MaxWindowMonths are rejected.
func dashboardRange(r *http.Request, now time.Time) (generic.DateRange, error) {
	q := r.URL.Query()
	rng := generic.DateRange{From: q.Get("from"), To: q.Get("to")}
	return rng, generic.ValidateWindow(rng, now)
}

func (h *Handler) overview(r *http.Request) (finance.Overview, []finance.Transaction, error) {
	rng, err := dashboardRange(r, h.App.Now())
	if err != nil {
		return finance.Overview{}, nil, err
	}
	snap := h.App.Snapshot()
	ov := finance.MonthlyOverview(snap.Transactions, snap.Expenses, rng, h.App.Now())
	txs := generic.FilterByDateRange(snap.Transactions, rng.From, rng.To,
		func(t finance.Transaction) any { return t.Date })
	return ov, txs, nil
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ov, txs, err := h.overview(r)
	if err != nil {
		h.respondError(w, r, err, "Invalid range")
		return
	}
	snap := h.App.Snapshot()
	pending := len(generic.PendingOnly(snap.Transactions)) +
		len(generic.PendingOnly(snap.Expenses)) +
		len(generic.PendingOnly(snap.Projects))

	writeJSON(w, http.StatusOK, DashboardResponse{
		Overview:      ov,
		BrokerTotals:  nonNil(finance.BrokerTotals(txs)),
		ProjectTotals: nonNil(finance.ProjectTotals(txs)),
		NetAfterFund:  finance.SumNetAfterImpactFund(txs),
		FundRemaining: snap.Ledger.Remaining,
		PendingCount:  pending,
	})
}

func (h *Handler) DashboardChart(w http.ResponseWriter, r *http.Request) {
	ov, _, err := h.overview(r)
	if err != nil {
		h.respondError(w, r, err, "Invalid range")
		return
	}
	var buf bytes.Buffer
	if err := chart.RenderMonthlyComparison(&buf, ov, "Inward vs expenses"); err != nil {
		if errors.Is(err, chart.ErrNoMonths) {
			writeError(w, http.StatusBadRequest, "Nothing to plot for this range", err)
			return
		}
		h.respondError(w, r, err, "Failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// IMPORT HANDLER
// =============================================================================

// Import loads a legacy JSON export. Records whose id already exists are
// skipped; conversion warnings are returned with the report.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	export, err := factory.ParseExport(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export", err)
		return
	}
	recs, warnings := export.RecordsAt(h.App.Now().UTC())

	var report factory.ImportReport
	mode := r.URL.Query().Get("mode")
	switch mode {
	case "", "merge":
		report, err = h.App.Import(r.Context(), recs)
	case "replace":
		report, err = h.App.Replace(r.Context(), recs)
	default:
		h.respondError(w, r, generic.Invalid("mode", "must be merge or replace"), "Import failed")
		return
	}
	report.Warnings = warnings
	if err != nil {
		h.respondError(w, r, err, "Import failed")
		return
	}
	h.log(r).Info("export imported",
		zap.String(logging.FieldActor, actorID(r)),
		zap.String("mode", mode),
		zap.Int("warnings", len(warnings)),
	)
	writeJSON(w, http.StatusOK, report)
}

// Health reports that the process is serving and the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.App.Ping(ctx); err != nil {
		h.log(r).Error("store ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"loadedAt": h.App.Snapshot().LoadedAt,
	})
}

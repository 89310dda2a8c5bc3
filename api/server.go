/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    zap request log with the request id
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/auth/*           Sign-up, login, logout, reset (public)
  /api/me/*             The signed-in user
  /api/transactions/*   Transactions
  /api/expenses/*       Expenses
  /api/projects/*       Projects, broker options and autofill
  /api/impact-fund/*    Fund ledger and withdrawals
  /api/dashboard/*      Overview and chart
  /api/import           Legacy export import
  /healthz              Liveness, pings the store

Everything except /api/auth and /healthz requires a session token.

SEE ALSO:
  - handlers.go, auth.go, dashboard.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/finhub/logging"
)

// RouterOptions configure NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	Logger      *logging.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Get("/config", h.AuthConfig)
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/reset", h.RequestReset)
			r.Post("/password-check", h.PasswordCheck)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.Me)
				r.Get("/target", h.GetTarget)
				r.Put("/target", h.SetTarget)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Get("/pending", h.PendingTransactions)
				r.Post("/approve-all", h.ApproveAllTransactions)
				r.Get("/{id}", h.GetTransaction)
				r.Put("/{id}", h.UpdateTransaction)
				r.Delete("/{id}", h.DeleteTransaction)
				r.Post("/{id}/approve", h.ApproveTransaction)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.CreateExpense)
				r.Get("/types", h.ExpenseTypes)
				r.Get("/pending", h.PendingExpenses)
				r.Post("/approve-all", h.ApproveAllExpenses)
				r.Get("/{id}", h.GetExpense)
				r.Put("/{id}", h.UpdateExpense)
				r.Delete("/{id}", h.DeleteExpense)
				r.Post("/{id}/approve", h.ApproveExpense)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.ListProjects)
				r.Post("/", h.CreateProject)
				r.Get("/pending", h.PendingProjects)
				r.Post("/approve-all", h.ApproveAllProjects)
				r.Get("/brokers", h.BrokerOptions)
				r.Get("/options", h.ProjectOptions)
				r.Get("/autofill", h.Autofill)
				r.Get("/{id}", h.GetProject)
				r.Put("/{id}", h.UpdateProject)
				r.Delete("/{id}", h.DeleteProject)
				r.Post("/{id}/approve", h.ApproveProject)
			})

			r.Route("/impact-fund", func(r chi.Router) {
				r.Get("/", h.GetFund)
				r.Get("/withdrawals", h.ListWithdrawals)
				r.Post("/withdrawals", h.CreateWithdrawal)
				r.Put("/withdrawals/{id}", h.UpdateWithdrawal)
				r.Delete("/withdrawals/{id}", h.DeleteWithdrawal)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", h.Dashboard)
				r.Get("/chart.png", h.DashboardChart)
			})

			r.Post("/import", h.Import)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}

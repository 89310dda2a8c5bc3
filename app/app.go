/*
Package app holds the explicit application state of the tracker.

PURPOSE:
  An App owns the domain services, the collections they write to and a
  read-through snapshot of every collection. Handlers read dashboards and
  option lists from the snapshot and call Refresh for the kinds a mutation
  touched, so a page never shows data older than its own last write.

LIFECYCLE:
  a := app.New(deps)
  a.Init(ctx)                 // load all collections concurrently
  snap := a.Snapshot()        // cheap, safe to share
  a.Refresh(ctx, events.KindExpense)
  a.Replace(ctx, recs)        // wipe records, then import
  a.Close()                   // publishers first, then the store

CONCURRENCY:
  Init and Refresh load collections in parallel with errgroup and swap the
  loaded slices into the snapshot under one lock. A failed Refresh leaves
  the previous snapshot in place.

SEE ALSO:
  - sweeper.go: background session purge
  - api/server.go: the HTTP surface built on an App
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/finhub/accounts"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/factory"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/impactfund"
	"github.com/warp/finhub/logging"
)

// AllKinds are the collections a snapshot holds.
var AllKinds = []string{
	events.KindTransaction,
	events.KindExpense,
	events.KindProject,
	events.KindWithdrawal,
}

// Deps are the collaborators an App is built from. Store is closed by
// Close when set.
type Deps struct {
	Transactions generic.Collection[finance.Transaction]
	Expenses     generic.Collection[finance.Expense]
	Projects     generic.Collection[finance.Project]
	Withdrawals  generic.Collection[impactfund.Withdrawal]
	Accounts     accounts.Store
	Store        io.Closer

	Publisher events.Publisher
	Logger    *logging.Logger

	SessionTTL time.Duration
	BcryptCost int
	Now        func() time.Time
}

// Resetter empties stored records. The SQLite store resets all record
// tables in one call; memory collections reset one at a time.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Pinger is implemented by stores with a connection to check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Snapshot is the last loaded state of every collection. Slices are
// replaced, never modified, so a Snapshot may be read after later refreshes.
type Snapshot struct {
	Transactions []finance.Transaction
	Expenses     []finance.Expense
	Projects     []finance.Project
	Withdrawals  []impactfund.Withdrawal
	Ledger       impactfund.Ledger
	LoadedAt     time.Time
}

type App struct {
	Finance  *finance.Service
	Fund     *impactfund.Service
	Accounts *accounts.Service

	deps   Deps
	logger *logging.Logger
	now    func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

func New(deps Deps) *App {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	deps.Publisher = events.OrNop(deps.Publisher)
	logger := logging.OrNop(deps.Logger)

	fin := finance.NewService(deps.Transactions, deps.Expenses, deps.Projects,
		finance.WithPublisher(deps.Publisher),
		finance.WithLogger(logger),
		finance.WithClock(now),
	)
	fund := impactfund.NewService(deps.Withdrawals, fin, deps.Publisher, logger)
	fund.SetClock(now)
	acc := accounts.NewService(deps.Accounts, deps.Publisher, logger, accounts.Config{
		SessionTTL: deps.SessionTTL,
		BcryptCost: deps.BcryptCost,
	})
	acc.SetClock(now)

	return &App{
		Finance:  fin,
		Fund:     fund,
		Accounts: acc,
		deps:     deps,
		logger:   logger.WithComponent(logging.ComponentApp),
		now:      now,
	}
}

// Now is the application clock.
func (a *App) Now() time.Time {
	return a.now()
}

// Init loads every collection.
func (a *App) Init(ctx context.Context) error {
	if err := a.Refresh(ctx, AllKinds...); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	snap := a.Snapshot()
	a.logger.Info("collections loaded",
		zap.Int("transactions", len(snap.Transactions)),
		zap.Int("expenses", len(snap.Expenses)),
		zap.Int("projects", len(snap.Projects)),
		zap.Int("withdrawals", len(snap.Withdrawals)),
	)
	return nil
}

// Snapshot returns the current cached state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// Refresh re-reads the named kinds; no kinds means all of them. The fund
// ledger is rebuilt whenever transactions or withdrawals are reloaded.
func (a *App) Refresh(ctx context.Context, kinds ...string) error {
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	var (
		txs   []finance.Transaction
		exps  []finance.Expense
		projs []finance.Project
		ws    []impactfund.Withdrawal
	)
	want := make(map[string]bool, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range kinds {
		want[k] = true
	}
	if want[events.KindTransaction] {
		g.Go(func() (err error) {
			txs, err = a.deps.Transactions.List(gctx)
			return wrapLoad(events.KindTransaction, err)
		})
	}
	if want[events.KindExpense] {
		g.Go(func() (err error) {
			exps, err = a.deps.Expenses.List(gctx)
			return wrapLoad(events.KindExpense, err)
		})
	}
	if want[events.KindProject] {
		g.Go(func() (err error) {
			projs, err = a.deps.Projects.List(gctx)
			return wrapLoad(events.KindProject, err)
		})
	}
	if want[events.KindWithdrawal] {
		g.Go(func() (err error) {
			ws, err = a.Fund.List(gctx)
			return wrapLoad(events.KindWithdrawal, err)
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error("refresh failed",
			zap.Error(err),
			zap.String(logging.FieldOperation, logging.OpRefresh),
			zap.Strings("kinds", kinds),
		)
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if want[events.KindTransaction] {
		a.snap.Transactions = txs
	}
	if want[events.KindExpense] {
		a.snap.Expenses = exps
	}
	if want[events.KindProject] {
		a.snap.Projects = projs
	}
	if want[events.KindWithdrawal] {
		a.snap.Withdrawals = ws
	}
	if want[events.KindTransaction] || want[events.KindWithdrawal] {
		a.snap.Ledger = impactfund.BuildLedger(a.snap.Transactions, a.snap.Withdrawals)
	}
	a.snap.LoadedAt = a.now().UTC()
	return nil
}

func wrapLoad(kind string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", kind, err)
	}
	return nil
}

// Import stores a legacy export and reloads everything.
func (a *App) Import(ctx context.Context, recs factory.Records) (factory.ImportReport, error) {
	report, err := factory.Import(ctx, recs, factory.Sinks{
		Transactions: a.deps.Transactions,
		Expenses:     a.deps.Expenses,
		Projects:     a.deps.Projects,
		Withdrawals:  a.deps.Withdrawals,
	})
	a.logger.Info("import finished",
		zap.String(logging.FieldOperation, logging.OpImport),
		zap.Int("transactions", report.Transactions),
		zap.Int("expenses", report.Expenses),
		zap.Int("projects", report.Projects),
		zap.Int("withdrawals", report.Withdrawals),
		zap.Int("skipped", len(report.Skipped)),
	)
	if rerr := a.Refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return report, err
}

// Replace empties every record collection, then imports the export. Accounts
// and sessions are kept.
func (a *App) Replace(ctx context.Context, recs factory.Records) (factory.ImportReport, error) {
	if err := a.resetRecords(ctx); err != nil {
		a.logger.Error("reset failed", zap.Error(err), zap.String(logging.FieldOperation, logging.OpImport))
		if rerr := a.Refresh(ctx); rerr != nil {
			a.logger.Warn("refresh after failed reset", zap.Error(rerr))
		}
		return factory.ImportReport{}, fmt.Errorf("reset records: %w", err)
	}
	return a.Import(ctx, recs)
}

func (a *App) resetRecords(ctx context.Context) error {
	if r, ok := a.deps.Store.(Resetter); ok {
		return r.Reset(ctx)
	}
	collections := []any{a.deps.Transactions, a.deps.Expenses, a.deps.Projects, a.deps.Withdrawals}
	for i, c := range collections {
		r, ok := c.(Resetter)
		if !ok {
			return fmt.Errorf("%s collection cannot be reset", AllKinds[i])
		}
		if err := r.Reset(ctx); err != nil {
			return fmt.Errorf("reset %s: %w", AllKinds[i], err)
		}
	}
	return nil
}

// Ping checks the store connection. Stores without one always pass.
func (a *App) Ping(ctx context.Context) error {
	if p, ok := a.deps.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the publisher and then the store.
func (a *App) Close() error {
	var errs []error
	if err := a.deps.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if a.deps.Store != nil {
		if err := a.deps.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

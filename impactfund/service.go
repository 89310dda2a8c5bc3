package impactfund

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/finhub/events"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic"
	"github.com/warp/finhub/logging"
)

// TransactionLister is the part of finance.Service the fund reads.
type TransactionLister interface {
	ListTransactions(ctx context.Context, r generic.DateRange) ([]finance.Transaction, error)
}

// Service manages withdrawals. Create and Update hold a lock across the
// ledger read and the write so two withdrawals cannot both pass the check
// against the same balance.
type Service struct {
	mu           sync.Mutex
	withdrawals  generic.Collection[Withdrawal]
	transactions TransactionLister
	publisher    events.Publisher
	logger       *logging.Logger
	now          func() time.Time
}

func NewService(
	withdrawals generic.Collection[Withdrawal],
	transactions TransactionLister,
	publisher events.Publisher,
	logger *logging.Logger,
) *Service {
	return &Service{
		withdrawals:  withdrawals,
		transactions: transactions,
		publisher:    events.OrNop(publisher),
		logger:       logging.OrNop(logger).WithComponent(logging.ComponentImpactFund),
		now:          time.Now,
	}
}

// SetClock replaces time.Now, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns withdrawals newest first.
func (s *Service) List(ctx context.Context) ([]Withdrawal, error) {
	items, err := s.withdrawals.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (Withdrawal, error) {
	return s.withdrawals.Get(ctx, id)
}

// Ledger derives the current fund state.
func (s *Service) Ledger(ctx context.Context) (Ledger, error) {
	txs, err := s.transactions.ListTransactions(ctx, generic.DateRange{})
	if err != nil {
		return Ledger{}, fmt.Errorf("list transactions: %w", err)
	}
	withdrawals, err := s.List(ctx)
	if err != nil {
		return Ledger{}, fmt.Errorf("list withdrawals: %w", err)
	}
	return BuildLedger(txs, withdrawals), nil
}

func (s *Service) Create(ctx context.Context, actorID string, in WithdrawalInput) (Withdrawal, error) {
	in.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.Ledger(ctx)
	if err != nil {
		return Withdrawal{}, err
	}
	if err := CheckWithdrawal(ledger, in.Amount, decimal.Zero); err != nil {
		return Withdrawal{}, err
	}

	w := Withdrawal{
		ID:          generic.NewID(),
		Amount:      in.Amount,
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		return Withdrawal{}, fmt.Errorf("create withdrawal: %w", err)
	}
	s.logger.Info("withdrawal created",
		zap.String(logging.FieldRecordID, w.ID),
		zap.String("amount", w.Amount.StringFixed(2)),
	)
	s.publish(ctx, events.New(events.WithdrawalCreated, events.KindWithdrawal, w.ID, actorID, summary(w)))
	return w, nil
}

func (s *Service) Update(ctx context.Context, actorID, id string, in WithdrawalInput) (Withdrawal, error) {
	in.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.withdrawals.Get(ctx, id)
	if err != nil {
		return Withdrawal{}, err
	}
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return Withdrawal{}, err
	}
	if err := CheckWithdrawal(ledger, in.Amount, w.Amount); err != nil {
		return Withdrawal{}, err
	}

	w.Amount = in.Amount
	w.Description = in.Description
	updated := s.now().UTC()
	w.UpdatedAt = &updated
	if err := s.withdrawals.Update(ctx, w); err != nil {
		return Withdrawal{}, fmt.Errorf("update withdrawal %s: %w", id, err)
	}
	s.publish(ctx, events.New(events.WithdrawalUpdated, events.KindWithdrawal, w.ID, actorID, summary(w)))
	return w, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.withdrawals.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("withdrawal deleted", zap.String(logging.FieldRecordID, id))
	s.publish(ctx, events.New(events.WithdrawalDeleted, events.KindWithdrawal, id, actorID, ""))
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish failed", zap.Error(err), zap.String(logging.FieldEvent, string(e.Type)))
	}
}

func summary(w Withdrawal) string {
	if w.Description == "" {
		return generic.FormatMoney(w.Amount)
	}
	return fmt.Sprintf("%s (%s)", generic.FormatMoney(w.Amount), w.Description)
}

/*
sweeper.go - Background purge of expired sessions

PURPOSE:
  Sessions expire on read, but their rows stay until something deletes
  them. The sweeper runs PurgeSessions on a ticker so the sessions table
  does not grow without bound.

DESIGN:
  - Runs one goroutine with a configurable interval
  - Purges once immediately on Start
  - Stop waits for the goroutine to exit

USAGE:
  sw := app.NewSessionSweeper(a.Accounts, logger)
  sw.Start()
  defer sw.Stop()
*/
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/finhub/logging"
)

// Purger is the part of accounts.Service the sweeper drives.
type Purger interface {
	PurgeSessions(ctx context.Context) (int, error)
}

type SessionSweeper struct {
	Purger   Purger
	Interval time.Duration
	Enabled  bool

	logger *logging.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSessionSweeper(p Purger, logger *logging.Logger) *SessionSweeper {
	return &SessionSweeper{
		Purger:   p,
		Interval: 1 * time.Hour,
		Enabled:  true,
		logger:   logging.OrNop(logger).WithComponent(logging.ComponentAccounts),
	}
}

func (s *SessionSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("session sweeper disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.logger.Info("session sweeper started", zap.Duration("interval", s.Interval))
}

func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.logger.Info("session sweeper stopped")
}

func (s *SessionSweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.RunNow()
	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow purges immediately and returns how many sessions were removed.
func (s *SessionSweeper) RunNow() int {
	n, err := s.Purger.PurgeSessions(context.Background())
	if err != nil {
		s.logger.Error("session purge failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", zap.Int(logging.FieldCount, n))
	}
	return n
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the FinHub API server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize logging
  3. Open the store (SQLite with migrations, or memory)
  4. Connect the event publishers (AMQP, Discord) when configured
  5. Build the App and load every collection
  6. Start the session sweeper and the HTTP server

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides SQLITE_DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper, close publishers and the database
  4. Exit

EXAMPLES:
  ./server -db="./data/finhub.db"
  DATA_BACKEND=memory ./server -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/finhub/accounts"
	"github.com/warp/finhub/api"
	"github.com/warp/finhub/app"
	"github.com/warp/finhub/config"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/finance"
	"github.com/warp/finhub/generic/store"
	"github.com/warp/finhub/impactfund"
	"github.com/warp/finhub/logging"
	"github.com/warp/finhub/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.SQLiteDBPath = *dbPath

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: cfg.LogDevelopment,
		Component:   logging.ComponentApp,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	deps, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	deps.Publisher = openPublishers(cfg, logger)
	deps.Logger = logger
	deps.SessionTTL = cfg.SessionTTL

	a := app.New(deps)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Init(initCtx); err != nil {
		return err
	}

	sweeper := app.NewSessionSweeper(a.Accounts, logger)
	sweeper.Start()
	defer sweeper.Stop()

	handler := api.NewHandler(a, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("backend", cfg.DataBackend),
			zap.String(logging.FieldOperation, logging.OpStartup),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped", zap.String(logging.FieldOperation, logging.OpShutdown))
	return nil
}

// openStore builds the collections for the configured backend.
func openStore(cfg *config.Config, logger *logging.Logger) (app.Deps, error) {
	storeLog := logger.WithComponent(logging.ComponentStorage)
	switch cfg.DataBackend {
	case "memory":
		storeLog.Info("using in-memory store")
		return app.Deps{
			Transactions: store.NewMemory[finance.Transaction](events.KindTransaction),
			Expenses:     store.NewMemory[finance.Expense](events.KindExpense),
			Projects:     store.NewMemory[finance.Project](events.KindProject),
			Withdrawals:  store.NewMemory[impactfund.Withdrawal](events.KindWithdrawal),
			Accounts:     accounts.NewMemoryStore(),
		}, nil
	default:
		s, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return app.Deps{}, fmt.Errorf("initialize database: %w", err)
		}
		storeLog.Info("sqlite store ready",
			zap.String("path", cfg.SQLiteDBPath),
			zap.String(logging.FieldOperation, logging.OpMigrate),
		)
		return app.Deps{
			Transactions: s.Transactions(),
			Expenses:     s.Expenses(),
			Projects:     s.Projects(),
			Withdrawals:  s.Withdrawals(),
			Accounts:     s,
			Store:        s,
		}, nil
	}
}

// openPublishers connects the optional event sinks. A sink that fails to
// connect is skipped so the API still starts.
func openPublishers(cfg *config.Config, logger *logging.Logger) events.Publisher {
	evLog := logger.WithComponent(logging.ComponentEvents)
	var pubs events.Multi

	if cfg.AMQPEnabled() {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			evLog.Error("AMQP disabled", zap.Error(err))
		} else {
			evLog.Info("AMQP publisher connected", zap.String("exchange", cfg.AMQPExchange))
			pubs = append(pubs, p)
		}
	}

	// With AMQP the notifier process posts to Discord; without it the API
	// posts directly.
	if cfg.DiscordEnabled() && !cfg.AMQPEnabled() {
		d, err := events.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			evLog.Error("Discord notifier disabled", zap.Error(err))
		} else {
			pubs = append(pubs, d)
		}
	}

	if len(pubs) == 0 {
		return events.Nop{}
	}
	return pubs
}

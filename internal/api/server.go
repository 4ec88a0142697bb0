package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finbook-ledger/internal/api/handler"
	"github.com/finbook-ledger/internal/config"
	"github.com/finbook-ledger/internal/domain/account"
	"github.com/finbook-ledger/internal/domain/budget"
	"github.com/finbook-ledger/internal/domain/category"
	"github.com/finbook-ledger/internal/domain/recurring"
	"github.com/finbook-ledger/internal/domain/transaction"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// Repositories bundles the read-side stores the HTTP layer needs
type Repositories struct {
	Accounts     account.Repository
	Categories   category.Repository
	Transactions transaction.Repository
	Templates    recurring.Repository
	Budgets      budget.Repository
}

// NewServer creates and configures a new HTTP server. Mutations go through
// the ledger engine; plain reads and non-monetary writes hit the
// repositories directly.
func NewServer(log *slog.Logger, cfg *config.Config, engine handler.LedgerEngine, repos Repositories) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	accountHandler := handler.NewAccountHandler(log, repos.Accounts)
	categoryHandler := handler.NewCategoryHandler(log, repos.Categories)
	transactionHandler := handler.NewTransactionHandler(log, engine, repos.Transactions)
	recurringHandler := handler.NewRecurringHandler(log, repos.Templates)
	budgetHandler := handler.NewBudgetHandler(log, repos.Budgets, repos.Transactions)

	setupRouter(log, httpRouter, accountHandler, categoryHandler, transactionHandler, recurringHandler, budgetHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}

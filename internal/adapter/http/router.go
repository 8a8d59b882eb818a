package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/lendledger/internal/adapter/http/handler"
	"github.com/iho/lendledger/internal/adapter/http/middleware"
	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/infrastructure/auth"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	LoanHandler      *handler.LoanHandler
	BatchHandler     *handler.BatchHandler
	EventsHandler    *handler.EventsHandler
	LedgerHandler    *handler.LedgerHandler
	DirectoryHandler *handler.DirectoryHandler
	AuthHandler      *handler.AuthHandler
	HealthHandler    *handler.HealthHandler

	Logger           zerolog.Logger
	JWTManager       *auth.JWTManager
	AuthEnabled      bool
	RateLimiter      *middleware.RateLimiter
	IdempotencyStore middleware.IdempotencyStore
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Operational endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Every API route requires an authenticated identity. Without JWT
		// auth the dev header middleware supplies it.
		if cfg.AuthEnabled && cfg.JWTManager != nil {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		} else {
			r.Use(middleware.DevAuthMiddleware())
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Get("/auth/me", cfg.AuthHandler.Me)

		// Account balances
		r.Route("/accounts/{principal}", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.Balances)
			r.Post("/fiat/deposits", cfg.AccountHandler.DepositFiat)
			r.Post("/fiat/withdrawals", cfg.AccountHandler.WithdrawFiat)
			r.Post("/collateral/deposits", cfg.AccountHandler.DepositCollateral)
			r.Post("/collateral/withdrawals", cfg.AccountHandler.WithdrawCollateral)
			r.Post("/bank-transfers", cfg.AccountHandler.BankTransfer)
		})

		// Loan lifecycle
		r.Route("/loans", func(r chi.Router) {
			r.Post("/", cfg.LoanHandler.Create)
			r.Get("/lending", cfg.LoanHandler.ListLending)
			r.Get("/borrowing", cfg.LoanHandler.ListBorrowing)
			r.Get("/{id}", cfg.LoanHandler.Get)
			r.Post("/{id}/request", cfg.LoanHandler.Request)
			r.Post("/{id}/cancel", cfg.LoanHandler.Cancel)
			r.Post("/{id}/disburse", cfg.LoanHandler.Disburse)
			r.Post("/{id}/repayments", cfg.LoanHandler.Repay)
			r.Get("/{id}/events", cfg.EventsHandler.ListByLoan)
		})

		// Operator batch jobs and oversight
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleOperator))

			r.Post("/batch/default-checks", cfg.BatchHandler.RunDefaultCheck)
			r.Post("/batch/liquidations", cfg.BatchHandler.RunLiquidation)
			r.Get("/events", cfg.EventsHandler.List)
			r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
		})

		// Directory administration; resolution is open to any authenticated
		// caller and gated by the directory's own reader list.
		r.Get("/directory/names/{name}", cfg.DirectoryHandler.Resolve)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Post("/directory/names", cfg.DirectoryHandler.RegisterName)
			r.Post("/directory/readers", cfg.DirectoryHandler.AuthorizeReader)
		})
	})

	return r
}

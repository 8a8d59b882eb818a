// Package gateway implements the orchestration gateway: the single
// externally-reachable entry point. It authenticates callers, sequences
// sub-operations across the loan registry and the account ledger, and emits
// lifecycle events. One mutex serializes the whole registry+ledger state
// space; every compound operation validates all preconditions before its
// first mutation, so a failure never leaves a partial effect behind.
package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/infrastructure/metrics"
	"github.com/iho/lendledger/internal/ledger"
	"github.com/iho/lendledger/internal/registry"
)

// EventEmitter receives lifecycle events after an operation has succeeded.
type EventEmitter interface {
	Emit(event *domain.Event)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(*domain.Event) {}

// IDGenerator produces unique event ids.
type IDGenerator interface {
	Generate() string
}

// Gateway sequences compound operations across the registry and the ledger.
// It calls both components under its own trusted principal; end-user callers
// must be the principal named in the call, and batch jobs are restricted to
// the operator principal.
type Gateway struct {
	mu       sync.Mutex
	registry *registry.Registry
	ledger   *ledger.Ledger
	self     domain.Principal
	operator domain.Principal
	idGen    IDGenerator
	emitter  EventEmitter
	metrics  *metrics.Metrics
	nowFn    func() time.Time
}

// New creates a gateway acting as self towards the registry and ledger, with
// batch jobs restricted to operator. Events are discarded until SetEmitter.
func New(reg *registry.Registry, led *ledger.Ledger, self, operator domain.Principal, idGen IDGenerator) *Gateway {
	return &Gateway{
		registry: reg,
		ledger:   led,
		self:     self,
		operator: operator,
		idGen:    idGen,
		emitter:  NoopEmitter{},
		nowFn:    time.Now,
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (g *Gateway) SetEmitter(emitter EventEmitter) {
	if emitter == nil {
		g.emitter = NoopEmitter{}
		return
	}
	g.emitter = emitter
}

// SetMetrics configures operation metrics. Optional.
func (g *Gateway) SetMetrics(m *metrics.Metrics) {
	g.metrics = m
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (g *Gateway) SetNowFunc(now func() time.Time) {
	if now == nil {
		g.nowFn = time.Now
		return
	}
	g.nowFn = now
}

func (g *Gateway) authenticate(caller, principal domain.Principal) error {
	if caller != principal {
		return fmt.Errorf("%w: caller %s cannot act for %s", domain.ErrUnauthorized, caller, principal)
	}
	return nil
}

func (g *Gateway) requireOperator(caller domain.Principal) error {
	if caller != g.operator {
		return fmt.Errorf("%w: batch jobs are restricted to the operator", domain.ErrUnauthorized)
	}
	return nil
}

// emit stamps and publishes events. Called only after every mutation of the
// operation has landed.
func (g *Gateway) emit(events ...*domain.Event) {
	now := g.nowFn()
	for _, e := range events {
		if g.idGen != nil {
			e.ID = g.idGen.Generate()
		}
		e.OccurredAt = now
		g.emitter.Emit(e)
	}
}

// InitiateLoan publishes the caller's terms as a new loan offer.
func (g *Gateway) InitiateLoan(caller, lender domain.Principal, terms domain.LoanTerms) (uint64, error) {
	if err := g.authenticate(caller, lender); err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := g.registry.InitiateLoan(g.self, lender, terms)
	if err != nil {
		return 0, err
	}

	loan, err := g.registry.Loan(id)
	if err != nil {
		return 0, err
	}

	g.emit(domain.NewLoanInitiatedEvent(&loan))

	if g.metrics != nil {
		g.metrics.LoansInitiated.Inc()
	}

	return id, nil
}

// RequestLoan claims an initiated loan for the caller as borrower.
func (g *Gateway) RequestLoan(caller, borrower domain.Principal, loanID uint64) error {
	if err := g.authenticate(caller, borrower); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.registry.RequestLoan(g.self, borrower, loanID); err != nil {
		return err
	}

	loan, err := g.registry.Loan(loanID)
	if err != nil {
		return err
	}

	g.emit(domain.NewLoanRequestedEvent(&loan))

	if g.metrics != nil {
		g.metrics.LoansRequested.Inc()
	}

	return nil
}

// CancelLoan withdraws the caller's undisbursed loan offer.
func (g *Gateway) CancelLoan(caller, lender domain.Principal, loanID uint64) error {
	if err := g.authenticate(caller, lender); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.registry.CancelLoan(g.self, lender, loanID); err != nil {
		return err
	}

	loan, err := g.registry.Loan(loanID)
	if err != nil {
		return err
	}

	g.emit(domain.NewLoanCancelledEvent(&loan))

	if g.metrics != nil {
		g.metrics.LoansCancelled.Inc()
	}

	return nil
}

// DisburseLoan moves the loan principal to the borrower, escrows the
// borrower's collateral, and advances the loan to Repaying. Value moves
// before the state transition is recorded; all preconditions are checked
// before either.
func (g *Gateway) DisburseLoan(caller, lender domain.Principal, loanID uint64, nextDue int64) error {
	if err := g.authenticate(caller, lender); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	loan, err := g.registry.Loan(loanID)
	if err != nil {
		return err
	}

	if loan.Lender != lender {
		return fmt.Errorf("%w: %s is not the lender of loan %d", domain.ErrUnauthorized, lender, loanID)
	}

	if loan.Status != domain.LoanStatusRequested {
		return fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, loanID, loan.Status, domain.LoanStatusRequested)
	}

	if err := domain.ValidateDeadline(nextDue); err != nil {
		return err
	}

	if g.ledger.FiatBalance(lender).LessThan(loan.LoanAmount) {
		return fmt.Errorf("%w: lender fiat balance is below loan amount %s", domain.ErrInsufficientBalance, loan.LoanAmount)
	}

	if g.ledger.CollateralBalance(loan.Borrower).LessThan(loan.CollateralAmount) {
		return fmt.Errorf("%w: borrower collateral balance is below required %s", domain.ErrInsufficientBalance, loan.CollateralAmount)
	}

	if err := g.ledger.TransferFiat(g.self, lender, loan.Borrower, loan.LoanAmount); err != nil {
		return err
	}

	if err := g.ledger.VaultCollateral(g.self, loan.Borrower, loanID, loan.CollateralAmount); err != nil {
		return err
	}

	if err := g.registry.MarkDisbursed(g.self, lender, loanID, nextDue); err != nil {
		return err
	}

	disbursed, err := g.registry.Loan(loanID)
	if err != nil {
		return err
	}

	g.emit(
		domain.NewFiatTransferredEvent(loanID, lender, disbursed.Borrower, disbursed.LoanAmount),
		domain.NewCollateralEscrowedEvent(&disbursed, disbursed.CollateralAmount),
		domain.NewLoanDisbursedEvent(&disbursed),
	)

	if g.metrics != nil {
		g.metrics.LoansDisbursed.Inc()
		g.metrics.VaultedCollateral.Add(disbursed.CollateralAmount.InexactFloat64())
	}

	return nil
}

// MakeRepayment settles one repayment cycle. payValue must equal the loan's
// fixed repayment amount. On the final repayment the entire vaulted
// collateral returns to the borrower in the same operation.
func (g *Gateway) MakeRepayment(caller, borrower domain.Principal, loanID uint64, payValue decimal.Decimal, nextDue int64) error {
	if err := g.authenticate(caller, borrower); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	loan, err := g.registry.Loan(loanID)
	if err != nil {
		return err
	}

	if loan.Borrower != borrower {
		return fmt.Errorf("%w: %s is not the borrower of loan %d", domain.ErrUnauthorized, borrower, loanID)
	}

	if loan.Status != domain.LoanStatusRepaying {
		return fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, loanID, loan.Status, domain.LoanStatusRepaying)
	}

	if !payValue.Equal(loan.RepaymentAmount) {
		return fmt.Errorf("%w: expected %s, got %s", domain.ErrAmountMismatch, loan.RepaymentAmount, payValue)
	}

	if loan.RemainingRepayments > 1 {
		if err := domain.ValidateDeadline(nextDue); err != nil {
			return err
		}
	}

	if g.ledger.FiatBalance(borrower).LessThan(payValue) {
		return fmt.Errorf("%w: borrower fiat balance is below payment %s", domain.ErrInsufficientBalance, payValue)
	}

	vault := g.ledger.VaultBalance(loanID)

	if err := g.ledger.TransferFiat(g.self, borrower, loan.Lender, payValue); err != nil {
		return err
	}

	done, err := g.registry.AdvanceRepayment(g.self, loanID, nextDue)
	if err != nil {
		return err
	}

	settled, err := g.registry.Loan(loanID)
	if err != nil {
		return err
	}

	if !done {
		g.emit(
			domain.NewFiatTransferredEvent(loanID, borrower, loan.Lender, payValue),
			domain.NewLoanRepaidEvent(&settled, payValue),
		)

		if g.metrics != nil {
			g.metrics.RepaymentsProcessed.Inc()
			g.metrics.RepaymentAmount.Observe(payValue.InexactFloat64())
		}

		return nil
	}

	if vault.IsPositive() {
		if err := g.ledger.ReleaseVault(g.self, borrower, loanID, vault); err != nil {
			return err
		}
	}

	events := []*domain.Event{domain.NewFiatTransferredEvent(loanID, borrower, loan.Lender, payValue)}
	if vault.IsPositive() {
		events = append(events, domain.NewCollateralReleasedEvent(loanID, borrower, vault))
	}
	events = append(events, domain.NewLoanFullyRepaidEvent(&settled))
	g.emit(events...)

	if g.metrics != nil {
		g.metrics.RepaymentsProcessed.Inc()
		g.metrics.RepaymentAmount.Observe(payValue.InexactFloat64())
		g.metrics.LoansCompleted.Inc()
		g.metrics.VaultedCollateral.Sub(vault.InexactFloat64())
	}

	return nil
}

// LoanDetails returns the loan if the caller is a party to it.
func (g *Gateway) LoanDetails(caller domain.Principal, loanID uint64) (domain.Loan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	loan, err := g.registry.Loan(loanID)
	if err != nil {
		return domain.Loan{}, err
	}

	if caller != loan.Lender && caller != loan.Borrower {
		return domain.Loan{}, fmt.Errorf("%w: %s is not a party to loan %d", domain.ErrUnauthorized, caller, loanID)
	}

	return loan, nil
}

// LoanAmount returns the loan's fiat principal if the caller is a party.
func (g *Gateway) LoanAmount(caller domain.Principal, loanID uint64) (decimal.Decimal, error) {
	loan, err := g.LoanDetails(caller, loanID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return loan.LoanAmount, nil
}

// CollateralAmount returns the loan's required collateral if the caller is a
// party.
func (g *Gateway) CollateralAmount(caller domain.Principal, loanID uint64) (decimal.Decimal, error) {
	loan, err := g.LoanDetails(caller, loanID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return loan.CollateralAmount, nil
}

// LenderLoans returns the ids of the caller's originated loans.
func (g *Gateway) LenderLoans(caller, lender domain.Principal) ([]uint64, error) {
	if err := g.authenticate(caller, lender); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.registry.LenderLoans(lender), nil
}

// BorrowerLoans returns the ids of the caller's requested loans.
func (g *Gateway) BorrowerLoans(caller, borrower domain.Principal) ([]uint64, error) {
	if err := g.authenticate(caller, borrower); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.registry.BorrowerLoans(borrower), nil
}

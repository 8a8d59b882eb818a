// Package registry implements the loan registry: the set of loan entities,
// their lifecycle state machine, per-principal indices, and the
// deadline-ordered repayment schedule.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
)

// Registry owns loan state. Mutating operations are restricted to the trusted
// gateway principal supplied at construction and every one of them bumps the
// loan's UpdatedAt. The registry carries no lock of its own; the gateway
// serializes all access.
type Registry struct {
	trusted       domain.Principal
	loans         map[uint64]*domain.Loan
	lenderLoans   map[domain.Principal][]uint64
	borrowerLoans map[domain.Principal][]uint64
	schedule      *schedule
	nextID        uint64
	nowFn         func() time.Time
}

// New creates an empty registry trusting the given gateway principal.
func New(trusted domain.Principal) *Registry {
	return &Registry{
		trusted:       trusted,
		loans:         make(map[uint64]*domain.Loan),
		lenderLoans:   make(map[domain.Principal][]uint64),
		borrowerLoans: make(map[domain.Principal][]uint64),
		schedule:      newSchedule(),
		nextID:        1,
		nowFn:         time.Now,
	}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (r *Registry) SetNowFunc(now func() time.Time) {
	if now == nil {
		r.nowFn = time.Now
		return
	}
	r.nowFn = now
}

func (r *Registry) guard(caller domain.Principal) error {
	if caller != r.trusted {
		return fmt.Errorf("%w: caller is not the configured gateway", domain.ErrUnauthorized)
	}
	return nil
}

func (r *Registry) loan(loanID uint64) (*domain.Loan, error) {
	l, ok := r.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, loanID)
	}
	return l, nil
}

// InitiateLoan allocates a new loan id for the lender's terms. The loan
// starts in Initiated with no borrower.
func (r *Registry) InitiateLoan(caller, lender domain.Principal, terms domain.LoanTerms) (uint64, error) {
	if err := r.guard(caller); err != nil {
		return 0, err
	}

	if err := domain.ValidatePrincipal(lender); err != nil {
		return 0, err
	}

	if err := domain.ValidateLoanTerms(terms); err != nil {
		return 0, err
	}

	now := r.nowFn()
	id := r.nextID
	r.nextID++

	r.loans[id] = &domain.Loan{
		ID:                  id,
		Lender:              lender,
		LoanAmount:          terms.LoanAmount,
		CollateralAmount:    terms.CollateralAmount,
		Status:              domain.LoanStatusInitiated,
		TermMonths:          terms.TermMonths,
		APRBps:              terms.APRBps,
		ScheduleDays:        terms.ScheduleDays,
		RepaymentAmount:     terms.RepaymentAmount,
		RemainingRepayments: terms.RepaymentCount,
		InitialLTV:          terms.InitialLTV,
		MarginLTV:           terms.MarginLTV,
		LiquidationLTV:      terms.LiquidationLTV,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	r.lenderLoans[lender] = append(r.lenderLoans[lender], id)

	return id, nil
}

// RequestLoan binds the borrower to an initiated loan.
func (r *Registry) RequestLoan(caller, borrower domain.Principal, loanID uint64) error {
	if err := r.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidatePrincipal(borrower); err != nil {
		return err
	}

	l, err := r.loan(loanID)
	if err != nil {
		return err
	}

	if l.Status != domain.LoanStatusInitiated {
		return fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, loanID, l.Status, domain.LoanStatusInitiated)
	}

	l.Borrower = borrower
	l.Status = domain.LoanStatusRequested
	l.UpdatedAt = r.nowFn()
	r.borrowerLoans[borrower] = append(r.borrowerLoans[borrower], loanID)

	return nil
}

// CancelLoan withdraws a loan that has not been disbursed. Only the loan's
// lender may cancel, and only while the status is Initiated or Requested.
func (r *Registry) CancelLoan(caller, lender domain.Principal, loanID uint64) error {
	if err := r.guard(caller); err != nil {
		return err
	}

	l, err := r.loan(loanID)
	if err != nil {
		return err
	}

	if l.Lender != lender {
		return fmt.Errorf("%w: %s is not the lender of loan %d", domain.ErrUnauthorized, lender, loanID)
	}

	if l.Status != domain.LoanStatusInitiated && l.Status != domain.LoanStatusRequested {
		return fmt.Errorf("%w: loan %d is %s, cancellation requires %s or %s",
			domain.ErrInvalidState, loanID, l.Status, domain.LoanStatusInitiated, domain.LoanStatusRequested)
	}

	l.Status = domain.LoanStatusCancelled
	l.UpdatedAt = r.nowFn()

	return nil
}

// MarkDisbursed records the transition to Repaying after the gateway has
// moved value, and opens the first repayment cycle at nextDue. It records
// state only; it does not move value itself.
func (r *Registry) MarkDisbursed(caller, lender domain.Principal, loanID uint64, nextDue int64) error {
	if err := r.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateDeadline(nextDue); err != nil {
		return err
	}

	l, err := r.loan(loanID)
	if err != nil {
		return err
	}

	if l.Lender != lender {
		return fmt.Errorf("%w: %s is not the lender of loan %d", domain.ErrUnauthorized, lender, loanID)
	}

	if l.Status != domain.LoanStatusRequested {
		return fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, loanID, l.Status, domain.LoanStatusRequested)
	}

	l.Status = domain.LoanStatusRepaying
	l.NextRepaymentDue = nextDue
	l.UpdatedAt = r.nowFn()
	r.schedule.Append(loanID, nextDue)

	return nil
}

// AdvanceRepayment resolves the current repayment cycle. It returns true when
// the final repayment completes the loan; otherwise it opens the next cycle
// at nextDue and returns false.
func (r *Registry) AdvanceRepayment(caller domain.Principal, loanID uint64, nextDue int64) (bool, error) {
	if err := r.guard(caller); err != nil {
		return false, err
	}

	l, err := r.loan(loanID)
	if err != nil {
		return false, err
	}

	if l.Status != domain.LoanStatusRepaying {
		return false, fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, loanID, l.Status, domain.LoanStatusRepaying)
	}

	if l.RemainingRepayments == 0 {
		return false, fmt.Errorf("%w: loan %d has no repayments remaining", domain.ErrInvalidState, loanID)
	}

	if l.RemainingRepayments > 1 {
		if err := domain.ValidateDeadline(nextDue); err != nil {
			return false, err
		}
	}

	r.schedule.MarkPaid(loanID, l.NextRepaymentDue)
	l.RemainingRepayments--
	l.UpdatedAt = r.nowFn()

	if l.RemainingRepayments == 0 {
		l.Status = domain.LoanStatusCompleted
		l.NextRepaymentDue = 0
		return true, nil
	}

	l.NextRepaymentDue = nextDue
	r.schedule.Append(loanID, nextDue)
	return false, nil
}

// MarkDefaulted force-terminates a repaying loan as defaulted. The current
// cycle's record is marked paid so the batch job cannot flag it again.
func (r *Registry) MarkDefaulted(caller domain.Principal, loanID uint64) error {
	return r.terminate(caller, loanID, domain.LoanStatusDefaulted)
}

// MarkFullyRepaid force-terminates a repaying loan as completed, used when
// settlement happens outside the scheduled cycle (liquidation at valuation).
func (r *Registry) MarkFullyRepaid(caller domain.Principal, loanID uint64) error {
	return r.terminate(caller, loanID, domain.LoanStatusCompleted)
}

func (r *Registry) terminate(caller domain.Principal, loanID uint64, target domain.LoanStatus) error {
	if err := r.guard(caller); err != nil {
		return err
	}

	l, err := r.loan(loanID)
	if err != nil {
		return err
	}

	if l.Status != domain.LoanStatusRepaying {
		return fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, loanID, l.Status, domain.LoanStatusRepaying)
	}

	if l.NextRepaymentDue != 0 {
		r.schedule.MarkPaid(loanID, l.NextRepaymentDue)
	}

	l.Status = target
	l.RemainingRepayments = 0
	l.NextRepaymentDue = 0
	l.UpdatedAt = r.nowFn()

	return nil
}

// UnpaidLoansDueBy returns the ids of loans with an unpaid repayment cycle
// due at or before deadline.
func (r *Registry) UnpaidLoansDueBy(deadline int64) []uint64 {
	return r.schedule.UnpaidDueBy(deadline)
}

// Loan returns a copy of the loan.
func (r *Registry) Loan(loanID uint64) (domain.Loan, error) {
	l, err := r.loan(loanID)
	if err != nil {
		return domain.Loan{}, err
	}
	return *l, nil
}

// Exists reports whether a loan was ever created with this id.
func (r *Registry) Exists(loanID uint64) bool {
	_, ok := r.loans[loanID]
	return ok
}

// LenderLoans returns the ids of all loans originated by the lender.
func (r *Registry) LenderLoans(lender domain.Principal) []uint64 {
	ids := r.lenderLoans[lender]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// BorrowerLoans returns the ids of all loans requested by the borrower.
func (r *Registry) BorrowerLoans(borrower domain.Principal) []uint64 {
	ids := r.borrowerLoans[borrower]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// LoanAmount returns the loan's fiat principal.
func (r *Registry) LoanAmount(loanID uint64) (decimal.Decimal, error) {
	l, err := r.loan(loanID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return l.LoanAmount, nil
}

// CollateralAmount returns the loan's required collateral.
func (r *Registry) CollateralAmount(loanID uint64) (decimal.Decimal, error) {
	l, err := r.loan(loanID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return l.CollateralAmount, nil
}

// LoansByStatus returns copies of all loans in the given status, ordered by id.
func (r *Registry) LoansByStatus(status domain.LoanStatus) []domain.Loan {
	var out []domain.Loan
	for _, l := range r.loans {
		if l.Status == status {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

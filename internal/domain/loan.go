package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound   = errors.New("loan not found")
	ErrInvalidState   = errors.New("operation not allowed in current loan status")
	ErrAmountMismatch = errors.New("payment amount does not match scheduled repayment")
)

// LoanStatus represents the lifecycle state of a loan.
type LoanStatus string

const (
	// LoanStatusInitiated means a lender has published terms; no borrower yet.
	LoanStatusInitiated LoanStatus = "initiated"

	// LoanStatusRequested means a borrower has claimed the loan; awaiting disbursement.
	LoanStatusRequested LoanStatus = "requested"

	// LoanStatusCancelled is terminal; only reachable before disbursement.
	LoanStatusCancelled LoanStatus = "cancelled"

	// LoanStatusRepaying means funds are disbursed and collateral is vaulted.
	LoanStatusRepaying LoanStatus = "repaying"

	// LoanStatusDefaulted is terminal; collateral went to the lender.
	LoanStatusDefaulted LoanStatus = "defaulted"

	// LoanStatusCompleted is terminal; collateral went back to the borrower.
	LoanStatusCompleted LoanStatus = "completed"
)

// IsValid checks if the status is a known lifecycle state.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusInitiated, LoanStatusRequested, LoanStatusCancelled,
		LoanStatusRepaying, LoanStatusDefaulted, LoanStatusCompleted:
		return true
	}
	return false
}

// IsTerminal checks if no further transition is possible.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case LoanStatusCancelled, LoanStatusDefaulted, LoanStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo checks if the transition is legal in the lifecycle.
func (s LoanStatus) CanTransitionTo(target LoanStatus) bool {
	switch s {
	case LoanStatusInitiated:
		return target == LoanStatusRequested || target == LoanStatusCancelled
	case LoanStatusRequested:
		return target == LoanStatusRepaying || target == LoanStatusCancelled
	case LoanStatusRepaying:
		return target == LoanStatusDefaulted || target == LoanStatusCompleted
	}
	return false
}

// Loan is a collateralized loan tracked from origination to settlement.
// IDs are assigned monotonically and never reused; loans are never deleted.
type Loan struct {
	ID                  uint64
	Lender              Principal
	Borrower            Principal
	LoanAmount          decimal.Decimal
	CollateralAmount    decimal.Decimal
	Status              LoanStatus
	TermMonths          uint32
	APRBps              uint64
	ScheduleDays        uint32
	RepaymentAmount     decimal.Decimal
	RemainingRepayments uint32
	NextRepaymentDue    int64
	InitialLTV          uint64
	MarginLTV           uint64
	LiquidationLTV      uint64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// GrossRemaining returns the fiat value still owed across all remaining
// repayment cycles.
func (l *Loan) GrossRemaining() decimal.Decimal {
	return l.RepaymentAmount.Mul(decimal.NewFromInt(int64(l.RemainingRepayments)))
}

// LoanTerms carries the lender-supplied parameters of a new loan.
type LoanTerms struct {
	LoanAmount       decimal.Decimal
	CollateralAmount decimal.Decimal
	TermMonths       uint32
	APRBps           uint64
	ScheduleDays     uint32
	RepaymentAmount  decimal.Decimal
	RepaymentCount   uint32
	InitialLTV       uint64
	MarginLTV        uint64
	LiquidationLTV   uint64
}

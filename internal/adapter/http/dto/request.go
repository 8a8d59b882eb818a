package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
)

// InitiateLoanRequest carries the lender-supplied terms of a new loan offer.
type InitiateLoanRequest struct {
	LoanAmount       decimal.Decimal `json:"loan_amount"`
	CollateralAmount decimal.Decimal `json:"collateral_amount"`
	TermMonths       uint32          `json:"term_months"`
	APRBps           uint64          `json:"apr_bps"`
	ScheduleDays     uint32          `json:"schedule_days"`
	RepaymentAmount  decimal.Decimal `json:"repayment_amount"`
	RepaymentCount   uint32          `json:"repayment_count"`
	InitialLTV       uint64          `json:"initial_ltv_bps"`
	MarginLTV        uint64          `json:"margin_ltv_bps"`
	LiquidationLTV   uint64          `json:"liquidation_ltv_bps"`
}

// ToTerms converts to domain loan terms.
func (r *InitiateLoanRequest) ToTerms() domain.LoanTerms {
	return domain.LoanTerms{
		LoanAmount:       r.LoanAmount,
		CollateralAmount: r.CollateralAmount,
		TermMonths:       r.TermMonths,
		APRBps:           r.APRBps,
		ScheduleDays:     r.ScheduleDays,
		RepaymentAmount:  r.RepaymentAmount,
		RepaymentCount:   r.RepaymentCount,
		InitialLTV:       r.InitialLTV,
		MarginLTV:        r.MarginLTV,
		LiquidationLTV:   r.LiquidationLTV,
	}
}

// AmountRequest represents a deposit or withdrawal.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BankTransferRequest represents a fiat settlement to an off-ledger bank
// account.
type BankTransferRequest struct {
	BankAccount string          `json:"bank_account"`
	Amount      decimal.Decimal `json:"amount"`
}

// DisburseLoanRequest starts the repayment schedule of a requested loan.
type DisburseLoanRequest struct {
	NextDue int64 `json:"next_due"`
}

// RepaymentRequest pays one repayment cycle.
type RepaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	NextDue int64           `json:"next_due"`
}

// DefaultCheckRequest sweeps the book for repayment cycles due at or before
// the deadline.
type DefaultCheckRequest struct {
	Deadline int64 `json:"deadline"`
}

// LiquidationItem prices one loan inside a liquidation batch.
type LiquidationItem struct {
	LoanID    uint64          `json:"loan_id"`
	Valuation decimal.Decimal `json:"valuation"`
	Payable   decimal.Decimal `json:"payable"`
}

// LiquidationRequest liquidates a batch of repaying loans at the supplied
// collateral valuations.
type LiquidationRequest struct {
	Loans []LiquidationItem `json:"loans"`
}

// Split explodes the batch into the parallel slices the gateway consumes.
func (r *LiquidationRequest) Split() (ids []uint64, valuations, payables []decimal.Decimal) {
	ids = make([]uint64, len(r.Loans))
	valuations = make([]decimal.Decimal, len(r.Loans))
	payables = make([]decimal.Decimal, len(r.Loans))
	for i, item := range r.Loans {
		ids[i] = item.LoanID
		valuations[i] = item.Valuation
		payables[i] = item.Payable
	}
	return ids, valuations, payables
}

// RegisterNameRequest binds a directory name to a principal.
type RegisterNameRequest struct {
	Name      string `json:"name"`
	Principal string `json:"principal"`
}

// AuthorizeReaderRequest grants directory read access to a principal.
type AuthorizeReaderRequest struct {
	Reader string `json:"reader"`
}

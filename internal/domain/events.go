package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeLoanInitiated   = "loan.initiated"
	EventTypeLoanRequested   = "loan.requested"
	EventTypeLoanCancelled   = "loan.cancelled"
	EventTypeLoanDisbursed   = "loan.disbursed"
	EventTypeLoanRepaid      = "loan.repaid"
	EventTypeLoanFullyRepaid = "loan.fully_repaid"
	EventTypeLoanDefaulted   = "loan.defaulted"
	EventTypeLoanLiquidated  = "loan.liquidated"

	EventTypeCollateralEscrowed     = "collateral.escrowed"
	EventTypeCollateralReleased     = "collateral.released"
	EventTypeCollateralSentToLender = "collateral.sent_to_lender"
	EventTypeCollateralStored       = "collateral.stored"
	EventTypeCollateralWithdrawn    = "collateral.withdrawn"

	EventTypeFiatTransferred = "fiat.transferred"
	EventTypeFiatStored      = "fiat.stored"
	EventTypeFiatWithdrawn   = "fiat.withdrawn"
)

// Event is a lifecycle or value-movement notification. Events are emitted
// only after an operation has fully succeeded; ID and OccurredAt are stamped
// by the gateway at emission.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	LoanID     uint64            `json:"loan_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func formatLoanID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// NewLoanInitiatedEvent reports a lender publishing loan terms.
func NewLoanInitiatedEvent(l *Loan) *Event {
	return &Event{
		Type:   EventTypeLoanInitiated,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":           formatLoanID(l.ID),
			"lender":            l.Lender.String(),
			"loan_amount":       l.LoanAmount.String(),
			"collateral_amount": l.CollateralAmount.String(),
		},
	}
}

// NewLoanRequestedEvent reports a borrower claiming a loan.
func NewLoanRequestedEvent(l *Loan) *Event {
	return &Event{
		Type:   EventTypeLoanRequested,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":  formatLoanID(l.ID),
			"borrower": l.Borrower.String(),
		},
	}
}

// NewLoanCancelledEvent reports a lender withdrawing an undisbursed loan.
func NewLoanCancelledEvent(l *Loan) *Event {
	return &Event{
		Type:   EventTypeLoanCancelled,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id": formatLoanID(l.ID),
			"lender":  l.Lender.String(),
		},
	}
}

// NewLoanDisbursedEvent reports funds moving to the borrower and the loan
// entering repayment.
func NewLoanDisbursedEvent(l *Loan) *Event {
	return &Event{
		Type:   EventTypeLoanDisbursed,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":     formatLoanID(l.ID),
			"lender":      l.Lender.String(),
			"borrower":    l.Borrower.String(),
			"loan_amount": l.LoanAmount.String(),
			"next_due":    strconv.FormatInt(l.NextRepaymentDue, 10),
		},
	}
}

// NewLoanRepaidEvent reports one scheduled repayment landing.
func NewLoanRepaidEvent(l *Loan, amount decimal.Decimal) *Event {
	return &Event{
		Type:   EventTypeLoanRepaid,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":   formatLoanID(l.ID),
			"borrower":  l.Borrower.String(),
			"amount":    amount.String(),
			"remaining": strconv.FormatUint(uint64(l.RemainingRepayments), 10),
		},
	}
}

// NewLoanFullyRepaidEvent reports the final repayment settling the loan.
func NewLoanFullyRepaidEvent(l *Loan) *Event {
	return &Event{
		Type:   EventTypeLoanFullyRepaid,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":  formatLoanID(l.ID),
			"borrower": l.Borrower.String(),
			"lender":   l.Lender.String(),
		},
	}
}

// NewLoanDefaultedEvent reports a missed deadline terminating the loan.
func NewLoanDefaultedEvent(l *Loan) *Event {
	return &Event{
		Type:   EventTypeLoanDefaulted,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":  formatLoanID(l.ID),
			"borrower": l.Borrower.String(),
			"lender":   l.Lender.String(),
		},
	}
}

// NewLoanLiquidatedEvent reports a liquidation settling the loan from
// vaulted collateral at the supplied valuation.
func NewLoanLiquidatedEvent(l *Loan, valuation decimal.Decimal) *Event {
	return &Event{
		Type:   EventTypeLoanLiquidated,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":   formatLoanID(l.ID),
			"valuation": valuation.String(),
			"status":    string(l.Status),
		},
	}
}

// NewCollateralEscrowedEvent reports borrower collateral moving into the vault.
func NewCollateralEscrowedEvent(l *Loan, amount decimal.Decimal) *Event {
	return &Event{
		Type:   EventTypeCollateralEscrowed,
		LoanID: l.ID,
		Attributes: map[string]string{
			"loan_id":  formatLoanID(l.ID),
			"borrower": l.Borrower.String(),
			"amount":   amount.String(),
		},
	}
}

// NewCollateralReleasedEvent reports vaulted collateral returning to a principal.
func NewCollateralReleasedEvent(loanID uint64, to Principal, amount decimal.Decimal) *Event {
	return &Event{
		Type:   EventTypeCollateralReleased,
		LoanID: loanID,
		Attributes: map[string]string{
			"loan_id": formatLoanID(loanID),
			"to":      to.String(),
			"amount":  amount.String(),
		},
	}
}

// NewCollateralSentToLenderEvent reports vaulted collateral seized for the lender.
func NewCollateralSentToLenderEvent(loanID uint64, lender Principal, amount decimal.Decimal) *Event {
	return &Event{
		Type:   EventTypeCollateralSentToLender,
		LoanID: loanID,
		Attributes: map[string]string{
			"loan_id": formatLoanID(loanID),
			"lender":  lender.String(),
			"amount":  amount.String(),
		},
	}
}

// NewCollateralStoredEvent reports a collateral deposit.
func NewCollateralStoredEvent(p Principal, amount decimal.Decimal) *Event {
	return &Event{
		Type: EventTypeCollateralStored,
		Attributes: map[string]string{
			"principal": p.String(),
			"amount":    amount.String(),
		},
	}
}

// NewCollateralWithdrawnEvent reports a collateral withdrawal.
func NewCollateralWithdrawnEvent(p Principal, amount decimal.Decimal) *Event {
	return &Event{
		Type: EventTypeCollateralWithdrawn,
		Attributes: map[string]string{
			"principal": p.String(),
			"amount":    amount.String(),
		},
	}
}

// NewFiatTransferredEvent reports fiat moving between principals.
func NewFiatTransferredEvent(loanID uint64, from, to Principal, amount decimal.Decimal) *Event {
	e := &Event{
		Type:   EventTypeFiatTransferred,
		LoanID: loanID,
		Attributes: map[string]string{
			"from":   from.String(),
			"to":     to.String(),
			"amount": amount.String(),
		},
	}
	if loanID != 0 {
		e.Attributes["loan_id"] = formatLoanID(loanID)
	}
	return e
}

// NewFiatStoredEvent reports a fiat deposit.
func NewFiatStoredEvent(p Principal, amount decimal.Decimal) *Event {
	return &Event{
		Type: EventTypeFiatStored,
		Attributes: map[string]string{
			"principal": p.String(),
			"amount":    amount.String(),
		},
	}
}

// NewFiatWithdrawnEvent reports a fiat withdrawal. bankAccount is set when the
// withdrawal settles through a bank transfer instruction.
func NewFiatWithdrawnEvent(p Principal, amount decimal.Decimal, bankAccount string) *Event {
	e := &Event{
		Type: EventTypeFiatWithdrawn,
		Attributes: map[string]string{
			"principal": p.String(),
			"amount":    amount.String(),
		},
	}
	if bankAccount != "" {
		e.Attributes["bank_account"] = bankAccount
	}
	return e
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/gateway"
)

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID                  uint64            `json:"id"`
	Lender              domain.Principal  `json:"lender"`
	Borrower            domain.Principal  `json:"borrower,omitempty"`
	LoanAmount          decimal.Decimal   `json:"loan_amount"`
	CollateralAmount    decimal.Decimal   `json:"collateral_amount"`
	Status              domain.LoanStatus `json:"status"`
	TermMonths          uint32            `json:"term_months"`
	APRBps              uint64            `json:"apr_bps"`
	ScheduleDays        uint32            `json:"schedule_days"`
	RepaymentAmount     decimal.Decimal   `json:"repayment_amount"`
	RemainingRepayments uint32            `json:"remaining_repayments"`
	NextRepaymentDue    int64             `json:"next_repayment_due,omitempty"`
	InitialLTV          uint64            `json:"initial_ltv_bps"`
	MarginLTV           uint64            `json:"margin_ltv_bps"`
	LiquidationLTV      uint64            `json:"liquidation_ltv_bps"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// LoanFromDomain converts a domain loan to a response.
func LoanFromDomain(l domain.Loan) *LoanResponse {
	return &LoanResponse{
		ID:                  l.ID,
		Lender:              l.Lender,
		Borrower:            l.Borrower,
		LoanAmount:          l.LoanAmount,
		CollateralAmount:    l.CollateralAmount,
		Status:              l.Status,
		TermMonths:          l.TermMonths,
		APRBps:              l.APRBps,
		ScheduleDays:        l.ScheduleDays,
		RepaymentAmount:     l.RepaymentAmount,
		RemainingRepayments: l.RemainingRepayments,
		NextRepaymentDue:    l.NextRepaymentDue,
		InitialLTV:          l.InitialLTV,
		MarginLTV:           l.MarginLTV,
		LiquidationLTV:      l.LiquidationLTV,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}

// LoanListResponse lists the loan IDs on one side of a principal's book.
type LoanListResponse struct {
	LoanIDs []uint64 `json:"loan_ids"`
	Count   int      `json:"count"`
}

// BalancesResponse reports a principal's spendable balances on both ledgers.
type BalancesResponse struct {
	Principal  domain.Principal `json:"principal"`
	Fiat       decimal.Decimal  `json:"fiat"`
	Collateral decimal.Decimal  `json:"collateral"`
}

// DefaultCheckResponse lists the loans defaulted by a sweep.
type DefaultCheckResponse struct {
	Deadline  int64    `json:"deadline"`
	Defaulted []uint64 `json:"defaulted"`
	Count     int      `json:"count"`
}

// LiquidationOutcomeResponse reports how one liquidated loan settled.
type LiquidationOutcomeResponse struct {
	LoanID       uint64            `json:"loan_id"`
	Status       domain.LoanStatus `json:"status"`
	GrossPaid    decimal.Decimal   `json:"gross_paid"`
	ResidualPaid decimal.Decimal   `json:"residual_paid"`
}

// LiquidationOutcomeFromGateway converts one batch outcome to a response.
func LiquidationOutcomeFromGateway(o gateway.LiquidationOutcome) *LiquidationOutcomeResponse {
	return &LiquidationOutcomeResponse{
		LoanID:       o.LoanID,
		Status:       o.Status,
		GrossPaid:    o.GrossPaid,
		ResidualPaid: o.ResidualPaid,
	}
}

// LiquidationOutcomesFromGateway converts batch outcomes to responses.
func LiquidationOutcomesFromGateway(outcomes []gateway.LiquidationOutcome) []*LiquidationOutcomeResponse {
	result := make([]*LiquidationOutcomeResponse, len(outcomes))
	for i, o := range outcomes {
		result[i] = LiquidationOutcomeFromGateway(o)
	}
	return result
}

// EventResponse represents a lifecycle event in API responses.
type EventResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	LoanID     uint64            `json:"loan_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventFromDomain converts a domain event to a response.
func EventFromDomain(e *domain.Event) *EventResponse {
	return &EventResponse{
		ID:         e.ID,
		Type:       e.Type,
		LoanID:     e.LoanID,
		Attributes: e.Attributes,
		OccurredAt: e.OccurredAt,
	}
}

// EventsFromDomain converts domain events to responses.
func EventsFromDomain(events []*domain.Event) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}
	return result
}

// ResolveResponse reports a directory lookup.
type ResolveResponse struct {
	Name      string           `json:"name"`
	Principal domain.Principal `json:"principal"`
}

// IdentityResponse reports the authenticated caller.
type IdentityResponse struct {
	Principal domain.Principal `json:"principal"`
	Role      domain.Role      `json:"role"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

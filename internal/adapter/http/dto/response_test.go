package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/gateway"
)

func TestLoanFromDomain(t *testing.T) {
	now := time.Now()
	loan := domain.Loan{
		ID:                  42,
		Lender:              "alice",
		Borrower:            "bob",
		LoanAmount:          decimal.RequireFromString("10000"),
		CollateralAmount:    decimal.RequireFromString("2.5"),
		Status:              domain.LoanStatusRepaying,
		TermMonths:          12,
		APRBps:              850,
		ScheduleDays:        30,
		RepaymentAmount:     decimal.RequireFromString("870.83"),
		RemainingRepayments: 11,
		NextRepaymentDue:    1700000000,
		InitialLTV:          6000,
		MarginLTV:           7500,
		LiquidationLTV:      9000,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	resp := LoanFromDomain(loan)
	if resp.ID != 42 || resp.Lender != "alice" || resp.Status != domain.LoanStatusRepaying {
		t.Fatalf("unexpected loan response: %+v", resp)
	}
	if !resp.LoanAmount.Equal(loan.LoanAmount) || resp.RemainingRepayments != 11 {
		t.Fatalf("unexpected loan response: %+v", resp)
	}
	if resp.NextRepaymentDue != 1700000000 {
		t.Fatalf("NextRepaymentDue = %d, want 1700000000", resp.NextRepaymentDue)
	}
}

func TestLiquidationOutcomesFromGateway(t *testing.T) {
	outcomes := []gateway.LiquidationOutcome{
		{
			LoanID:       1,
			Status:       domain.LoanStatusCompleted,
			GrossPaid:    decimal.RequireFromString("1000"),
			ResidualPaid: decimal.RequireFromString("200"),
		},
		{
			LoanID: 2,
			Status: domain.LoanStatusDefaulted,
		},
	}

	list := LiquidationOutcomesFromGateway(outcomes)
	if len(list) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(list))
	}
	if list[0].LoanID != 1 || !list[0].GrossPaid.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("unexpected settle outcome: %+v", list[0])
	}
	if list[1].Status != domain.LoanStatusDefaulted || !list[1].GrossPaid.IsZero() {
		t.Fatalf("unexpected default outcome: %+v", list[1])
	}
}

func TestEventsFromDomain(t *testing.T) {
	now := time.Now()
	events := []*domain.Event{
		{
			ID:         "evt-1",
			Type:       domain.EventTypeLoanDisbursed,
			LoanID:     9,
			Attributes: map[string]string{"lender": "alice"},
			OccurredAt: now,
		},
	}

	list := EventsFromDomain(events)
	if len(list) != 1 {
		t.Fatalf("expected 1 event, got %d", len(list))
	}
	if list[0].ID != "evt-1" || list[0].Type != domain.EventTypeLoanDisbursed || list[0].LoanID != 9 {
		t.Fatalf("unexpected event response: %+v", list[0])
	}
	if list[0].Attributes["lender"] != "alice" {
		t.Fatalf("attributes not carried over: %+v", list[0].Attributes)
	}
}

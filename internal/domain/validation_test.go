package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidatePrincipal(t *testing.T) {
	tests := []struct {
		name        string
		principal   Principal
		expectError bool
	}{
		{name: "valid principal", principal: "lender-1", expectError: false},
		{name: "empty principal", principal: "", expectError: true},
		{name: "whitespace only", principal: "   ", expectError: true},
		{name: "too long", principal: Principal(strings.Repeat("a", MaxPrincipalLength+1)), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrincipal(tt.principal)

			if tt.expectError && !errors.Is(err, ErrInvalidPrincipal) {
				t.Errorf("expected ErrInvalidPrincipal, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name        string
		amount      decimal.Decimal
		expectedErr error
	}{
		{name: "positive amount", amount: decimal.NewFromInt(100), expectedErr: nil},
		{name: "zero amount", amount: decimal.Zero, expectedErr: ErrInvalidAmount},
		{name: "negative amount", amount: decimal.NewFromInt(-5), expectedErr: ErrInvalidAmount},
		{name: "above maximum", amount: decimal.RequireFromString("1000000000001"), expectedErr: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)

			if tt.expectedErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, tt.expectedErr) {
				t.Errorf("expected %v, got %v", tt.expectedErr, err)
			}
		})
	}
}

func TestValidateLoanTerms(t *testing.T) {
	valid := LoanTerms{
		LoanAmount:       decimal.NewFromInt(1000),
		CollateralAmount: decimal.NewFromInt(500),
		TermMonths:       12,
		APRBps:           850,
		ScheduleDays:     30,
		RepaymentAmount:  decimal.NewFromInt(100),
		RepaymentCount:   12,
	}

	tests := []struct {
		name        string
		mutate      func(*LoanTerms)
		expectError bool
	}{
		{name: "valid terms", mutate: func(*LoanTerms) {}, expectError: false},
		{name: "zero loan amount", mutate: func(tm *LoanTerms) { tm.LoanAmount = decimal.Zero }, expectError: true},
		{name: "zero collateral", mutate: func(tm *LoanTerms) { tm.CollateralAmount = decimal.Zero }, expectError: true},
		{name: "zero repayment amount", mutate: func(tm *LoanTerms) { tm.RepaymentAmount = decimal.Zero }, expectError: true},
		{name: "zero repayment count", mutate: func(tm *LoanTerms) { tm.RepaymentCount = 0 }, expectError: true},
		{name: "zero term", mutate: func(tm *LoanTerms) { tm.TermMonths = 0 }, expectError: true},
		{name: "zero schedule", mutate: func(tm *LoanTerms) { tm.ScheduleDays = 0 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := valid
			tt.mutate(&terms)

			err := ValidateLoanTerms(terms)

			if tt.expectError && !errors.Is(err, ErrInvalidTerms) {
				t.Errorf("expected ErrInvalidTerms, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDeadline(t *testing.T) {
	if err := ValidateDeadline(1700000000); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := ValidateDeadline(0); !errors.Is(err, ErrInvalidDeadline) {
		t.Errorf("expected ErrInvalidDeadline, got %v", err)
	}

	if err := ValidateDeadline(-1); !errors.Is(err, ErrInvalidDeadline) {
		t.Errorf("expected ErrInvalidDeadline, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	tests := []struct {
		name           string
		limit          int
		offset         int
		expectedLimit  int
		expectedOffset int
	}{
		{name: "defaults applied", limit: 0, offset: 0, expectedLimit: 50, expectedOffset: 0},
		{name: "limit capped", limit: 5000, offset: 10, expectedLimit: 1000, expectedOffset: 10},
		{name: "negative offset reset", limit: 20, offset: -5, expectedLimit: 20, expectedOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := ValidatePagination(tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if limit != tt.expectedLimit {
				t.Errorf("expected limit %d, got %d", tt.expectedLimit, limit)
			}

			if offset != tt.expectedOffset {
				t.Errorf("expected offset %d, got %d", tt.expectedOffset, offset)
			}
		})
	}
}

package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateFiatDebit(t *testing.T) {
	tests := []struct {
		name        string
		fiat        decimal.Decimal
		debitAmount decimal.Decimal
		expectError bool
	}{
		{
			name:        "debit less than balance",
			fiat:        decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(50),
			expectError: false,
		},
		{
			name:        "debit exact balance",
			fiat:        decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(100),
			expectError: false,
		},
		{
			name:        "debit more than balance",
			fiat:        decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(150),
			expectError: true,
		},
		{
			name:        "debit from zero balance",
			fiat:        decimal.Zero,
			debitAmount: decimal.NewFromInt(1),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Fiat: tt.fiat}

			err := acc.ValidateFiatDebit(tt.debitAmount)

			if tt.expectError && !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("expected ErrInsufficientBalance, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_ValidateCollateralDebit(t *testing.T) {
	tests := []struct {
		name        string
		collateral  decimal.Decimal
		debitAmount decimal.Decimal
		expectError bool
	}{
		{
			name:        "debit covered by balance",
			collateral:  decimal.NewFromInt(500),
			debitAmount: decimal.NewFromInt(500),
			expectError: false,
		},
		{
			name:        "debit exceeds balance",
			collateral:  decimal.NewFromInt(500),
			debitAmount: decimal.NewFromInt(501),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Collateral: tt.collateral}

			err := acc.ValidateCollateralDebit(tt.debitAmount)

			if tt.expectError && !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("expected ErrInsufficientBalance, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_ApplyFiat(t *testing.T) {
	acc := &Account{Fiat: decimal.NewFromInt(100)}

	acc.ApplyFiatDebit(decimal.NewFromInt(30))
	if !acc.Fiat.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected fiat balance 70, got %s", acc.Fiat)
	}

	acc.ApplyFiatCredit(decimal.NewFromInt(50))
	if !acc.Fiat.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected fiat balance 120, got %s", acc.Fiat)
	}
}

func TestAccount_ApplyCollateral(t *testing.T) {
	acc := &Account{Collateral: decimal.NewFromInt(500)}

	acc.ApplyCollateralDebit(decimal.NewFromInt(500))
	if !acc.Collateral.Equal(decimal.Zero) {
		t.Errorf("expected collateral balance 0, got %s", acc.Collateral)
	}

	acc.ApplyCollateralCredit(decimal.NewFromInt(250))
	if !acc.Collateral.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected collateral balance 250, got %s", acc.Collateral)
	}
}

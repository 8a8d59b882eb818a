package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a principal's spendable balances. Vaulted collateral lives
// outside the account, keyed by loan.
type Account struct {
	Principal  Principal
	Collateral decimal.Decimal
	Fiat       decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateCollateralDebit checks if the collateral balance covers amount.
func (a *Account) ValidateCollateralDebit(amount decimal.Decimal) error {
	if a.Collateral.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

// ValidateFiatDebit checks if the fiat balance covers amount.
func (a *Account) ValidateFiatDebit(amount decimal.Decimal) error {
	if a.Fiat.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

// ApplyCollateralDebit subtracts amount from the collateral balance.
func (a *Account) ApplyCollateralDebit(amount decimal.Decimal) {
	a.Collateral = a.Collateral.Sub(amount)
}

// ApplyCollateralCredit adds amount to the collateral balance.
func (a *Account) ApplyCollateralCredit(amount decimal.Decimal) {
	a.Collateral = a.Collateral.Add(amount)
}

// ApplyFiatDebit subtracts amount from the fiat balance.
func (a *Account) ApplyFiatDebit(amount decimal.Decimal) {
	a.Fiat = a.Fiat.Sub(amount)
}

// ApplyFiatCredit adds amount to the fiat balance.
func (a *Account) ApplyFiatCredit(amount decimal.Decimal) {
	a.Fiat = a.Fiat.Add(amount)
}

package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidPrincipal = errors.New("invalid principal")
	ErrInvalidTerms     = errors.New("invalid loan terms")
	ErrAmountTooLarge   = errors.New("amount exceeds maximum allowed")
	ErrInvalidDeadline  = errors.New("invalid repayment deadline")
)

// Validation constants
const (
	MaxPrincipalLength = 255
	MaxAmount          = "1000000000000" // 1 trillion
)

// ValidatePrincipal validates a principal identifier.
func ValidatePrincipal(p Principal) error {
	s := strings.TrimSpace(p.String())

	if s == "" {
		return fmt.Errorf("%w: principal cannot be empty", ErrInvalidPrincipal)
	}

	if len(s) > MaxPrincipalLength {
		return fmt.Errorf("%w: principal exceeds %d characters", ErrInvalidPrincipal, MaxPrincipalLength)
	}

	return nil
}

// ValidateAmount validates a balance movement amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidateLoanTerms validates lender-supplied terms at origination.
func ValidateLoanTerms(terms LoanTerms) error {
	if err := ValidateAmount(terms.LoanAmount); err != nil {
		return fmt.Errorf("%w: loan amount: %s", ErrInvalidTerms, err)
	}

	if err := ValidateAmount(terms.CollateralAmount); err != nil {
		return fmt.Errorf("%w: collateral amount: %s", ErrInvalidTerms, err)
	}

	if err := ValidateAmount(terms.RepaymentAmount); err != nil {
		return fmt.Errorf("%w: repayment amount: %s", ErrInvalidTerms, err)
	}

	if terms.RepaymentCount == 0 {
		return fmt.Errorf("%w: repayment count must be at least 1", ErrInvalidTerms)
	}

	if terms.TermMonths == 0 {
		return fmt.Errorf("%w: term must be at least 1 month", ErrInvalidTerms)
	}

	if terms.ScheduleDays == 0 {
		return fmt.Errorf("%w: repayment schedule must be at least 1 day", ErrInvalidTerms)
	}

	return nil
}

// ValidateDeadline validates a repayment deadline timestamp.
func ValidateDeadline(deadline int64) error {
	if deadline <= 0 {
		return fmt.Errorf("%w: deadline must be a positive unix timestamp", ErrInvalidDeadline)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}

package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
)

// LiquidationOutcome reports how one loan in a liquidation batch settled.
type LiquidationOutcome struct {
	LoanID       uint64
	Status       domain.LoanStatus
	GrossPaid    decimal.Decimal
	ResidualPaid decimal.Decimal
}

// CheckBorrowerDefault defaults every loan with an unpaid repayment cycle due
// at or before deadline: the vaulted collateral goes to the lender, not the
// borrower, and the loan is forced to Defaulted. Operator only. The whole
// batch lands or none of it does; already-resolved cycles are never touched.
func (g *Gateway) CheckBorrowerDefault(caller domain.Principal, deadline int64) ([]uint64, error) {
	if err := g.requireOperator(caller); err != nil {
		return nil, err
	}

	if err := domain.ValidateDeadline(deadline); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ids := g.registry.UnpaidLoansDueBy(deadline)
	if len(ids) == 0 {
		return nil, nil
	}

	loans := make([]domain.Loan, len(ids))
	vaults := make([]decimal.Decimal, len(ids))
	for i, id := range ids {
		loan, err := g.registry.Loan(id)
		if err != nil {
			return nil, err
		}

		if loan.Status != domain.LoanStatusRepaying {
			return nil, fmt.Errorf("%w: overdue loan %d is %s, expected %s", domain.ErrInvalidState, id, loan.Status, domain.LoanStatusRepaying)
		}

		loans[i] = loan
		vaults[i] = g.ledger.VaultBalance(id)
	}

	var events []*domain.Event
	for i, id := range ids {
		if vaults[i].IsPositive() {
			if err := g.ledger.ReleaseVault(g.self, loans[i].Lender, id, vaults[i]); err != nil {
				return nil, err
			}
		}

		if err := g.registry.MarkDefaulted(g.self, id); err != nil {
			return nil, err
		}

		defaulted, err := g.registry.Loan(id)
		if err != nil {
			return nil, err
		}

		if vaults[i].IsPositive() {
			events = append(events, domain.NewCollateralSentToLenderEvent(id, loans[i].Lender, vaults[i]))
		}
		events = append(events, domain.NewLoanDefaultedEvent(&defaulted))
	}

	g.emit(events...)

	if g.metrics != nil {
		g.metrics.LoansDefaulted.Add(float64(len(ids)))
		for _, v := range vaults {
			g.metrics.VaultedCollateral.Sub(v.InexactFloat64())
		}
	}

	return ids, nil
}

// LiquidateLoan settles repaying loans from their vaulted collateral at
// operator-supplied valuations. Arrays are indexed together. Per loan: if the
// valuation covers the gross remaining repayment, exactly that much vault
// value converts to fiat for the lender, the supplied residual goes back to
// the borrower, and the loan completes. Otherwise the entire vault goes to
// the lender and the loan defaults. Operator only; the whole batch lands or
// none of it does.
func (g *Gateway) LiquidateLoan(caller domain.Principal, loanIDs []uint64, valuations, payables []decimal.Decimal) ([]LiquidationOutcome, error) {
	if err := g.requireOperator(caller); err != nil {
		return nil, err
	}

	if len(valuations) != len(loanIDs) || len(payables) != len(loanIDs) {
		return nil, fmt.Errorf("%w: got %d loans, %d valuations, %d payables",
			domain.ErrAmountMismatch, len(loanIDs), len(valuations), len(payables))
	}

	seen := make(map[uint64]bool, len(loanIDs))
	for _, id := range loanIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: loan %d listed more than once", domain.ErrInvalidState, id)
		}
		seen[id] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	loans := make([]domain.Loan, len(loanIDs))
	grosses := make([]decimal.Decimal, len(loanIDs))
	vaults := make([]decimal.Decimal, len(loanIDs))
	settles := make([]bool, len(loanIDs))
	for i, id := range loanIDs {
		if valuations[i].IsNegative() || payables[i].IsNegative() {
			return nil, fmt.Errorf("%w: valuation and payable for loan %d must not be negative", domain.ErrInvalidAmount, id)
		}

		loan, err := g.registry.Loan(id)
		if err != nil {
			return nil, err
		}

		if loan.Status != domain.LoanStatusRepaying {
			return nil, fmt.Errorf("%w: loan %d is %s, expected %s", domain.ErrInvalidState, id, loan.Status, domain.LoanStatusRepaying)
		}

		loans[i] = loan
		grosses[i] = loan.GrossRemaining()
		vaults[i] = g.ledger.VaultBalance(id)
		settles[i] = valuations[i].GreaterThanOrEqual(grosses[i])

		if settles[i] && vaults[i].LessThan(grosses[i].Add(payables[i])) {
			return nil, fmt.Errorf("%w: vault for loan %d holds %s, settlement needs %s",
				domain.ErrInsufficientBalance, id, vaults[i], grosses[i].Add(payables[i]))
		}
	}

	outcomes := make([]LiquidationOutcome, len(loanIDs))
	var events []*domain.Event
	for i, id := range loanIDs {
		if settles[i] {
			if err := g.ledger.DeductVault(g.self, id, grosses[i]); err != nil {
				return nil, err
			}

			if err := g.ledger.StoreFiat(g.self, loans[i].Lender, grosses[i]); err != nil {
				return nil, err
			}

			if payables[i].IsPositive() {
				if err := g.ledger.ReleaseVault(g.self, loans[i].Borrower, id, payables[i]); err != nil {
					return nil, err
				}
			}

			if err := g.registry.MarkFullyRepaid(g.self, id); err != nil {
				return nil, err
			}

			settled, err := g.registry.Loan(id)
			if err != nil {
				return nil, err
			}

			outcomes[i] = LiquidationOutcome{
				LoanID:       id,
				Status:       settled.Status,
				GrossPaid:    grosses[i],
				ResidualPaid: payables[i],
			}
			events = append(events, domain.NewLoanLiquidatedEvent(&settled, valuations[i]))
			if payables[i].IsPositive() {
				events = append(events, domain.NewCollateralReleasedEvent(id, loans[i].Borrower, payables[i]))
			}
			events = append(events, domain.NewLoanFullyRepaidEvent(&settled))
			continue
		}

		if vaults[i].IsPositive() {
			if err := g.ledger.ReleaseVault(g.self, loans[i].Lender, id, vaults[i]); err != nil {
				return nil, err
			}
		}

		if err := g.registry.MarkDefaulted(g.self, id); err != nil {
			return nil, err
		}

		defaulted, err := g.registry.Loan(id)
		if err != nil {
			return nil, err
		}

		outcomes[i] = LiquidationOutcome{
			LoanID: id,
			Status: defaulted.Status,
		}
		events = append(events, domain.NewLoanLiquidatedEvent(&defaulted, valuations[i]))
		if vaults[i].IsPositive() {
			events = append(events, domain.NewCollateralSentToLenderEvent(id, loans[i].Lender, vaults[i]))
		}
		events = append(events, domain.NewLoanDefaultedEvent(&defaulted))
	}

	g.emit(events...)

	if g.metrics != nil {
		g.metrics.LoansLiquidated.Add(float64(len(loanIDs)))
		for i := range loanIDs {
			if settles[i] {
				g.metrics.LoansCompleted.Inc()
				g.metrics.VaultedCollateral.Sub(grosses[i].Add(payables[i]).InexactFloat64())
				continue
			}
			g.metrics.LoansDefaulted.Inc()
			g.metrics.VaultedCollateral.Sub(vaults[i].InexactFloat64())
		}
	}

	return outcomes, nil
}

package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
)

// Account operations forwarded to the ledger. They share the gateway's trust
// boundary: the caller must be the principal whose balance moves.

func (g *Gateway) countAccountOp(operation string) {
	if g.metrics != nil {
		g.metrics.AccountOperations.WithLabelValues(operation).Inc()
	}
}

// StoreCollateral credits the caller's spendable collateral balance.
func (g *Gateway) StoreCollateral(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := g.authenticate(caller, principal); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ledger.StoreCollateral(g.self, principal, amount); err != nil {
		return err
	}

	g.emit(domain.NewCollateralStoredEvent(principal, amount))
	g.countAccountOp("store_collateral")

	return nil
}

// StoreFiat credits the caller's fiat balance.
func (g *Gateway) StoreFiat(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := g.authenticate(caller, principal); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ledger.StoreFiat(g.self, principal, amount); err != nil {
		return err
	}

	g.emit(domain.NewFiatStoredEvent(principal, amount))
	g.countAccountOp("store_fiat")

	return nil
}

// WithdrawCollateral debits the caller's spendable collateral balance.
func (g *Gateway) WithdrawCollateral(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := g.authenticate(caller, principal); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ledger.WithdrawCollateral(g.self, principal, amount); err != nil {
		return err
	}

	g.emit(domain.NewCollateralWithdrawnEvent(principal, amount))
	g.countAccountOp("withdraw_collateral")

	return nil
}

// WithdrawFiat debits the caller's fiat balance.
func (g *Gateway) WithdrawFiat(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := g.authenticate(caller, principal); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ledger.WithdrawFiat(g.self, principal, amount); err != nil {
		return err
	}

	g.emit(domain.NewFiatWithdrawnEvent(principal, amount, ""))
	g.countAccountOp("withdraw_fiat")

	return nil
}

// TransferFiatToBank validates an off-ledger bank settlement and debits the
// caller's fiat balance in one operation.
func (g *Gateway) TransferFiatToBank(caller, principal domain.Principal, bankAccount string, amount decimal.Decimal) error {
	if err := g.authenticate(caller, principal); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ledger.ValidateBankTransfer(g.self, principal, bankAccount, amount); err != nil {
		return err
	}

	if err := g.ledger.WithdrawFiat(g.self, principal, amount); err != nil {
		return err
	}

	g.emit(domain.NewFiatWithdrawnEvent(principal, amount, bankAccount))
	g.countAccountOp("bank_transfer")

	return nil
}

// CollateralBalance returns the caller's spendable collateral balance.
func (g *Gateway) CollateralBalance(caller, principal domain.Principal) (decimal.Decimal, error) {
	if err := g.authenticate(caller, principal); err != nil {
		return decimal.Decimal{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.ledger.CollateralBalance(principal), nil
}

// FiatBalance returns the caller's fiat balance.
func (g *Gateway) FiatBalance(caller, principal domain.Principal) (decimal.Decimal, error) {
	if err := g.authenticate(caller, principal); err != nil {
		return decimal.Decimal{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.ledger.FiatBalance(principal), nil
}

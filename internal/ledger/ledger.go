// Package ledger implements the account ledger: per-principal collateral and
// fiat balances plus the per-loan escrow vault. Balances are unsigned; every
// debit checks sufficiency before mutating.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
)

// Ledger owns balance and vault state. Mutating operations are restricted to
// the trusted gateway principal supplied at construction. The ledger carries
// no lock of its own; the gateway serializes all access.
type Ledger struct {
	trusted  domain.Principal
	accounts map[domain.Principal]*domain.Account
	vaults   map[uint64]decimal.Decimal
	nowFn    func() time.Time
}

// New creates an empty ledger trusting the given gateway principal.
func New(trusted domain.Principal) *Ledger {
	return &Ledger{
		trusted:  trusted,
		accounts: make(map[domain.Principal]*domain.Account),
		vaults:   make(map[uint64]decimal.Decimal),
		nowFn:    time.Now,
	}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if now == nil {
		l.nowFn = time.Now
		return
	}
	l.nowFn = now
}

func (l *Ledger) guard(caller domain.Principal) error {
	if caller != l.trusted {
		return fmt.Errorf("%w: caller is not the configured gateway", domain.ErrUnauthorized)
	}
	return nil
}

// account returns the principal's account, creating it on first touch.
// Mapping semantics: an account that was never credited reads as zero.
func (l *Ledger) account(p domain.Principal) *domain.Account {
	acc, ok := l.accounts[p]
	if !ok {
		now := l.nowFn()
		acc = &domain.Account{
			Principal:  p,
			Collateral: decimal.Zero,
			Fiat:       decimal.Zero,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		l.accounts[p] = acc
	}
	return acc
}

func (l *Ledger) touch(acc *domain.Account) {
	acc.UpdatedAt = l.nowFn()
}

// StoreCollateral credits the principal's spendable collateral balance.
func (l *Ledger) StoreCollateral(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	acc := l.account(principal)
	acc.ApplyCollateralCredit(amount)
	l.touch(acc)
	return nil
}

// StoreFiat credits the principal's fiat balance.
func (l *Ledger) StoreFiat(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	acc := l.account(principal)
	acc.ApplyFiatCredit(amount)
	l.touch(acc)
	return nil
}

// WithdrawCollateral debits the principal's spendable collateral balance.
func (l *Ledger) WithdrawCollateral(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	acc := l.account(principal)
	if err := acc.ValidateCollateralDebit(amount); err != nil {
		return fmt.Errorf("%w: collateral balance %s is below %s", domain.ErrInsufficientBalance, acc.Collateral, amount)
	}

	acc.ApplyCollateralDebit(amount)
	l.touch(acc)
	return nil
}

// WithdrawFiat debits the principal's fiat balance.
func (l *Ledger) WithdrawFiat(caller, principal domain.Principal, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	acc := l.account(principal)
	if err := acc.ValidateFiatDebit(amount); err != nil {
		return fmt.Errorf("%w: fiat balance %s is below %s", domain.ErrInsufficientBalance, acc.Fiat, amount)
	}

	acc.ApplyFiatDebit(amount)
	l.touch(acc)
	return nil
}

// TransferFiat moves fiat between principals. Debit and credit land together
// or not at all.
func (l *Ledger) TransferFiat(caller, from, to domain.Principal, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	src := l.account(from)
	if err := src.ValidateFiatDebit(amount); err != nil {
		return fmt.Errorf("%w: fiat balance %s is below %s", domain.ErrInsufficientBalance, src.Fiat, amount)
	}

	dst := l.account(to)
	src.ApplyFiatDebit(amount)
	dst.ApplyFiatCredit(amount)
	l.touch(src)
	l.touch(dst)
	return nil
}

// ValidateBankTransfer checks that the requester's fiat balance covers an
// off-ledger bank settlement. It mutates nothing; the orchestrator issues the
// matching WithdrawFiat separately.
func (l *Ledger) ValidateBankTransfer(caller, requester domain.Principal, bankAccount string, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	if bankAccount == "" {
		return fmt.Errorf("%w: bank account reference cannot be empty", domain.ErrInvalidPrincipal)
	}

	acc := l.account(requester)
	if err := acc.ValidateFiatDebit(amount); err != nil {
		return fmt.Errorf("%w: fiat balance %s is below %s", domain.ErrInsufficientBalance, acc.Fiat, amount)
	}

	return nil
}

// VaultCollateral moves spendable collateral into the loan's escrow vault.
func (l *Ledger) VaultCollateral(caller, principal domain.Principal, loanID uint64, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	acc := l.account(principal)
	if err := acc.ValidateCollateralDebit(amount); err != nil {
		return fmt.Errorf("%w: collateral balance %s is below %s", domain.ErrInsufficientBalance, acc.Collateral, amount)
	}

	acc.ApplyCollateralDebit(amount)
	l.vaults[loanID] = l.vaults[loanID].Add(amount)
	l.touch(acc)
	return nil
}

// ReleaseVault moves vaulted collateral back to a principal's spendable
// balance. The recipient is the borrower on completion and the lender on
// default.
func (l *Ledger) ReleaseVault(caller, principal domain.Principal, loanID uint64, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	vault := l.vaults[loanID]
	if vault.LessThan(amount) {
		return fmt.Errorf("%w: vault balance %s is below %s", domain.ErrInsufficientBalance, vault, amount)
	}

	acc := l.account(principal)
	l.vaults[loanID] = vault.Sub(amount)
	acc.ApplyCollateralCredit(amount)
	l.touch(acc)
	return nil
}

// DeductVault consumes vaulted collateral without crediting any account.
// Liquidation uses this to convert vault value into a fiat payout.
func (l *Ledger) DeductVault(caller domain.Principal, loanID uint64, amount decimal.Decimal) error {
	if err := l.guard(caller); err != nil {
		return err
	}

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}

	vault := l.vaults[loanID]
	if vault.LessThan(amount) {
		return fmt.Errorf("%w: vault balance %s is below %s", domain.ErrInsufficientBalance, vault, amount)
	}

	l.vaults[loanID] = vault.Sub(amount)
	return nil
}

// VaultBalance returns the collateral currently escrowed for the loan.
func (l *Ledger) VaultBalance(loanID uint64) decimal.Decimal {
	return l.vaults[loanID]
}

// VaultLoanIDs returns the ids of all loans with a vault entry.
func (l *Ledger) VaultLoanIDs() []uint64 {
	ids := make([]uint64, 0, len(l.vaults))
	for id := range l.vaults {
		ids = append(ids, id)
	}
	return ids
}

// CollateralBalance returns the principal's spendable collateral balance.
func (l *Ledger) CollateralBalance(principal domain.Principal) decimal.Decimal {
	if acc, ok := l.accounts[principal]; ok {
		return acc.Collateral
	}
	return decimal.Zero
}

// FiatBalance returns the principal's fiat balance.
func (l *Ledger) FiatBalance(principal domain.Principal) decimal.Decimal {
	if acc, ok := l.accounts[principal]; ok {
		return acc.Fiat
	}
	return decimal.Zero
}

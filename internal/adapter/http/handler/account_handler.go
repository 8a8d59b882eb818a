package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/domain"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	StoreFiat(caller, principal domain.Principal, amount decimal.Decimal) error
	WithdrawFiat(caller, principal domain.Principal, amount decimal.Decimal) error
	StoreCollateral(caller, principal domain.Principal, amount decimal.Decimal) error
	WithdrawCollateral(caller, principal domain.Principal, amount decimal.Decimal) error
	TransferFiatToBank(caller, principal domain.Principal, bankAccount string, amount decimal.Decimal) error
	FiatBalance(caller, principal domain.Principal) (decimal.Decimal, error)
	CollateralBalance(caller, principal domain.Principal) (decimal.Decimal, error)
}

// AccountHandler handles account balance HTTP requests.
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Balances returns both spendable balances of a principal.
func (h *AccountHandler) Balances(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	principal := domain.Principal(chi.URLParam(r, "principal"))
	h.writeBalances(w, caller, principal)
}

// DepositFiat credits a principal's fiat balance.
func (h *AccountHandler) DepositFiat(w http.ResponseWriter, r *http.Request) {
	h.mutateAmount(w, r, h.accounts.StoreFiat, "failed to deposit fiat")
}

// WithdrawFiat debits a principal's fiat balance.
func (h *AccountHandler) WithdrawFiat(w http.ResponseWriter, r *http.Request) {
	h.mutateAmount(w, r, h.accounts.WithdrawFiat, "failed to withdraw fiat")
}

// DepositCollateral credits a principal's collateral balance.
func (h *AccountHandler) DepositCollateral(w http.ResponseWriter, r *http.Request) {
	h.mutateAmount(w, r, h.accounts.StoreCollateral, "failed to deposit collateral")
}

// WithdrawCollateral debits a principal's collateral balance.
func (h *AccountHandler) WithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	h.mutateAmount(w, r, h.accounts.WithdrawCollateral, "failed to withdraw collateral")
}

// BankTransfer settles fiat to an off-ledger bank account.
func (h *AccountHandler) BankTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	principal := domain.Principal(chi.URLParam(r, "principal"))

	var req dto.BankTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.accounts.TransferFiatToBank(caller, principal, req.BankAccount, req.Amount); err != nil {
		writeError(w, mapDomainError(err), "failed to transfer to bank", err.Error())
		return
	}

	h.writeBalances(w, caller, principal)
}

// mutateAmount decodes an amount request, applies op, and returns the
// refreshed balances.
func (h *AccountHandler) mutateAmount(w http.ResponseWriter, r *http.Request, op func(caller, principal domain.Principal, amount decimal.Decimal) error, failure string) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	principal := domain.Principal(chi.URLParam(r, "principal"))

	var req dto.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := op(caller, principal, req.Amount); err != nil {
		writeError(w, mapDomainError(err), failure, err.Error())
		return
	}

	h.writeBalances(w, caller, principal)
}

func (h *AccountHandler) writeBalances(w http.ResponseWriter, caller, principal domain.Principal) {
	fiat, err := h.accounts.FiatBalance(caller, principal)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read fiat balance", err.Error())
		return
	}

	collateral, err := h.accounts.CollateralBalance(caller, principal)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read collateral balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesResponse{
		Principal:  principal,
		Fiat:       fiat,
		Collateral: collateral,
	})
}

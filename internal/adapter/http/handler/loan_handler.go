package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/domain"
)

// LoanService defines the behavior needed by LoanHandler.
type LoanService interface {
	InitiateLoan(caller, lender domain.Principal, terms domain.LoanTerms) (uint64, error)
	RequestLoan(caller, borrower domain.Principal, loanID uint64) error
	CancelLoan(caller, lender domain.Principal, loanID uint64) error
	DisburseLoan(caller, lender domain.Principal, loanID uint64, nextDue int64) error
	MakeRepayment(caller, borrower domain.Principal, loanID uint64, payValue decimal.Decimal, nextDue int64) error
	LoanDetails(caller domain.Principal, loanID uint64) (domain.Loan, error)
	LenderLoans(caller, lender domain.Principal) ([]uint64, error)
	BorrowerLoans(caller, borrower domain.Principal) ([]uint64, error)
}

// LoanHandler handles loan lifecycle HTTP requests. The authenticated caller
// always acts for itself: as lender on offers and disbursements, as borrower
// on requests and repayments.
type LoanHandler struct {
	loans LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loans LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Create publishes a new loan offer with the caller as lender.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	var req dto.InitiateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	id, err := h.loans.InitiateLoan(caller, caller, req.ToTerms())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to initiate loan", err.Error())
		return
	}

	loan, err := h.loans.LoanDetails(caller, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load loan", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// Get retrieves a loan. Only the lender and the borrower may see it.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	id, err := parseLoanIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID", err.Error())
		return
	}

	loan, err := h.loans.LoanDetails(caller, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get loan", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Request claims an initiated loan with the caller as borrower.
func (h *LoanHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(caller domain.Principal, id uint64) error {
		return h.loans.RequestLoan(caller, caller, id)
	}, "failed to request loan")
}

// Cancel withdraws the caller's undisbursed loan offer.
func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(caller domain.Principal, id uint64) error {
		return h.loans.CancelLoan(caller, caller, id)
	}, "failed to cancel loan")
}

// Disburse moves the principal to the borrower and starts the repayment
// schedule. Lender only.
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	id, err := parseLoanIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID", err.Error())
		return
	}

	var req dto.DisburseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.loans.DisburseLoan(caller, caller, id, req.NextDue); err != nil {
		writeError(w, mapDomainError(err), "failed to disburse loan", err.Error())
		return
	}

	h.writeLoan(w, caller, id)
}

// Repay pays one repayment cycle. Borrower only.
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	id, err := parseLoanIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID", err.Error())
		return
	}

	var req dto.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.loans.MakeRepayment(caller, caller, id, req.Amount, req.NextDue); err != nil {
		writeError(w, mapDomainError(err), "failed to make repayment", err.Error())
		return
	}

	h.writeLoan(w, caller, id)
}

// ListLending lists the loans where the caller is the lender.
func (h *LoanHandler) ListLending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.loans.LenderLoans, "failed to list lending")
}

// ListBorrowing lists the loans where the caller is the borrower.
func (h *LoanHandler) ListBorrowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.loans.BorrowerLoans, "failed to list borrowing")
}

// transition applies a bodyless lifecycle operation and returns the
// refreshed loan.
func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, op func(caller domain.Principal, id uint64) error, failure string) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	id, err := parseLoanIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID", err.Error())
		return
	}

	if err := op(caller, id); err != nil {
		writeError(w, mapDomainError(err), failure, err.Error())
		return
	}

	h.writeLoan(w, caller, id)
}

func (h *LoanHandler) list(w http.ResponseWriter, r *http.Request, op func(caller, principal domain.Principal) ([]uint64, error), failure string) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	ids, err := op(caller, caller)
	if err != nil {
		writeError(w, mapDomainError(err), failure, err.Error())
		return
	}

	if ids == nil {
		ids = []uint64{}
	}

	writeJSON(w, http.StatusOK, dto.LoanListResponse{
		LoanIDs: ids,
		Count:   len(ids),
	})
}

func (h *LoanHandler) writeLoan(w http.ResponseWriter, caller domain.Principal, id uint64) {
	loan, err := h.loans.LoanDetails(caller, id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load loan", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

package handler

import (
	"net/http"

	"github.com/iho/lendledger/internal/gateway"
)

// LedgerHandler handles ledger-wide oversight operations.
type LedgerHandler struct {
	gw *gateway.Gateway
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(gw *gateway.Gateway) *LedgerHandler {
	return &LedgerHandler{gw: gw}
}

// CheckConsistency sweeps the cross-component invariants and reports every
// violation found. Returns 409 when the book is inconsistent.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report := h.gw.CheckConsistency()

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}

	writeJSON(w, status, report)
}

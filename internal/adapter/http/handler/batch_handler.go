package handler

import (
	"encoding/json"
	"net/http"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/gateway"
)

// BatchHandler handles the operator's scheduled jobs: default sweeps and
// collateral liquidations.
type BatchHandler struct {
	gw *gateway.Gateway
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(gw *gateway.Gateway) *BatchHandler {
	return &BatchHandler{gw: gw}
}

// RunDefaultCheck defaults every loan with a repayment cycle due at or before
// the supplied deadline.
func (h *BatchHandler) RunDefaultCheck(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	var req dto.DefaultCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	defaulted, err := h.gw.CheckBorrowerDefault(caller, req.Deadline)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to run default check", err.Error())
		return
	}

	if defaulted == nil {
		defaulted = []uint64{}
	}

	writeJSON(w, http.StatusOK, dto.DefaultCheckResponse{
		Deadline:  req.Deadline,
		Defaulted: defaulted,
		Count:     len(defaulted),
	})
}

// RunLiquidation liquidates a batch of repaying loans at the supplied
// collateral valuations. The whole batch lands or none of it does.
func (h *BatchHandler) RunLiquidation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	var req dto.LiquidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if len(req.Loans) == 0 {
		writeError(w, http.StatusBadRequest, "empty liquidation batch", "")
		return
	}

	ids, valuations, payables := req.Split()

	outcomes, err := h.gw.LiquidateLoan(caller, ids, valuations, payables)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to liquidate loans", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LiquidationOutcomesFromGateway(outcomes))
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/gateway"
)

func TestLedgerHandler_ConsistentBook(t *testing.T) {
	env := newHandlerEnv(t)
	disburseLoanFixture(t, env, 5000)
	handler := NewLedgerHandler(env.gateway)

	req := authRequest(t, http.MethodGet, "/ledger/consistency", testAdmin, domain.RoleAdmin, nil, nil)
	rec := httptest.NewRecorder()
	handler.CheckConsistency(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report gateway.ConsistencyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !report.Consistent || len(report.Issues) != 0 {
		t.Fatalf("expected clean report, got %+v", report)
	}
}

func TestLedgerHandler_InconsistentBook(t *testing.T) {
	env := newHandlerEnv(t)
	id := disburseLoanFixture(t, env, 5000)
	handler := NewLedgerHandler(env.gateway)

	// Drain part of the vault behind the registry's back.
	if err := env.ledger.DeductVault(testSelf, id, decimal.RequireFromString("100")); err != nil {
		t.Fatalf("draining vault: %v", err)
	}

	req := authRequest(t, http.MethodGet, "/ledger/consistency", testAdmin, domain.RoleAdmin, nil, nil)
	rec := httptest.NewRecorder()
	handler.CheckConsistency(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var report gateway.ConsistencyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.Consistent || len(report.Issues) == 0 {
		t.Fatalf("expected issues, got %+v", report)
	}
	if report.Issues[0].LoanID != id {
		t.Fatalf("expected issue on loan %d, got %+v", id, report.Issues[0])
	}
}

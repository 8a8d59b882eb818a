package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/domain"
)

// disburseLoanFixture walks a freshly funded loan to Repaying with the given
// first due date.
func disburseLoanFixture(t *testing.T, env *handlerEnv, nextDue int64) uint64 {
	t.Helper()

	env.fund(t, "1000", "500")

	id, err := env.gateway.InitiateLoan(testLender, testLender, loanOfferFixture().ToTerms())
	if err != nil {
		t.Fatalf("initiating loan: %v", err)
	}
	if err := env.gateway.RequestLoan(testBorrower, testBorrower, id); err != nil {
		t.Fatalf("requesting loan: %v", err)
	}
	if err := env.gateway.DisburseLoan(testLender, testLender, id, nextDue); err != nil {
		t.Fatalf("disbursing loan: %v", err)
	}
	return id
}

func TestBatchHandler_DefaultCheck(t *testing.T) {
	env := newHandlerEnv(t)
	id := disburseLoanFixture(t, env, 1000)
	handler := NewBatchHandler(env.gateway)

	req := authRequest(t, http.MethodPost, "/batch/default-checks", testOperator, domain.RoleOperator,
		dto.DefaultCheckRequest{Deadline: 1500}, nil)
	rec := httptest.NewRecorder()
	handler.RunDefaultCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.DefaultCheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Defaulted) != 1 || resp.Defaulted[0] != id {
		t.Fatalf("unexpected sweep result: %+v", resp)
	}

	loan, err := env.gateway.LoanDetails(testLender, id)
	if err != nil {
		t.Fatalf("reading loan: %v", err)
	}
	if loan.Status != domain.LoanStatusDefaulted {
		t.Fatalf("expected defaulted, got %s", loan.Status)
	}
}

func TestBatchHandler_DefaultCheckNothingDue(t *testing.T) {
	env := newHandlerEnv(t)
	disburseLoanFixture(t, env, 5000)
	handler := NewBatchHandler(env.gateway)

	req := authRequest(t, http.MethodPost, "/batch/default-checks", testOperator, domain.RoleOperator,
		dto.DefaultCheckRequest{Deadline: 1500}, nil)
	rec := httptest.NewRecorder()
	handler.RunDefaultCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.DefaultCheckResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 0 || resp.Defaulted == nil {
		t.Fatalf("expected empty but non-null list, got %s", rec.Body.String())
	}
}

func TestBatchHandler_DefaultCheckNotOperator(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewBatchHandler(env.gateway)

	req := authRequest(t, http.MethodPost, "/batch/default-checks", testLender, domain.RoleUser,
		dto.DefaultCheckRequest{Deadline: 1500}, nil)
	rec := httptest.NewRecorder()
	handler.RunDefaultCheck(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchHandler_DefaultCheckInvalidDeadline(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewBatchHandler(env.gateway)

	req := authRequest(t, http.MethodPost, "/batch/default-checks", testOperator, domain.RoleOperator,
		dto.DefaultCheckRequest{Deadline: 0}, nil)
	rec := httptest.NewRecorder()
	handler.RunDefaultCheck(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// liquidationFixture disburses a loan whose vault is wide enough to cover the
// outstanding debt plus a residual payable.
func liquidationFixture(t *testing.T, env *handlerEnv) uint64 {
	t.Helper()

	env.fund(t, "1000", "1200")

	offer := loanOfferFixture()
	offer.CollateralAmount = decimal.RequireFromString("1200")
	offer.RepaymentAmount = decimal.RequireFromString("500")
	offer.RepaymentCount = 2

	id, err := env.gateway.InitiateLoan(testLender, testLender, offer.ToTerms())
	if err != nil {
		t.Fatalf("initiating loan: %v", err)
	}
	if err := env.gateway.RequestLoan(testBorrower, testBorrower, id); err != nil {
		t.Fatalf("requesting loan: %v", err)
	}
	if err := env.gateway.DisburseLoan(testLender, testLender, id, 5000); err != nil {
		t.Fatalf("disbursing loan: %v", err)
	}
	return id
}

func TestBatchHandler_Liquidation(t *testing.T) {
	env := newHandlerEnv(t)
	id := liquidationFixture(t, env)
	handler := NewBatchHandler(env.gateway)

	body := dto.LiquidationRequest{
		Loans: []dto.LiquidationItem{
			{LoanID: id, Valuation: decimal.RequireFromString("1000"), Payable: decimal.RequireFromString("200")},
		},
	}

	req := authRequest(t, http.MethodPost, "/batch/liquidations", testOperator, domain.RoleOperator, body, nil)
	rec := httptest.NewRecorder()
	handler.RunLiquidation(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var outcomes []dto.LiquidationOutcomeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &outcomes); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].LoanID != id || outcomes[0].Status != domain.LoanStatusCompleted {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if !outcomes[0].GrossPaid.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("expected gross 1000, got %s", outcomes[0].GrossPaid)
	}
	if !outcomes[0].ResidualPaid.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("expected residual 200, got %s", outcomes[0].ResidualPaid)
	}
}

func TestBatchHandler_LiquidationEmptyBatch(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewBatchHandler(env.gateway)

	req := authRequest(t, http.MethodPost, "/batch/liquidations", testOperator, domain.RoleOperator,
		dto.LiquidationRequest{}, nil)
	rec := httptest.NewRecorder()
	handler.RunLiquidation(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchHandler_LiquidationUnknownLoan(t *testing.T) {
	env := newHandlerEnv(t)
	handler := NewBatchHandler(env.gateway)

	body := dto.LiquidationRequest{
		Loans: []dto.LiquidationItem{
			{LoanID: 99, Valuation: decimal.RequireFromString("1000")},
		},
	}

	req := authRequest(t, http.MethodPost, "/batch/liquidations", testOperator, domain.RoleOperator, body, nil)
	rec := httptest.NewRecorder()
	handler.RunLiquidation(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/lendledger/internal/adapter/http/middleware"
	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/gateway"
	"github.com/iho/lendledger/internal/ledger"
	"github.com/iho/lendledger/internal/registry"
)

const (
	testSelf     = domain.Principal("gateway")
	testOperator = domain.Principal("ops")
	testLender   = domain.Principal("alice")
	testBorrower = domain.Principal("bob")
)

type seqIDGen struct {
	n int
}

func (g *seqIDGen) Generate() string {
	g.n++
	return fmt.Sprintf("evt-%d", g.n)
}

// handlerEnv wires the real in-memory components behind the handlers.
type handlerEnv struct {
	registry *registry.Registry
	ledger   *ledger.Ledger
	gateway  *gateway.Gateway
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	reg := registry.New(testSelf)
	led := ledger.New(testSelf)
	gw := gateway.New(reg, led, testSelf, testOperator, &seqIDGen{})

	return &handlerEnv{registry: reg, ledger: led, gateway: gw}
}

// fund credits fiat to the lender and collateral to the borrower through the
// gateway's own deposit path.
func (e *handlerEnv) fund(t *testing.T, fiat, collateral string) {
	t.Helper()

	if err := e.gateway.StoreFiat(testLender, testLender, decimal.RequireFromString(fiat)); err != nil {
		t.Fatalf("funding lender fiat: %v", err)
	}
	if err := e.gateway.StoreCollateral(testBorrower, testBorrower, decimal.RequireFromString(collateral)); err != nil {
		t.Fatalf("funding borrower collateral: %v", err)
	}
}

// authRequest builds a request carrying an authenticated identity and the
// supplied chi URL parameters.
func authRequest(t *testing.T, method, target string, principal domain.Principal, role domain.Role, body any, params map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)

	ctx := req.Context()
	if !principal.IsZero() {
		identity := &middleware.Identity{Principal: principal, Role: role}
		ctx = context.WithValue(ctx, middleware.IdentityContextKey, identity)
	}

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range params {
			rctx.URLParams.Add(key, value)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx)
}

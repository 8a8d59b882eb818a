package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/lendledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/lendledger/internal/adapter/http/middleware"
	pgrepo "github.com/iho/lendledger/internal/adapter/repository/postgres"
	"github.com/iho/lendledger/internal/directory"
	"github.com/iho/lendledger/internal/gateway"
	"github.com/iho/lendledger/internal/infrastructure/auth"
	"github.com/iho/lendledger/internal/ledger"
	"github.com/iho/lendledger/internal/registry"
)

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	reg := registry.New("gateway")
	led := ledger.New("gateway")
	gw := gateway.New(reg, led, "gateway", "ops", pgrepo.NewULIDGenerator())
	dir := directory.New("root")

	cfg := RouterConfig{
		AccountHandler:   handler.NewAccountHandler(gw),
		LoanHandler:      handler.NewLoanHandler(gw),
		BatchHandler:     handler.NewBatchHandler(gw),
		EventsHandler:    handler.NewEventsHandler(nil, gw),
		LedgerHandler:    handler.NewLedgerHandler(gw),
		DirectoryHandler: handler.NewDirectoryHandler(dir),
		AuthHandler:      handler.NewAuthHandler(),
		HealthHandler:    handler.NewHealthHandler(nil, nil),
		Logger:           zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_APIRequiresIdentity(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/lending", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity headers, got %d", rec.Code)
	}
}

func TestNewRouter_DevAuthDepositFlow(t *testing.T) {
	router := NewRouter(newRouterConfig())

	body := `{"amount": "250"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/alice/fiat/deposits", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Principal", "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected deposit to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/accounts/alice", nil)
	req.Header.Set("X-Principal", "alice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected balances to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "250") {
		t.Fatalf("expected balance 250 in response, got %s", rec.Body.String())
	}
}

func TestNewRouter_OperatorGateOnBatchRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	body := `{"deadline": 100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batch/default-checks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Principal", "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/batch/default-checks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Principal", "ops")
	req.Header.Set("X-Role", "operator")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for operator with empty book, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouter_JWTAuthEnabled(t *testing.T) {
	jwtManager := auth.NewJWTManager("router-test-secret", time.Hour)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.JWTManager = jwtManager
		cfg.AuthEnabled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	token, err := jwtManager.Generate("alice", "user")
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid token, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Fatalf("expected identity in response, got %s", rec.Body.String())
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"amount": "10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/alice/fiat/deposits", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Principal", "alice")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/auth/me",
		"GET /api/v1/accounts/{principal}/",
		"POST /api/v1/accounts/{principal}/fiat/deposits",
		"POST /api/v1/accounts/{principal}/bank-transfers",
		"POST /api/v1/loans/",
		"GET /api/v1/loans/{id}",
		"POST /api/v1/loans/{id}/repayments",
		"GET /api/v1/loans/{id}/events",
		"POST /api/v1/batch/default-checks",
		"POST /api/v1/batch/liquidations",
		"GET /api/v1/ledger/consistency",
		"GET /api/v1/directory/names/{name}",
		"POST /api/v1/directory/names",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}

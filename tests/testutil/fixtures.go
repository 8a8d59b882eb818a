package testutil

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	adaptershttp "github.com/iho/lendledger/internal/adapter/http"
	"github.com/iho/lendledger/internal/adapter/http/handler"
	pgrepo "github.com/iho/lendledger/internal/adapter/repository/postgres"
	"github.com/iho/lendledger/internal/directory"
	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/gateway"
	"github.com/iho/lendledger/internal/infrastructure/postgres"
	"github.com/iho/lendledger/internal/ledger"
	"github.com/iho/lendledger/internal/registry"
)

// Protocol principals shared by the integration tests.
const (
	GatewayPrincipal  = domain.Principal("lendledger-gateway")
	OperatorPrincipal = domain.Principal("ops")
	AdminPrincipal    = domain.Principal("root")
)

// Stack wires the full in-memory gateway behind the HTTP router. Auth runs in
// dev mode, so tests authenticate with X-Principal and X-Role headers.
type Stack struct {
	Registry  *registry.Registry
	Ledger    *ledger.Ledger
	Gateway   *gateway.Gateway
	Directory *directory.Directory
	Handler   http.Handler
}

// NewStack builds a complete stack for end-to-end tests.
func NewStack(t *testing.T) *Stack {
	t.Helper()

	reg := registry.New(GatewayPrincipal)
	led := ledger.New(GatewayPrincipal)
	gw := gateway.New(reg, led, GatewayPrincipal, OperatorPrincipal, pgrepo.NewULIDGenerator())

	dir := directory.New(AdminPrincipal)
	if err := dir.Register(AdminPrincipal, "gateway", GatewayPrincipal); err != nil {
		t.Fatalf("failed to register gateway name: %v", err)
	}

	router := adaptershttp.NewRouter(adaptershttp.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(gw),
		LoanHandler:      handler.NewLoanHandler(gw),
		BatchHandler:     handler.NewBatchHandler(gw),
		EventsHandler:    handler.NewEventsHandler(nil, gw),
		LedgerHandler:    handler.NewLedgerHandler(gw),
		DirectoryHandler: handler.NewDirectoryHandler(dir),
		AuthHandler:      handler.NewAuthHandler(),
		HealthHandler:    handler.NewHealthHandler(nil, nil),
		Logger:           zerolog.Nop(),
	})

	return &Stack{
		Registry:  reg,
		Ledger:    led,
		Gateway:   gw,
		Directory: dir,
		Handler:   router,
	}
}

// Fund credits fiat and collateral straight through the gateway. Empty
// amounts are skipped.
func (s *Stack) Fund(t *testing.T, principal domain.Principal, fiat, collateral string) {
	t.Helper()

	if fiat != "" {
		if err := s.Gateway.StoreFiat(principal, principal, MustDecimal(t, fiat)); err != nil {
			t.Fatalf("failed to fund fiat for %s: %v", principal, err)
		}
	}

	if collateral != "" {
		if err := s.Gateway.StoreCollateral(principal, principal, MustDecimal(t, collateral)); err != nil {
			t.Fatalf("failed to fund collateral for %s: %v", principal, err)
		}
	}
}

// MustDecimal parses value or fails the test.
func MustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return d
}

// JournalDB provides the migrated event journal schema. The journal is an
// optional surface, so tests skip when no database is configured.
type JournalDB struct {
	Pool *pgxpool.Pool
	t    *testing.T
}

// NewJournalDB connects to DATABASE_URL and applies migrations.
func NewJournalDB(t *testing.T) *JournalDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping journal integration test")
	}

	migrationsPath := "migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		// Relative from tests/integration
		migrationsPath = "../../migrations"
	}

	if err := postgres.RunMigrations(dbURL, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	return &JournalDB{Pool: pool, t: t}
}

// Cleanup closes the database connection.
func (db *JournalDB) Cleanup() {
	db.Pool.Close()
}

// TruncateEvents clears the journal between tests.
func (db *JournalDB) TruncateEvents(ctx context.Context) {
	db.t.Helper()

	if _, err := db.Pool.Exec(ctx, `TRUNCATE TABLE lifecycle_events`); err != nil {
		db.t.Fatalf("failed to truncate lifecycle_events: %v", err)
	}
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/lendledger/internal/adapter/http"
	"github.com/iho/lendledger/internal/adapter/http/handler"
	httpMiddleware "github.com/iho/lendledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/lendledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/lendledger/internal/adapter/repository/redis"
	"github.com/iho/lendledger/internal/directory"
	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/gateway"
	"github.com/iho/lendledger/internal/infrastructure/auth"
	"github.com/iho/lendledger/internal/infrastructure/config"
	"github.com/iho/lendledger/internal/infrastructure/eventpublisher"
	"github.com/iho/lendledger/internal/infrastructure/logger"
	"github.com/iho/lendledger/internal/infrastructure/metrics"
	"github.com/iho/lendledger/internal/infrastructure/postgres"
	"github.com/iho/lendledger/internal/infrastructure/redis"
	"github.com/iho/lendledger/internal/ledger"
	"github.com/iho/lendledger/internal/registry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	lg := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = lg

	ctx := context.Background()

	// Connect to PostgreSQL (optional: the lifecycle journal lives here)
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.DatabaseMaxConns,
			MinConns:    cfg.DatabaseMinConns,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("connected to postgres")
	} else {
		log.Warn().Msg("no DATABASE_URL configured, event journal disabled")
	}

	// Connect to Redis (optional: backs idempotency keys)
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	}

	// Connect to NATS (optional: event broadcast)
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name("lendledger-gateway"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
		log.Info().Msg("connected to nats")
	}

	m := metrics.New()

	// Seed the name directory with the protocol principals. The operator is
	// authorized as a reader so batch tooling can resolve names.
	admin := domain.Principal(cfg.AdminPrincipal)
	gatewayPrincipal := domain.Principal(cfg.GatewayPrincipal)
	operatorPrincipal := domain.Principal(cfg.OperatorPrincipal)

	dir := directory.New(admin)
	if err := seedDirectory(dir, admin, gatewayPrincipal, operatorPrincipal); err != nil {
		log.Fatal().Err(err).Msg("failed to seed name directory")
	}

	// Initialize the loan book
	loanRegistry := registry.New(gatewayPrincipal)
	book := ledger.New(gatewayPrincipal)
	gw := gateway.New(loanRegistry, book, gatewayPrincipal, operatorPrincipal, postgresRepo.NewULIDGenerator())
	gw.SetMetrics(m)

	// Event relay: log sink always, NATS and journal sinks when configured
	sinks := []eventpublisher.Sink{eventpublisher.NewLogSink(nil)}
	if natsConn != nil {
		sinks = append(sinks, eventpublisher.NewNATSSink(natsConn, cfg.NATSSubject))
	}

	var journal handler.EventJournal
	if pool != nil {
		eventRepo := postgresRepo.NewEventRepository(pool)
		sinks = append(sinks, eventpublisher.NewJournalSink(eventRepo, postgresRepo.NewRetrier(), m))
		journal = eventRepo
	}

	relay := eventpublisher.NewRelay(eventpublisher.Config{
		Sinks:      sinks,
		BufferSize: cfg.EventBufferSize,
		Metrics:    m,
	})
	gw.SetEmitter(relay)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Start(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event relay stopped")
		}
	}()

	// Idempotency replay cache
	var idempotencyStore httpMiddleware.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
	}

	// Token verification
	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled {
		if cfg.JWTSecret == "" {
			log.Fatal().Msg("AUTH_ENABLED requires JWT_SECRET")
		}
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		log.Warn().Msg("authentication disabled, trusting X-Principal headers")
	}

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(gw)
	loanHandler := handler.NewLoanHandler(gw)
	batchHandler := handler.NewBatchHandler(gw)
	eventsHandler := handler.NewEventsHandler(journal, gw)
	ledgerHandler := handler.NewLedgerHandler(gw)
	directoryHandler := handler.NewDirectoryHandler(dir)
	authHandler := handler.NewAuthHandler()
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:   accountHandler,
		LoanHandler:      loanHandler,
		BatchHandler:     batchHandler,
		EventsHandler:    eventsHandler,
		LedgerHandler:    ledgerHandler,
		DirectoryHandler: directoryHandler,
		AuthHandler:      authHandler,
		HealthHandler:    healthHandler,
		Logger:           lg,
		JWTManager:       jwtManager,
		AuthEnabled:      cfg.AuthEnabled,
		RateLimiter:      httpMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		IdempotencyStore: idempotencyStore,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	// Stop the relay and let it drain buffered events
	stopRelay()
	<-relayDone

	log.Info().Msg("server stopped")
}

// seedDirectory binds the protocol principals into the name directory and
// grants the operator read access.
func seedDirectory(dir *directory.Directory, admin, gatewayPrincipal, operatorPrincipal domain.Principal) error {
	if err := dir.Register(admin, "gateway", gatewayPrincipal); err != nil {
		return fmt.Errorf("register gateway name: %w", err)
	}

	if err := dir.Register(admin, "operator", operatorPrincipal); err != nil {
		return fmt.Errorf("register operator name: %w", err)
	}

	return dir.AuthorizeReader(admin, operatorPrincipal)
}

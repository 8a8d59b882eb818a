package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Loan lifecycle metrics
	LoansInitiated  prometheus.Counter
	LoansRequested  prometheus.Counter
	LoansCancelled  prometheus.Counter
	LoansDisbursed  prometheus.Counter
	LoansCompleted  prometheus.Counter
	LoansDefaulted  prometheus.Counter
	LoansLiquidated prometheus.Counter

	// Repayment metrics
	RepaymentsProcessed prometheus.Counter
	RepaymentAmount     prometheus.Histogram

	// Collateral metrics
	VaultedCollateral prometheus.Gauge
	AccountOperations *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries  *prometheus.CounterVec
	DBDuration *prometheus.HistogramVec
	DBErrors   *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Event metrics
	EventsStored    *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Loan lifecycle metrics
		LoansInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_initiated_total",
			Help: "Total number of loan offers initiated",
		}),
		LoansRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_requested_total",
			Help: "Total number of loans claimed by borrowers",
		}),
		LoansCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_cancelled_total",
			Help: "Total number of loan offers cancelled",
		}),
		LoansDisbursed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_disbursed_total",
			Help: "Total number of loans disbursed",
		}),
		LoansCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_completed_total",
			Help: "Total number of loans fully repaid",
		}),
		LoansDefaulted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_defaulted_total",
			Help: "Total number of loans defaulted",
		}),
		LoansLiquidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_loans_liquidated_total",
			Help: "Total number of loans settled by liquidation",
		}),

		// Repayment metrics
		RepaymentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lendledger_repayments_processed_total",
			Help: "Total number of repayment cycles settled",
		}),
		RepaymentAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lendledger_repayment_amount",
			Help:    "Repayment amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		// Collateral metrics
		VaultedCollateral: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lendledger_vaulted_collateral",
			Help: "Total collateral currently held in loan vaults",
		}),
		AccountOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_account_operations_total",
				Help: "Total account operations by type",
			},
			[]string{"operation"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lendledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lendledger_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),
		AuthFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Event metrics
		EventsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_events_stored_total",
				Help: "Total lifecycle events persisted",
			},
			[]string{"event_type"},
		),
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lendledger_events_published_total",
				Help: "Total lifecycle events published by sink",
			},
			[]string{"sink"},
		),
	}
}

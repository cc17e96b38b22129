package server

import (
	"context"
	"net/http"
	"time"

	"TruthMeterService/pkg/resilience"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// grpcRequestDuration измеряет длительность gRPC запросов
	grpcRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	// dbOperationDuration измеряет длительность операций хранилища
	dbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	dbOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	cacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of user cache operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of user cache operations",
		},
		[]string{"operation", "status"},
	)

	// circuitBreakerState 0: closed, 1: half-open, 2: open
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "State of circuit breaker (0: closed, 1: half-open, 2: open)",
		},
		[]string{"name"},
	)

	// votesTotal считает голоса по типу и исходу (recorded, duplicate, not_found, error)
	votesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truth_meter_votes_total",
			Help: "Votes handled by the ledger by vote type and outcome",
		},
		[]string{"vote_type", "outcome"},
	)

	secretsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truth_meter_secrets_created_total",
			Help: "Secrets stored by category",
		},
		[]string{"category"},
	)

	postsThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "truth_meter_posts_throttled_total",
			Help: "Post attempts rejected by the per-user rate limiter",
		},
	)

	rateLimiterEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "truth_meter_rate_limiter_entries",
			Help: "Users currently tracked by the post rate limiter",
		},
	)
)

// MetricsHandler отдает метрики в формате Prometheus
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsUnaryInterceptor создает gRPC перехватчик для сбора метрик
func MetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()

		resp, err := handler(ctx, req)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}

		grpcRequestDuration.WithLabelValues(info.FullMethod, code.String()).Observe(time.Since(startTime).Seconds())
		grpcRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()

		return resp, err
	}
}

// RecordDBOperation записывает метрики операции хранилища
func RecordDBOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	dbOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCacheOperation записывает метрики операции с кэшем. status: hit, miss, error, success.
func RecordCacheOperation(operation string, duration time.Duration, status string) {
	cacheOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	cacheOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCircuitBreakerStateChange подходит как resilience.StateChangeFunc
func RecordCircuitBreakerStateChange(name string, _ resilience.CircuitState, to resilience.CircuitState) {
	value := 0.0
	switch to {
	case resilience.CircuitHalfOpen:
		value = 1
	case resilience.CircuitOpen:
		value = 2
	}
	circuitBreakerState.WithLabelValues(name).Set(value)
}

// RecordVote учитывает голос
func RecordVote(voteType, outcome string) {
	votesTotal.WithLabelValues(voteType, outcome).Inc()
}

// RecordSecretCreated учитывает опубликованный секрет
func RecordSecretCreated(category string) {
	secretsCreatedTotal.WithLabelValues(category).Inc()
}

// RecordPostThrottled учитывает отклоненную публикацию
func RecordPostThrottled() {
	postsThrottledTotal.Inc()
}

// SetRateLimiterEntries обновляет размер таблицы ограничителя
func SetRateLimiterEntries(n int) {
	rateLimiterEntries.Set(float64(n))
}

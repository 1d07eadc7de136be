package ollama

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce       sync.Once
	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	rateLimitWaitTime metric.Float64Histogram
)

func initMetrics() {
	meter := otel.Meter("github.com/sportatlas/backend/internal/infrastructure/clients/ollama")

	requestCounter, _ = meter.Int64Counter(
		"nlu.requests",
		metric.WithDescription("Number of NLU oracle requests"),
	)
	errorCounter, _ = meter.Int64Counter(
		"nlu.errors",
		metric.WithDescription("Number of failed NLU oracle requests"),
	)
	requestDuration, _ = meter.Float64Histogram(
		"nlu.request.duration",
		metric.WithDescription("NLU oracle request duration in seconds"),
		metric.WithUnit("s"),
	)
	rateLimitWaitTime, _ = meter.Float64Histogram(
		"nlu.ratelimit.wait",
		metric.WithDescription("Time spent waiting for the NLU rate limiter"),
		metric.WithUnit("s"),
	)
}

func recordOracleMetric(ctx context.Context, model, operation string, statusCode int, duration time.Duration, err error) {
	metricsOnce.Do(initMetrics)

	attrs := metric.WithAttributes(
		attribute.String("ai.provider", "ollama"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operation),
		attribute.Int("http.status_code", statusCode),
	)

	if requestCounter != nil {
		requestCounter.Add(ctx, 1, attrs)
	}
	if err != nil && errorCounter != nil {
		errorCounter.Add(ctx, 1, attrs)
	}
	if duration > 0 && requestDuration != nil {
		requestDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

func recordOracleRateLimitWait(ctx context.Context, model, operation string, wait time.Duration) {
	metricsOnce.Do(initMetrics)

	if rateLimitWaitTime == nil {
		return
	}
	rateLimitWaitTime.Record(ctx, wait.Seconds(), metric.WithAttributes(
		attribute.String("ai.provider", "ollama"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", operation),
	))
}

// Package observe holds the OpenTelemetry metric instruments for the turn
// engine and the provider setup that exposes them to Prometheus.
//
// Tests should build [Metrics] from a provider backed by a
// [go.opentelemetry.io/otel/sdk/metric.ManualReader].
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/jwebster45206/turnkeeper"

// Metrics holds every instrument the engine records. All fields are safe for
// concurrent use.
type Metrics struct {
	// OracleDuration tracks the latency of each oracle call. Attribute: call.
	OracleDuration metric.Float64Histogram

	// OracleRequests counts oracle calls. Attributes: call, status.
	OracleRequests metric.Int64Counter

	// OracleErrors counts failed oracle calls. Attribute: call.
	OracleErrors metric.Int64Counter

	// TurnsCommitted counts accepted turns.
	TurnsCommitted metric.Int64Counter

	// TurnsRejected counts turns the player declined.
	TurnsRejected metric.Int64Counter

	// TurnsRestarted counts turns restarted after a soft failure.
	TurnsRestarted metric.Int64Counter
}

// LLM calls take seconds, not milliseconds.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 90,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.OracleDuration, err = m.Float64Histogram("turnkeeper.oracle.duration",
		metric.WithDescription("Latency of oracle calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.OracleRequests, err = m.Int64Counter("turnkeeper.oracle.requests",
		metric.WithDescription("Total oracle calls by call and status."),
	); err != nil {
		return nil, err
	}
	if met.OracleErrors, err = m.Int64Counter("turnkeeper.oracle.errors",
		metric.WithDescription("Total failed oracle calls by call."),
	); err != nil {
		return nil, err
	}
	if met.TurnsCommitted, err = m.Int64Counter("turnkeeper.turns.committed",
		metric.WithDescription("Turns accepted and committed."),
	); err != nil {
		return nil, err
	}
	if met.TurnsRejected, err = m.Int64Counter("turnkeeper.turns.rejected",
		metric.WithDescription("Turns rejected at the confirmation gate."),
	); err != nil {
		return nil, err
	}
	if met.TurnsRestarted, err = m.Int64Counter("turnkeeper.turns.restarted",
		metric.WithDescription("Turns restarted after a recoverable failure."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Nop returns instruments that record nothing.
func Nop() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return met
}

// RecordOracleCall records one oracle call with its outcome.
func (m *Metrics) RecordOracleCall(ctx context.Context, call string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.OracleErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("call", call)))
	}
	m.OracleRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call", call),
		attribute.String("status", status),
	))
	m.OracleDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("call", call)))
}

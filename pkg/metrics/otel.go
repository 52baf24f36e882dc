package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/mpapenbr/laptime-logger/log"
)

// The recorders below update the prometheus collectors and the matching
// otel instruments. The otel instruments are created on the global meter
// provider and follow it once telemetry is configured.

var meter = otel.Meter("ltl")

var (
	otelCatalogRequests = int64Counter("ltl.catalog.upstream.requests",
		"Requests sent to the vehicle catalog.", "{request}")
	otelCatalogDuration = float64Histogram("ltl.catalog.upstream.duration",
		"Duration of vehicle catalog requests.", "s")
	otelResolutions = int64Counter("ltl.carmodel.resolutions",
		"Car model resolutions by outcome.", "{resolution}")
	otelRecorded = int64Counter("ltl.laptime.recorded",
		"Number of recorded lap times.", "{laptime}")
	otelModerated = int64Counter("ltl.laptime.moderated",
		"Number of moderation transitions by target status.", "{laptime}")
)

func int64Counter(name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit))
	if err != nil {
		log.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		return noop.Int64Counter{}
	}
	return c
}

func float64Histogram(name, desc, unit string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit))
	if err != nil {
		log.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		return noop.Float64Histogram{}
	}
	return h
}

//nolint:whitespace // editor/linter issue
func CatalogRequest(
	ctx context.Context,
	endpoint, result string,
	duration time.Duration,
) {
	CatalogRequests.WithLabelValues(endpoint, result).Inc()
	CatalogDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	otelCatalogRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("result", result)))
	otelCatalogDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint)))
}

// CarModelResolved counts a resolution. outcome is one of existing, created, raced.
func CarModelResolved(ctx context.Context, outcome string) {
	CarModelResolutions.WithLabelValues(outcome).Inc()
	otelResolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func LapTimeRecorded(ctx context.Context) {
	LapTimesRecorded.Inc()
	otelRecorded.Add(ctx, 1)
}

func LapTimeModerated(ctx context.Context, status string) {
	LapTimesModerated.WithLabelValues(status).Inc()
	otelModerated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

/*
 * Copyright (C) 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy of
 * the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
 * WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
 * License for the specific language governing permissions and limitations under
 * the License.
 */

// Package otelgo exports mapper operation metrics and traces over OTLP gRPC.
package otelgo

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cassandra-ecosystem/cql-object-mapper/core"
	"github.com/cassandra-ecosystem/cql-object-mapper/global/config"
	"github.com/cassandra-ecosystem/cql-object-mapper/global/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	attributeKeyKeyspace  = attribute.Key("keyspace")
	attributeKeyTable     = attribute.Key("table")
	attributeKeyOperation = attribute.Key("operation")
	attributeKeyStatus    = attribute.Key("status")
)

const (
	requestCountMetric = "cassandra/cql_object_mapper/request_count"
	latencyMetric      = "cassandra/cql_object_mapper/roundtrip_latencies"
)

// OTelConfig holds configuration for OpenTelemetry.
type OTelConfig struct {
	TracerEndpoint   string
	MetricEndpoint   string
	ServiceName      string
	ServiceVersion   string
	TraceSampleRatio float64
	Enabled          bool
}

// FromConfig maps the YAML telemetry section onto the package config.
func FromConfig(cfg *config.OtelConfig) *OTelConfig {
	if cfg == nil {
		return &OTelConfig{}
	}
	return &OTelConfig{
		Enabled:          cfg.Enabled,
		ServiceName:      cfg.ServiceName,
		TracerEndpoint:   cfg.TracerEndpoint,
		MetricEndpoint:   cfg.MetricEndpoint,
		TraceSampleRatio: cfg.TraceSampleRatio,
	}
}

// OpenTelemetry records per-operation counts, latencies, and spans. It
// satisfies the template's observer contract; a disabled instance is a
// no-op on every path.
type OpenTelemetry struct {
	config         *OTelConfig
	tracer         trace.Tracer
	requestCount   metric.Int64Counter
	requestLatency metric.Int64Histogram
	logger         *zap.Logger
}

var _ core.Observer = (*OpenTelemetry)(nil)

// NewOpenTelemetry sets up the tracer and meter providers and returns the
// instance with an aggregated shutdown function. A disabled config returns
// a usable no-op instance and a nil shutdown.
func NewOpenTelemetry(ctx context.Context, config *OTelConfig, logger *zap.Logger) (*OpenTelemetry, func(context.Context) error, error) {
	inst := &OpenTelemetry{config: config, logger: logger}
	if !config.Enabled {
		return inst, nil, nil
	}

	var shutdownFuncs []func(context.Context) error
	otelResource := buildOtelResource(ctx, config)

	tracerProvider, err := initTracerProvider(ctx, config, otelResource)
	if err != nil {
		logger.Error("error while initializing the tracer provider", zap.Error(err))
		return nil, nil, err
	}
	otel.SetTracerProvider(tracerProvider)
	inst.tracer = tracerProvider.Tracer(config.ServiceName)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)

	meterProvider, err := initMeterProvider(ctx, config, otelResource)
	if err != nil {
		logger.Error("error while initializing the meter provider", zap.Error(err))
		return nil, nil, err
	}
	otel.SetMeterProvider(meterProvider)
	meter := meterProvider.Meter(config.ServiceName)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)

	inst.requestCount, err = meter.Int64Counter(requestCountMetric,
		metric.WithDescription("Number of mapper operations executed"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, nil, err
	}
	inst.requestLatency, err = meter.Int64Histogram(latencyMetric,
		metric.WithDescription("Round-trip latency of mapper operations"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, nil, err
	}
	return inst, shutdownComponents(shutdownFuncs), nil
}

func shutdownComponents(shutdownFuncs []func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var shutdownErr error
		for _, shutdownFunc := range shutdownFuncs {
			if err := shutdownFunc(ctx); err != nil {
				shutdownErr = err
			}
		}
		return shutdownErr
	}
}

func initTracerProvider(ctx context.Context, config *OTelConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if config.TracerEndpoint == "" {
		return nil, errors.New("tracer endpoint cannot be empty")
	}
	if !isValidEndpoint(config.TracerEndpoint) {
		return nil, errors.New("invalid tracer endpoint format")
	}
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(config.TracerEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	sampler := sdktrace.TraceIDRatioBased(config.TraceSampleRatio)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	), nil
}

func initMeterProvider(ctx context.Context, config *OTelConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	if config.MetricEndpoint == "" {
		return nil, errors.New("metric endpoint cannot be empty")
	}
	if !isValidEndpoint(config.MetricEndpoint) {
		return nil, errors.New("invalid metric endpoint format")
	}
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(config.MetricEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	// Drop gRPC client self-instrumentation, only mapper metrics go out.
	views := []sdkmetric.View{
		sdkmetric.NewView(
			sdkmetric.Instrument{Name: "rpc.client.*"},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationDrop{}},
		),
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
		sdkmetric.WithView(views...),
	), nil
}

func buildOtelResource(ctx context.Context, config *OTelConfig) *resource.Resource {
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceInstanceIDKey.String(uuid.New().String()),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceInstanceIDKey.String(uuid.New().String()),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		)
	}
	return res
}

// ObserveQuery records one executed operation: a count with status and a
// latency sample. Satisfies the template observer interface.
func (o *OpenTelemetry) ObserveQuery(ctx context.Context, op string, table types.QualifiedTable, elapsed time.Duration, err error) {
	if !o.config.Enabled {
		return
	}
	status := "OK"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attributeKeyKeyspace.String(string(table.Keyspace)),
		attributeKeyTable.String(string(table.Table)),
		attributeKeyOperation.String(op),
	}
	o.requestCount.Add(ctx, 1, metric.WithAttributes(append(attrs, attributeKeyStatus.String(status))...))
	o.requestLatency.Record(ctx, elapsed.Milliseconds(), metric.WithAttributes(attrs...))
}

// StartSpan opens a trace span; returns the original context untouched when
// telemetry is disabled.
func (o *OpenTelemetry) StartSpan(ctx context.Context, name string, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	if !o.config.Enabled {
		return ctx, nil
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks the span failed or OK.
func (o *OpenTelemetry) RecordError(span trace.Span, err error) {
	if !o.config.Enabled || span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// EndSpan finalizes the span.
func (o *OpenTelemetry) EndSpan(span trace.Span) {
	if !o.config.Enabled || span == nil {
		return
	}
	span.End()
}

// AddAnnotation adds an event to the active span in the context.
func AddAnnotation(ctx context.Context, event string) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(event)
}

// isValidEndpoint checks if the given endpoint is a valid host:port format.
func isValidEndpoint(endpoint string) bool {
	if strings.Contains(endpoint, "://") {
		parsedURL, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		if strings.HasPrefix(endpoint, parsedURL.Scheme+"://:") {
			return false
		}
		return parsedURL.Host != "" && parsedURL.Port() != ""
	}
	parts := strings.Split(endpoint, ":")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

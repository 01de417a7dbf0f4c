// Package telemetry installs the OpenTelemetry tracer provider used by the
// RPC client and the companion server.
package telemetry

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/yoockh/mockinterview/internal/utils"
)

type Shutdown func(context.Context) error

// InitTracer sets the global tracer provider for mode ("", "off" or
// "stdout"). Spans are pretty-printed to out when mode is stdout.
func InitTracer(mode, serviceName string, out io.Writer, log *logrus.Logger) (Shutdown, error) {
	const op = "telemetry.InitTracer"
	noop := func(context.Context) error { return nil }

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "off", "none":
		return noop, nil
	case "stdout":
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown tracing mode "+mode, nil)
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if out != nil {
		opts = append(opts, stdouttrace.WithWriter(out))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "stdout exporter", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "tracer resource", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	if log != nil {
		log.WithField("service", serviceName).Info("tracing enabled")
	}
	return tp.Shutdown, nil
}

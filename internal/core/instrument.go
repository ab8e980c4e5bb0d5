package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"coconut-erp/internal/apperror"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("coconut-erp/internal/core")

// instrument wraps one service's operations with a span, a latency sample and an error log.
type instrument struct {
	service string
	logger  *slog.Logger
	metrics MetricsCollector
}

func newInstrument(service string, logger *slog.Logger, metrics MetricsCollector) instrument {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return instrument{service: service, logger: logger.With("service", service), metrics: metrics}
}

// start opens a span named Service.op. The returned func must be deferred with the
// address of the operation's named error result.
func (in instrument) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, in.service+"."+op, trace.WithAttributes(attrs...))
	began := time.Now()

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			ae := apperror.ToAppError(err)
			in.metrics.IncrementErrorCounter(ae.Code)
			if ae.Operational {
				in.logger.WarnContext(ctx, "operation rejected", "op", op, "code", ae.Code, "error", ae.Message)
			} else {
				in.logger.ErrorContext(ctx, "operation failed", "op", op, "error", err)
			}
		}
		in.metrics.RecordOperation(in.service, op, outcome, time.Since(began).Seconds())
		span.End()
	}
}

// notFound maps ErrRecordNotFound to the given AppError and passes anything else through.
func notFound(err error, nf error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecordNotFound) {
		return nf
	}
	return err
}

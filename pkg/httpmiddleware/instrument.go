package httpmiddleware

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides the tracer and meter providers for instrumentation.
type Telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Instrument traces every request with otelhttp and counts responses by
// route and status. Spans are renamed to "METHOD route" once the router has
// matched the request.
func Instrument(service string, route RouteFinder, t Telemetry) Middleware {
	meter := t.MeterProvider().Meter("github.com/xenking/catalog-service/pkg/httpmiddleware")
	responses, err := meter.Int64Counter("catalog.http.responses",
		metric.WithDescription("HTTP responses by route and status code"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return func(next http.Handler) http.Handler {
		labeled := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			ctx := r.Context()
			routeAttr := attribute.String("http.route", route(r))
			trace.SpanFromContext(ctx).SetName(r.Method + " " + routeAttr.Value.AsString())
			trace.SpanFromContext(ctx).SetAttributes(routeAttr)
			if labeler, ok := otelhttp.LabelerFromContext(ctx); ok {
				labeler.Add(routeAttr)
			}
			if responses != nil {
				responses.Add(ctx, 1, metric.WithAttributes(
					routeAttr,
					attribute.String("http.request.method", r.Method),
					attribute.String("http.response.status_code", strconv.Itoa(sw.code())),
				))
			}
		})
		return otelhttp.NewHandler(labeled, service,
			otelhttp.WithTracerProvider(t.TracerProvider()),
			otelhttp.WithMeterProvider(t.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method
			}),
		)
	}
}

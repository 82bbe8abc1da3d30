package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/yegors/skytrack/pkg/logger"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exp
}

func attr(kvs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range kvs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddlewareNamesSpanAfterRoute(t *testing.T) {
	exp := installRecorder(t)

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/flights/{icao24}", func(w http.ResponseWriter, r *http.Request) {
		if !trace.SpanFromContext(r.Context()).SpanContext().IsValid() {
			t.Error("handler context carries no span")
		}
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/flights/abc123", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name != "HTTP GET /api/flights/{icao24}" {
		t.Errorf("name = %q", s.Name)
	}
	if s.SpanKind != trace.SpanKindServer {
		t.Errorf("kind = %v", s.SpanKind)
	}
	if v, ok := attr(s.Attributes, "http.response.status_code"); !ok || v.AsInt64() != http.StatusTeapot {
		t.Errorf("status attribute = %v", v)
	}
}

func TestMiddlewareSkipsUpgrades(t *testing.T) {
	exp := installRecorder(t)

	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if n := len(exp.GetSpans()); n != 0 {
		t.Errorf("spans = %d for an upgrade", n)
	}
}

func TestClientSpanRecordsError(t *testing.T) {
	exp := installRecorder(t)

	_, span := StartClientSpan(context.Background(), "opensky.states", attribute.String("url.path", "/states/all"))
	EndSpan(span, errors.New("boom"))

	_, okSpan := StartClientSpan(context.Background(), "opensky.route")
	EndSpan(okSpan, nil)

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "boom" {
		t.Errorf("failed span status = %+v", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Error("error event not recorded")
	}
	if spans[1].Status.Code == codes.Error {
		t.Error("successful span marked as error")
	}
	if spans[0].SpanKind != trace.SpanKindClient {
		t.Errorf("kind = %v", spans[0].SpanKind)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing produced a recording span")
	}
	span.End()
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, logger.NewNop())
	if err == nil {
		t.Error("expected error for unknown exporter")
	}
}

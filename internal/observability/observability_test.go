package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/storefront/internal/actorctx"
	"github.com/geocoder89/storefront/internal/domain/user"
	"go.opentelemetry.io/otel/trace"
)

func TestLoggerAddsTraceAndUser(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod").With("component", "test")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = actorctx.WithIdentity(ctx, user.Identity{ID: "u-1"})

	log.InfoContext(ctx, "product created")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v line=%s", err, buf.String())
	}

	want := map[string]string{
		"trace_id":  traceID.String(),
		"span_id":   spanID.String(),
		"user_id":   "u-1",
		"component": "test",
		"msg":       "product created",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s: got %v, want %s", k, rec[k], v)
		}
	}
}

func TestLoggerWithoutRequestContext(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	log.Debug("hidden outside dev")
	log.Info("started")

	out := buf.String()
	if strings.Contains(out, "hidden outside dev") {
		t.Fatalf("debug records must be dropped outside dev: %s", out)
	}
	if strings.Contains(out, "trace_id") || strings.Contains(out, "user_id") {
		t.Fatalf("no trace or user without a request context: %s", out)
	}
}

func TestInitTracerRequiresEndpoint(t *testing.T) {
	_, err := InitTracer(context.Background(), TracerConfig{ServiceName: "storefront"})
	if !errors.Is(err, ErrNoTraceEndpoint) {
		t.Fatalf("got %v, want ErrNoTraceEndpoint", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		desc := sampler(tt.ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{root:"+tt.want) {
			t.Fatalf("ratio %v: got %q", tt.ratio, desc)
		}
	}
}

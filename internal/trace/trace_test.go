package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestIDs(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("TraceID length = %d, want 32", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("SpanID length = %d, want 16", len(tc.SpanID))
	}
	if other := New(); other.TraceID == tc.TraceID {
		t.Error("trace IDs should be unique")
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit TraceID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child ParentSpanID should equal parent SpanID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should get a new SpanID")
	}

	orphan := NewChild(Context{})
	if orphan.TraceID == "" || orphan.ParentSpanID != "" {
		t.Errorf("child of empty context = %+v, want fresh root", orphan)
	}
}

func TestStartSpan(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "buy_cycle")
	_, child := StartSpan(ctx, "tooltip_refresh")

	if child.Ctx.TraceID != root.Ctx.TraceID {
		t.Error("nested span should share the trace")
	}
	if child.Ctx.ParentSpanID != root.Ctx.SpanID {
		t.Error("nested span should point at its parent")
	}
	if root.Duration() != 0 {
		t.Error("unfinished span should report zero duration")
	}
	root.SetAttr("decision", "Grandma")
	root.End()
	if root.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := WithRun(context.Background(), "run-1")
	ctx, span := StartSpan(ctx, "click")
	Logger(ctx).Info("hello")

	out := buf.String()
	for _, want := range []string{"run_id=run-1", "trace_id=" + span.Ctx.TraceID, "span_id=" + span.Ctx.SpanID} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}

	if Logger(context.Background()) != slog.Default() {
		t.Error("Logger without ids should return the default logger")
	}
}

func TestInjectMetadata(t *testing.T) {
	tc := New()
	ctx := WithRun(WithContext(context.Background(), tc), "run-9")

	md, ok := metadata.FromOutgoingContext(injectMetadata(ctx))
	if !ok {
		t.Fatal("no outgoing metadata")
	}
	if got := md.Get(TraceIDKey); len(got) != 1 || got[0] != tc.TraceID {
		t.Errorf("trace id = %v, want %s", got, tc.TraceID)
	}
	if got := md.Get(RunIDKey); len(got) != 1 || got[0] != "run-9" {
		t.Errorf("run id = %v, want run-9", got)
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot", nil)
	req.Header.Set(TraceIDKey, "abc")
	req.Header.Set(SpanIDKey, "def")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "abc" || seen.ParentSpanID != "def" {
		t.Errorf("context = %+v, want trace abc parent def", seen)
	}
	if rec.Header().Get(TraceIDKey) != "abc" {
		t.Error("response should echo the trace id")
	}
}

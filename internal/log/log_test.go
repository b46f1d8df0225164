package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler("text", slog.LevelInfo, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l := New(Config{Handler: h, Component: ComponentApp}).WithComponent(ComponentRefresh)
	l.Info("reloaded", FieldCollection, "accounts")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=refresh") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get(HeaderRequestID) != "abc" {
		t.Fatalf("request id not propagated: %q %q", seen, rec.Header().Get(HeaderRequestID))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestFieldsToSliceSorted(t *testing.T) {
	got := NewFields().WithOperation(OpCreate).WithOwner(7).ToSlice()
	if len(got) != 4 || got[0] != FieldOperation || got[2] != FieldOwnerID {
		t.Fatalf("unexpected slice %v", got)
	}
}

func TestAccessLogFields(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler("text", slog.LevelInfo, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l := New(Config{Handler: h, Component: ComponentApp})
	handler := Middleware(l)(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/categorias?page", nil)
	req.RemoteAddr = "10.0.0.5:4242"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=WARN", "component=http", "client_ip=10.0.0.5:4242", "status_code=409", "success=false", "query=page"} {
		if !strings.Contains(out, want) {
			t.Errorf("access log %q missing %q", out, want)
		}
	}
}

func TestErrorTypeField(t *testing.T) {
	got := NewFields().WithErrorType(ErrorTypeNetwork).WithError(nil).ToSlice()
	if len(got) != 2 || got[0] != FieldErrorType || got[1] != ErrorTypeNetwork {
		t.Fatalf("unexpected slice %v", got)
	}
}

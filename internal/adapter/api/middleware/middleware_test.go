package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogging(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var flushed bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
			flushed = true
		}
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name      string
		requestID string
	}{
		{name: "generated request id"},
		{name: "propagated request id", requestID: "req-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flushed = false
			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			rr := httptest.NewRecorder()

			Logging(logger)(next).ServeHTTP(rr, req)

			if rr.Code != http.StatusTeapot {
				t.Errorf("expected status %d, got %d", http.StatusTeapot, rr.Code)
			}
			got := rr.Header().Get(RequestIDHeader)
			if got == "" || (tt.requestID != "" && got != tt.requestID) {
				t.Errorf("unexpected request id %q", got)
			}
			if !flushed {
				t.Error("expected the wrapped writer to support flushing")
			}
		})
	}
}

func TestCORS(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	h := CORS("*")(next)

	preflight := httptest.NewRequest(http.MethodOptions, "/redact-report", nil)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, preflight)

	if rr.Code != http.StatusNoContent || called {
		t.Errorf("expected preflight to be answered directly, got %d (called=%v)", rr.Code, called)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing allow-origin header")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/redact-report", nil))
	if !called || rr.Code != http.StatusOK {
		t.Errorf("expected request to reach the handler, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard origin must not allow credentials")
	}
}

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestIDMiddleware(t *testing.T) {
	var fromCtx string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if fromCtx == "" {
		t.Fatal("request id missing from context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != fromCtx {
		t.Errorf("X-Request-ID header = %q, context value = %q", got, fromCtx)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID = %q, want empty without middleware", got)
	}
}

func TestAddLogFieldWithoutMiddleware(t *testing.T) {
	// Must not panic when the logging middleware never ran.
	AddLogField(context.Background(), "key", "value")
	AddError(context.Background(), nil)
}

func TestTimeoutMiddleware(t *testing.T) {
	h := TimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		if !ok {
			t.Error("handler context has no deadline")
		}
		if time.Until(deadline) > 10*time.Millisecond {
			t.Errorf("deadline %v further out than the configured timeout", time.Until(deadline))
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

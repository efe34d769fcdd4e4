package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"runpay/internal/log"

	"github.com/google/uuid"
)

type recordingObserver struct {
	method string
	code   int
	calls  int
}

func (o *recordingObserver) ObserveRequest(method string, code int, _ time.Duration) {
	o.method, o.code = method, code
	o.calls++
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	obs := &recordingObserver{}
	m := NewMiddleware(log.Discard(), nil, obs)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if log.FromContext(r.Context()).Component() != log.ComponentTrace {
			t.Errorf("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/prompts", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected uuid request id, got %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("header %q != context %q", got, seen)
	}
	if obs.calls != 1 || obs.code != http.StatusTeapot || obs.method != http.MethodPost {
		t.Fatalf("unexpected observation %+v", obs)
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil, nil)
	id := uuid.NewString()

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Fatalf("expected %s, got %s", id, seen)
	}

	req.Header.Set(RequestIDHeader, "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" {
		t.Fatalf("expected invalid id to be replaced")
	}
}

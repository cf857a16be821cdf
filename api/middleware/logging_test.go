package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

func TestLoggingPropagatesStatus(t *testing.T) {
	mw := Logging(logger.New(logger.Options{ServiceName: "test"}))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusTeapot {
		t.Fatalf("expected recorded status to pass through, got %d", resp.Code)
	}
}

func TestLoggingDefaultsImplicitWritesToOK(t *testing.T) {
	mw := Logging(nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", resp.Code)
	}
}

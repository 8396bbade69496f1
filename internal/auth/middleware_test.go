package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func handlerThatFailsIfCalled(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})
}

func TestMiddlewarePassesThroughWhenDisabled(t *testing.T) {
	called := false
	mw := Middleware(NewAuthenticator(nil))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Fatalf("expected handler to be called when auth disabled")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	mw := Middleware(NewAuthenticator([]string{HashAPIKey("sk-good")}))
	handler := mw(handlerThatFailsIfCalled(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d", w.Code)
	}
}

func TestMiddlewareRejectsInvalidKey(t *testing.T) {
	mw := Middleware(NewAuthenticator([]string{HashAPIKey("sk-good")}))
	handler := mw(handlerThatFailsIfCalled(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sk-bad")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d", w.Code)
	}
}

func TestMiddlewareAcceptsValidKey(t *testing.T) {
	called := false
	mw := Middleware(NewAuthenticator([]string{HashAPIKey("sk-good")}))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sk-good")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called {
		t.Fatalf("expected handler to be called with valid key")
	}
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
}

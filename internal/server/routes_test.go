package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaywell/cligateway/internal/auth"
	"github.com/relaywell/cligateway/internal/ratelimit"
)

func TestServerRoutesChatAndModelsAndMetrics(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "hi"`))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := New(0, logger, h, auth.NewAuthenticator(nil), ratelimit.New(0, 0))
	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/models")
	if err != nil {
		t.Fatalf("GET /v1/models: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/models status = %d", resp.StatusCode)
	}

	metricsResp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d", metricsResp.StatusCode)
	}
}

func TestServerRoutesRejectInvalidAPIKey(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "hi"`))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authenticator := auth.NewAuthenticator([]string{auth.HashAPIKey("secret-key")})
	srv := New(0, logger, h, authenticator, ratelimit.New(0, 0))
	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/models", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /v1/models: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/models", nil)
	req2.Header.Set("Authorization", "Bearer secret-key")
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("GET /v1/models with key: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("status with valid key = %d", resp2.StatusCode)
	}
}

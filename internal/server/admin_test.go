package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// withURLParam attaches a chi route param the way the router would after
// matching a {id}/{model} path segment, since these handlers are invoked
// directly rather than through the full chi mux in these tests.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandleListProvidersAdmin(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodGet, "/admin/providers", nil)
	rec := httptest.NewRecorder()
	h.HandleListProvidersAdmin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out []providerSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "p1" || len(out[0].Models) != 1 {
		t.Fatalf("providers = %+v", out)
	}
}

func TestHandleProviderLoginUnconfigured(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodPost, "/admin/providers/p1/login", nil)
	req = withURLParam(req, "id", "p1")
	rec := httptest.NewRecorder()

	h.HandleProviderLogin(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleProviderLoginUnknownProvider(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodPost, "/admin/providers/nope/login", nil)
	req = withURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()

	h.HandleProviderLogin(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleProviderStatusNotConfigured(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodGet, "/admin/providers/p1/status", nil)
	req = withURLParam(req, "id", "p1")
	rec := httptest.NewRecorder()

	h.HandleProviderStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status struct {
		OK     bool
		Stderr string
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.OK {
		t.Errorf("OK = true, want false for an unconfigured status command")
	}
}

func TestHandleListJobsAndGetJob(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	body := bytes.NewBufferString(`{"tag":"t1","executable":"/bin/sh","args":["-c","printf hi"],"timeout_ms":5000}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/jobs", body)
	rec := httptest.NewRecorder()
	h.HandleRunJob(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("run job status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var started jobWire
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode started job: %v", err)
	}
	if started.ID == "" {
		t.Fatal("expected a job id")
	}

	listReq := httptest.NewRequest(http.MethodGet, "/admin/jobs", nil)
	listRec := httptest.NewRecorder()
	h.HandleListJobs(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list jobs status = %d", listRec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/admin/jobs/"+started.ID, nil)
	getReq = withURLParam(getReq, "id", started.ID)
	getRec := httptest.NewRecorder()
	h.HandleGetJob(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get job status = %d", getRec.Code)
	}
}

func TestHandleRunJobRequiresExecutable(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodPost, "/admin/jobs", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.HandleRunJob(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealthSnapshot(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "hello"`))

	chatReq := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(`{"model":"m1","messages":[]}`))
	h.HandleChatCompletion(httptest.NewRecorder(), chatReq)

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealthSnapshot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	modelReq := httptest.NewRequest(http.MethodGet, "/admin/health/m1", nil)
	modelReq = withURLParam(modelReq, "model", "m1")
	modelRec := httptest.NewRecorder()
	h.HandleHealthSnapshotModel(modelRec, modelReq)
	if modelRec.Code != http.StatusOK {
		t.Fatalf("model status = %d", modelRec.Code)
	}
}

func TestHandleHealthSnapshotModelUnknown(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodGet, "/admin/health/does-not-exist", nil)
	req = withURLParam(req, "model", "does-not-exist")
	rec := httptest.NewRecorder()

	h.HandleHealthSnapshotModel(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}


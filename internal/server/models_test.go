package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleListModels(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()

	h.HandleListModels(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp modelListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Object != "list" {
		t.Errorf("object = %q, want list", resp.Object)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "m1" {
		t.Fatalf("data = %+v, want one entry m1", resp.Data)
	}
	if resp.Data[0].OwnedBy != "p1" {
		t.Errorf("owned_by = %q, want p1", resp.Data[0].OwnedBy)
	}
}

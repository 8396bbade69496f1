package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleChatCompletionHappyPath(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "hello there"`))

	body := strings.NewReader(`{"model":"m1","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	rec := httptest.NewRecorder()

	h.HandleChatCompletion(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp chatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("choices = %d, want 1", len(resp.Choices))
	}
	if resp.Choices[0].Message.Content != "hello there" {
		t.Errorf("content = %q, want %q", resp.Choices[0].Message.Content, "hello there")
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q, want stop", resp.Choices[0].FinishReason)
	}
	if resp.Model != "m1" {
		t.Errorf("model = %q, want m1", resp.Model)
	}
}

func TestHandleChatCompletionRejectsStreaming(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	body := strings.NewReader(`{"model":"m1","messages":[],"stream":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	rec := httptest.NewRecorder()

	h.HandleChatCompletion(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleChatCompletionRejectsMissingModel(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	body := strings.NewReader(`{"messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	rec := httptest.NewRecorder()

	h.HandleChatCompletion(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleChatCompletionUnknownModelIs404(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	body := strings.NewReader(`{"model":"does-not-exist","messages":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	rec := httptest.NewRecorder()

	h.HandleChatCompletion(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if env.Error.Type != "invalid_request_error" {
		t.Errorf("error type = %q, want invalid_request_error", env.Error.Type)
	}
}

func TestHandleChatCompletionInvalidJSON(t *testing.T) {
	h := testHandler(t, oneModelBinding(`printf "x"`))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()

	h.HandleChatCompletion(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

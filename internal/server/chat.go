package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/dispatcher"
)

// HandleChatCompletion implements POST /v1/chat/completions: decode the
// OpenAI wire request, run it through the fallback-chain dispatcher, and
// encode the result back in the OpenAI wire shape. Streaming requests are
// rejected since response streaming is out of scope for this gateway.
func (h *Handler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if req.Stream {
		writeBadRequest(w, "response streaming is not supported")
		return
	}
	if req.Model == "" {
		writeBadRequest(w, "model is required")
		return
	}

	requestID := GetRequestID(r.Context())
	if requestID == "" {
		requestID = requestIDPrefix + uuid.NewString()
	}
	unified := domain.UnifiedRequest{
		RequestID: requestID,
		Model:     req.Model,
		Messages:  toUnifiedMessages(req.Messages),
		Tools:     toUnifiedTools(req.Tools),
	}

	AddLogField(r.Context(), "model", req.Model)

	start := time.Now()
	result, attempts, err := h.dispatcher().RunModel(r.Context(), req.Model, unified)
	duration := time.Since(start)

	providerID, providerModel := lastAttemptProvider(attempts)
	AddLogField(r.Context(), "provider", providerID)
	AddLogField(r.Context(), "provider_model", providerModel)
	AddLogField(r.Context(), "attempts", strconv.Itoa(len(attempts)))
	AddError(r.Context(), err)

	if h.interactions != nil {
		h.interactions.LogAttempt(requestID, req.Model, providerID, providerModel, resultOrNil(err, result), err, duration)
	}

	if err != nil {
		writeDispatchError(w, err)
		return
	}

	resp := chatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []choice{
			{
				Index:        0,
				Message:      fromUnifiedResult(result),
				FinishReason: string(result.FinishReason),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	w.Write(marshalError(message, "invalid_request_error", ""))
}

func toUnifiedMessages(messages []chatCompletionMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, domain.ChatMessage{
			Role:       domain.Role(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

func toUnifiedTools(tools []tool) []domain.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	out := make([]domain.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, domain.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return domain.DedupeToolDefinitions(out)
}

func fromUnifiedResult(result domain.ProviderResult) chatCompletionMessage {
	msg := chatCompletionMessage{
		Role:    string(domain.RoleAssistant),
		Content: result.OutputText,
	}
	for _, tc := range result.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, toolCall{
			ID:   tc.ID,
			Type: "function",
			Function: functionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return msg
}

func lastAttemptProvider(attempts []dispatcher.Attempt) (providerID, providerModel string) {
	if len(attempts) == 0 {
		return "", ""
	}
	last := attempts[len(attempts)-1]
	return last.ProviderID, last.ProviderModel
}

func resultOrNil(err error, result domain.ProviderResult) *domain.ProviderResult {
	if err != nil {
		return nil
	}
	return &result
}

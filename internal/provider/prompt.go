package provider

import (
	"encoding/json"
	"strings"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// flattenMessages renders a conversation as a single prompt text, one block
// per message: "<ROLE_UPPER>:\n<content>", joined by a blank line.
func flattenMessages(messages []domain.ChatMessage) string {
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		blocks = append(blocks, strings.ToUpper(string(m.Role))+":\n"+m.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// toolAdvertisementBlock is appended to the prompt when input=prompt_stdin
// and the request declares tools: it lists the tool definitions and the
// exact JSON contract (§4.3) the model must emit in response.
func toolAdvertisementBlock(tools []domain.ToolDefinition) string {
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		toolsJSON = []byte("[]")
	}
	var b strings.Builder
	b.WriteString("You have access to the following tools:\n")
	b.Write(toolsJSON)
	b.WriteString("\n\n")
	b.WriteString("If you need to call one or more tools, respond with ONLY a single JSON object:\n")
	b.WriteString(`{"tool_calls":[{"id":"call_1","name":"<tool name>","arguments":"<JSON-encoded argument object>"}],"finish_reason":"tool_calls"}`)
	b.WriteString("\n\n")
	b.WriteString("Otherwise respond with ONLY a single JSON object:\n")
	b.WriteString(`{"output_text":"<your reply>","finish_reason":"stop"}`)
	return b.String()
}

// requestPayload is the request.json staging file and the stdin body for
// input=request_json_stdin providers.
type requestPayload struct {
	RequestID     string               `json:"requestId"`
	Model         string               `json:"model"`
	ProviderModel string               `json:"providerModel"`
	Messages      []domain.ChatMessage `json:"messages"`
	Tools         []domain.ToolDefinition `json:"tools"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

func buildRequestPayload(req domain.UnifiedRequest) requestPayload {
	tools := req.Tools
	if tools == nil {
		tools = []domain.ToolDefinition{}
	}
	return requestPayload{
		RequestID:     req.RequestID,
		Model:         req.Model,
		ProviderModel: req.ProviderModel,
		Messages:      req.Messages,
		Tools:         tools,
		Metadata:      req.Metadata,
	}
}

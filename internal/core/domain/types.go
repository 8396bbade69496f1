// Package domain holds the types shared by every core subsystem: the
// unified request/response shapes the dispatcher moves around, and the
// provider-binding configuration shapes loaded from YAML.
package domain

import "strings"

// Role identifies the speaker of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one turn of a conversation, already flattened to text by
// the wire adapter before it reaches the core.
type ChatMessage struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolDefinition is one function the model may call.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// DedupeToolDefinitions drops duplicates by case-insensitive name, keeping
// the first occurrence.
func DedupeToolDefinitions(tools []ToolDefinition) []ToolDefinition {
	if len(tools) == 0 {
		return tools
	}
	seen := make(map[string]struct{}, len(tools))
	out := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		key := strings.ToLower(t.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// UnifiedRequest is one model invocation, immutable once dispatched.
type UnifiedRequest struct {
	RequestID     string
	Model         string
	ProviderModel string
	Messages      []ChatMessage
	Tools         []ToolDefinition
	Metadata      map[string]string
}

// WithModel returns a shallow copy of the request bound to a different
// model/providerModel pair, used when the dispatcher walks a fallback chain.
func (r UnifiedRequest) WithModel(model, providerModel string) UnifiedRequest {
	r.Model = model
	r.ProviderModel = providerModel
	return r
}

// FinishReason is the closed set of reasons a ProviderResult completed.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishError     FinishReason = "error"
)

// ToolCall is a structured invocation intent surfaced to the wire layer.
// Arguments is always a JSON-encoded string, never a parsed object, so the
// exact provider encoding survives the round trip.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ProviderResult is what a provider hands back for one invocation.
type ProviderResult struct {
	OutputText   string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Raw          string
}

// InputMode selects how a provider feeds its child process stdin.
type InputMode string

const (
	InputPromptStdin      InputMode = "prompt_stdin"
	InputRequestJSONStdin InputMode = "request_json_stdin"
)

// OutputMode selects which output-parsing contract applies to a provider's
// stdout.
type OutputMode string

const (
	OutputText                 OutputMode = "text"
	OutputTextPlain             OutputMode = "text_plain"
	OutputTextContractFinalLine OutputMode = "text_contract_final_line"
	OutputJSONContract          OutputMode = "json_contract"
)

// CommandSpec describes one external process invocation. Every string field
// may contain {{template}} placeholders.
type CommandSpec struct {
	Executable string
	Args       []string
	Env        map[string]string
	Cwd        string
	TimeoutMs  int
}

// ResponseCommand augments a CommandSpec with the input/output contract used
// for model-response invocations.
type ResponseCommand struct {
	CommandSpec
	Input  InputMode
	Output OutputMode
}

// ModelConfig describes one model exposed by a provider binding.
type ModelConfig struct {
	ID             string
	ProviderModel  string
	Description    string
	FallbackModels []string
}

// ProviderBinding is the parsed, validated configuration for one upstream
// CLI provider.
type ProviderBinding struct {
	ID               string
	Description      string
	Models           []ModelConfig
	ResponseCommand  ResponseCommand
	LoginCommand     *CommandSpec
	StatusCommand    *CommandSpec
	RateLimitCommand *CommandSpec
}

// ModelBinding is the registry's derived, per-model routing record.
type ModelBinding struct {
	ModelID        string
	ProviderID     string
	ProviderModel  string
	Description    string
	FallbackModels []string
}

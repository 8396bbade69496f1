package parser

import (
	"testing"

	"github.com/relaywell/cligateway/internal/core/domain"
)

func TestTryParseContractRejectsNonObject(t *testing.T) {
	if _, ok := tryParseContract(`["a","b"]`); ok {
		t.Fatalf("expected array to be rejected as a contract")
	}
	if _, ok := tryParseContract(`not json at all`); ok {
		t.Fatalf("expected non-json to be rejected")
	}
	if _, ok := tryParseContract(``); ok {
		t.Fatalf("expected empty string to be rejected")
	}
}

func TestHasAnyFieldRequiresAtLeastOneKnownKey(t *testing.T) {
	c, ok := tryParseContract(`{"unrelated":"value"}`)
	if !ok {
		t.Fatalf("expected object to parse as contract shape")
	}
	if c.hasAnyField() {
		t.Fatalf("expected hasAnyField to be false for an unrelated object")
	}
}

func TestOutputTextPrecedence(t *testing.T) {
	c, ok := tryParseContract(`{"output_text":"a","text":"b","content":"c"}`)
	if !ok {
		t.Fatalf("expected parse")
	}
	if c.outputText() != "a" {
		t.Fatalf("got %q", c.outputText())
	}
}

func TestFinishReasonDefaultsFromToolCalls(t *testing.T) {
	c, ok := tryParseContract(`{"output_text":"x","tool_calls":[{"id":"1","name":"f","arguments":"{}"}]}`)
	if !ok {
		t.Fatalf("expected parse")
	}
	calls := normalizeToolCalls(c.ToolCalls)
	if finishReasonOf(c, calls) != domain.FinishToolCalls {
		t.Fatalf("expected finish reason to default to tool_calls")
	}
}

func TestFinishReasonRejectsUnknownValue(t *testing.T) {
	c, ok := tryParseContract(`{"output_text":"x","finish_reason":"bogus"}`)
	if !ok {
		t.Fatalf("expected parse")
	}
	if finishReasonOf(c, nil) != domain.FinishStop {
		t.Fatalf("expected unknown finish_reason to fall back to stop")
	}
}

func TestParseIdempotentOnRawContract(t *testing.T) {
	stdout := `{"output_text":"hi","tool_calls":[{"id":"1","name":"search","arguments":"{\"q\":\"x\"}"}],"finish_reason":"tool_calls"}`
	declared := []domain.ToolDefinition{{Name: "search"}}

	first, err := Parse(domain.OutputJSONContract, stdout, declared)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := Parse(domain.OutputJSONContract, first.Raw, declared)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	if first.OutputText != second.OutputText || first.FinishReason != second.FinishReason {
		t.Fatalf("not idempotent: %+v vs %+v", first, second)
	}
	if len(first.ToolCalls) != len(second.ToolCalls) {
		t.Fatalf("tool call count mismatch: %+v vs %+v", first.ToolCalls, second.ToolCalls)
	}
}

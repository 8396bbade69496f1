package parser

import (
	"testing"

	"github.com/relaywell/cligateway/internal/core/domain"
)

func TestParseTextPlainUnconditional(t *testing.T) {
	r, err := Parse(domain.OutputTextPlain, "  {\"output_text\":\"not parsed\"}  ", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.OutputText != `{"output_text":"not parsed"}` || r.FinishReason != domain.FinishStop {
		t.Fatalf("got %+v", r)
	}
}

func TestParseTextSoftContract(t *testing.T) {
	r, err := Parse(domain.OutputText, `{"output_text":"hi there"}`, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.OutputText != "hi there" || r.FinishReason != domain.FinishStop {
		t.Fatalf("got %+v", r)
	}
}

func TestParseTextFallsBackToPlain(t *testing.T) {
	r, err := Parse(domain.OutputText, "just plain output, not json", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.OutputText != "just plain output, not json" {
		t.Fatalf("got %+v", r)
	}
}

func TestParseTextHappyPath(t *testing.T) {
	// Scenario 1 from spec §8: text mode, plain stdout "hello".
	r, err := Parse(domain.OutputText, "hello", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := domain.ProviderResult{OutputText: "hello", FinishReason: domain.FinishStop}
	if r.OutputText != want.OutputText || r.FinishReason != want.FinishReason || len(r.ToolCalls) != 0 {
		t.Fatalf("got %+v", r)
	}
}

func TestParseJSONContractWithToolCall(t *testing.T) {
	// Scenario 2 from spec §8.
	stdout := `{"output_text":"","tool_calls":[{"id":"c1","name":"search","arguments":"{\"q\":\"x\"}"}],"finish_reason":"tool_calls"}`
	declared := []domain.ToolDefinition{{
		Name:       "search",
		Parameters: map[string]any{"properties": map[string]any{"q": map[string]any{}}},
	}}
	r, err := Parse(domain.OutputJSONContract, stdout, declared)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls: %+v", len(r.ToolCalls), r.ToolCalls)
	}
	call := r.ToolCalls[0]
	if call.ID != "c1" || call.Name != "search" || call.Arguments != `{"q":"x"}` {
		t.Fatalf("got %+v", call)
	}
	if r.FinishReason != domain.FinishToolCalls {
		t.Fatalf("got finish reason %q", r.FinishReason)
	}
}

func TestParseJSONContractEmptyStdoutIsParseError(t *testing.T) {
	_, err := Parse(domain.OutputJSONContract, "   ", nil)
	if err == nil {
		t.Fatalf("expected ParseError for empty stdout")
	}
	if _, ok := err.(*domain.ParseError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestParseJSONContractScansLinesBottomUp(t *testing.T) {
	stdout := "some log noise\nmore noise\n" + `{"output_text":"final"}`
	r, err := Parse(domain.OutputJSONContract, stdout, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.OutputText != "final" {
		t.Fatalf("got %+v", r)
	}
}

func TestParseTextContractFinalLineFallsBackOnInvalidLine(t *testing.T) {
	stdout := "line one\nline two not json"
	r, err := Parse(domain.OutputTextContractFinalLine, stdout, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.OutputText != stdout {
		t.Fatalf("got %+v", r)
	}
}

func TestParseTextContractFinalLineParsesLastLine(t *testing.T) {
	stdout := "preamble\n" + `{"text":"the answer"}`
	r, err := Parse(domain.OutputTextContractFinalLine, stdout, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.OutputText != "the answer" {
		t.Fatalf("got %+v", r)
	}
}

func TestPostProcessCanonicalizesAndDrops(t *testing.T) {
	// Scenario 4 from spec §8.
	stdout := `{"output_text":"","tool_calls":[` +
		`{"id":"c1","name":"Search-Docs","arguments":"{}"},` +
		`{"id":"c2","name":"unknown_tool","arguments":"{}"}` +
		`],"finish_reason":"tool_calls"}`
	declared := []domain.ToolDefinition{{Name: "searchDocs"}}
	r, err := Parse(domain.OutputJSONContract, stdout, declared)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.ToolCalls) != 1 || r.ToolCalls[0].Name != "searchDocs" {
		t.Fatalf("got %+v", r.ToolCalls)
	}
	if r.FinishReason != domain.FinishToolCalls {
		t.Fatalf("got finish reason %q", r.FinishReason)
	}
}

func TestPostProcessDowngradesFinishReasonWhenAllDropped(t *testing.T) {
	stdout := `{"tool_calls":[{"id":"c1","name":"unknown_tool","arguments":"{}"}],"finish_reason":"tool_calls"}`
	declared := []domain.ToolDefinition{{Name: "search"}}
	r, err := Parse(domain.OutputJSONContract, stdout, declared)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.ToolCalls) != 0 {
		t.Fatalf("expected all tool calls dropped, got %+v", r.ToolCalls)
	}
	if r.FinishReason != domain.FinishStop {
		t.Fatalf("expected downgrade to stop, got %q", r.FinishReason)
	}
}

func TestPostProcessDropsAllWhenNoToolsDeclared(t *testing.T) {
	stdout := `{"tool_calls":[{"id":"c1","name":"search","arguments":"{}"}],"finish_reason":"tool_calls"}`
	r, err := Parse(domain.OutputJSONContract, stdout, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.ToolCalls) != 0 || r.FinishReason != domain.FinishStop {
		t.Fatalf("got %+v", r)
	}
}

// Package parser implements the output-parsing contract for provider
// stdout: soft/hard JSON-contract extraction across four output modes,
// tool-call normalization with nested-JSON recovery, and canonicalization
// of surviving tool calls against a request's declared tools.
package parser

import (
	"strings"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// Parse extracts a ProviderResult from a child process's stdout according
// to mode, then canonicalizes any tool calls against declared. declared may
// be nil or empty, in which case any tool calls the child emitted are
// dropped.
func Parse(mode domain.OutputMode, stdout string, declared []domain.ToolDefinition) (domain.ProviderResult, error) {
	var result domain.ProviderResult
	var err error

	switch mode {
	case domain.OutputTextPlain:
		result = domain.ProviderResult{
			OutputText:   strings.TrimSpace(stdout),
			FinishReason: domain.FinishStop,
		}

	case domain.OutputText:
		if c, ok := tryParseContract(strings.TrimSpace(stdout)); ok && c.hasAnyField() {
			result = fromContract(c)
		} else {
			result = domain.ProviderResult{
				OutputText:   strings.TrimSpace(stdout),
				FinishReason: domain.FinishStop,
			}
		}

	case domain.OutputTextContractFinalLine:
		result = parseFinalLine(stdout)

	case domain.OutputJSONContract:
		result, err = parseJSONContract(stdout)

	default:
		result = domain.ProviderResult{
			OutputText:   strings.TrimSpace(stdout),
			FinishReason: domain.FinishStop,
		}
	}

	if err != nil {
		return domain.ProviderResult{}, err
	}

	return postProcess(result, declared), nil
}

func parseFinalLine(stdout string) domain.ProviderResult {
	lines := splitLines(stdout)
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if c, ok := tryParseContract(line); ok {
			return fromContract(c)
		}
		break
	}
	return domain.ProviderResult{
		OutputText:   strings.TrimSpace(stdout),
		FinishReason: domain.FinishStop,
	}
}

func parseJSONContract(stdout string) (domain.ProviderResult, error) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return domain.ProviderResult{}, &domain.ParseError{Reason: "empty stdout"}
	}
	if c, ok := tryParseContract(trimmed); ok {
		return fromContract(c), nil
	}
	if c, ok := scanLinesForContract(stdout); ok {
		return fromContract(c), nil
	}
	return domain.ProviderResult{}, &domain.ParseError{Reason: "no valid JSON object found in stdout"}
}

func fromContract(c *contract) domain.ProviderResult {
	toolCalls := normalizeToolCalls(c.ToolCalls)
	return domain.ProviderResult{
		OutputText:   strings.TrimSpace(c.outputText()),
		ToolCalls:    toolCalls,
		FinishReason: finishReasonOf(c, toolCalls),
		Raw:          string(c.raw),
	}
}

// postProcess canonicalizes result's tool calls against declared and
// downgrades finishReason from tool_calls to stop if every call was
// dropped, per §4.3.
func postProcess(result domain.ProviderResult, declared []domain.ToolDefinition) domain.ProviderResult {
	survivors := canonicalizeToolCalls(result.ToolCalls, declared)
	result.ToolCalls = survivors
	if result.FinishReason == domain.FinishToolCalls && len(survivors) == 0 {
		result.FinishReason = domain.FinishStop
	}
	return result
}

package parser

import (
	"encoding/json"
	"strings"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// contract is the JSON shape the parser recognizes from provider stdout.
type contract struct {
	OutputText   *string         `json:"output_text"`
	Text         *string         `json:"text"`
	Content      *string         `json:"content"`
	ToolCalls    []any           `json:"tool_calls"`
	FinishReason *string         `json:"finish_reason"`
	raw          json.RawMessage `json:"-"`
}

// hasAnyField reports whether at least one of the soft-contract fields was
// present, per §4.3's requirement for "text" mode to only adopt the
// contract when it actually looks like one.
func (c *contract) hasAnyField() bool {
	return c.OutputText != nil || c.Text != nil || c.Content != nil || len(c.ToolCalls) > 0
}

func (c *contract) outputText() string {
	switch {
	case c.OutputText != nil:
		return *c.OutputText
	case c.Text != nil:
		return *c.Text
	case c.Content != nil:
		return *c.Content
	default:
		return ""
	}
}

// tryParseContract attempts to unmarshal s as a JSON contract object. It
// rejects anything that isn't a JSON object (arrays, scalars) since the
// contract shape is always an object.
func tryParseContract(s string) (*contract, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}
	var c contract
	if err := json.Unmarshal([]byte(trimmed), &c); err != nil {
		return nil, false
	}
	c.raw = json.RawMessage(trimmed)
	return &c, true
}

// scanLinesForContract scans stdout bottom-up for the first line that
// parses as a valid JSON object, per json_contract's fallback path.
func scanLinesForContract(stdout string) (*contract, bool) {
	lines := splitLines(stdout)
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if c, ok := tryParseContract(line); ok {
			return c, true
		}
	}
	return nil, false
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

func finishReasonOf(c *contract, toolCalls []domain.ToolCall) domain.FinishReason {
	if c.FinishReason != nil {
		switch domain.FinishReason(*c.FinishReason) {
		case domain.FinishStop, domain.FinishToolCalls, domain.FinishLength, domain.FinishError:
			return domain.FinishReason(*c.FinishReason)
		}
	}
	if len(toolCalls) > 0 {
		return domain.FinishToolCalls
	}
	return domain.FinishStop
}

package parser

import (
	"strings"

	"github.com/buger/jsonparser"
)

// nestedNodeBudget bounds the nested-recovery traversal, per §4.3/§4.9 and
// the ≤80-node invariant in §8.
const nestedNodeBudget = 80

// recoverNested descends into a tool call's arguments string looking for an
// inner tool call, for the case where a provider's assistant reply got
// wrapped as a string inside another tool call's arguments. It performs a
// breadth-limited traversal over candidate JSON substrings (fenced code
// blocks, brace-delimited windows, and whole-string parses), expanding
// through tool_calls[] first, then a fixed priority of string fields, then
// any remaining string children.
func recoverNested(argsJSON string) (name string, arguments string, found bool) {
	budget := nestedNodeBudget
	seen := map[string]struct{}{argsJSON: {}}
	queue := []string{argsJSON}

	for len(queue) > 0 && budget > 0 {
		s := queue[0]
		queue = queue[1:]
		budget--

		for _, candidate := range jsonCandidatesIn(s) {
			data := []byte(candidate)
			if !looksLikeObject(data) {
				continue
			}

			if n, a, ok := firstToolCallIn(data); ok {
				return n, a, true
			}

			for _, path := range [][]string{
				{"response"}, {"message", "content"}, {"output_text"}, {"text"}, {"content"},
			} {
				if sv, err := jsonparser.GetString(data, path...); err == nil && sv != "" {
					enqueue(&queue, seen, sv)
				}
			}

			_ = jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, offset int) error {
				if dataType == jsonparser.String {
					if sv, err := jsonparser.ParseString(value); err == nil && sv != "" {
						enqueue(&queue, seen, sv)
					}
				}
				return nil
			})
		}
	}

	return "", "", false
}

func enqueue(queue *[]string, seen map[string]struct{}, s string) {
	if _, dup := seen[s]; dup {
		return
	}
	seen[s] = struct{}{}
	*queue = append(*queue, s)
}

// firstToolCallIn extracts the first entry of data's tool_calls[] array, if
// present. The name is read from name or function.name and the arguments
// from arguments or function.arguments; the other aliases normalizeToolCalls
// accepts for a top-level contract (tool_name, toolName, args, parameters,
// function.args) are not read here.
func firstToolCallIn(data []byte) (name string, arguments string, found bool) {
	var first []byte
	var firstType jsonparser.ValueType
	seenFirst := false

	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, offset int, cbErr error) {
		if seenFirst || cbErr != nil {
			return
		}
		first = value
		firstType = dataType
		seenFirst = true
	}, "tool_calls")

	if err != nil || !seenFirst || firstType != jsonparser.Object {
		return "", "", false
	}

	callName, nameErr := jsonparser.GetString(first, "name")
	if nameErr != nil || callName == "" {
		callName, nameErr = jsonparser.GetString(first, "function", "name")
	}
	if nameErr != nil || callName == "" {
		return "", "", false
	}

	args := "{}"
	if raw, valType, _, argErr := jsonparser.Get(first, "arguments"); argErr == nil {
		args = decodeNestedArgument(raw, valType)
	} else if raw, valType, _, argErr := jsonparser.Get(first, "function", "arguments"); argErr == nil {
		args = decodeNestedArgument(raw, valType)
	}

	return callName, args, true
}

func decodeNestedArgument(raw []byte, valType jsonparser.ValueType) string {
	if valType == jsonparser.String {
		if s, err := jsonparser.ParseString(raw); err == nil {
			return encodeArgument(s)
		}
		return "{}"
	}
	return string(raw)
}

// jsonCandidatesIn extracts candidate JSON-object substrings from s: fenced
// code blocks, the window from the first '{' to the last '}', and s itself
// if it already looks like a bare object.
func jsonCandidatesIn(s string) []string {
	var candidates []string

	trimmed := strings.TrimSpace(s)
	if looksLikeObject([]byte(trimmed)) {
		candidates = append(candidates, trimmed)
	}

	for _, block := range extractFencedBlocks(s) {
		block = strings.TrimSpace(block)
		if block != "" {
			candidates = append(candidates, block)
		}
	}

	if i := strings.IndexByte(s, '{'); i >= 0 {
		if j := strings.LastIndexByte(s, '}'); j > i {
			candidates = append(candidates, s[i:j+1])
		}
	}

	return candidates
}

func extractFencedBlocks(s string) []string {
	const fence = "```"
	var blocks []string
	rest := s
	for {
		start := strings.Index(rest, fence)
		if start < 0 {
			break
		}
		rest = rest[start+len(fence):]
		end := strings.Index(rest, fence)
		if end < 0 {
			break
		}
		block := rest[:end]
		rest = rest[end+len(fence):]

		if nl := strings.IndexByte(block, '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(block[:nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]\"") {
				block = block[nl+1:]
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func looksLikeObject(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
}

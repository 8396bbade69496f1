package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// normalizeToolCalls walks a contract's raw tool_calls[] and extracts a
// domain.ToolCall from each entry, per §4.3's field-alias rules.
func normalizeToolCalls(raw []any) []domain.ToolCall {
	out := make([]domain.ToolCall, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := firstString(m, "id", "call_id", "tool_id", "toolId")
		if id == "" {
			id = fmt.Sprintf("call_%d", i+1)
		}
		name, _ := firstString(m, "name", "tool_name", "toolName", "function.name")
		args := extractArguments(m)

		if innerName, innerArgs, found := recoverNested(args); found {
			name = innerName
			args = innerArgs
		}

		out = append(out, domain.ToolCall{ID: id, Name: name, Arguments: args})
	}
	return out
}

// firstString returns the first non-empty string found at any of the
// dotted paths in m.
func firstString(m map[string]any, paths ...string) (string, bool) {
	for _, p := range paths {
		if v, ok := lookupPath(m, p); ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func lookupPath(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := obj[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// extractArguments resolves a tool call's argument blob to a JSON-encoded
// string, defaulting to "{}", per §4.3.
func extractArguments(m map[string]any) string {
	for _, path := range []string{"arguments", "args", "parameters", "function.arguments", "function.args"} {
		v, ok := lookupPath(m, path)
		if !ok {
			continue
		}
		return encodeArgument(v)
	}
	return "{}"
}

// encodeArgument turns a raw argument value into a JSON-encoded string. A
// string that looks like JSON is re-parsed and re-serialized (sanitizing
// whitespace-padded keys); any other string passes through verbatim;
// non-string values are stringified.
func encodeArgument(v any) string {
	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var reparsed any
			if err := json.Unmarshal([]byte(trimmed), &reparsed); err == nil {
				if b, err := json.Marshal(reparsed); err == nil {
					return string(b)
				}
			}
		}
		return val
	case nil:
		return "{}"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "{}"
		}
		return string(b)
	}
}

// canonicalizeToolCalls rewrites tool call names to their declared
// canonical form and drops calls that don't match any declared tool, per
// §4.3's post-processing step. When declared is empty, every call is
// dropped (the caller is expected to check len(declared) separately to
// distinguish "no tools declared" from "tools declared, none matched").
func canonicalizeToolCalls(calls []domain.ToolCall, declared []domain.ToolDefinition) []domain.ToolCall {
	if len(declared) == 0 {
		return nil
	}

	byCanonical := make(map[string]domain.ToolDefinition, len(declared))
	for _, t := range declared {
		byCanonical[canonicalize(t.Name)] = t
	}

	out := make([]domain.ToolCall, 0, len(calls))
	for _, c := range calls {
		def, ok := byCanonical[canonicalize(c.Name)]
		if !ok {
			continue
		}
		out = append(out, domain.ToolCall{
			ID:        c.ID,
			Name:      def.Name,
			Arguments: canonicalizeArgumentKeys(c.Arguments, def),
		})
	}
	return out
}

// canonicalizeArgumentKeys rewrites an arguments JSON object's keys to
// match the declared parameter property names, when the argument blob is
// a JSON object and the tool declares parameter properties.
func canonicalizeArgumentKeys(arguments string, def domain.ToolDefinition) string {
	props := parameterPropertyNames(def.Parameters)
	if len(props) == 0 {
		return arguments
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(arguments), &obj); err != nil {
		return arguments
	}

	byCanonical := make(map[string]string, len(props))
	for _, p := range props {
		byCanonical[canonicalize(p)] = p
	}

	rewritten := make(map[string]any, len(obj))
	for k, v := range obj {
		if canon, ok := byCanonical[canonicalize(k)]; ok {
			rewritten[canon] = v
		} else {
			rewritten[k] = v
		}
	}

	b, err := json.Marshal(rewritten)
	if err != nil {
		return arguments
	}
	return string(b)
}

// parameterPropertyNames extracts the top-level property names from a
// tool's opaque JSON-schema-shaped Parameters value.
func parameterPropertyNames(parameters any) []string {
	schema, ok := parameters.(map[string]any)
	if !ok {
		return nil
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	return names
}

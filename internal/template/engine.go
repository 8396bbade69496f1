// Package template substitutes {{name}} placeholders in strings and
// string-maps against a variable lookup. It never errors on an unknown
// name — unknown names resolve to the empty string, per design.
package template

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Vars is the variable lookup a substitution runs against.
type Vars map[string]string

// Engine applies {{name}} substitution. The zero value is a working
// shell-escape-OFF engine, matching the default described in spec §4.1:
// values are passed as positional argv entries, never through a shell.
type Engine struct {
	// UserControlled names the variables whose values get shell-quoted
	// when ShellEscape is on. "prompt" is always treated as user-controlled
	// in addition to any names listed here.
	UserControlled map[string]struct{}
	// ShellEscape toggles POSIX single-quote wrapping for user-controlled
	// variables. Off by default: the CLI executor never invokes a shell,
	// so escaping would only corrupt values passed as argv entries.
	ShellEscape bool
}

// New returns an engine in shell-escape-OFF mode.
func New() *Engine {
	return &Engine{UserControlled: map[string]struct{}{}}
}

func (e *Engine) isUserControlled(name string) bool {
	if name == "prompt" {
		return true
	}
	if e.UserControlled == nil {
		return false
	}
	_, ok := e.UserControlled[name]
	return ok
}

// Apply substitutes every {{name}} placeholder in s using vars.
func (e *Engine) Apply(s string, vars Vars) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		val := vars[name]
		if e.ShellEscape && e.isUserControlled(name) {
			return shellQuote(val)
		}
		return val
	})
}

// ApplyMap substitutes every value in a string map, leaving keys untouched.
func (e *Engine) ApplyMap(m map[string]string, vars Vars) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = e.Apply(v, vars)
	}
	return out
}

// ApplySlice substitutes every element of a string slice.
func (e *Engine) ApplySlice(s []string, vars Vars) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = e.Apply(v, vars)
	}
	return out
}

// shellQuote wraps a value in POSIX single quotes, escaping embedded single
// quotes via the '"'"' idiom: close the quote, emit an escaped quote, reopen.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'"'"'`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

package template

import "testing"

func TestApplyUnknownNamesResolveEmpty(t *testing.T) {
	e := New()
	got := e.Apply("hello {{name}}, model={{model}}", Vars{"name": "world"})
	want := "hello world, model="
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestApplyNoPlaceholderRemains(t *testing.T) {
	e := New()
	got := e.Apply("{{a}}{{ b }}{{c}}", Vars{})
	if got != "" {
		t.Fatalf("expected all placeholders replaced with empty string, got %q", got)
	}
}

func TestApplyWhitespaceInsidePlaceholder(t *testing.T) {
	e := New()
	got := e.Apply("{{  prompt  }}", Vars{"prompt": "hi"})
	if got != "hi" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyIdempotentOnPlainText(t *testing.T) {
	e := New()
	s := "no placeholders here"
	if e.Apply(s, Vars{}) != s {
		t.Fatalf("plain text should pass through unchanged")
	}
}

func TestShellEscapeRoundTrip(t *testing.T) {
	e := &Engine{ShellEscape: true}
	original := `it's a "test" with $(danger) and `+"`backticks`"
	quoted := e.Apply("{{prompt}}", Vars{"prompt": original})

	// Simulate /bin/sh -c 'echo <quoted>' reproducing the original value.
	// We can't spawn a shell in this test environment reliably across
	// platforms, so we validate the quoting algorithm directly: unwrapping
	// the POSIX single-quote escaping must reproduce the input exactly.
	got := unwrapShellQuote(quoted)
	if got != original {
		t.Fatalf("shell-escape round trip failed: got %q want %q", got, original)
	}
}

func TestApplyMapAndSlice(t *testing.T) {
	e := New()
	vars := Vars{"x": "1"}
	m := e.ApplyMap(map[string]string{"K": "{{x}}"}, vars)
	if m["K"] != "1" {
		t.Fatalf("ApplyMap: got %+v", m)
	}
	s := e.ApplySlice([]string{"{{x}}", "lit"}, vars)
	if s[0] != "1" || s[1] != "lit" {
		t.Fatalf("ApplySlice: got %+v", s)
	}
}

// unwrapShellQuote reverses shellQuote's POSIX single-quote escaping,
// mirroring what a POSIX shell's quote removal does to the substituted
// argument.
func unwrapShellQuote(s string) string {
	if len(s) < 2 || s[0] != '\'' {
		return s
	}
	s = s[1 : len(s)-1]
	out := ""
	for {
		idx := indexOf(s, `'"'"'`)
		if idx < 0 {
			out += s
			break
		}
		out += s[:idx] + "'"
		s = s[idx+len(`'"'"'`):]
	}
	return out
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

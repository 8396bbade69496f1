package template

import "regexp"

// metaCharRule flags one class of shell metacharacter that could surprise an
// operator inspecting a resolved command line. Shaped after a rule-table
// heuristic scanner: name + pattern + a one-line human explanation.
type metaCharRule struct {
	name    string
	pattern *regexp.Regexp
	explain string
}

var metaCharRules = []metaCharRule{
	{"backtick", regexp.MustCompile("`"), "contains a backtick, which would trigger command substitution under a shell"},
	{"pipe", regexp.MustCompile(`\|`), "contains a pipe character"},
	{"semicolon", regexp.MustCompile(`;`), "contains a semicolon, which would separate shell commands"},
	{"ampersand", regexp.MustCompile(`&`), "contains an ampersand, which would background or chain shell commands"},
	{"redirect", regexp.MustCompile(`[<>]`), "contains a redirection character"},
	{"glob", regexp.MustCompile(`[*?]`), "contains a shell glob character"},
	{"bracket", regexp.MustCompile(`[\[\]{}]`), "contains a bracket or brace, used for shell globbing/expansion"},
	{"tilde", regexp.MustCompile(`~`), "contains a tilde, which would expand to a home directory under a shell"},
	{"hash", regexp.MustCompile(`#`), "contains a hash, which would start a shell comment"},
	{"bang", regexp.MustCompile(`!`), "contains a bang, which can trigger shell history expansion"},
	{"dollar", regexp.MustCompile(`\$`), "contains a dollar sign, which would trigger variable or command substitution under a shell"},
	{"paren", regexp.MustCompile(`[()]`), "contains a parenthesis, which would trigger subshell or command substitution under a shell"},
}

// Warning is one finding from Check, intended for operator logging rather
// than blocking — the executor never runs commands through a shell, so none
// of these characters are actually dangerous at spawn time.
type Warning struct {
	Variable string
	Rule     string
	Message  string
}

// Check scans the values of the named user-controlled variables for shell
// metacharacters and returns human-readable warnings. It never mutates vars
// and never blocks substitution; Apply always proceeds regardless of what
// Check finds.
func Check(vars Vars, userControlled ...string) []Warning {
	var warnings []Warning
	for _, name := range userControlled {
		val, ok := vars[name]
		if !ok || val == "" {
			continue
		}
		for _, rule := range metaCharRules {
			if rule.pattern.MatchString(val) {
				warnings = append(warnings, Warning{
					Variable: name,
					Rule:     rule.name,
					Message:  rule.explain,
				})
			}
		}
	}
	return warnings
}

package parser

import "testing"

func TestCanonicalizeCamelCase(t *testing.T) {
	cases := map[string]string{
		"searchDocs":   "search_docs",
		"Search-Docs":  "search_docs",
		"SEARCH_DOCS":  "search_docs",
		"search.docs":  "search_docs",
		"search/docs":  "search_docs",
		"  search docs  ": "search_docs",
		"search__docs": "search_docs",
		"unknown_tool": "unknown_tool",
	}
	for in, want := range cases {
		if got := canonicalize(in); got != want {
			t.Errorf("canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{"searchDocs", "Search-Docs", "weird!!Name??", "already_snake"}
	for _, in := range inputs {
		once := canonicalize(in)
		twice := canonicalize(once)
		if once != twice {
			t.Errorf("canonicalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCanonicalizeStripsNonAlnum(t *testing.T) {
	if got := canonicalize("weird!!Name??"); got != "weird_name" {
		t.Fatalf("got %q", got)
	}
}

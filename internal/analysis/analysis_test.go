package analysis

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestStandardAnalyzer(t *testing.T) {
	a, err := NewRegistry().Get(Standard)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"basic", "The Quick Brown Fox", []string{"the", "quick", "brown", "fox"}},
		{"empty", "", nil},
		{"punctuation", "random subtitle; random event movie", []string{"random", "subtitle", "random", "event", "movie"}},
		{"numbers", "test123 456abc", []string{"test123", "456abc"}},
		{"unicode", "café résumé", []string{"café", "résumé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.input)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Analyze(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeywordAnalyzer(t *testing.T) {
	a, _ := NewRegistry().Get(Keyword)
	got := a.Analyze("United States")
	if len(got) != 1 || got[0] != "United States" {
		t.Errorf("Analyze = %v, want single term", got)
	}
	if got := a.Analyze(""); got != nil {
		t.Errorf("Analyze(\"\") = %v, want nil", got)
	}
}

func TestTermFreqs(t *testing.T) {
	a, _ := NewRegistry().Get(Standard)
	freqs := TermFreqs(a, "movie end movie test 123 test 123 random")
	if freqs["movie"] != 2 || freqs["test"] != 2 || freqs["random"] != 1 {
		t.Errorf("TermFreqs = %v", freqs)
	}
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownAnalyzer) {
		t.Errorf("expected ErrUnknownAnalyzer, got %v", err)
	}
	if err := r.Register(Keyword, Func(strings.Fields)); !errors.Is(err, ErrDuplicateAnalyzer) {
		t.Errorf("expected ErrDuplicateAnalyzer, got %v", err)
	}
	if err := r.Register("upper", Func(func(s string) []string { return []string{strings.ToUpper(s)} })); err != nil {
		t.Fatal(err)
	}
	a, err := r.Get("upper")
	if err != nil || a.Analyze("x")[0] != "X" {
		t.Errorf("custom analyzer not usable: %v", err)
	}
}
